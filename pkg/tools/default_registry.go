package tools

// DefaultConfig configures NewDefaultRegistry.
type DefaultConfig struct {
	Root            string
	VerifyCommands  []string
	DiagramCommand  string
	SpecMode        bool
	SpecPath        string // workspace-relative, required when SpecMode
	EnableFetchURL  bool
}

// NewDefaultRegistry wires the default tool set (§4.3) bound to a
// workspace root and verify-command list, adding the three spec-mode
// tools and the optional network tool.
func NewDefaultRegistry(cfg DefaultConfig) *Registry {
	r := NewRegistry()
	r.Add(NewRepoTreeTool(cfg.Root))
	r.Add(NewRepoMapTool(cfg.Root))
	r.Add(NewReadFileTool(cfg.Root))
	r.Add(NewSearchTool(cfg.Root))
	r.Add(NewGitStatusTool(cfg.Root))
	r.Add(NewApplyPatchTool(cfg.Root))
	r.Add(NewShellTool(cfg.Root))
	r.Add(NewDiagramTool(cfg.Root, cfg.DiagramCommand))
	r.Add(NewVerifyTool(cfg.Root, cfg.VerifyCommands))

	if cfg.SpecMode {
		r.Add(NewReadSpecTool(cfg.Root, cfg.SpecPath))
		r.Add(NewWriteSpecTool(cfg.Root, cfg.SpecPath))
		r.Add(NewValidateSpecTool(cfg.Root, cfg.SpecPath))
	}
	if cfg.EnableFetchURL {
		r.Add(NewFetchURLTool())
	}
	return r
}
