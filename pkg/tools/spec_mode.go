package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentd/core/pkg/workspace"
)

// ReadSpecTool reads the session's spec file.
type ReadSpecTool struct {
	Root     string
	SpecPath string // workspace-relative
}

func NewReadSpecTool(root, specPath string) *ReadSpecTool {
	return &ReadSpecTool{Root: root, SpecPath: specPath}
}

func (t *ReadSpecTool) Definition() Definition {
	return Definition{
		Name:        "read_spec",
		Description: "Reads the session's spec file.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Kind: KindRead,
	}
}

func (t *ReadSpecTool) Invoke(ctx context.Context, call Call) (Result, error) {
	abs, err := workspace.SafeJoin(t.Root, t.SpecPath)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	return TextResult(call.ID, string(data)), nil
}

// WriteSpecTool overwrites the session's spec file. Allow-without-approval
// per §4.3 — spec edits are explicitly exempt from approval gating.
type WriteSpecTool struct {
	Root     string
	SpecPath string
}

func NewWriteSpecTool(root, specPath string) *WriteSpecTool {
	return &WriteSpecTool{Root: root, SpecPath: specPath}
}

func (t *WriteSpecTool) Definition() Definition {
	return Definition{
		Name:        "write_spec",
		Description: "Overwrites the session's spec file with the given content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{"type": "string"},
			},
			"required": []any{"content"},
		},
		Kind:                 KindWrite,
		RequiresApproval:     true,
		AllowWithoutApproval: true,
	}
}

type writeSpecInput struct {
	Content string `json:"content"`
}

func (t *WriteSpecTool) Invoke(ctx context.Context, call Call) (Result, error) {
	var in writeSpecInput
	if err := DecodeInput(call, &in); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	abs, err := workspace.SafeJoin(t.Root, t.SpecPath)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if err := os.WriteFile(abs, []byte(in.Content), 0o644); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	return TextResult(call.ID, "spec written"), nil
}

// ValidateSpecTool checks the spec's markdown headings for required
// sections (§4.3, §8): a heading starting with "goal", one containing
// "constraint", and one containing "acceptance", case-insensitively.
type ValidateSpecTool struct {
	Root     string
	SpecPath string
}

func NewValidateSpecTool(root, specPath string) *ValidateSpecTool {
	return &ValidateSpecTool{Root: root, SpecPath: specPath}
}

func (t *ValidateSpecTool) Definition() Definition {
	return Definition{
		Name:        "validate_spec",
		Description: "Validates that the spec file has a Goal heading, a constraints heading, and an acceptance heading.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Kind: KindRead,
	}
}

func (t *ValidateSpecTool) Invoke(ctx context.Context, call Call) (Result, error) {
	abs, err := workspace.SafeJoin(t.Root, t.SpecPath)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	problems := ValidateSpecContent(string(data))
	if len(problems) > 0 {
		return Result{ID: call.ID, OK: false, Error: strings.Join(problems, "; "), Parts: []Part{{Type: PartText, Text: strings.Join(problems, "\n")}}}, nil
	}
	return TextResult(call.ID, "ok"), nil
}

// ValidateSpecContent returns the ordered list of missing-heading
// problems, empty when the content satisfies all three requirements.
func ValidateSpecContent(content string) []string {
	var hasGoal, hasConstraints, hasAcceptance bool
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		heading := strings.ToLower(strings.TrimLeft(trimmed, "# "))
		if strings.HasPrefix(heading, "goal") {
			hasGoal = true
		}
		if strings.Contains(heading, "constraint") {
			hasConstraints = true
		}
		if strings.Contains(heading, "acceptance") {
			hasAcceptance = true
		}
	}

	var problems []string
	if !hasGoal {
		problems = append(problems, "missing heading: # Goal")
	}
	if !hasConstraints {
		problems = append(problems, "missing heading containing \"constraint\"")
	}
	if !hasAcceptance {
		problems = append(problems, "missing heading containing \"acceptance\"")
	}
	return problems
}
