// Package daemonconfig loads the core's on-disk configuration surface
// (§6): the data directory, model resolution policy, verify policy, and
// approval policy. Uses the same gopkg.in/yaml.v3 load/merge-defaults/
// env-override shape as the rest of this codebase, trimmed to the
// fields the core actually consumes.
package daemonconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelPolicy constrains model resolution (kitrouter.Resolve's Constraints).
type ModelPolicy struct {
	RequireTools     bool     `yaml:"require_tools"`
	RequireVision    bool     `yaml:"require_vision"`
	MaxCostUSD       float64  `yaml:"max_cost_usd"`
	PreferredModels  []string `yaml:"preferred_models"`
}

// VerifyPolicy controls the session executor's auto-verify injection (§4.7.5).
type VerifyPolicy struct {
	AutoVerify   bool     `yaml:"auto_verify"`
	Commands     []string `yaml:"commands"`
	RequireClean bool     `yaml:"require_clean"`
}

// ApprovalPolicy names tool kinds and tool names that require approval
// in addition to each tool's own RequiresApproval default (§4.7.4.e.3).
type ApprovalPolicy struct {
	RequireForKinds []string `yaml:"require_for_kinds"`
	RequireForTools []string `yaml:"require_for_tools"`
}

// Config is the configuration surface consumed by the core (§6).
type Config struct {
	DataDir        string         `yaml:"data_dir"`
	ModelPolicy    ModelPolicy    `yaml:"model_policy"`
	VerifyPolicy   VerifyPolicy   `yaml:"verify_policy"`
	ApprovalPolicy ApprovalPolicy `yaml:"approval_policy"`
}

// DefaultConfig returns the documented defaults: auto-verify with
// "make test", approval required for exec/write kinds.
func DefaultConfig() Config {
	return Config{
		DataDir: "~/.agentd/data",
		ModelPolicy: ModelPolicy{
			RequireTools: false,
		},
		VerifyPolicy: VerifyPolicy{
			AutoVerify:   true,
			Commands:     []string{"make test"},
			RequireClean: false,
		},
		ApprovalPolicy: ApprovalPolicy{
			RequireForKinds: []string{"exec", "write"},
			RequireForTools: []string{},
		},
	}
}

// DefaultPath resolves the config file location, honoring AGENTD_CONFIG.
func DefaultPath() string {
	if v := strings.TrimSpace(os.Getenv("AGENTD_CONFIG")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "agentd", "config.yaml")
}

// Load reads the default config path, falling back to DefaultConfig
// when the file is absent; a malformed file is reported as an error.
func Load() (Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads path over DefaultConfig, expands data_dir, and
// validates the required field.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		buf, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(buf, &cfg); err != nil {
				return cfg, fmt.Errorf("daemonconfig: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("daemonconfig: read %s: %w", path, err)
		}
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	if strings.TrimSpace(cfg.DataDir) == "" {
		return cfg, fmt.Errorf("daemonconfig: data_dir is required")
	}
	return cfg, nil
}

// expandHome expands a leading ~ to the user's home directory, per
// §6's "expands leading ~" requirement.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
