package tools

import (
	"context"
	"strings"

	"github.com/agentd/core/pkg/workspace"
)

// ShellDefaultTimeoutMs is the default per-call timeout (30 minutes)
// per §4.3.
const ShellDefaultTimeoutMs = 30 * 60 * 1000

// ShellTool runs an arbitrary shell command with the workspace root as
// its working directory.
type ShellTool struct {
	Root string
}

func NewShellTool(root string) *ShellTool { return &ShellTool{Root: root} }

func (t *ShellTool) Definition() Definition {
	return Definition{
		Name:        "shell",
		Description: "Runs a shell command in the workspace, with a configurable timeout.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command":    map[string]any{"type": "string"},
				"timeout_ms": map[string]any{"type": "integer"},
			},
			"required": []any{"command"},
		},
		Kind:             KindExec,
		RequiresApproval: true,
	}
}

type shellInput struct {
	Command   string `json:"command"`
	TimeoutMs int64  `json:"timeout_ms"`
}

func (t *ShellTool) Invoke(ctx context.Context, call Call) (Result, error) {
	var in shellInput
	if err := DecodeInput(call, &in); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if strings.TrimSpace(in.Command) == "" {
		return ErrorResult(call.ID, "command is required"), nil
	}
	timeout := in.TimeoutMs
	if timeout <= 0 {
		timeout = ShellDefaultTimeoutMs
	}

	result, err := workspace.RunCommand(ctx, in.Command, workspace.CommandOptions{
		Dir:       t.Root,
		TimeoutMs: timeout,
	})
	return shellResultToToolResult(call.ID, result, err), nil
}

// shellResultToToolResult always returns the captured stdout/stderr even
// on failure, matching §4.2's runCommand contract.
func shellResultToToolResult(id string, result workspace.CommandResult, err error) Result {
	out := result.Stdout
	if result.Stderr != "" {
		out += "\n--- stderr ---\n" + result.Stderr
	}
	if err != nil {
		return Result{ID: id, OK: false, Error: err.Error(), Parts: []Part{{Type: PartText, Text: out}}}
	}
	return TextResult(id, out)
}
