package tools

import (
	"context"

	"github.com/agentd/core/pkg/workspace"
)

// DiagramDefaultCommand is the build target invoked when the tool is
// constructed without an explicit command override.
const DiagramDefaultCommand = "make diagrams"

// DiagramTool invokes the project's diagram build target.
type DiagramTool struct {
	Root    string
	Command string
}

func NewDiagramTool(root, command string) *DiagramTool {
	if command == "" {
		command = DiagramDefaultCommand
	}
	return &DiagramTool{Root: root, Command: command}
}

func (t *DiagramTool) Definition() Definition {
	return Definition{
		Name:        "diagram",
		Description: "Invokes the project's diagram build target.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Kind:             KindExec,
		RequiresApproval: true,
	}
}

func (t *DiagramTool) Invoke(ctx context.Context, call Call) (Result, error) {
	result, err := workspace.RunCommand(ctx, t.Command, workspace.CommandOptions{
		Dir:       t.Root,
		TimeoutMs: 5 * 60 * 1000,
	})
	return shellResultToToolResult(call.ID, result, err), nil
}
