package tools

import (
	"context"

	"github.com/agentd/core/pkg/workspace"
)

// GitStatusTimeoutMs bounds the porcelain status call per §4.3.
const GitStatusTimeoutMs = 10_000

// GitStatusTool runs `git status --porcelain` at the workspace root.
type GitStatusTool struct {
	Root string
}

func NewGitStatusTool(root string) *GitStatusTool { return &GitStatusTool{Root: root} }

func (t *GitStatusTool) Definition() Definition {
	return Definition{
		Name:        "git_status",
		Description: "Runs git status --porcelain at the workspace root.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Kind: KindRead,
	}
}

func (t *GitStatusTool) Invoke(ctx context.Context, call Call) (Result, error) {
	result, err := workspace.RunCommand(ctx, "git status --porcelain", workspace.CommandOptions{
		Dir:       t.Root,
		TimeoutMs: GitStatusTimeoutMs,
	})
	if err != nil {
		if cmdErr, ok := err.(*workspace.CommandError); ok {
			return Result{ID: call.ID, OK: false, Error: cmdErr.Error(), Parts: []Part{{Type: PartText, Text: cmdErr.Result.Stdout + cmdErr.Result.Stderr}}}, nil
		}
		return ErrorResult(call.ID, err.Error()), nil
	}
	return TextResult(call.ID, result.Stdout), nil
}
