package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentd/core/pkg/workspace"
)

// VerifyCommandResult is one command's outcome within a verify run.
type VerifyCommandResult struct {
	Command  string `json:"command"`
	OK       bool   `json:"ok"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Duration string `json:"duration"`
}

// VerifyTool runs the configured verification commands in sequence.
// ok iff every command succeeds. It is exec-kind, and its definition
// does not itself require approval.
type VerifyTool struct {
	Root       string
	Commands   []string
	TimeoutMs  int64
}

func NewVerifyTool(root string, commands []string) *VerifyTool {
	return &VerifyTool{Root: root, Commands: commands, TimeoutMs: 10 * 60 * 1000}
}

func (t *VerifyTool) Definition() Definition {
	return Definition{
		Name:        "verify",
		Description: "Runs the configured verification commands sequentially.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Kind: KindExec,
	}
}

func (t *VerifyTool) Invoke(ctx context.Context, call Call) (Result, error) {
	allOK := true
	results := make([]VerifyCommandResult, 0, len(t.Commands))

	for _, cmd := range t.Commands {
		if ctx.Err() != nil {
			return ErrorResult(call.ID, ctx.Err().Error()), nil
		}
		result, err := workspace.RunCommand(ctx, cmd, workspace.CommandOptions{Dir: t.Root, TimeoutMs: t.TimeoutMs})
		ok := err == nil
		allOK = allOK && ok
		results = append(results, VerifyCommandResult{
			Command:  cmd,
			OK:       ok,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Duration: result.Duration.String(),
		})
	}

	var b strings.Builder
	for _, r := range results {
		status := "ok"
		if !r.OK {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "[%s] %s (%s)\n%s%s", status, r.Command, r.Duration, r.Stdout, r.Stderr)
	}

	if !allOK {
		return Result{ID: call.ID, OK: false, Error: "one or more verification commands failed", Parts: []Part{{Type: PartText, Text: b.String()}}}, nil
	}
	return TextResult(call.ID, b.String()), nil
}
