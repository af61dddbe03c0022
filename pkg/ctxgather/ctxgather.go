// Package ctxgather assembles the bounded workspace snapshot (C5, §4.5)
// that run and session executors embed into their prompts: AGENTS.md
// contents when present, a bounded file tree, a bounded symbol map, and
// git status. It never mutates the workspace and honors context
// cancellation on every file-system pass.
package ctxgather

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentd/core/pkg/tools"
	"github.com/agentd/core/pkg/workspace"
)

// Snapshot is the context bundle handed to the session/run message
// assembly step. Fields are omitted from the serialized prompt when
// empty, per §4.5's "including any non-empty subsection."
type Snapshot struct {
	AgentsMD    string         `json:"agents_md,omitempty"`
	RepoTree    []string       `json:"repo_tree"`
	RepoMap     []tools.Symbol `json:"repo_map"`
	GitStatus   string         `json:"git_status,omitempty"`
	Workspace   string         `json:"workspace"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Gather builds a Snapshot for root. now is injected by the caller so
// this package stays deterministic and test-friendly. AGENTS.md and
// .git presence are both optional; their absence is not an error.
func Gather(ctx context.Context, root string, now time.Time) (Snapshot, error) {
	snap := Snapshot{
		Workspace:   root,
		GeneratedAt: now,
	}

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	agentsMD, err := readAgentsMD(root)
	if err != nil {
		return Snapshot{}, err
	}
	snap.AgentsMD = agentsMD

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	repoTree, err := tools.ListRepoTree(root, tools.RepoTreeMaxEntries)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ctxgather: repo tree: %w", err)
	}
	snap.RepoTree = repoTree

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	repoMap, err := tools.BuildRepoMap(root, tools.RepoMapMaxSymbols)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ctxgather: repo map: %w", err)
	}
	snap.RepoMap = repoMap

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	status, err := gitStatus(ctx, root)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ctxgather: git status: %w", err)
	}
	snap.GitStatus = status

	return snap, nil
}

// readAgentsMD returns the workspace's AGENTS.md contents, or "" if the
// file does not exist. Any other read error is surfaced.
func readAgentsMD(root string) (string, error) {
	abs, err := workspace.SafeJoin(root, "AGENTS.md")
	if err != nil {
		return "", nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read AGENTS.md: %w", err)
	}
	return string(data), nil
}

// gitStatus runs porcelain status at root, returning "" when root is not
// a git repository rather than failing the whole snapshot.
func gitStatus(ctx context.Context, root string) (string, error) {
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return "", nil
	}
	result, err := workspace.RunCommand(ctx, "git status --porcelain", workspace.CommandOptions{
		Dir:       root,
		TimeoutMs: tools.GitStatusTimeoutMs,
	})
	if err != nil {
		if cmdErr, ok := err.(*workspace.CommandError); ok {
			return cmdErr.Result.Stdout, nil
		}
		return "", err
	}
	return result.Stdout, nil
}
