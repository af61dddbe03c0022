package tools

import (
	"context"
	"encoding/json"
	"os"
	"sort"
)

// RepoTreeMaxEntries bounds the result list per §4.5's context-snapshot cap.
const RepoTreeMaxEntries = 500

// RepoTreeTool lists workspace-relative file paths, honoring the
// default skip set, in a bounded, sorted-path shape.
type RepoTreeTool struct {
	Root string
}

func NewRepoTreeTool(root string) *RepoTreeTool { return &RepoTreeTool{Root: root} }

func (t *RepoTreeTool) Definition() Definition {
	return Definition{
		Name:        "repo_tree",
		Description: "Lists workspace files as relative paths, skipping repo metadata, build output, and dependency trees.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Kind: KindRead,
	}
}

func (t *RepoTreeTool) Invoke(ctx context.Context, call Call) (Result, error) {
	paths, err := ListRepoTree(t.Root, RepoTreeMaxEntries)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	data, err := json.Marshal(map[string]any{"paths": paths, "truncated": len(paths) >= RepoTreeMaxEntries})
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	return TextResult(call.ID, string(data)), nil
}

// ListRepoTree is exported so pkg/ctxgather can reuse the same bounded
// walk for the context snapshot (§4.5) without duplicating skip logic.
func ListRepoTree(root string, max int) ([]string, error) {
	var paths []string
	err := walkWorkspace(root, func(rel string, info os.FileInfo) bool {
		paths = append(paths, rel)
		return len(paths) < max
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	if len(paths) > max {
		paths = paths[:max]
	}
	return paths, nil
}
