package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentd/core/pkg/workspace"
)

// SearchDefaultMaxResults caps matches when the caller doesn't set a cap.
const SearchDefaultMaxResults = 200

// SearchTool performs a plain substring search across workspace files,
// honoring the default skip set, with an optional filename glob filter
// and a result cap.
type SearchTool struct {
	Root string
}

func NewSearchTool(root string) *SearchTool { return &SearchTool{Root: root} }

func (t *SearchTool) Definition() Definition {
	return Definition{
		Name:        "search",
		Description: "Substring search across workspace files, returning path:line:excerpt.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":      map[string]any{"type": "string"},
				"glob":       map[string]any{"type": "string"},
				"max_results": map[string]any{"type": "integer"},
			},
			"required": []any{"query"},
		},
		Kind: KindRead,
	}
}

type searchInput struct {
	Query      string `json:"query"`
	Glob       string `json:"glob"`
	MaxResults int    `json:"max_results"`
}

func (t *SearchTool) Invoke(ctx context.Context, call Call) (Result, error) {
	var in searchInput
	if err := DecodeInput(call, &in); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if strings.TrimSpace(in.Query) == "" {
		return ErrorResult(call.ID, "query is required"), nil
	}
	max := in.MaxResults
	if max <= 0 {
		max = SearchDefaultMaxResults
	}

	var b strings.Builder
	count := 0
	err := walkWorkspace(t.Root, func(rel string, info os.FileInfo) bool {
		if ctx.Err() != nil {
			return false
		}
		if in.Glob != "" {
			if ok, _ := filepath.Match(in.Glob, filepath.Base(rel)); !ok {
				return true
			}
		}
		abs, err := workspace.SafeJoin(t.Root, rel)
		if err != nil {
			return true
		}
		count = grepFile(abs, rel, in.Query, &b, count, max)
		return count < max
	})
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if ctx.Err() != nil {
		return ErrorResult(call.ID, ctx.Err().Error()), nil
	}
	return TextResult(call.ID, b.String()), nil
}

func grepFile(abs, rel, query string, b *strings.Builder, count, max int) int {
	f, err := os.Open(abs)
	if err != nil {
		return count
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.Contains(text, query) {
			fmt.Fprintf(b, "%s:%d:%s\n", rel, line, strings.TrimSpace(text))
			count++
			if count >= max {
				break
			}
		}
	}
	return count
}
