package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/agentd/core/pkg/workspace"
)

// ReadFileMaxLines caps the returned line range regardless of the
// requested start_line/end_line.
const ReadFileMaxLines = 2000

// ReadFileTool reads one file by workspace-relative path, with optional
// inclusive start_line/end_line clamped to file bounds.
type ReadFileTool struct {
	Root string
}

func NewReadFileTool(root string) *ReadFileTool { return &ReadFileTool{Root: root} }

func (t *ReadFileTool) Definition() Definition {
	return Definition{
		Name:        "read_file",
		Description: "Reads one file by workspace-relative path, optionally restricted to a line range.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":       map[string]any{"type": "string"},
				"start_line": map[string]any{"type": "integer"},
				"end_line":   map[string]any{"type": "integer"},
			},
			"required": []any{"path"},
		},
		Kind: KindRead,
	}
}

type readFileInput struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (t *ReadFileTool) Invoke(ctx context.Context, call Call) (Result, error) {
	var in readFileInput
	if err := DecodeInput(call, &in); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if strings.TrimSpace(in.Path) == "" {
		return ErrorResult(call.ID, "path is required"), nil
	}

	abs, err := workspace.SafeJoin(t.Root, in.Path)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}

	lines, err := readLines(abs)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}

	start, end := clampRange(in.StartLine, in.EndLine, len(lines))
	if end-start+1 > ReadFileMaxLines {
		end = start + ReadFileMaxLines - 1
	}

	var b strings.Builder
	for i := start; i <= end && i <= len(lines); i++ {
		fmt.Fprintf(&b, "%d\t%s\n", i, lines[i-1])
	}
	return TextResult(call.ID, b.String()), nil
}

// clampRange applies §8's read_file boundary rules: start<=0 clamps to
// 1, end beyond total clamps to total, and start>end collapses to
// start=end.
func clampRange(start, end, total int) (int, int) {
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > total {
		end = total
	}
	if start > total {
		start = total
	}
	if start > end {
		start = end
	}
	if total == 0 {
		return 1, 0
	}
	return start, end
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
