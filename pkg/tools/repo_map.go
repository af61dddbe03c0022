package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"regexp"
	"sort"

	"github.com/agentd/core/pkg/workspace"
)

// RepoMapMaxSymbols bounds the symbol count per §4.5's context-snapshot cap.
const RepoMapMaxSymbols = 400

// repoMapExtensions is the small allow-listed set of extensions repo_map
// extracts top-level symbols from.
var repoMapExtensions = map[string]bool{
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".rs":   true,
}

// repoMapPatterns match a top-level declaration's symbol name in each
// allow-listed language, one regexp per language keyed by extension.
var repoMapPatterns = map[string]*regexp.Regexp{
	".go": regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Za-z_][A-Za-z0-9_]*)|^(?:type|var|const)\s+([A-Za-z_][A-Za-z0-9_]*)`),
	".py": regexp.MustCompile(`^(?:def|class)\s+([A-Za-z_][A-Za-z0-9_]*)|^([A-Za-z_][A-Za-z0-9_]*)\s*=[^=]`),
	".js": regexp.MustCompile(`^(?:export\s+)?(?:function|class|const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)`),
	".ts": regexp.MustCompile(`^(?:export\s+)?(?:function|class|interface|type|const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)`),
	".rs": regexp.MustCompile(`^(?:pub\s+)?(?:fn|struct|enum|trait|const|static)\s+([A-Za-z_][A-Za-z0-9_]*)`),
}

// Symbol is one top-level declaration found by repo_map.
type Symbol struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Name string `json:"name"`
}

// RepoMapTool extracts top-level symbols from allow-listed source files.
type RepoMapTool struct {
	Root string
}

func NewRepoMapTool(root string) *RepoMapTool { return &RepoMapTool{Root: root} }

func (t *RepoMapTool) Definition() Definition {
	return Definition{
		Name:        "repo_map",
		Description: "Extracts top-level symbols (functions, classes, top-level bindings) grouped by file.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Kind: KindRead,
	}
}

func (t *RepoMapTool) Invoke(ctx context.Context, call Call) (Result, error) {
	symbols, err := BuildRepoMap(t.Root, RepoMapMaxSymbols)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	data, err := json.Marshal(map[string]any{"symbols": symbols, "truncated": len(symbols) >= RepoMapMaxSymbols})
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	return TextResult(call.ID, string(data)), nil
}

// BuildRepoMap is exported so pkg/ctxgather can embed the same symbol
// extraction in a context snapshot.
func BuildRepoMap(root string, max int) ([]Symbol, error) {
	var symbols []Symbol
	err := walkWorkspace(root, func(rel string, info os.FileInfo) bool {
		ext := extOf(rel)
		pattern, ok := repoMapPatterns[ext]
		if !ok || !repoMapExtensions[ext] {
			return true
		}
		found, err := extractSymbols(root, rel, pattern)
		if err == nil {
			symbols = append(symbols, found...)
		}
		return len(symbols) < max
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].File != symbols[j].File {
			return symbols[i].File < symbols[j].File
		}
		return symbols[i].Line < symbols[j].Line
	})
	if len(symbols) > max {
		symbols = symbols[:max]
	}
	return symbols, nil
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

func extractSymbols(root, rel string, pattern *regexp.Regexp) ([]Symbol, error) {
	abs, err := workspace.SafeJoin(root, rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var symbols []Symbol
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := firstNonEmpty(m[1:])
		if name == "" {
			continue
		}
		symbols = append(symbols, Symbol{File: rel, Line: line, Name: name})
	}
	return symbols, scanner.Err()
}

func firstNonEmpty(ss []string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
