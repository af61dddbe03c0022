package ctxgather

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGatherWithoutAgentsMDOrGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	snap, err := Gather(context.Background(), root, time.Unix(0, 0).UTC())
	if err != nil {
		t.Fatal(err)
	}
	if snap.AgentsMD != "" {
		t.Fatalf("expected empty AgentsMD, got %q", snap.AgentsMD)
	}
	if snap.GitStatus != "" {
		t.Fatalf("expected empty GitStatus outside a git repo, got %q", snap.GitStatus)
	}
	if len(snap.RepoTree) != 1 || snap.RepoTree[0] != "main.go" {
		t.Fatalf("unexpected repo tree: %+v", snap.RepoTree)
	}
	if len(snap.RepoMap) != 1 || snap.RepoMap[0].Name != "main" {
		t.Fatalf("unexpected repo map: %+v", snap.RepoMap)
	}
}

func TestGatherIncludesAgentsMD(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "AGENTS.md", "Build with make test.\n")

	snap, err := Gather(context.Background(), root, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if snap.AgentsMD != "Build with make test.\n" {
		t.Fatalf("unexpected AgentsMD: %q", snap.AgentsMD)
	}
}

func TestGatherRespectsCancellation(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Gather(ctx, root, time.Now()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestRenderOmitsEmptySubsections(t *testing.T) {
	snap := Snapshot{Workspace: "/ws", GeneratedAt: time.Unix(0, 0).UTC()}
	out := snap.Render()
	if strings.Contains(out, "AGENTS.md:") || strings.Contains(out, "GIT STATUS:") {
		t.Fatalf("expected empty subsections omitted, got:\n%s", out)
	}
	if !strings.Contains(out, "WORKSPACE: /ws") {
		t.Fatalf("expected workspace line, got:\n%s", out)
	}
}

func TestRenderIncludesNonEmptySubsections(t *testing.T) {
	snap := Snapshot{
		Workspace:   "/ws",
		GeneratedAt: time.Unix(0, 0).UTC(),
		AgentsMD:    "notes",
		GitStatus:   " M main.go\n",
		RepoTree:    []string{"main.go"},
	}
	out := snap.Render()
	for _, want := range []string{"AGENTS.md:", "notes", "GIT STATUS:", "M main.go", "REPO TREE (1 entries):", "main.go"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected render to contain %q, got:\n%s", want, out)
		}
	}
}
