package ids

import (
	"sort"
	"strings"
	"testing"
	"time"
)

func TestNewHasPrefixAndShape(t *testing.T) {
	id := New(PrefixRun)
	if !strings.HasPrefix(id, "run_") {
		t.Fatalf("expected run_ prefix, got %q", id)
	}
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		t.Fatalf("expected 3 underscore-separated parts, got %d (%q)", len(parts), id)
	}
	if !HasPrefix(id, PrefixRun) {
		t.Fatalf("HasPrefix(%q, run) = false", id)
	}
	if HasPrefix(id, PrefixSession) {
		t.Fatalf("HasPrefix(%q, sess) = true, want false", id)
	}
}

func TestNewNoCollisions(t *testing.T) {
	const n = 200000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := New(PrefixToolCall)
		if _, dup := seen[id]; dup {
			t.Fatalf("collision at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewSortsByCreationOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = newAt(PrefixMessage, base.Add(time.Duration(i)*time.Millisecond))
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for i := range ids {
		if ids[i] != sorted[i] {
			t.Fatalf("ids not in lexicographic creation order at index %d: %q vs sorted %q", i, ids[i], sorted[i])
		}
	}
}

func TestNewSuffixIsLowercase(t *testing.T) {
	id := New(PrefixAttachment)
	parts := strings.Split(id, "_")
	suffix := parts[len(parts)-1]
	if suffix != strings.ToLower(suffix) {
		t.Fatalf("expected lowercase random suffix, got %q", id)
	}
}
