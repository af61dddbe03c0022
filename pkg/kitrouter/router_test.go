package kitrouter

import (
	"context"
	"testing"

	"github.com/agentd/core/pkg/kit"
	"github.com/agentd/core/pkg/kit/mockkit"
)

func TestResolveUsesFirstSatisfyingKit(t *testing.T) {
	r := New()
	empty := mockkit.New(mockkit.Config{Name: "empty"})
	full := mockkit.New(mockkit.Config{
		Name:   "full",
		Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
	})
	r.Register("empty", empty)
	r.Register("full", full)

	k, res, err := r.Resolve(context.Background(), kit.Constraints{RequireTools: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if k.Name() != "full" {
		t.Fatalf("expected full kit, got %s", k.Name())
	}
	if res.Primary.ID != "m1" {
		t.Fatalf("expected m1, got %s", res.Primary.ID)
	}
}

func TestResolveNoKitsRegistered(t *testing.T) {
	r := New()
	if _, _, err := r.Resolve(context.Background(), kit.Constraints{}, nil); err == nil {
		t.Fatal("expected error with no kits registered")
	}
}

func TestGetAndList(t *testing.T) {
	r := New()
	m := mockkit.New(mockkit.Config{Name: "mock"})
	r.Register("mock", m)
	if r.Get("mock") == nil {
		t.Fatal("expected to find mock kit")
	}
	if r.Get("missing") != nil {
		t.Fatal("expected nil for missing kit")
	}
	if got := r.List(); len(got) != 1 || got[0] != "mock" {
		t.Fatalf("unexpected list: %v", got)
	}
}
