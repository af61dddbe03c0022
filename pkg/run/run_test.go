package run

import (
	"testing"
	"time"

	"github.com/agentd/core/pkg/daemonconfig"
	"github.com/agentd/core/pkg/kit"
	"github.com/agentd/core/pkg/kit/mockkit"
	"github.com/agentd/core/pkg/kitrouter"
	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/tools"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	return s
}

func newEngine(t *testing.T, k kit.Kit, workspace string) *Engine {
	t.Helper()
	s := newTestStore(t)
	router := kitrouter.New()
	router.Register("mock", k)
	toolsFor := func(root string) *tools.Registry {
		return tools.NewDefaultRegistry(tools.DefaultConfig{Root: root})
	}
	return &Engine{
		Store:       s,
		Router:      router,
		ToolsFor:    toolsFor,
		ModelPolicy: daemonconfig.DefaultConfig().ModelPolicy,
		liveRuns:    map[string]bool{},
	}
}

func waitForTerminal(t *testing.T, e *Engine, runID string) store.Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := e.Store.GetRun(runID)
		if err != nil {
			t.Fatal(err)
		}
		switch run.Status {
		case store.RunSucceeded, store.RunFailed, store.RunCanceled:
			return run
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal state in time")
	return store.Run{}
}

func TestStartRunFallsBackToStaticPlanOnModelFailure(t *testing.T) {
	k := mockkit.New(mockkit.Config{
		Models:    []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: nil, // Generate will exhaust immediately and error.
	})
	e := newEngine(t, k, t.TempDir())
	run, err := e.Store.CreateRun(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}

	if err := e.StartRun(run.ID); err != nil {
		t.Fatal(err)
	}
	final := waitForTerminal(t, e, run.ID)
	if len(final.Steps) != 2 {
		t.Fatalf("expected static fallback plan with 2 steps, got %+v", final.Steps)
	}
	if final.Steps[0].Command != "make test" || final.Steps[1].Command != "make diagrams" {
		t.Fatalf("unexpected fallback steps: %+v", final.Steps)
	}
}

func TestStartRunTwiceIsAnError(t *testing.T) {
	k := mockkit.New(mockkit.Config{Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}}})
	e := newEngine(t, k, t.TempDir())
	run, _ := e.Store.CreateRun(t.TempDir(), "")

	if err := e.StartRun(run.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.StartRun(run.ID); err == nil {
		t.Fatal("expected error starting a second worker for the same run")
	}
	waitForTerminal(t, e, run.ID)
}

func TestStartRunApprovalDenialSkipsStep(t *testing.T) {
	k := mockkit.New(mockkit.Config{Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}}})
	workspace := t.TempDir()
	e := newEngine(t, k, workspace)
	run, _ := e.Store.CreateRun(workspace, "")

	if err := e.StartRun(run.ID); err != nil {
		t.Fatal(err)
	}

	denied := map[string]bool{}
	deadline := time.Now().Add(2 * time.Second)
pollLoop:
	for time.Now().Before(deadline) {
		r, _ := e.Store.GetRun(run.ID)
		for _, s := range r.Steps {
			if s.NeedsApproval && s.Status == store.StepRunning && !denied[s.ID] {
				if err := e.Store.Approve(run.ID, s.ID, store.ApprovalDecision{Action: store.ApprovalDeny}); err == nil {
					denied[s.ID] = true
				}
			}
		}
		switch r.Status {
		case store.RunSucceeded, store.RunFailed, store.RunCanceled:
			break pollLoop
		}
		time.Sleep(2 * time.Millisecond)
	}

	final := waitForTerminal(t, e, run.ID)
	if final.Steps[0].Status != store.StepSkipped {
		t.Fatalf("expected first step skipped after denial, got %+v", final.Steps[0])
	}
}
