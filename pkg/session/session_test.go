package session

import (
	"fmt"
	"os"
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

func newEngine(t *testing.T, k kit.Kit, cfg daemonconfig.Config) *Engine {
	t.Helper()
	s := newTestStore(t)
	router := kitrouter.New()
	router.Register("mock", k)
	toolsFor := func(root string, specMode bool, specPath string) *tools.Registry {
		reg := tools.NewDefaultRegistry(tools.DefaultConfig{Root: root})
		if specMode {
			reg.Add(tools.NewReadSpecTool(root, specPath))
			reg.Add(tools.NewWriteSpecTool(root, specPath))
			reg.Add(tools.NewValidateSpecTool(root, specPath))
		}
		return reg
	}
	return NewEngine(s, router, toolsFor, cfg.ModelPolicy, cfg.VerifyPolicy, cfg.ApprovalPolicy)
}

func waitForTurnTerminal(t *testing.T, e *Engine, sessionID, turnID string) store.Turn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := e.Store.GetSession(sessionID)
		if err != nil {
			t.Fatal(err)
		}
		for _, tu := range sess.Turns {
			if tu.ID == turnID {
				switch tu.Status {
				case store.TurnSucceeded, store.TurnFailed:
					return tu
				}
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("turn did not reach a terminal state in time")
	return store.Turn{}
}

func startTurn(t *testing.T, e *Engine, workspace string, mode store.SessionMode) (string, string) {
	t.Helper()
	sess, err := e.Store.CreateSession(workspace, "you are an assistant", mode, "")
	if err != nil {
		t.Fatal(err)
	}
	turnID, err := e.Store.AddTurn(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.StartTurn(sess.ID, turnID); err != nil {
		t.Fatal(err)
	}
	return sess.ID, turnID
}

func TestTurnConvergesWithNoToolCalls(t *testing.T) {
	k := mockkit.New(mockkit.Config{
		Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: [][]kit.StreamChunk{
			{kit.NewTextChunk("all done"), kit.NewMessageEndChunk("stop")},
		},
	})
	cfg := daemonconfig.DefaultConfig()
	e := newEngine(t, k, cfg)
	sessionID, turnID := startTurn(t, e, t.TempDir(), store.ModeChat)

	final := waitForTurnTerminal(t, e, sessionID, turnID)
	if final.Status != store.TurnSucceeded {
		t.Fatalf("expected turn to succeed, got %+v", final)
	}
}

func TestTurnFailsOnUnknownTool(t *testing.T) {
	k := mockkit.New(mockkit.Config{
		Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: [][]kit.StreamChunk{
			{
				kit.NewToolCallChunk("c1", "not_a_real_tool", `{}`),
				kit.NewMessageEndChunk("tool_calls"),
			},
		},
	})
	cfg := daemonconfig.DefaultConfig()
	e := newEngine(t, k, cfg)
	sessionID, turnID := startTurn(t, e, t.TempDir(), store.ModeChat)

	final := waitForTurnTerminal(t, e, sessionID, turnID)
	if final.Status != store.TurnFailed {
		t.Fatalf("expected turn to fail on unknown tool, got %+v", final)
	}
}

func TestDuplicateToolCallIsSkippedAndConverges(t *testing.T) {
	k := mockkit.New(mockkit.Config{
		Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: [][]kit.StreamChunk{
			{
				kit.NewToolCallChunk("c1", "read_file", `{"path":"AGENTS.md"}`),
				kit.NewToolCallChunk("c2", "read_file", `{"path":"AGENTS.md"}`),
				kit.NewMessageEndChunk("tool_calls"),
			},
			{kit.NewTextChunk("ok"), kit.NewMessageEndChunk("stop")},
		},
	})
	cfg := daemonconfig.DefaultConfig()
	e := newEngine(t, k, cfg)
	workspace := t.TempDir()
	if err := os.WriteFile(workspace+"/AGENTS.md", []byte("# notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sessionID, turnID := startTurn(t, e, workspace, store.ModeChat)

	final := waitForTurnTerminal(t, e, sessionID, turnID)
	if final.Status != store.TurnSucceeded {
		t.Fatalf("expected turn to succeed, got %+v", final)
	}

	events, err := e.Store.ReadEvents(sessionID, 0)
	if err != nil {
		t.Fatal(err)
	}
	skipped := 0
	for _, ev := range events {
		if ev.Type == store.EventToolCallSkipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Fatalf("expected exactly 1 skipped duplicate call, got %d", skipped)
	}
}

// findPendingApprovalCallID polls the session's event log for the most
// recently requested approval, mirroring how a human-facing client
// would discover what's blocking a turn.
func findPendingApprovalCallID(t *testing.T, e *Engine, sessionID string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, err := e.Store.ReadEvents(sessionID, 0)
		if err != nil {
			t.Fatal(err)
		}
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Type == store.EventApprovalRequested {
				return events[i].Data["call_id"].(string)
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no approval request observed in time")
	return ""
}

func TestApprovalDenialFailsTurn(t *testing.T) {
	k := mockkit.New(mockkit.Config{
		Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: [][]kit.StreamChunk{
			{
				kit.NewToolCallChunk("c1", "shell", `{"command":"echo hi"}`),
				kit.NewMessageEndChunk("tool_calls"),
			},
		},
	})
	cfg := daemonconfig.DefaultConfig()
	e := newEngine(t, k, cfg)
	sessionID, turnID := startTurn(t, e, t.TempDir(), store.ModeChat)

	callID := findPendingApprovalCallID(t, e, sessionID)
	if err := e.Store.Approve(sessionID, callID, store.ApprovalDecision{Action: store.ApprovalDeny}); err != nil {
		t.Fatal(err)
	}

	final := waitForTurnTerminal(t, e, sessionID, turnID)
	if final.Status != store.TurnFailed {
		t.Fatalf("expected turn to fail after approval denial, got %+v", final)
	}
}

func TestSpecModeCreatesSpecFile(t *testing.T) {
	k := mockkit.New(mockkit.Config{
		Models: []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: [][]kit.StreamChunk{
			{kit.NewTextChunk("spec ready"), kit.NewMessageEndChunk("stop")},
		},
	})
	cfg := daemonconfig.DefaultConfig()
	e := newEngine(t, k, cfg)
	workspace := t.TempDir()
	sessionID, turnID := startTurn(t, e, workspace, store.ModeSpec)

	final := waitForTurnTerminal(t, e, sessionID, turnID)
	if final.Status != store.TurnSucceeded {
		t.Fatalf("expected spec-mode turn to succeed, got %+v", final)
	}

	sess, err := e.Store.GetSession(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.SpecPath == "" {
		t.Fatal("expected spec_path to be defaulted")
	}
	content, err := readSpecIfPresent(workspace, sess.SpecPath)
	if err != nil {
		t.Fatalf("expected spec file to exist: %v", err)
	}
	problems := tools.ValidateSpecContent(content)
	if len(problems) != 0 {
		t.Fatalf("expected template spec to validate cleanly, got problems: %v", problems)
	}
}

func TestProviderNormalizationRewritesToolRoleForNoToolRoleKit(t *testing.T) {
	k := mockkit.New(mockkit.Config{
		KindOverride: kit.KindNoToolRole,
		Record:       true,
		Models:       []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: [][]kit.StreamChunk{
			{
				kit.NewToolCallChunk("c1", "read_file", `{"path":"AGENTS.md"}`),
				kit.NewMessageEndChunk("tool_calls"),
			},
			{kit.NewTextChunk("done"), kit.NewMessageEndChunk("stop")},
		},
	})
	cfg := daemonconfig.DefaultConfig()
	e := newEngine(t, k, cfg)
	sessionID, turnID := startTurn(t, e, t.TempDir(), store.ModeChat)

	waitForTurnTerminal(t, e, sessionID, turnID)

	recorded := k.Recorded()
	if len(recorded) < 2 {
		t.Fatalf("expected at least 2 recorded turns, got %d", len(recorded))
	}
	for _, m := range recorded[1].Messages {
		if m.Role == "tool" {
			t.Fatalf("expected tool-role messages to be rewritten for a no-tool-role kit, found: %+v", m)
		}
	}
}

func TestMaxIterationsFailsTurn(t *testing.T) {
	responses := make([][]kit.StreamChunk, 0, MaxTurnIterations+1)
	for i := 0; i < MaxTurnIterations+1; i++ {
		// A distinct input each iteration, so no call is a duplicate and
		// the loop never converges on its own.
		input := fmt.Sprintf(`{"path":"AGENTS.md","start_line":%d}`, i+1)
		responses = append(responses, []kit.StreamChunk{
			kit.NewToolCallChunk("c", "read_file", input),
			kit.NewMessageEndChunk("tool_calls"),
		})
	}
	k := mockkit.New(mockkit.Config{
		Models:    []kit.ModelRecord{{ID: "m1", SupportsTools: true}},
		Responses: responses,
	})
	cfg := daemonconfig.DefaultConfig()
	e := newEngine(t, k, cfg)
	sessionID, turnID := startTurn(t, e, t.TempDir(), store.ModeChat)

	final := waitForTurnTerminal(t, e, sessionID, turnID)
	if final.Status != store.TurnFailed {
		t.Fatalf("expected max-iterations failure, got %+v", final)
	}
}
