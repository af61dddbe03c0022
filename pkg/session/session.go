// Package session implements the interactive session executor (C7,
// §4.7): a multi-turn agent loop that drives tool calls, dedups
// repeated calls, gates sensitive calls behind human approval, injects
// verification after a dirty workspace, and runs an optional spec-mode
// subprotocol.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentd/core/pkg/ctxgather"
	"github.com/agentd/core/pkg/daemonconfig"
	"github.com/agentd/core/pkg/kit"
	"github.com/agentd/core/pkg/kitrouter"
	"github.com/agentd/core/pkg/obslog"
	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/tools"
)

// MaxTurnIterations bounds the agent loop per turn (§4.7.4).
const MaxTurnIterations = 8

// Engine drives turns to completion in the background. It is the
// long-lived holder of the store, router, and tool-registry factory a
// background worker needs.
type Engine struct {
	Store          *store.Store
	Router         *kitrouter.Router
	ModelPolicy    daemonconfig.ModelPolicy
	VerifyPolicy   daemonconfig.VerifyPolicy
	ApprovalPolicy daemonconfig.ApprovalPolicy
	Logger         *obslog.Logger

	// ToolsFor builds the tool registry for one turn: spec mode adds the
	// three spec tools bound to specPath (workspace-relative).
	ToolsFor func(workspacePath string, specMode bool, specPath string) *tools.Registry

	mu           sync.Mutex
	liveSessions map[string]bool
}

// NewEngine constructs a session Engine.
func NewEngine(s *store.Store, router *kitrouter.Router, toolsFor func(string, bool, string) *tools.Registry, modelPolicy daemonconfig.ModelPolicy, verifyPolicy daemonconfig.VerifyPolicy, approvalPolicy daemonconfig.ApprovalPolicy) *Engine {
	return &Engine{
		Store:          s,
		Router:         router,
		ModelPolicy:    modelPolicy,
		VerifyPolicy:   verifyPolicy,
		ApprovalPolicy: approvalPolicy,
		ToolsFor:       toolsFor,
		liveSessions:   map[string]bool{},
	}
}

// StartTurn spawns the background worker for (sessionID, turnID) and
// returns immediately. At most one turn may run per session at a time;
// a second call before the first finishes fails fast (§4.7, §5).
func (e *Engine) StartTurn(sessionID, turnID string) error {
	e.mu.Lock()
	if e.liveSessions[sessionID] {
		e.mu.Unlock()
		return fmt.Errorf("session: turn already running for %s", sessionID)
	}
	e.liveSessions[sessionID] = true
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.Store.SetCancel(sessionID, cancel)

	go func() {
		defer func() {
			e.Store.ClearCancel(sessionID)
			e.mu.Lock()
			delete(e.liveSessions, sessionID)
			e.mu.Unlock()
			cancel()
		}()
		e.work(ctx, sessionID, turnID)
	}()
	return nil
}

func (e *Engine) work(ctx context.Context, sessionID, turnID string) {
	e.Logger.Infof("session", "starting turn %s for session %s", turnID, sessionID)
	if err := e.Store.UpdateTurn(sessionID, turnID, func(t *store.Turn) { t.Status = store.TurnRunning }); err != nil {
		return
	}
	if _, err := e.Store.UpdateSession(sessionID, func(s *store.Session) { s.Status = store.SessionActive }); err != nil {
		return
	}
	_ = e.Store.AppendEvent(sessionID, store.Event{Type: store.EventTurnStarted, TurnID: turnID})

	sess, err := e.Store.GetSession(sessionID)
	if err != nil {
		return
	}

	if sess.Mode == store.ModeSpec {
		if err := e.ensureSpecMode(sessionID, turnID, &sess); err != nil {
			e.failTurn(sessionID, turnID, err.Error())
			return
		}
	}

	registry := e.ToolsFor(sess.WorkspacePath, sess.Mode == store.ModeSpec, sess.SpecPath)

	k, resolution, err := e.Router.Resolve(ctx, kit.Constraints{
		RequireTools:  e.ModelPolicy.RequireTools,
		RequireVision: e.ModelPolicy.RequireVision,
		MaxCostUSD:    e.ModelPolicy.MaxCostUSD,
	}, e.ModelPolicy.PreferredModels)
	if err != nil {
		e.failTurn(sessionID, turnID, fmt.Sprintf("model error: %s", err.Error()))
		return
	}
	_ = e.Store.AppendEvent(sessionID, store.Event{
		Type: store.EventModelResolved, TurnID: turnID,
		Data: map[string]any{"model": resolution.Primary.ID},
	})

	snapshot, err := ctxgather.Gather(ctx, sess.WorkspacePath, time.Now())
	if err != nil {
		if ctx.Err() != nil {
			e.cancelTurn(sessionID, turnID)
			return
		}
		e.failTurn(sessionID, turnID, err.Error())
		return
	}

	invoked := map[string]bool{}
	workspaceDirty := false

	for i := 0; i < MaxTurnIterations; i++ {
		if ctx.Err() != nil {
			e.cancelTurn(sessionID, turnID)
			return
		}
		done, iterErr := e.runIteration(ctx, sessionID, turnID, k, resolution.Primary.ID, registry, snapshot, invoked, &workspaceDirty)
		if iterErr != nil {
			if ctx.Err() != nil {
				e.cancelTurn(sessionID, turnID)
				return
			}
			e.failTurn(sessionID, turnID, iterErr.Error())
			return
		}
		if done {
			e.completeTurn(sessionID, turnID)
			return
		}
	}
	e.failTurn(sessionID, turnID, "max turn iterations reached")
}

func (e *Engine) completeTurn(sessionID, turnID string) {
	_ = e.Store.UpdateTurn(sessionID, turnID, func(t *store.Turn) { t.Status = store.TurnSucceeded })
	_ = e.Store.AppendEvent(sessionID, store.Event{Type: store.EventTurnCompleted, TurnID: turnID})
	_, _ = e.Store.UpdateSession(sessionID, func(s *store.Session) {
		if s.Status != store.SessionCanceled {
			s.Status = store.SessionActive
		}
	})
	e.Logger.Infof("session", "turn %s succeeded", turnID)
}

// failTurn records a non-cancellation failure. The session stays usable
// for the next turn (§7: approval denial and tool/model failures do not
// end the session), unless a concurrent cancellation already terminated
// it.
func (e *Engine) failTurn(sessionID, turnID, message string) {
	_ = e.Store.UpdateTurn(sessionID, turnID, func(t *store.Turn) {
		t.Status = store.TurnFailed
		t.Error = message
	})
	_ = e.Store.AppendEvent(sessionID, store.Event{Type: store.EventTurnFailed, TurnID: turnID, Message: message})
	_, _ = e.Store.UpdateSession(sessionID, func(s *store.Session) {
		if s.Status != store.SessionCanceled {
			s.Status = store.SessionActive
		}
	})
	e.Logger.Warnf("session", "turn %s failed: %s", turnID, message)
}

// cancelTurn marks the turn failed by cancellation. Session status is
// left untouched: CancelSession already transitioned it before the
// executor observed ctx.Err() (§5).
func (e *Engine) cancelTurn(sessionID, turnID string) {
	_ = e.Store.UpdateTurn(sessionID, turnID, func(t *store.Turn) {
		t.Status = store.TurnFailed
		t.Error = "canceled"
	})
	_ = e.Store.AppendEvent(sessionID, store.Event{Type: store.EventTurnFailed, TurnID: turnID, Message: "canceled"})
	e.Logger.Infof("session", "turn %s canceled", turnID)
}
