package session

import (
	"context"

	"github.com/agentd/core/pkg/daemonconfig"
	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/tools"
)

// approvalPolicyRequires implements the session-level half of §4.7.4.e.3's
// approval rule: the policy can force approval for an entire tool kind or
// for one named tool, independent of the tool's own default.
func approvalPolicyRequires(policy daemonconfig.ApprovalPolicy, def tools.Definition) bool {
	for _, k := range policy.RequireForKinds {
		if k == string(def.Kind) {
			return true
		}
	}
	for _, name := range policy.RequireForTools {
		if name == def.Name {
			return true
		}
	}
	return false
}

// gateApproval blocks the turn on a human decision for callID, per
// §4.7.4.e.3: it moves the turn and session to waiting_approval,
// registers the waiter, and restores running/active once resolved.
func (e *Engine) gateApproval(ctx context.Context, sessionID, turnID, callID string) (bool, error) {
	_ = e.Store.UpdateTurn(sessionID, turnID, func(t *store.Turn) { t.Status = store.TurnWaitingApproval })
	_, _ = e.Store.UpdateSession(sessionID, func(s *store.Session) { s.Status = store.SessionWaitingApproval })

	if err := e.Store.RequireApproval(sessionID, callID); err != nil {
		return false, err
	}
	_ = e.Store.AppendEvent(sessionID, store.Event{
		Type: store.EventApprovalRequested, TurnID: turnID,
		Data: map[string]any{"call_id": callID},
	})

	decision, err := e.Store.WaitForApproval(ctx, sessionID, callID)
	if err != nil {
		return false, err
	}

	_ = e.Store.UpdateTurn(sessionID, turnID, func(t *store.Turn) { t.Status = store.TurnRunning })
	_, _ = e.Store.UpdateSession(sessionID, func(s *store.Session) {
		if s.Status != store.SessionCanceled {
			s.Status = store.SessionActive
		}
	})

	if decision.Action == store.ApprovalDeny {
		_ = e.Store.AppendEvent(sessionID, store.Event{
			Type: store.EventApprovalDenied, TurnID: turnID,
			Data: map[string]any{"call_id": callID},
		})
		return false, nil
	}

	_ = e.Store.AppendEvent(sessionID, store.Event{
		Type: store.EventApprovalGranted, TurnID: turnID,
		Data: map[string]any{"call_id": callID},
	})
	return true, nil
}
