package session

import (
	"context"
	"fmt"
	"time"

	"github.com/agentd/core/pkg/ctxgather"
	"github.com/agentd/core/pkg/ids"
	"github.com/agentd/core/pkg/kit"
	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/tools"
)

// callAccum is one tool call assembled across streamed chunks (§4.7.4.b).
type callAccum struct {
	ID    string
	Name  string
	Input string
}

// runIteration runs one pass of the agent loop (§4.7.4): assemble
// messages, stream a generation, react to text and tool calls, and
// report whether the turn has converged.
func (e *Engine) runIteration(
	ctx context.Context,
	sessionID, turnID string,
	k kit.Kit,
	model string,
	registry *tools.Registry,
	snapshot ctxgather.Snapshot,
	invoked map[string]bool,
	workspaceDirty *bool,
) (bool, error) {
	sess, err := e.Store.GetSession(sessionID)
	if err != nil {
		return false, err
	}

	messages, err := e.assembleMessages(sess, snapshot, k.Kind())
	if err != nil {
		return false, err
	}

	turn := kit.Turn{
		Model:    model,
		Messages: messages,
		Tools:    toKitToolSpecs(registry.Definitions()),
	}

	var assistantText string
	calls := map[string]*callAccum{}
	var order []string

	streamErr := k.StreamGenerate(ctx, turn, func(c kit.StreamChunk) error {
		switch c.Kind {
		case kit.EventText:
			assistantText += c.TextDelta
			_ = e.Store.AppendEvent(sessionID, store.Event{
				Type: store.EventModelOutputDelta, TurnID: turnID,
				Data: map[string]any{"delta": c.TextDelta},
			})
		case kit.EventToolCall:
			id := c.ToolCallID
			if id == "" {
				id = ids.New(ids.PrefixToolCall)
			}
			acc, ok := calls[id]
			if !ok {
				acc = &callAccum{ID: id}
				calls[id] = acc
				order = append(order, id)
			}
			if c.ToolCallName != "" {
				acc.Name = c.ToolCallName
			}
			acc.Input += c.ToolCallInput
		case kit.EventMessageEnd:
			_ = e.Store.AppendEvent(sessionID, store.Event{
				Type: store.EventModelOutputCompleted, TurnID: turnID,
				Data: map[string]any{"finish_reason": c.FinishReason},
			})
		case kit.EventError:
			return c.Err
		}
		return nil
	})
	if streamErr != nil {
		return false, fmt.Errorf("model error: %s", streamErr.Error())
	}

	if assistantText != "" {
		if _, err := e.Store.AppendMessage(sessionID, store.Message{
			Role:  store.RoleAssistant,
			Parts: []store.Part{{Type: store.PartText, Text: assistantText}},
		}); err != nil {
			return false, err
		}
		_ = e.Store.AppendEvent(sessionID, store.Event{Type: store.EventMessageAdded, TurnID: turnID})
	}

	if len(order) == 0 {
		return e.converge(ctx, sessionID, turnID, registry, workspaceDirty)
	}

	executed := 0
	for _, id := range order {
		call := calls[id]
		tool := registry.Get(call.Name)
		if tool == nil {
			return false, fmt.Errorf("unknown tool: %s", call.Name)
		}
		def := tool.Definition()

		key := dedupKey(call.Name, call.Input)
		if invoked[key] {
			_ = e.Store.AppendEvent(sessionID, store.Event{
				Type: store.EventToolCallSkipped, TurnID: turnID,
				Data: map[string]any{"call_id": call.ID, "name": call.Name},
			})
			_ = e.Store.AppendEvent(sessionID, store.Event{
				Type: store.EventToolCallCompleted, TurnID: turnID,
				Data: map[string]any{"call_id": call.ID, "ok": false, "skipped": true, "error": "duplicate tool call: no new info"},
			})
			continue
		}

		if e.needsApproval(def) {
			granted, err := e.gateApproval(ctx, sessionID, turnID, call.ID)
			if err != nil {
				return false, err
			}
			if !granted {
				return false, fmt.Errorf("approval denied")
			}
		}

		result := e.invokeTool(ctx, sessionID, turnID, registry, call.ID, call.Name, call.Input)
		invoked[key] = true
		executed++

		if result.OK && (def.Kind == tools.KindWrite || def.Kind == tools.KindExec) && call.Name != "write_spec" {
			*workspaceDirty = true
		}

		if call.Name == "write_spec" && result.OK {
			e.synthesizeValidateSpec(ctx, sessionID, turnID, registry)
		}

		if !result.OK {
			break
		}
	}

	if executed == 0 {
		return e.converge(ctx, sessionID, turnID, registry, workspaceDirty)
	}
	return false, nil
}

// converge is reached when an iteration produces no new tool calls
// (§4.7.4.d, .f): it runs auto-verify if the workspace is dirty, or
// completes the turn.
func (e *Engine) converge(ctx context.Context, sessionID, turnID string, registry *tools.Registry, workspaceDirty *bool) (bool, error) {
	if !e.VerifyPolicy.AutoVerify || !*workspaceDirty {
		return true, nil
	}
	ok, err := e.runAutoVerify(ctx, sessionID, turnID, registry)
	if err != nil {
		return false, err
	}
	if ok {
		*workspaceDirty = false
		return true, nil
	}
	return false, nil
}

func (e *Engine) invokeTool(ctx context.Context, sessionID, turnID string, registry *tools.Registry, callID, name, input string) tools.Result {
	_ = e.Store.AppendEvent(sessionID, store.Event{
		Type: store.EventToolCallStarted, TurnID: turnID,
		Data: map[string]any{"call_id": callID, "name": name},
	})
	start := time.Now()
	result := registry.Invoke(ctx, tools.Call{ID: callID, Name: name, Input: input})
	_ = e.Store.AppendEvent(sessionID, store.Event{
		Type: store.EventToolCallCompleted, TurnID: turnID,
		Data: map[string]any{"call_id": callID, "name": name, "ok": result.OK, "error": result.Error, "duration_ms": time.Since(start).Milliseconds()},
	})

	_, _ = e.Store.AppendMessage(sessionID, store.Message{
		Role:       store.RoleTool,
		ToolCallID: callID,
		Parts:      resultToStoreParts(result),
	})
	_ = e.Store.AppendEvent(sessionID, store.Event{Type: store.EventMessageAdded, TurnID: turnID})
	return result
}

// synthesizeValidateSpec runs validate_spec immediately after a
// successful write_spec call (§4.7.4.e.7). Its outcome is informational
// to the model, and it never counts toward dedup.
func (e *Engine) synthesizeValidateSpec(ctx context.Context, sessionID, turnID string, registry *tools.Registry) {
	tool := registry.Get("validate_spec")
	if tool == nil {
		return
	}
	def := tool.Definition()
	callID := ids.New(ids.PrefixToolCall)

	if e.needsApproval(def) {
		granted, err := e.gateApproval(ctx, sessionID, turnID, callID)
		if err != nil || !granted {
			return
		}
	}
	e.invokeTool(ctx, sessionID, turnID, registry, callID, "validate_spec", "{}")
}

func (e *Engine) needsApproval(def tools.Definition) bool {
	return def.NeedsApproval() || approvalPolicyRequires(e.ApprovalPolicy, def)
}

func toKitToolSpecs(defs []tools.Definition) []kit.ToolSpec {
	out := make([]kit.ToolSpec, len(defs))
	for i, d := range defs {
		out[i] = kit.ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return out
}
