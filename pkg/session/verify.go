package session

import (
	"context"
	"fmt"

	"github.com/agentd/core/pkg/ids"
	"github.com/agentd/core/pkg/tools"
)

// runAutoVerify synthesizes a verify tool call with a fresh id and empty
// input (§4.7.5), honoring approval like any other call, and reports
// whether the workspace converged.
func (e *Engine) runAutoVerify(ctx context.Context, sessionID, turnID string, registry *tools.Registry) (bool, error) {
	tool := registry.Get("verify")
	if tool == nil {
		return true, nil
	}
	def := tool.Definition()
	callID := ids.New(ids.PrefixToolCall)

	if e.needsApproval(def) {
		granted, err := e.gateApproval(ctx, sessionID, turnID, callID)
		if err != nil {
			return false, err
		}
		if !granted {
			return false, fmt.Errorf("approval denied")
		}
	}

	result := e.invokeTool(ctx, sessionID, turnID, registry, callID, "verify", "{}")
	return result.OK, nil
}
