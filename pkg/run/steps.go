package run

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentd/core/pkg/ids"
	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/tools"
)

func newStepID() string {
	return ids.New(ids.PrefixStep)
}

// executeStep advances one step through approval gating and execution,
// per §4.6.3–§4.6.5. It returns false only when an invariant-level
// problem occurred (never for an ordinary step failure, which is
// recorded on the step and the loop continues).
func (e *Engine) executeStep(ctx context.Context, runID, stepID string, registry *tools.Registry) bool {
	run, err := e.Store.GetRun(runID)
	if err != nil {
		return false
	}
	step := findStep(run, stepID)
	if step == nil {
		return false
	}

	if _, err := e.Store.UpdateRun(runID, func(r *store.Run) { setStepStatus(r, stepID, store.StepRunning) }); err != nil {
		return false
	}

	if step.NeedsApproval {
		if !e.gateApproval(ctx, runID, stepID) {
			return true
		}
	}
	if ctx.Err() != nil {
		return true
	}

	current, err := e.Store.GetRun(runID)
	if err != nil {
		return false
	}
	step = findStep(current, stepID)
	if step == nil || step.Status == store.StepSkipped {
		return true
	}

	_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventStepStarted, Data: map[string]any{"step_id": stepID}})
	start := time.Now()
	result := e.invokeStep(ctx, *step, registry)
	duration := time.Since(start)

	_, _ = e.Store.UpdateRun(runID, func(r *store.Run) {
		s := findStep(r, stepID)
		if s == nil {
			return
		}
		s.DurationMs = duration.Milliseconds()
		s.UpdatedAt = time.Now()
		if result.OK {
			s.Status = store.StepSucceeded
		} else {
			s.Status = store.StepFailed
			s.Error = result.Error
		}
		for _, p := range result.Parts {
			if p.Type == tools.PartText {
				s.Stdout = p.Text
			}
		}
	})
	_ = e.Store.AppendEvent(runID, store.Event{
		Type: store.EventStepCompleted,
		Data: map[string]any{"step_id": stepID, "ok": result.OK, "error": result.Error},
	})
	return true
}

// gateApproval blocks the run on a human decision for stepID, returning
// true if execution should proceed and false if the step was skipped
// (denied) or the run was canceled while waiting.
func (e *Engine) gateApproval(ctx context.Context, runID, stepID string) bool {
	_, _ = e.Store.UpdateRun(runID, func(r *store.Run) { r.Status = store.RunWaitingApproval })
	if err := e.Store.RequireApproval(runID, stepID); err != nil {
		return false
	}
	_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventApprovalRequested, Data: map[string]any{"step_id": stepID}})

	decision, err := e.Store.WaitForApproval(ctx, runID, stepID)
	if err != nil {
		return false
	}

	_, _ = e.Store.UpdateRun(runID, func(r *store.Run) { r.Status = store.RunRunning })

	if decision.Action == store.ApprovalDeny {
		_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventApprovalDenied, Data: map[string]any{"step_id": stepID}})
		_, _ = e.Store.UpdateRun(runID, func(r *store.Run) { setStepStatus(r, stepID, store.StepSkipped) })
		return false
	}

	_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventApprovalGranted, Data: map[string]any{"step_id": stepID}})
	return true
}

func (e *Engine) invokeStep(ctx context.Context, step store.Step, registry *tools.Registry) tools.Result {
	switch step.Type {
	case store.StepCommand:
		input, _ := json.Marshal(map[string]any{"command": step.Command})
		return registry.Invoke(ctx, tools.Call{ID: step.ID, Name: "shell", Input: string(input)})
	case store.StepPatch:
		input, _ := json.Marshal(map[string]any{"diff": step.Patch})
		return registry.Invoke(ctx, tools.Call{ID: step.ID, Name: "apply_patch", Input: string(input)})
	case store.StepDiagram:
		return registry.Invoke(ctx, tools.Call{ID: step.ID, Name: "diagram", Input: "{}"})
	case store.StepNote:
		return tools.Result{ID: step.ID, OK: true}
	default:
		return tools.ErrorResult(step.ID, fmt.Sprintf("unknown step type %q", step.Type))
	}
}

func findStep(run store.Run, id string) *store.Step {
	for i := range run.Steps {
		if run.Steps[i].ID == id {
			return &run.Steps[i]
		}
	}
	return nil
}

func setStepStatus(r *store.Run, stepID string, status store.StepStatus) {
	for i := range r.Steps {
		if r.Steps[i].ID == stepID {
			r.Steps[i].Status = status
			r.Steps[i].UpdatedAt = time.Now()
			return
		}
	}
}
