// Package run implements the one-shot run executor (C6, §4.6): it
// advances a run from queued to a terminal state by generating a plan,
// then executing each step in order with approval gating, never asking
// the human anything beyond approvals. It runs no verification pass of
// its own after the steps.
package run

import (
	"context"
	"encoding/json"
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

// Engine drives runs to completion in the background. It is the
// long-lived object holding the store, router, and tool registry a
// background worker needs.
type Engine struct {
	Store       *store.Store
	Router      *kitrouter.Router
	ToolsFor    func(workspacePath string) *tools.Registry
	ModelPolicy daemonconfig.ModelPolicy
	Logger      *obslog.Logger

	mu       sync.Mutex
	liveRuns map[string]bool
}

// NewEngine constructs a run Engine.
func NewEngine(s *store.Store, router *kitrouter.Router, toolsFor func(string) *tools.Registry, policy daemonconfig.ModelPolicy) *Engine {
	return &Engine{
		Store:       s,
		Router:      router,
		ToolsFor:    toolsFor,
		ModelPolicy: policy,
		liveRuns:    map[string]bool{},
	}
}

// StartRun spawns the background worker for runID and returns
// immediately. At most one worker may be live per run; calling this
// twice for the same run before it finishes is an error (§4.6).
func (e *Engine) StartRun(runID string) error {
	e.mu.Lock()
	if e.liveRuns[runID] {
		e.mu.Unlock()
		return fmt.Errorf("run: worker already running for %s", runID)
	}
	e.liveRuns[runID] = true
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.Store.SetCancel(runID, cancel)

	go func() {
		defer func() {
			e.Store.ClearCancel(runID)
			e.mu.Lock()
			delete(e.liveRuns, runID)
			e.mu.Unlock()
			cancel()
		}()
		e.work(ctx, runID)
	}()
	return nil
}

func (e *Engine) work(ctx context.Context, runID string) {
	e.Logger.Infof("run", "starting run %s", runID)
	run, err := e.Store.GetRun(runID)
	if err != nil {
		e.Logger.Errorf("run", "load run %s failed: %s", runID, err.Error())
		return
	}

	if _, err := e.Store.UpdateRun(runID, func(r *store.Run) { r.Status = store.RunRunning }); err != nil {
		return
	}

	registry := e.ToolsFor(run.WorkspacePath)

	k, resolution, err := e.Router.Resolve(ctx, kit.Constraints{
		RequireTools:  e.ModelPolicy.RequireTools,
		RequireVision: e.ModelPolicy.RequireVision,
		MaxCostUSD:    e.ModelPolicy.MaxCostUSD,
	}, e.ModelPolicy.PreferredModels)
	if err != nil {
		e.Logger.Warnf("run", "model resolution failed for %s: %s", runID, err.Error())
		e.fail(runID, fmt.Sprintf("model error: %s", err.Error()))
		return
	}
	_, _ = e.Store.UpdateRun(runID, func(r *store.Run) { r.Model = resolution.Primary.ID })
	_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventModelResolved, Data: map[string]any{"model": resolution.Primary.ID}})

	snapshot, err := ctxgather.Gather(ctx, run.WorkspacePath, time.Now())
	if err != nil && ctx.Err() != nil {
		e.canceled(runID)
		return
	}

	steps := e.generatePlan(ctx, k, resolution, snapshot, run, registry)
	run, err = e.Store.UpdateRun(runID, func(r *store.Run) { r.Steps = steps })
	if err != nil {
		return
	}

	for i := range run.Steps {
		if ctx.Err() != nil {
			e.canceled(runID)
			return
		}
		// A false return means the run/step lookup itself failed (an
		// invariant problem); an ordinary step failure is recorded on
		// the step and the loop still continues, per §4.6.5.
		if ok := e.executeStep(ctx, runID, run.Steps[i].ID, registry); !ok {
			return
		}
		if ctx.Err() != nil {
			e.canceled(runID)
			return
		}
	}

	final, err := e.Store.GetRun(runID)
	if err != nil {
		return
	}
	anyFailed := false
	for _, s := range final.Steps {
		if s.Status == store.StepFailed {
			anyFailed = true
			break
		}
	}
	if anyFailed {
		e.fail(runID, "one or more steps failed")
		return
	}
	_, _ = e.Store.UpdateRun(runID, func(r *store.Run) { r.Status = store.RunSucceeded })
	_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventRunCompleted})
	e.Logger.Infof("run", "run %s succeeded", runID)
}

func (e *Engine) fail(runID, message string) {
	_, _ = e.Store.UpdateRun(runID, func(r *store.Run) {
		r.Status = store.RunFailed
		r.Error = message
	})
	_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventRunFailed, Message: message})
	e.Logger.Warnf("run", "run %s failed: %s", runID, message)
}

func (e *Engine) canceled(runID string) {
	_, _ = e.Store.UpdateRun(runID, func(r *store.Run) {
		if r.Status != store.RunSucceeded && r.Status != store.RunFailed {
			r.Status = store.RunCanceled
		}
	})
	_ = e.Store.AppendEvent(runID, store.Event{Type: store.EventRunCanceled})
	e.Logger.Infof("run", "run %s canceled", runID)
}

// planStep is the shape the planning model is asked to produce.
type planStep struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Patch   string `json:"patch,omitempty"`
}

// generatePlan calls the model with a planning prompt and normalizes the
// result into store.Step values; any failure falls back to the static
// two-step plan named in §4.6.2.
func (e *Engine) generatePlan(ctx context.Context, k kit.Kit, resolution kit.Resolution, snapshot ctxgather.Snapshot, run store.Run, registry *tools.Registry) []store.Step {
	turn := kit.Turn{
		Model:        resolution.Primary.ID,
		Instructions: "Produce a short ordered plan of steps to carry out the goal described in the workspace spec. Respond with a JSON array of objects, each {title, type, command?, patch?}, type one of command, patch, diagram, note.",
		Messages: []kit.Message{
			{Role: "system", Parts: []kit.Part{{Type: kit.PartText, Text: snapshot.Render()}}},
		},
	}

	result, err := k.Generate(ctx, turn)
	if err == nil {
		var raw []planStep
		if jsonErr := json.Unmarshal([]byte(result.Text), &raw); jsonErr == nil && len(raw) > 0 {
			return normalizePlan(raw, registry)
		}
	}

	return staticFallbackPlan(registry)
}

func normalizePlan(raw []planStep, registry *tools.Registry) []store.Step {
	now := time.Now()
	steps := make([]store.Step, 0, len(raw))
	for _, p := range raw {
		t := store.StepType(p.Type)
		switch t {
		case store.StepCommand, store.StepPatch, store.StepDiagram, store.StepNote:
		default:
			t = store.StepCommand
		}
		steps = append(steps, store.Step{
			ID:            newStepID(),
			Title:         p.Title,
			Type:          t,
			NeedsApproval: needsApprovalForStep(t, registry),
			Command:       p.Command,
			Patch:         p.Patch,
			Status:        store.StepPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return steps
}

// staticFallbackPlan is the two-step plan used when planning fails
// entirely (§4.6.2): run the test suite, then regenerate diagrams.
func staticFallbackPlan(registry *tools.Registry) []store.Step {
	now := time.Now()
	return []store.Step{
		{
			ID:            newStepID(),
			Title:         "Run tests",
			Type:          store.StepCommand,
			Command:       "make test",
			NeedsApproval: needsApprovalForStep(store.StepCommand, registry),
			Status:        store.StepPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            newStepID(),
			Title:         "Regenerate diagrams",
			Type:          store.StepDiagram,
			Command:       "make diagrams",
			NeedsApproval: needsApprovalForStep(store.StepDiagram, registry),
			Status:        store.StepPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

func needsApprovalForStep(t store.StepType, registry *tools.Registry) bool {
	toolName := toolNameForStep(t)
	if toolName == "" {
		return false
	}
	tool := registry.Get(toolName)
	if tool == nil {
		return false
	}
	return tool.Definition().NeedsApproval()
}

func toolNameForStep(t store.StepType) string {
	switch t {
	case store.StepCommand:
		return "shell"
	case store.StepPatch:
		return "apply_patch"
	case store.StepDiagram:
		return "diagram"
	default:
		return ""
	}
}
