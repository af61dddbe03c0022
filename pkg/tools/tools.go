// Package tools implements the tool registry (§4.3): named, typed
// capabilities the model may invoke, each classed read/write/exec/network
// and sandboxed to a workspace root via pkg/workspace.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Kind classifies a tool's effect, driving approval and dirty-workspace
// policy in the session executor.
type Kind string

const (
	KindRead    Kind = "read"
	KindWrite   Kind = "write"
	KindExec    Kind = "exec"
	KindNetwork Kind = "network"
)

// Definition describes a tool's name, schema, and approval defaults.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped
	Kind        Kind

	// RequiresApproval marks the tool as sensitive by default.
	RequiresApproval bool
	// AllowWithoutApproval overrides RequiresApproval even when set.
	AllowWithoutApproval bool
}

// NeedsApproval is the per-tool half of the approval-required rule in
// §4.7.4.e.3; the session executor ORs this with the session's approval
// policy (kind/name overrides).
func (d Definition) NeedsApproval() bool {
	return d.RequiresApproval && !d.AllowWithoutApproval
}

// Call is a single invocation request from the model.
type Call struct {
	ID    string
	Name  string
	Input string // JSON-encoded
}

// PartType discriminates Part's union, mirroring kit.PartType so tool
// output can be embedded directly into a Message's parts.
type PartType string

const (
	PartText PartType = "text"
	PartJSON PartType = "json"
)

// Part is one piece of a tool result's content.
type Part struct {
	Type PartType
	Text string
}

// Result is the outcome of invoking a tool.
type Result struct {
	ID        string
	OK        bool
	Parts     []Part
	Artifacts []string
	Error     string
}

// TextResult builds a single-part successful Result.
func TextResult(id, text string) Result {
	return Result{ID: id, OK: true, Parts: []Part{{Type: PartText, Text: text}}}
}

// ErrorResult builds a failed Result.
func ErrorResult(id, errMsg string) Result {
	return Result{ID: id, OK: false, Error: errMsg}
}

// Tool pairs a Definition with its invocation logic.
type Tool interface {
	Definition() Definition
	Invoke(ctx context.Context, call Call) (Result, error)
}

// Registry holds named tools and dispatches calls, never throwing: every
// failure mode becomes a Result with OK=false.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Add registers a tool, overwriting any prior registration with the same name.
func (r *Registry) Add(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Definition().Name] = t
}

// Get returns a tool by name, or nil if unregistered.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions returns every registered tool's Definition, sorted by name
// for deterministic prompt construction.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Invoke dispatches call to the named tool. Unknown tools and invalid
// JSON input are reported as failed Results, and so is an error returned
// by the tool itself; Invoke has no error return. Panics are not
// recovered.
func (r *Registry) Invoke(ctx context.Context, call Call) Result {
	t := r.Get(call.Name)
	if t == nil {
		return ErrorResult(call.ID, "unknown tool")
	}

	if !json.Valid([]byte(normalizeEmptyInput(call.Input))) {
		return ErrorResult(call.ID, "invalid input")
	}

	result, err := t.Invoke(ctx, call)
	if err != nil {
		return ErrorResult(call.ID, err.Error())
	}
	if result.ID == "" {
		result.ID = call.ID
	}
	return result
}

func normalizeEmptyInput(input string) string {
	if input == "" {
		return "{}"
	}
	return input
}

// DecodeInput JSON-decodes call.Input into v, treating an empty string
// as "{}" so tools with no required fields don't need special-casing.
func DecodeInput(call Call, v any) error {
	raw := normalizeEmptyInput(call.Input)
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("invalid input")
	}
	return nil
}
