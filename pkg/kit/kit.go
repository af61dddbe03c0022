// Package kit defines the provider abstraction the orchestration core
// consumes. A Kit is the contract a concrete LLM backend (Anthropic,
// OpenAI, a local model server, ...) implements; the core never speaks a
// provider wire protocol directly. Kits are collaborators, not part of
// the core itself (see the Non-goal on re-implementing provider
// adapters) — the core only needs the four methods below plus enough
// metadata to resolve a model against policy constraints.
package kit

import "context"

// Kind is a coarse discriminant some providers need to special-case,
// e.g. to decide whether tool-role messages must be rewritten before
// being sent (see the session executor's provider normalization step).
type Kind string

const (
	KindGeneric       Kind = "generic"
	KindNoToolRole    Kind = "no-tool-role"
	KindAnthropicLike Kind = "anthropic-like"
)

// Message is one entry in a Turn's conversation history.
type Message struct {
	Role       string // "system", "user", "assistant", "tool"
	Parts      []Part
	ToolCallID string // set on role="tool" messages
}

// PartType discriminates the union held by Part.
type PartType string

const (
	PartText     PartType = "text"
	PartImage    PartType = "image"
	PartFile     PartType = "file"
	PartToolCall PartType = "tool_call"
)

// Part is one piece of a Message's content.
type Part struct {
	Type      PartType
	Text      string
	MediaType string // for PartImage/PartFile
	Data      []byte // base64-ready raw bytes, for PartImage/PartFile
	Ref       string // original attachment ref, for diagnostics
	ToolCall  *ToolCallRequest
}

// ToolCallRequest mirrors a model-issued tool call embedded in a message
// (used when replaying assistant turns back into history).
type ToolCallRequest struct {
	ID    string
	Name  string
	Input string
}

// ToolSpec describes one tool available to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped
}

// Turn is a single request to the model: history plus tools plus policy.
type Turn struct {
	Model        string
	Instructions string
	Messages     []Message
	Tools        []ToolSpec
	Metadata     map[string]any
}

// EventKind identifies the kind of streamed chunk a Kit emits during
// StreamGenerate.
type EventKind int

const (
	EventText EventKind = iota
	EventToolCall
	EventUsage
	EventMessageEnd
	EventError
)

// StreamChunk is one unit of a streamed generation.
type StreamChunk struct {
	Kind EventKind

	TextDelta string

	ToolCallID    string // chunks sharing an id form one call; empty means a new call with a minted id
	ToolCallName  string
	ToolCallInput string // JSON fragment, appended to the call's earlier fragments

	Usage *Usage

	FinishReason string // set on EventMessageEnd

	Err error // set on EventError
}

// Usage carries token accounting for a generation.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CachedTokens int
}

// GenerateResult is the non-streaming collected output of a Turn.
type GenerateResult struct {
	Text      string
	ToolCalls []ResolvedToolCall
	Usage     *Usage
}

// ResolvedToolCall is one fully-assembled tool call extracted from a
// completed generation.
type ResolvedToolCall struct {
	ID    string
	Name  string
	Input string
}

// ModelRecord describes one model a Kit can serve.
type ModelRecord struct {
	ID             string
	Provider       string
	SupportsTools  bool
	SupportsVision bool
	CostPerMTokIn  float64
	CostPerMTokOut float64
}

// Constraints narrows which models are acceptable to Resolve.
type Constraints struct {
	RequireTools  bool
	RequireVision bool
	MaxCostUSD    float64 // 0 means unconstrained
}

// Resolution is the outcome of resolving a model against constraints.
type Resolution struct {
	Primary ModelRecord
}

// Kit is the interface every provider backend implements.
type Kit interface {
	// Name identifies the kit, e.g. "anthropic", "mock".
	Name() string

	// Kind reports provider quirks the session executor must normalize for.
	Kind() Kind

	// ListModelRecords returns the models this kit can serve.
	ListModelRecords(ctx context.Context) ([]ModelRecord, error)

	// Resolve picks the best model among records satisfying constraints,
	// preferring entries from preferred (in order) when they qualify.
	Resolve(records []ModelRecord, constraints Constraints, preferred []string) (Resolution, error)

	// Generate runs a Turn to completion and returns the collected result.
	Generate(ctx context.Context, turn Turn) (GenerateResult, error)

	// StreamGenerate runs a Turn, invoking onChunk for each streamed unit.
	// onChunk returning an error aborts the stream.
	StreamGenerate(ctx context.Context, turn Turn, onChunk func(StreamChunk) error) error
}
