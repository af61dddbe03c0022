// Package mockkit provides a scripted, deterministic kit.Kit for testing
// the orchestration core without network calls: pop-next-scripted-
// sequence responses, failure injection, and call recording.
package mockkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentd/core/pkg/kit"
)

// Config configures a Mock kit.
type Config struct {
	// Name is returned by Name(). Defaults to "mock".
	Name string

	// KindOverride lets tests exercise provider-normalization logic.
	KindOverride kit.Kind

	// Responses contains scripted chunk sequences. Each call to
	// StreamGenerate pops the next sequence from the front.
	Responses [][]kit.StreamChunk

	// ChunkDelay simulates latency between emitted chunks.
	ChunkDelay time.Duration

	// FailAfterN aborts after emitting N chunks with FailErr. 0 disables.
	FailAfterN int
	FailErr    error

	// Record captures every Turn passed to StreamGenerate/Generate.
	Record bool

	// Models is returned by ListModelRecords.
	Models []kit.ModelRecord
}

// Mock implements kit.Kit with scripted responses.
type Mock struct {
	mu        sync.Mutex
	cfg       Config
	callIndex int
	recorded  []kit.Turn
}

// New creates a Mock kit with the given configuration.
func New(cfg Config) *Mock {
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	if cfg.KindOverride == "" {
		cfg.KindOverride = kit.KindGeneric
	}
	return &Mock{cfg: cfg}
}

func (m *Mock) Name() string  { return m.cfg.Name }
func (m *Mock) Kind() kit.Kind { return m.cfg.KindOverride }

func (m *Mock) ListModelRecords(ctx context.Context) ([]kit.ModelRecord, error) {
	return m.cfg.Models, nil
}

func (m *Mock) Resolve(records []kit.ModelRecord, constraints kit.Constraints, preferred []string) (kit.Resolution, error) {
	return kit.DefaultResolve(records, constraints, preferred)
}

// Recorded returns every Turn observed so far, when Record is enabled.
func (m *Mock) Recorded() []kit.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]kit.Turn, len(m.recorded))
	copy(out, m.recorded)
	return out
}

// StreamGenerate emits the next scripted chunk sequence via onChunk.
func (m *Mock) StreamGenerate(ctx context.Context, turn kit.Turn, onChunk func(kit.StreamChunk) error) error {
	m.mu.Lock()
	if m.cfg.Record {
		m.recorded = append(m.recorded, turn)
	}
	idx := m.callIndex
	m.callIndex++
	m.mu.Unlock()

	if idx >= len(m.cfg.Responses) {
		return fmt.Errorf("mockkit: no more scripted responses (call %d, have %d)", idx, len(m.cfg.Responses))
	}

	chunks := m.cfg.Responses[idx]
	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if m.cfg.FailAfterN > 0 && i >= m.cfg.FailAfterN {
			if m.cfg.FailErr != nil {
				return m.cfg.FailErr
			}
			return fmt.Errorf("mockkit: failed after %d chunks", m.cfg.FailAfterN)
		}

		if m.cfg.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.ChunkDelay):
			}
		}

		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Generate collects a full StreamGenerate run into a GenerateResult.
func (m *Mock) Generate(ctx context.Context, turn kit.Turn) (kit.GenerateResult, error) {
	var result kit.GenerateResult
	calls := map[string]*kit.ResolvedToolCall{}
	var order []string

	err := m.StreamGenerate(ctx, turn, func(c kit.StreamChunk) error {
		switch c.Kind {
		case kit.EventText:
			result.Text += c.TextDelta
		case kit.EventToolCall:
			rc, ok := calls[c.ToolCallID]
			if !ok {
				rc = &kit.ResolvedToolCall{ID: c.ToolCallID}
				calls[c.ToolCallID] = rc
				order = append(order, c.ToolCallID)
			}
			if c.ToolCallName != "" {
				rc.Name = c.ToolCallName
			}
			rc.Input += c.ToolCallInput
		case kit.EventUsage:
			result.Usage = c.Usage
		case kit.EventError:
			return c.Err
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	for _, id := range order {
		result.ToolCalls = append(result.ToolCalls, *calls[id])
	}
	return result, nil
}
