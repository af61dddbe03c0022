// Package anthropickit is a minimal kit.Kit backed by the Anthropic
// Messages API via github.com/anthropics/anthropic-sdk-go. It is
// intentionally thin: it does not reproduce a full prompt-injection,
// extended-thinking, or alias-expansion stack — only the four kit.Kit
// methods needed to let the orchestration core exercise a real
// provider end to end.
package anthropickit

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentd/core/pkg/kit"
)

// Config configures the Anthropic kit.
type Config struct {
	APIKey       string
	DefaultModel string
	MaxTokens    int64
}

// Kit implements kit.Kit against the Anthropic Messages API.
type Kit struct {
	client       anthropic.Client
	defaultModel string
	maxTokens    int64
}

var _ kit.Kit = (*Kit)(nil)

// New creates an Anthropic-backed kit.
func New(cfg Config) *Kit {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	return &Kit{
		client:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		defaultModel: model,
		maxTokens:    maxTokens,
	}
}

func (k *Kit) Name() string   { return "anthropic" }
func (k *Kit) Kind() kit.Kind { return kit.KindAnthropicLike }

// ListModelRecords queries the Anthropic Models API.
func (k *Kit) ListModelRecords(ctx context.Context) ([]kit.ModelRecord, error) {
	page, err := k.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("anthropickit: list models: %w", err)
	}
	records := make([]kit.ModelRecord, 0, len(page.Data))
	for _, m := range page.Data {
		records = append(records, kit.ModelRecord{
			ID:            m.ID,
			Provider:      "anthropic",
			SupportsTools: true,
		})
	}
	return records, nil
}

// Resolve delegates to the shared default policy.
func (k *Kit) Resolve(records []kit.ModelRecord, constraints kit.Constraints, preferred []string) (kit.Resolution, error) {
	return kit.DefaultResolve(records, constraints, preferred)
}

// Generate collects a full StreamGenerate run.
func (k *Kit) Generate(ctx context.Context, turn kit.Turn) (kit.GenerateResult, error) {
	var result kit.GenerateResult
	calls := map[string]*kit.ResolvedToolCall{}
	var order []string

	err := k.StreamGenerate(ctx, turn, func(c kit.StreamChunk) error {
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

// StreamGenerate translates a kit.Turn into Anthropic Messages API
// params and streams the response back as kit.StreamChunk values,
// following the API's content-block state machine (text_delta /
// input_json_delta / tool_use block stop).
func (k *Kit) StreamGenerate(ctx context.Context, turn kit.Turn, onChunk func(kit.StreamChunk) error) error {
	params, err := k.buildParams(turn)
	if err != nil {
		return fmt.Errorf("anthropickit: build request: %w", err)
	}

	stream := k.client.Messages.NewStreaming(ctx, params)
	state := &blockState{}
	for stream.Next() {
		if err := translateEvent(stream.Current(), state, onChunk); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropickit: stream: %w", err)
	}
	return onChunk(kit.NewMessageEndChunk("stop"))
}

func (k *Kit) buildParams(turn kit.Turn) (anthropic.MessageNewParams, error) {
	model := turn.Model
	if model == "" {
		model = k.defaultModel
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: k.maxTokens,
	}
	if turn.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: turn.Instructions}}
	}

	var messages []anthropic.MessageParam
	for _, msg := range turn.Messages {
		text := partsText(msg.Parts)
		switch msg.Role {
		case "user":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		case "tool":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolCallID, text, false)))
		}
	}
	params.Messages = messages

	if len(turn.Tools) > 0 {
		var tools []anthropic.ToolUnionParam
		for _, t := range turn.Tools {
			schema := anthropic.ToolInputSchemaParam{}
			if props, ok := t.Parameters["properties"].(map[string]any); ok {
				schema.Properties = props
			}
			if req, ok := t.Parameters["required"].([]any); ok {
				for _, r := range req {
					if s, ok := r.(string); ok {
						schema.Required = append(schema.Required, s)
					}
				}
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			}})
		}
		params.Tools = tools
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	return params, nil
}

func partsText(parts []kit.Part) string {
	var out string
	for _, p := range parts {
		if p.Type == kit.PartText {
			out += p.Text
		}
	}
	return out
}

type blockState struct {
	currentBlockType string
	currentToolID    string
	currentToolName  string
	toolArgsJSON     string
	inputTokens      int
	outputTokens     int
}

func translateEvent(event anthropic.MessageStreamEventUnion, state *blockState, emit func(kit.StreamChunk) error) error {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		block := e.ContentBlock
		switch block.Type {
		case "text":
			state.currentBlockType = "text"
		case "tool_use":
			state.currentBlockType = "tool_use"
			toolBlock := block.AsToolUse()
			state.currentToolID = toolBlock.ID
			state.currentToolName = toolBlock.Name
			state.toolArgsJSON = ""
		}

	case anthropic.ContentBlockDeltaEvent:
		delta := e.Delta
		switch delta.Type {
		case "text_delta":
			return emit(kit.NewTextChunk(delta.AsTextDelta().Text))
		case "input_json_delta":
			state.toolArgsJSON += delta.AsInputJSONDelta().PartialJSON
		}

	case anthropic.ContentBlockStopEvent:
		blockType := state.currentBlockType
		state.currentBlockType = ""
		if blockType == "tool_use" {
			return emit(kit.NewToolCallChunk(state.currentToolID, state.currentToolName, state.toolArgsJSON))
		}

	case anthropic.MessageStartEvent:
		if e.Message.Usage.InputTokens > 0 {
			state.inputTokens = int(e.Message.Usage.InputTokens)
		}

	case anthropic.MessageDeltaEvent:
		if e.Usage.OutputTokens > 0 {
			state.outputTokens = int(e.Usage.OutputTokens)
		}

	case anthropic.MessageStopEvent:
		if state.inputTokens > 0 || state.outputTokens > 0 {
			return emit(kit.NewUsageChunk(state.inputTokens, state.outputTokens))
		}
	}
	return nil
}
