package kit

// NewTextChunk creates a streamed text delta chunk.
func NewTextChunk(delta string) StreamChunk {
	return StreamChunk{Kind: EventText, TextDelta: delta}
}

// NewToolCallChunk creates a streamed tool-call fragment. Chunks that
// share id refine one call, their input fragments appended in order; a
// chunk with an empty id starts a new call that the consumer gives a
// freshly minted id. name may be empty on a chunk that only carries more
// input.
func NewToolCallChunk(id, name, inputFragment string) StreamChunk {
	return StreamChunk{Kind: EventToolCall, ToolCallID: id, ToolCallName: name, ToolCallInput: inputFragment}
}

// NewUsageChunk creates a usage chunk.
func NewUsageChunk(input, output int) StreamChunk {
	return StreamChunk{Kind: EventUsage, Usage: &Usage{InputTokens: input, OutputTokens: output}}
}

// NewMessageEndChunk creates a message-end chunk with the given finish reason.
func NewMessageEndChunk(finishReason string) StreamChunk {
	return StreamChunk{Kind: EventMessageEnd, FinishReason: finishReason}
}

// NewErrorChunk creates an error chunk.
func NewErrorChunk(err error) StreamChunk {
	return StreamChunk{Kind: EventError, Err: err}
}
