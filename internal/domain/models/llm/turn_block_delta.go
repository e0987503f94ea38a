package llm

// Delta type constants for streaming events
const (
	DeltaTypeText          = "text_delta"        // Regular text content
	DeltaTypeThinking      = "thinking_delta"    // Thinking/reasoning text
	DeltaTypeSignature     = "signature_delta"   // Cryptographic signature (Anthropic/Gemini Extended Thinking)
	DeltaTypeToolCallStart = "tool_call_start"   // Tool call initiated (name, id)
	DeltaTypeInputJSON     = "input_json_delta"  // Incremental tool input JSON
	DeltaTypeUsage         = "usage_delta"       // Token usage updates

	// DeltaTypeJSON is the SSE wire delta_type for a fully-accumulated structured
	// block emitted once a tool_use/tool_result/web_search block completes.
	// Distinct from DeltaTypeInputJSON, which is the provider-facing incremental
	// delta type accumulated in memory but never forwarded to SSE clients.
	DeltaTypeJSON = "json_delta"

	// Legacy aliases for backwards compatibility
	DeltaTypeTextDelta      = DeltaTypeText
	DeltaTypeInputJSONDelta = DeltaTypeInputJSON
)

// TurnBlockDelta represents an incremental update to a turn block during streaming
// This is an ephemeral model - deltas are accumulated into TurnBlocks in memory,
// and only complete TurnBlocks are persisted to the database.
//
// Delta flow:
//   1. Provider streams deltas (e.g., Anthropic content_block_delta events)
//   2. Deltas transformed to TurnBlockDelta
//   3. BlockAccumulator accumulates deltas in memory
//   4. On block type change, accumulated content written as TurnBlock to DB
//   5. TurnBlockDelta events broadcast to SSE clients for real-time UI updates
//
// BlockType is optional and signals block starts:
//   - Set on first delta for a block (acts as block_start signal)
//   - Nil on subsequent deltas for the same block
//   - Allows consumer to detect new blocks without separate events
type TurnBlockDelta struct {
	// BlockIndex identifies which block this delta belongs to (0-indexed)
	// Matches the Sequence field in TurnBlock
	BlockIndex int `json:"block_index"`

	// BlockType indicates the type of block being accumulated
	// Values: "text", "thinking", "tool_use"
	// OPTIONAL: Only set on first delta for a block (signals block start)
	BlockType *string `json:"block_type,omitempty"`

	// DeltaType indicates what kind of delta this is
	// Values: "text_delta", "thinking_delta", "signature_delta",
	//         "tool_call_start", "input_json_delta", "usage_delta"
	DeltaType string `json:"delta_type"`

	// === Content Deltas ===

	// TextDelta contains incremental text content (text or thinking blocks)
	// Accumulated into TurnBlock.TextContent
	TextDelta *string `json:"text_delta,omitempty"`

	// SignatureDelta contains incremental cryptographic signature
	// (Anthropic/Gemini Extended Thinking only)
	// Accumulated into TurnBlock.Content["signature"]
	SignatureDelta *string `json:"signature_delta,omitempty"`

	// InputJSONDelta contains incremental JSON for tool input (tool_use blocks)
	// Accumulated into TurnBlock.Content["input"]
	InputJSONDelta *string `json:"input_json_delta,omitempty"`

	// === Tool Call Metadata ===

	// ToolCallID identifies the tool call (set on tool_call_start)
	// Stored in TurnBlock.Content["id"]
	ToolCallID *string `json:"tool_call_id,omitempty"`

	// ToolCallName is the function name (set on tool_call_start)
	// Stored in TurnBlock.Content["name"]
	ToolCallName *string `json:"tool_call_name,omitempty"`

	// === Legacy Fields (for backwards compatibility) ===

	// ToolUseID is DEPRECATED, use ToolCallID instead
	// Stored in TurnBlock.Content["tool_use_id"]
	ToolUseID *string `json:"tool_use_id,omitempty"`

	// ToolName is DEPRECATED, use ToolCallName instead
	// Stored in TurnBlock.Content["tool_name"]
	ToolName *string `json:"tool_name,omitempty"`

	// ThinkingSignature is DEPRECATED, use SignatureDelta with DeltaTypeSignature
	// Stored in TurnBlock.Content["signature"]
	ThinkingSignature *string `json:"thinking_signature,omitempty"`

	// === Usage Metadata ===

	// InputTokens contains input/prompt token count
	// Accumulated at Turn level (not Block level)
	InputTokens *int `json:"input_tokens,omitempty"`

	// OutputTokens contains output/completion token count
	// Accumulated at Turn level (not Block level)
	OutputTokens *int `json:"output_tokens,omitempty"`

	// ThinkingTokens contains thinking-specific token count (Gemini)
	// Stored in Turn.ResponseMetadata["thinking_tokens"]
	ThinkingTokens *int `json:"thinking_tokens,omitempty"`
}

// IsTextDelta returns true if this delta contains text content
func (d *TurnBlockDelta) IsTextDelta() bool {
	return (d.DeltaType == DeltaTypeText || d.DeltaType == DeltaTypeThinking) && d.TextDelta != nil
}

// IsInputJSONDelta returns true if this delta contains tool input JSON
func (d *TurnBlockDelta) IsInputJSONDelta() bool {
	return d.DeltaType == DeltaTypeInputJSON && d.InputJSONDelta != nil
}

// IsBlockStart returns true if this delta signals the start of a new block
// Detected by BlockType field being set (non-nil)
func (d *TurnBlockDelta) IsBlockStart() bool {
	return d.BlockType != nil
}

// IsSignatureDelta returns true if this delta contains signature content
func (d *TurnBlockDelta) IsSignatureDelta() bool {
	return d.DeltaType == DeltaTypeSignature && d.SignatureDelta != nil
}

// IsUsageDelta returns true if this delta contains token usage updates
func (d *TurnBlockDelta) IsUsageDelta() bool {
	return d.DeltaType == DeltaTypeUsage &&
		(d.InputTokens != nil || d.OutputTokens != nil || d.ThinkingTokens != nil)
}
