package session

import (
	"context"

	"github.com/evihealth/evi/internal/tools"
)

// Message roles in the session transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Tool-choice modes passed to the model.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// Message is one entry in the conversation transcript. Plain text for
// user/system turns; assistant turns may carry tool requests and tool
// turns carry the matching outputs.
type Message struct {
	Role    string
	Content string

	// ToolRequests echoes the model's tool calls on an assistant message
	// so the backend can correlate the outputs that follow.
	ToolRequests []ToolCall

	// ToolOutputs carries executed tool results on a tool message.
	ToolOutputs []ToolOutput
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	Ref  string
	Name string
	Args map[string]any
}

// ToolOutput is the executed result for one requested call.
type ToolOutput struct {
	Ref    string
	Name   string
	Output any
}

// ModelRequest is one model invocation: the full message stack, the tool
// set to advertise, and generation limits.
type ModelRequest struct {
	Messages        []Message
	Tools           []*tools.Tool
	ToolChoice      string
	MaxOutputTokens int
}

// ModelResponse is what a single invocation produced. Text and ToolCalls
// may both be empty when the model stalls; the caller handles that with a
// forced plain-text follow-up call.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is the LLM backend the session drives. Implementations must be
// safe for concurrent use across sessions.
type Model interface {
	Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}
