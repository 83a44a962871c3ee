package assistants

import (
	"context"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/toolcall"
	"github.com/effective-security/toolagent/tools"
)

// IAssistant is the view of the Agent passed to callbacks
type IAssistant interface {
	// Name returns the name of the Agent
	Name() string
	// ChatID returns the ID of the conversation
	ChatID() string
}

// Callback receives the events of a conversation turn.
// Callbacks are invoked synchronously from the turn's control flow.
type Callback interface {
	OnAssistantStart(ctx context.Context, agent IAssistant, input string)
	OnAssistantEnd(ctx context.Context, agent IAssistant, input string, output string, messages []llms.Message)
	OnAssistantError(ctx context.Context, agent IAssistant, input string, err error, messages []llms.Message)

	OnAssistantLLMCallStart(ctx context.Context, agent IAssistant, llm llms.Model, payload []llms.Message)
	OnAssistantLLMCallEnd(ctx context.Context, agent IAssistant, llm llms.Model, resp *llms.ContentResponse)

	// OnToolCallFound is called when a tool call is extracted from the model output
	OnToolCallFound(ctx context.Context, agent IAssistant, call *toolcall.Call)
	// OnToolNotFound is called when the model requested a tool that is not in the catalog
	OnToolNotFound(ctx context.Context, agent IAssistant, tool string)
	OnToolStart(ctx context.Context, agent IAssistant, tool *tools.Descriptor, params map[string]any)
	OnToolEnd(ctx context.Context, agent IAssistant, tool *tools.Descriptor, params map[string]any, result float64)
	OnToolError(ctx context.Context, agent IAssistant, tool *tools.Descriptor, params map[string]any, err error)
}
