package assistants

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/mcp"
	"github.com/effective-security/toolagent/mcp/transport"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/metricskey"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var (
	// ErrTooManySteps is returned when the model keeps calling tools
	// beyond the configured number of steps
	ErrTooManySteps = errors.New("too many steps")
	// ErrNotConnected is returned when the tools were not discovered
	ErrNotConnected = errors.New("tools are not discovered")
)

// Agent converses with the model and executes the tools it requests
// on the tool server.
// The Agent owns one conversation, identified by ChatID.
type Agent struct {
	llm    llms.Model
	client *mcp.Client
	cfg    *Config
	chatID string

	lock       sync.RWMutex
	server     *mcp.InitializeResult
	tools      []tools.Descriptor
	toolsNames []string
	sysprompt  string
}

var _ IAssistant = (*Agent)(nil)

// NewAgent returns an Agent for a new conversation
func NewAgent(llmModel llms.Model, client *mcp.Client, opts ...Option) *Agent {
	return &Agent{
		llm:    llmModel,
		client: client,
		cfg:    NewConfig(opts...),
		chatID: chatmodel.NewChatID(),
	}
}

// Name returns the name of the Agent.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// ChatID returns the ID of the conversation
func (a *Agent) ChatID() string {
	return a.chatID
}

// Config returns the configuration of the Agent
func (a *Agent) Config() *Config {
	return a.cfg
}

// ServerInfo returns the result of Connect, or nil if not connected
func (a *Agent) ServerInfo() *mcp.InitializeResult {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.server
}

// Tools returns the discovered tool catalog
func (a *Agent) Tools() []tools.Descriptor {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.tools
}

// SystemPrompt returns the system prompt built from the discovered tools
func (a *Agent) SystemPrompt() string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.sysprompt
}

// context returns ctx bound to the conversation of the Agent,
// with a new run ID for each turn.
func (a *Agent) context(ctx context.Context) context.Context {
	return chatmodel.WithChatContext(ctx, chatmodel.NewChatContext(a.chatID))
}

// Connect performs the handshake with the tool server
func (a *Agent) Connect(ctx context.Context) (*mcp.InitializeResult, error) {
	res, err := a.client.Initialize(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to initialize connection")
	}

	logger.ContextKV(ctx, xlog.INFO,
		"assistant", a.Name(),
		"status", "connected",
		"server", res.ServerInfo.Name,
		"version", res.ServerInfo.Version,
		"protocol", res.ProtocolVersion,
	)

	a.lock.Lock()
	a.server = res
	a.lock.Unlock()
	return res, nil
}

// DiscoverTools lists the tools on the server, builds the system prompt
// and starts the conversation over with the system message.
func (a *Agent) DiscoverTools(ctx context.Context) ([]tools.Descriptor, error) {
	list, err := a.client.ListTools(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to discover tools")
	}

	sysprompt, err := SystemPrompt(list)
	if err != nil {
		return nil, err
	}

	ctx = a.context(ctx)
	if err = a.cfg.Store.Reset(ctx); err != nil {
		return nil, errors.WithMessage(err, "failed to reset history")
	}
	if err = a.cfg.Store.Add(ctx, llms.SystemMessage(sysprompt)); err != nil {
		return nil, errors.WithMessage(err, "failed to add system prompt")
	}

	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name)
	}

	a.lock.Lock()
	a.tools = list
	a.toolsNames = names
	a.sysprompt = sysprompt
	a.lock.Unlock()

	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", a.Name(),
		"status", "tools_discovered",
		"tools", names,
	)
	return list, nil
}

// Messages returns the history of the conversation
func (a *Agent) Messages(ctx context.Context) ([]llms.Message, error) {
	return a.cfg.Store.Messages(a.context(ctx))
}

// findTool returns the tool by exact name match
func (a *Agent) findTool(name string) *tools.Descriptor {
	a.lock.RLock()
	defer a.lock.RUnlock()
	for i := range a.tools {
		if a.tools[i].Name == name {
			t := a.tools[i]
			return &t
		}
	}
	return nil
}

// Process runs one user turn and returns the final response of the model.
//
// A successful tool call continues the loop with a new completion,
// while an unknown tool or a tool fault ends the turn with one fallback
// completion which is not inspected for tool calls.
func (a *Agent) Process(ctx context.Context, input string) (string, error) {
	if a.SystemPrompt() == "" {
		return "", errors.WithStack(ErrNotConnected)
	}

	ctx = a.context(ctx)
	started := time.Now()
	defer metricskey.PerfAssistantCall.MeasureSince(started, a.Name())

	callback := a.cfg.CallbackHandler
	if callback != nil {
		callback.OnAssistantStart(ctx, a, input)
	}

	output, err := a.run(ctx, input)
	if err != nil {
		metricskey.StatsAssistantCallsFailed.IncrCounter(1, a.Name())
		logger.ContextKV(ctx, xlog.ERROR,
			"assistant", a.Name(),
			"status", "failed",
			"input", slices.StringUpto(input, 64),
			"err", err.Error(),
		)
		if callback != nil {
			messages, _ := a.cfg.Store.Messages(ctx)
			callback.OnAssistantError(ctx, a, input, err, messages)
		}
		return "", err
	}

	metricskey.StatsAssistantCallsSucceeded.IncrCounter(1, a.Name())
	if callback != nil {
		messages, _ := a.cfg.Store.Messages(ctx)
		callback.OnAssistantEnd(ctx, a, input, output, messages)
	}
	return output, nil
}

func (a *Agent) run(ctx context.Context, input string) (string, error) {
	if err := a.append(ctx, llms.UserMessage(input)); err != nil {
		return "", err
	}

	for step := 0; ; step++ {
		if step >= a.cfg.MaxSteps {
			return "", errors.Mark(errors.Newf("assistant %s: exceeded %d steps", a.Name(), a.cfg.MaxSteps), ErrTooManySteps)
		}

		text, err := a.complete(ctx)
		if err != nil {
			return "", err
		}

		call := a.cfg.Extractor.Extract(text)

		// the raw response is kept, including the reasoning around the call
		if err = a.append(ctx, llms.AssistantMessage(text)); err != nil {
			return "", err
		}
		if call == nil {
			return text, nil
		}

		if a.cfg.CallbackHandler != nil {
			a.cfg.CallbackHandler.OnToolCallFound(ctx, a, call)
		}

		tool := a.findTool(call.Tool)
		if tool == nil {
			metricskey.StatsToolCallsNotFound.IncrCounter(1, call.Tool)
			if a.cfg.CallbackHandler != nil {
				a.cfg.CallbackHandler.OnToolNotFound(ctx, a, call.Tool)
			}

			a.lock.RLock()
			available := strings.Join(a.toolsNames, ", ")
			a.lock.RUnlock()

			logger.ContextKV(ctx, xlog.WARNING,
				"assistant", a.Name(),
				"status", "tool_not_found",
				"tool", call.Tool,
				"available_tools", available,
			)
			return a.fallback(ctx, fmt.Sprintf("Unknown tool '%s'. Available tools: %s", call.Tool, available))
		}

		result, err := a.execute(ctx, tool, call.Parameters)
		if err != nil {
			var rpcErr *transport.Error
			if !errors.As(err, &rpcErr) {
				return "", err
			}
			return a.fallback(ctx, fmt.Sprintf("Error executing tool '%s': %s", call.Tool, rpcErr.Message))
		}

		if err = a.append(ctx, llms.SystemMessage("Tool result: "+llmutils.FormatNumber(result))); err != nil {
			return "", err
		}
	}
}

// fallback reports the problem to the model and returns its next response
// as final, without looking for tool calls in it.
func (a *Agent) fallback(ctx context.Context, notice string) (string, error) {
	metricskey.StatsAssistantFallbacks.IncrCounter(1, a.Name())

	if err := a.append(ctx, llms.SystemMessage(notice)); err != nil {
		return "", err
	}
	text, err := a.complete(ctx)
	if err != nil {
		return "", err
	}
	if err = a.append(ctx, llms.AssistantMessage(text)); err != nil {
		return "", err
	}
	return text, nil
}

func (a *Agent) append(ctx context.Context, msgs ...llms.Message) error {
	if err := a.cfg.Store.Add(ctx, msgs...); err != nil {
		return errors.WithMessage(err, "failed to update history")
	}
	return nil
}

// complete requests a completion over the full history
func (a *Agent) complete(ctx context.Context) (string, error) {
	messages, err := a.cfg.Store.Messages(ctx)
	if err != nil {
		return "", errors.WithMessage(err, "failed to load history")
	}

	assistantName := a.Name()
	modelName := a.llm.GetName()

	if a.cfg.CallbackHandler != nil {
		a.cfg.CallbackHandler.OnAssistantLLMCallStart(ctx, a, a.llm, messages)
	}

	bytesSent := llmutils.CountMessagesContentSize(messages)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), assistantName, modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), assistantName, modelName)

	resp, err := a.llm.GenerateContent(ctx, messages, a.cfg.GetCallOptions()...)
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, assistantName, modelName)
		return "", errors.WithMessage(err, "failed to generate content from LLM")
	}

	if a.cfg.CallbackHandler != nil {
		a.cfg.CallbackHandler.OnAssistantLLMCallEnd(ctx, a, a.llm, resp)
	}

	bytesReceived := llmutils.CountResponseContentSize(resp)
	metricskey.StatsLLMBytesReceived.IncrCounter(float64(bytesReceived), assistantName, modelName)
	metricskey.StatsLLMBytesTotal.IncrCounter(float64(bytesSent+bytesReceived), assistantName, modelName)

	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), assistantName, modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), assistantName, modelName)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), assistantName, modelName)

	text, err := resp.Text()
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, assistantName, modelName)
		return "", errors.WithMessagef(err, "assistant %s", assistantName)
	}
	return text, nil
}

func (a *Agent) execute(ctx context.Context, tool *tools.Descriptor, params map[string]any) (float64, error) {
	callback := a.cfg.CallbackHandler
	if callback != nil {
		callback.OnToolStart(ctx, a, tool, params)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", a.Name(),
		"status", "executing_tool",
		"tool", tool.Name,
		"tool_id", tool.ID,
		"params", llmutils.ToJSON(params),
	)

	started := time.Now()
	result, err := a.client.ExecuteTool(ctx, tool.ID, params)
	metricskey.PerfToolCall.MeasureSince(started, tool.Name)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, tool.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"assistant", a.Name(),
			"status", "tool_failed",
			"tool", tool.Name,
			"err", err.Error(),
		)
		if callback != nil {
			callback.OnToolError(ctx, a, tool, params, err)
		}
		return 0, err
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, tool.Name)
	if callback != nil {
		callback.OnToolEnd(ctx, a, tool, params, result)
	}
	return result, nil
}
