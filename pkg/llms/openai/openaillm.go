package openai

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/toolagent/pkg/metricskey"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent/pkg/llms", "openai")

// ErrMissingToken is returned when no API token is configured
var ErrMissingToken = errors.New("missing the API token, set it in the DEEPSEEK_API_KEY or OPENAI_API_KEY environment variable")

// ErrEmptyResponse is returned when the API returns no choices
var ErrEmptyResponse = openaiclient.ErrEmptyResponse

// LLM is a chat completions model
type LLM struct {
	client   *openaiclient.Client
	provider llms.ProviderType
}

var _ llms.Model = (*LLM)(nil)

// New returns a new LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.provider == "" {
		o.provider = llms.ProviderDeepSeek
	}

	switch o.provider {
	case llms.ProviderDeepSeek:
		o.token = values.StringsCoalesce(o.token, os.Getenv(deepSeekTokenEnvVarName))
		o.model = values.StringsCoalesce(o.model, DefaultDeepSeekModel)
		o.baseURL = values.StringsCoalesce(o.baseURL, DefaultDeepSeekBaseURL)
	case llms.ProviderOpenAI:
		o.token = values.StringsCoalesce(o.token, os.Getenv(tokenEnvVarName))
		o.model = values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName), DefaultOpenAIModel)
		o.baseURL = values.StringsCoalesce(o.baseURL, os.Getenv(baseURLEnvVarName), DefaultOpenAIBaseURL)
	default:
		return nil, errors.Errorf("unsupported provider type: %s", o.provider)
	}

	if o.token == "" {
		return nil, ErrMissingToken
	}
	if o.httpClient == nil {
		timeout := o.timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		o.httpClient = defaultHTTPClient(timeout)
	}

	return &LLM{
		client:   openaiclient.New(o.model, o.token, o.baseURL, o.httpClient),
		provider: o.provider,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.client.Model
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)

	chatMsgs := make([]*openaiclient.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if err := m.Role.Validate(); err != nil {
			return nil, err
		}
		chatMsgs = append(chatMsgs, &openaiclient.ChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	req := &openaiclient.ChatRequest{
		Model:       opts.Model,
		Messages:    chatMsgs,
		Temperature: DefaultTemperature,
		MaxTokens:   values.NumbersCoalesce(opts.MaxTokens, DefaultMaxTokens),
		StopWords:   opts.StopWords,
		Metadata:    opts.Metadata,
	}
	if opts.HasTemperature() {
		req.Temperature = opts.Temperature
	}

	model := values.StringsCoalesce(req.Model, o.client.Model)
	started := time.Now()
	defer metricskey.PerfLLMCall.MeasureSince(started, model)

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "model", model, "err", err.Error())
		return nil, err
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
				"Model":        result.Model,
			},
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}
