package llms

import (
	"context"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI chat completions API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderDeepSeek is the DeepSeek chat completions API,
	// wire compatible with OpenAI.
	ProviderDeepSeek ProviderType = "DEEPSEEK"
)

// Model is an interface chat completion models implement.
type Model interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GetName returns the model name used in requests.
	GetName() string
	// GenerateContent asks the model to generate content from the
	// ordered sequence of messages.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}
