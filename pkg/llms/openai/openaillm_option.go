package openai

import (
	"net/http"
	"time"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/openai/internal/openaiclient"
)

const (
	tokenEnvVarName         = "OPENAI_API_KEY"   //nolint:gosec
	modelEnvVarName         = "OPENAI_MODEL"     //nolint:gosec
	baseURLEnvVarName       = "OPENAI_BASE_URL"  //nolint:gosec
	deepSeekTokenEnvVarName = "DEEPSEEK_API_KEY" //nolint:gosec
)

// Defaults
const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"
	DefaultDeepSeekModel   = "deepseek-chat"
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 4096
	DefaultTimeout         = 30 * time.Second
)

type options struct {
	token      string
	model      string
	baseURL    string
	provider   llms.ProviderType
	httpClient openaiclient.Doer
	timeout    time.Duration
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the API token to the client. If not set, the token
// is read from the OPENAI_API_KEY or DEEPSEEK_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the model to the client. If not set, the model
// is read from the OPENAI_MODEL environment variable.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the base url to the client. If not set, the base url
// is read from the OPENAI_BASE_URL environment variable,
// or the provider default is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithProvider sets the provider type. If not set, the default value
// is ProviderDeepSeek.
func WithProvider(provider llms.ProviderType) Option {
	return func(opts *options) {
		opts.provider = provider
	}
}

// WithHTTPClient allows setting a custom HTTP client. If not set,
// a client with DefaultTimeout is used.
func WithHTTPClient(client openaiclient.Doer) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
