package assistants

import (
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/store"
	"github.com/effective-security/toolagent/toolcall"
)

const (
	// DefaultName is the name reported to callbacks and metrics
	DefaultName = "calculator"
	// DefaultMaxSteps is the number of completions allowed in one turn,
	// not counting the fallback completion.
	DefaultMaxSteps = 16
	// DefaultTemperature is used when no temperature is configured
	DefaultTemperature = 0.7
	// DefaultMaxTokens is used when no max tokens is configured
	DefaultMaxTokens = 4096
)

// Option is a function that can be used to modify the behavior of the Agent Config.
type Option func(*Config)

// Config of the Agent
type Config struct {
	// Name of the agent
	Name string

	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens int

	// Temperature is the temperature for sampling to use in an LLM call.
	Temperature float64

	// StopWords is a list of words to stop on to use in an LLM call.
	StopWords    []string
	stopWordsSet bool

	// MaxSteps caps the number of completions in one turn
	MaxSteps int

	// CallbackHandler receives the conversation events
	CallbackHandler Callback

	// Store keeps the conversation history
	Store store.MessageStore

	// Extractor finds tool calls in the model output
	Extractor *toolcall.Extractor
}

// NewConfig returns Config with defaults applied after options
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:        DefaultName,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		MaxSteps:    DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = toolcall.NewExtractor()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	return cfg
}

// WithName sets the name of the Agent
func WithName(name string) Option {
	return func(o *Config) {
		o.Name = name
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
	}
}

// WithStopWords is an option for LLM.Call.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

// WithMaxSteps limits the number of completions in one turn
func WithMaxSteps(steps int) Option {
	return func(o *Config) {
		o.MaxSteps = steps
	}
}

// WithCallback sets the callback handler
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithStore sets the message store
func WithStore(s store.MessageStore) Option {
	return func(o *Config) {
		o.Store = s
	}
}

// WithExtractor sets the tool call extractor
func WithExtractor(e *toolcall.Extractor) Option {
	return func(o *Config) {
		o.Extractor = e
	}
}

// GetCallOptions returns options for the LLM call
func (c *Config) GetCallOptions() []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithTemperature(c.Temperature),
	}
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.modelSet {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if c.stopWordsSet {
		opts = append(opts, llms.WithStopWords(c.StopWords))
	}
	return opts
}
