package llmfactory

import (
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory creates the models and caches them by provider and model name.
type Factory interface {
	// DefaultModel returns the default model of the default provider.
	DefaultModel() (llms.Model, error)
	// ModelByProvider returns a model of the provider found by name or API type,
	// e.g. deepseek or OPENAI. The first of preferredModels the provider offers
	// is used, or the provider's default model.
	ModelByProvider(provider string, preferredModels ...string) (llms.Model, error)
	// ModelByName returns the first of modelNames offered by a provider,
	// or the default model when none is.
	ModelByName(modelNames ...string) (llms.Model, error)
	// AssistantModel returns the model for the assistant: preferredModels first,
	// then the models configured for the assistant, then for DefaultAssistant.
	AssistantModel(assistantName string, preferredModels ...string) (llms.Model, error)
}

// Load returns factory from the config file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg             *Config
	defaultProvider *ProviderConfig

	lock   sync.Mutex
	models map[string]llms.Model
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		models: make(map[string]llms.Model),
	}

	idx := slices.IndexFunc(cfg.Providers, func(p *ProviderConfig) bool {
		return p.Name == cfg.DefaultProvider
	})
	if idx < 0 && len(cfg.Providers) > 0 {
		idx = 0
	}
	if idx >= 0 {
		f.defaultProvider = cfg.Providers[idx]
	}
	return f
}

// CreateLLM creates the model for the provider config
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	provType := strings.ToUpper(cfg.OpenAI.APIType)
	switch provType {
	case "OPENAI", "OPEN_AI":
		return newOpenAI(llms.ProviderOpenAI, cfg, preferredModels...)
	case "DEEPSEEK", "":
		return newOpenAI(llms.ProviderDeepSeek, cfg, preferredModels...)
	}
	return nil, errors.Errorf("unsupported provider type: %s", provType)
}

func newOpenAI(provider llms.ProviderType, cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []openai.Option
	model := cfg.FindModel(preferredModels...)
	opts = append(opts, openai.WithProvider(provider), openai.WithModel(model))

	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	return openai.New(opts...)
}

// get returns the cached model or creates it
func (f *factory) get(provider *ProviderConfig, model string) (llms.Model, error) {
	key := provider.Name + "/" + model

	f.lock.Lock()
	defer f.lock.Unlock()

	if m, ok := f.models[key]; ok {
		return m, nil
	}

	m, err := NewLLM(provider, model)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"provider", provider.Name,
		"type", provider.OpenAI.APIType,
		"model", m.GetName(),
	)
	f.models[key] = m
	return m, nil
}

func (f *factory) DefaultModel() (llms.Model, error) {
	if f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}
	return f.get(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByProvider(provider string, preferredModels ...string) (llms.Model, error) {
	for _, cfg := range f.cfg.Providers {
		if strings.EqualFold(cfg.Name, provider) || strings.EqualFold(cfg.OpenAI.APIType, provider) {
			return f.get(cfg, cfg.FindModel(preferredModels...))
		}
	}
	return nil, errors.Errorf("provider not found: %s", provider)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	for _, name := range modelNames {
		for _, cfg := range f.cfg.Providers {
			if !slices.Contains(cfg.AvailableModels, name) {
				continue
			}
			m, err := f.get(cfg, name)
			if err != nil {
				logger.KV(xlog.ERROR,
					"reason", "create_llm",
					"provider", cfg.Name,
					"model", name,
					"err", err.Error(),
				)
				continue
			}
			return m, nil
		}
	}

	if len(modelNames) > 0 {
		logger.KV(xlog.WARNING,
			"reason", "models_not_available",
			"models", modelNames,
		)
	}
	return f.DefaultModel()
}

func (f *factory) AssistantModel(assistantName string, preferredModels ...string) (llms.Model, error) {
	var names []string
	for _, name := range preferredModels {
		if name != "" {
			names = append(names, name)
		}
	}
	names = append(names, f.cfg.AssistantModels[assistantName]...)
	names = append(names, f.cfg.AssistantModels[DefaultAssistant]...)
	return f.ModelByName(names...)
}
