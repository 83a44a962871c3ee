package llmfactory

import (
	"slices"

	"github.com/effective-security/x/configloader"
)

// DefaultAssistant is the key in AssistantModels used for assistants
// without their own entry
const DefaultAssistant = "default"

// Config lists the completion providers and the models preferred by assistants
type Config struct {
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider is the provider name used by DefaultModel,
	// the first provider is used when empty or not found.
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// AssistantModels maps the assistant name to its models in order of preference
	AssistantModels map[string][]string `json:"assistant_models" yaml:"assistant_models"`
}

// ProviderConfig for a chat completions provider
type ProviderConfig struct {
	Name            string       `json:"name" yaml:"name"`
	Token           string       `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string       `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string     `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	OpenAI          OpenAIConfig `json:"open_ai" yaml:"open_ai"`
}

// OpenAIConfig specifies options of OpenAI compatible API
type OpenAIConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|DEEPSEEK
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty"`
}

func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// DefaultConfig returns the config with a single DeepSeek provider,
// the token is read from DEEPSEEK_API_KEY.
func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "deepseek",
		Providers: []*ProviderConfig{
			{
				Name:            "deepseek",
				DefaultModel:    "deepseek-chat",
				AvailableModels: []string{"deepseek-chat", "deepseek-reasoner"},
				OpenAI: OpenAIConfig{
					APIType: "DEEPSEEK",
				},
			},
		},
	}
}

// LoadConfig from file, or returns DefaultConfig if file is empty
func LoadConfig(file string) (*Config, error) {
	if file == "" {
		return DefaultConfig(), nil
	}

	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
