package llmfactory_test

import (
	"context"
	"testing"

	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Factory(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("DEEPSEEK_API_KEY", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.NotEmpty(t, cfg.Providers[0].Token)

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	fm := model.(*fakeLLM)
	assert.Equal(t, "deepseek-chat", fm.model)
	assert.Equal(t, "deepseek", fm.provider)

	model, err = f.ModelByName("gpt-4o")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "openai", fm.provider)

	model, err = f.ModelByName("unknown", "deepseek-reasoner")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "deepseek-reasoner", fm.model)

	// fallback to default
	model, err = f.ModelByName("non-existent-model")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "deepseek-chat", fm.model)

	model, err = f.ModelByProvider("OPENAI")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o-mini", fm.model)
	assert.Equal(t, "openai", fm.provider)

	// cached by provider and model
	again, err := f.ModelByProvider("openai")
	require.NoError(t, err)
	assert.Same(t, model, again)

	model, err = f.ModelByProvider("deepseek", "gpt-4o", "deepseek-reasoner")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "deepseek-reasoner", fm.model)
	assert.Equal(t, "deepseek", fm.provider)

	_, err = f.ModelByProvider("UNSUPPORTED")
	assert.EqualError(t, err, "provider not found: UNSUPPORTED")

	// configured for the assistant
	model, err = f.AssistantModel("calculator")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", model.(*fakeLLM).model)

	// empty preferred model is ignored
	model, err = f.AssistantModel("calculator", "")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", model.(*fakeLLM).model)

	// preferred model wins over the config
	model, err = f.AssistantModel("calculator", "gpt-4o")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "openai", fm.provider)

	// no entry for the assistant
	model, err = f.AssistantModel("other")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", model.(*fakeLLM).model)

	withDefault := llmfactory.New(&llmfactory.Config{
		Providers: cfg.Providers,
		AssistantModels: map[string][]string{
			llmfactory.DefaultAssistant: {"gpt-4o"},
		},
	})
	model, err = withDefault.AssistantModel("other")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model.(*fakeLLM).model)

	_, err = llmfactory.New(&llmfactory.Config{}).DefaultModel()
	assert.EqualError(t, err, "no providers configured")

	model, err = llmfactory.New(&llmfactory.Config{
		DefaultProvider: "non-existent",
		Providers:       cfg.Providers,
	}).DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "deepseek", model.(*fakeLLM).provider)
}

func Test_Load(t *testing.T) {
	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = llmfactory.Load("testdata/non-existent.yaml")
	require.Error(t, err)

	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.DefaultProvider)
	assert.Equal(t, "DEEPSEEK", cfg.Providers[0].OpenAI.APIType)
}

func Test_CreateLLM(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("DEEPSEEK_API_KEY", "fakekey")

	m, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "deepseek",
		DefaultModel: "deepseek-chat",
		OpenAI:       llmfactory.OpenAIConfig{APIType: "DEEPSEEK"},
	})
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderDeepSeek, m.GetProviderType())
	assert.Equal(t, "deepseek-chat", m.GetName())

	m, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:            "openai",
		Token:           "token",
		DefaultModel:    "gpt-4o-mini",
		AvailableModels: []string{"gpt-4o-mini", "gpt-4o"},
		OpenAI:          llmfactory.OpenAIConfig{APIType: "open_ai", BaseURL: "http://localhost:1234/v1"},
	}, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, m.GetProviderType())
	assert.Equal(t, "gpt-4o", m.GetName())

	_, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{OpenAI: llmfactory.OpenAIConfig{APIType: "BEDROCK"}})
	assert.EqualError(t, err, "unsupported provider type: BEDROCK")
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderType(f.provider)
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}, nil
}
