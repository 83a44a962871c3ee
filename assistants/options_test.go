package assistants_test

import (
	"testing"

	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/store"
	"github.com/effective-security/toolagent/toolcall"
	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		cfg := assistants.NewConfig()
		assert.Equal(t, assistants.DefaultName, cfg.Name)
		assert.Equal(t, assistants.DefaultMaxSteps, cfg.MaxSteps)
		assert.NotNil(t, cfg.Store)
		assert.NotNil(t, cfg.Extractor)
		assert.Nil(t, cfg.CallbackHandler)

		opts := llms.NewCallOptions(cfg.GetCallOptions()...)
		assert.True(t, opts.HasTemperature())
		assert.Equal(t, 0.7, opts.Temperature)
		assert.Equal(t, 4096, opts.MaxTokens)
		assert.Empty(t, opts.Model)
		assert.Empty(t, opts.StopWords)
	})

	t.Run("options", func(t *testing.T) {
		s := store.NewMemoryStore()
		e := toolcall.NewExtractor(toolcall.FencedJSON())
		cfg := assistants.NewConfig(
			assistants.WithName("math"),
			assistants.WithModel("deepseek-reasoner"),
			assistants.WithTemperature(0),
			assistants.WithMaxTokens(100),
			assistants.WithStopWords([]string{"STOP"}),
			assistants.WithMaxSteps(3),
			assistants.WithStore(s),
			assistants.WithExtractor(e),
		)
		assert.Equal(t, "math", cfg.Name)
		assert.Equal(t, 3, cfg.MaxSteps)
		assert.Same(t, e, cfg.Extractor)

		opts := llms.NewCallOptions(cfg.GetCallOptions()...)
		assert.True(t, opts.HasTemperature())
		assert.Equal(t, 0.0, opts.Temperature)
		assert.Equal(t, 100, opts.MaxTokens)
		assert.Equal(t, "deepseek-reasoner", opts.Model)
		assert.Equal(t, []string{"STOP"}, opts.StopWords)
	})

	t.Run("invalid max steps", func(t *testing.T) {
		cfg := assistants.NewConfig(assistants.WithMaxSteps(-1))
		assert.Equal(t, assistants.DefaultMaxSteps, cfg.MaxSteps)
	})
}
