package llms_test

import (
	"testing"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	meta := map[string]any{"test": "test"}
	stopWords := []string{"stop"}

	opts := llms.NewCallOptions(
		llms.WithModel("deepseek-chat"),
		llms.WithMaxTokens(100),
		llms.WithTemperature(0.7),
		llms.WithStopWords(stopWords),
		llms.WithMetadata(meta),
	)
	assert.Equal(t, "deepseek-chat", opts.Model)
	assert.Equal(t, 100, opts.MaxTokens)
	assert.Equal(t, 0.7, opts.Temperature)
	assert.True(t, opts.HasTemperature())
	assert.Equal(t, stopWords, opts.StopWords)
	assert.Equal(t, meta, opts.Metadata)

	opts = llms.NewCallOptions()
	assert.False(t, opts.HasTemperature())
	assert.Empty(t, opts.Model)

	opts = llms.NewCallOptions(llms.WithTemperature(0))
	assert.True(t, opts.HasTemperature())
	assert.Equal(t, 0.0, opts.Temperature)
}
