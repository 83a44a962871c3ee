package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/effective-security/toolagent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolsCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		app := newApp()
		app.Writer = &out

		err := app.Run([]string{"mcp-calculator", "tools", "--output", "json"})
		require.NoError(t, err)

		var list []tools.Descriptor
		require.NoError(t, json.Unmarshal(out.Bytes(), &list))
		require.Len(t, list, 2)
		assert.Equal(t, "calculator:add", list[0].ID)
		assert.Equal(t, "calculator:subtract", list[1].ID)
	})

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		app := newApp()
		app.Writer = &out

		err := app.Run([]string{"mcp-calculator", "tools"})
		require.NoError(t, err)

		res := out.String()
		assert.Contains(t, res, "id: calculator:add\n")
		assert.Contains(t, res, "name: add\n")
		assert.Contains(t, res, "description: Add two numbers together\n")
		assert.Contains(t, res, "id: calculator:subtract\n")
		assert.Contains(t, res, "description: First number")
		assert.NotContains(t, res, "{")
	})

	t.Run("unsupported", func(t *testing.T) {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		err := app.Run([]string{"mcp-calculator", "tools", "-o", "toml"})
		require.Error(t, err)
		assert.Equal(t, "unsupported output format: toml", err.Error())
	})
}

func TestToYAML(t *testing.T) {
	out, err := toYAML([]byte(`{"b":1,"a":{"c":[1,2],"d":"text"}}`))
	require.NoError(t, err)
	res := string(out)
	assert.True(t, strings.HasPrefix(res, "b: 1\na:\n"))
	assert.Contains(t, res, "d: text\n")
	assert.NotContains(t, res, "[")
	assert.NotContains(t, res, "{")

	_, err = toYAML([]byte(`{"b":`))
	require.Error(t, err)
}
