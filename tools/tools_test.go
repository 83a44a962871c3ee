package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Value *float64 `json:"value" jsonschema:"description=Value to echo" validate:"required"`
}

func echo(_ context.Context, in *echoArgs) (float64, error) {
	return *in.Value, nil
}

func failing(_ context.Context, _ *echoArgs) (float64, error) {
	return 0, errors.New("boom")
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t1 := tools.Must(tools.Definition{ID: "test:echo", Name: "echo", Description: "Echo the value"}, echo)
	t2 := tools.Must(tools.Definition{ID: "test:fail", Name: "fail", Description: "Always fails"}, failing)

	reg, err := tools.NewRegistry(t1, t2)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"echo", "fail"}, reg.Names())

	list1 := reg.List()
	list2 := reg.List()
	assert.Equal(t, list1, list2)
	assert.Equal(t, "test:echo", list1[0].ID)
	assert.Equal(t, "test:fail", list1[1].ID)

	js, err := json.Marshal(list1[0])
	require.NoError(t, err)
	assert.Contains(t, string(js), `"id":"test:echo","name":"echo","description":"Echo the value","parameters_schema":{`)

	got, ok := reg.Get("test:echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Name)
	_, ok = reg.Get("echo")
	assert.False(t, ok)

	res, err := reg.Execute(context.Background(), "test:echo", json.RawMessage(`{"value": 42}`))
	require.NoError(t, err)
	assert.Equal(t, 42.0, res)

	_, err = reg.Execute(context.Background(), "test:fail", json.RawMessage(`{"value": 1}`))
	assert.EqualError(t, err, "boom")

	_, err = reg.Execute(context.Background(), "test:none", nil)
	assert.True(t, errors.Is(err, tools.ErrUnknownTool))
}

func TestRegistryErrors(t *testing.T) {
	t.Parallel()

	t1 := tools.Must(tools.Definition{ID: "test:echo", Name: "echo"}, echo)

	_, err := tools.NewRegistry(t1, t1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrDuplicateID))
	assert.EqualError(t, err, "duplicate tool id: test:echo")

	_, err = tools.NewRegistry(&tools.Tool{ID: "x"})
	assert.EqualError(t, err, "tool id and name are required")

	_, err = tools.NewRegistry(&tools.Tool{ID: "x", Name: "x"})
	assert.EqualError(t, err, "tool x: handler is required")

	_, err = tools.NewRegistry(nil)
	assert.EqualError(t, err, "tool is nil")

	assert.Panics(t, func() {
		tools.MustRegistry(t1, t1)
	})

	empty, err := tools.NewRegistry()
	require.NoError(t, err)
	assert.NotNil(t, empty.List())
	assert.Empty(t, empty.List())
}

func TestDecodeParameters(t *testing.T) {
	t.Parallel()

	in, err := tools.DecodeParameters[echoArgs](json.RawMessage(`{"value": 3.5, "extra": true}`))
	require.NoError(t, err)
	assert.Equal(t, 3.5, *in.Value)

	_, err = tools.DecodeParameters[echoArgs](json.RawMessage(`null`))
	assert.True(t, errors.Is(err, tools.ErrMissingParameter))
	assert.EqualError(t, err, "missing required parameter: value")

	_, err = tools.DecodeParameters[echoArgs](json.RawMessage(`{"value": [1]}`))
	assert.True(t, errors.Is(err, tools.ErrInvalidParameter))
}
