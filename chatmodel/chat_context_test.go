package chatmodel

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatContext(t *testing.T) {
	t.Parallel()

	c := NewChatContext("cid")
	require.NotNil(t, c)
	assert.Equal(t, "cid", c.GetChatID())
	assert.NotEmpty(t, c.RunID())

	next := NewChatContext("cid")
	assert.Equal(t, c.GetChatID(), next.GetChatID())
	assert.NotEqual(t, c.RunID(), next.RunID())

	c1 := NewChatContext("")
	c2 := NewChatContext("")
	assert.NotEmpty(t, c1.GetChatID())
	assert.NotEqual(t, c1.GetChatID(), c2.GetChatID())
}

func TestNewChatID(t *testing.T) {
	t.Parallel()

	id1, err := strconv.ParseUint(NewChatID(), 10, 64)
	require.NoError(t, err)
	id2, err := strconv.ParseUint(NewChatID(), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}

func TestContextPlumbing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, GetChatContext(ctx))
	assert.Empty(t, GetChatID(ctx))

	c := NewChatContext("y")
	ctx = WithChatContext(ctx, c)
	assert.Equal(t, c, GetChatContext(ctx))
	assert.Equal(t, "y", GetChatID(ctx))
}
