package store_test

import (
	"context"
	"testing"

	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore(t *testing.T) {
	st := store.NewMemoryStore()

	msg1 := llms.UserMessage("Hello")
	msg2 := llms.AssistantMessage("Hi there!")

	ctx := context.Background()
	expErr := "invalid chat context"
	assert.EqualError(t, st.Reset(ctx), expErr)
	assert.EqualError(t, st.Add(ctx, msg1), expErr)
	_, err := st.Messages(ctx)
	assert.EqualError(t, err, expErr)

	ctx1 := chatmodel.WithChatContext(ctx, chatmodel.NewChatContext("chat1"))
	ctx2 := chatmodel.WithChatContext(ctx, chatmodel.NewChatContext("chat2"))

	msgs, err := st.Messages(ctx1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NoError(t, st.Reset(ctx1))

	require.NoError(t, st.Add(ctx1, msg1))
	require.NoError(t, st.Add(ctx1, msg2))
	require.NoError(t, st.Add(ctx2, llms.SystemMessage("other")))

	msgs, err = st.Messages(ctx1)
	require.NoError(t, err)
	assert.Equal(t, []llms.Message{msg1, msg2}, msgs)

	// returned slice is a copy
	msgs[0].Content = "changed"
	msgs, err = st.Messages(ctx1)
	require.NoError(t, err)
	assert.Equal(t, "Hello", msgs[0].Content)

	msgs, err = st.Messages(ctx2)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	require.NoError(t, st.Reset(ctx1))
	msgs, err = st.Messages(ctx1)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = st.Messages(ctx2)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
