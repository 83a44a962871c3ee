package chatmodel

import (
	"context"
	"strconv"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ChatContext identifies the conversation and the turn being processed.
// The message history is keyed by the chat ID, the run ID changes every turn.
type ChatContext interface {
	GetChatID() string
	RunID() string
}

type turn struct {
	chat string
	run  string
}

func (t turn) GetChatID() string { return t.chat }
func (t turn) RunID() string     { return t.run }

// NewChatContext starts a new turn in the chat,
// chatID is generated when empty.
func NewChatContext(chatID string) ChatContext {
	return turn{
		chat: values.StringsCoalesce(chatID, NewChatID()),
		run:  NewChatID(),
	}
}

type ctxKey struct{}

// WithChatContext attaches chatCtx to ctx
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, chatCtx)
}

// GetChatContext returns the ChatContext attached to ctx, or nil
func GetChatContext(ctx context.Context) ChatContext {
	chatCtx, _ := ctx.Value(ctxKey{}).(ChatContext)
	return chatCtx
}

// GetChatID returns the chat ID attached to ctx, or empty string
func GetChatID(ctx context.Context) string {
	if chatCtx := GetChatContext(ctx); chatCtx != nil {
		return chatCtx.GetChatID()
	}
	return ""
}

// NewChatID returns a unique, time ordered ID
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
