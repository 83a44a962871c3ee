// Package store keeps the conversation history per chat.
package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
)

// ErrInvalidChatContext is returned when the context has no chat ID
var ErrInvalidChatContext = errors.New("invalid chat context")

// MessageStore is the history of the conversation identified by
// the chat ID in the context.
type MessageStore interface {
	// Messages returns a copy of the history in order
	Messages(ctx context.Context) ([]llms.Message, error)
	// Add appends messages to the history
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes the history
	Reset(ctx context.Context) error
}
