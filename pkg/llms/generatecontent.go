package llms

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnexpectedRole is returned when a message role is of an unexpected type.
	ErrUnexpectedRole = errors.New("unexpected role")
	// ErrEmptyResponse is returned when the model returns no choices.
	ErrEmptyResponse = errors.New("empty response")
)

// Role is the type of chat message.
type Role string

const (
	// RoleSystem is a message sent by the system.
	RoleSystem Role = "system"
	// RoleUser is a message sent by a human.
	RoleUser Role = "user"
	// RoleAssistant is a message sent by the model.
	RoleAssistant Role = "assistant"
)

// Validate returns ErrUnexpectedRole for roles outside of system, user and assistant.
func (r Role) Validate() error {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	}
	return errors.Wrapf(ErrUnexpectedRole, "role %q", string(r))
}

// Message is one entry of the conversation sent to a LLM.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage returns a message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

func (m Message) String() string {
	return strings.ToUpper(string(m.Role)) + ": " + m.Content
}

// ContentResponse is the response returned by a GenerateContent call.
// It can potentially return multiple content choices.
type ContentResponse struct {
	Choices []*ContentChoice
}

// ContentChoice is one of the response choices returned by GenerateContent
// calls.
type ContentChoice struct {
	// Content is the textual content of a response
	Content string

	// StopReason is the reason the model stopped generating output.
	StopReason string

	// GenerationInfo is arbitrary information the model adds to the response.
	GenerationInfo map[string]any
}

// Text returns the content of the first choice,
// or ErrEmptyResponse if the response has no choices.
func (r *ContentResponse) Text() (string, error) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0] == nil {
		return "", errors.WithStack(ErrEmptyResponse)
	}
	return r.Choices[0].Content, nil
}
