// Package prompts renders prompt templates with text/template and sprig functions.
package prompts

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
)

// ErrMissingVariable is returned when a declared input variable is not provided
var ErrMissingVariable = errors.New("missing input variable")

// PromptTemplate is a text/template with declared input variables.
type PromptTemplate struct {
	Template       string
	InputVariables []string
	tmpl           *template.Template
}

// NewPromptTemplate parses the template
func NewPromptTemplate(text string, inputVars []string) (*PromptTemplate, error) {
	tmpl, err := template.New("prompt").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse template")
	}
	return &PromptTemplate{
		Template:       text,
		InputVariables: inputVars,
		tmpl:           tmpl,
	}, nil
}

// MustPromptTemplate is like NewPromptTemplate but panics on error
func MustPromptTemplate(text string, inputVars []string) *PromptTemplate {
	p, err := NewPromptTemplate(text, inputVars)
	if err != nil {
		panic(err)
	}
	return p
}

// Format renders the template
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	for _, v := range p.InputVariables {
		if _, ok := values[v]; !ok {
			return "", errors.Mark(errors.Newf("missing input variable: %s", v), ErrMissingVariable)
		}
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return buf.String(), nil
}

// MessageFormatter renders messages from values
type MessageFormatter interface {
	FormatMessages(values map[string]any) ([]llms.Message, error)
}

// MessagePromptTemplate renders a single message
type MessagePromptTemplate struct {
	Role   llms.Role
	Prompt *PromptTemplate
}

// FormatMessages implements MessageFormatter
func (m *MessagePromptTemplate) FormatMessages(values map[string]any) ([]llms.Message, error) {
	text, err := m.Prompt.Format(values)
	if err != nil {
		return nil, err
	}
	return []llms.Message{llms.NewMessage(m.Role, text)}, nil
}

// NewSystemMessagePromptTemplate returns system message template
func NewSystemMessagePromptTemplate(text string, inputVars []string) *MessagePromptTemplate {
	return &MessagePromptTemplate{Role: llms.RoleSystem, Prompt: MustPromptTemplate(text, inputVars)}
}

// NewUserMessagePromptTemplate returns user message template
func NewUserMessagePromptTemplate(text string, inputVars []string) *MessagePromptTemplate {
	return &MessagePromptTemplate{Role: llms.RoleUser, Prompt: MustPromptTemplate(text, inputVars)}
}

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// String returns the chat message slice as a buffer string.
func (v ChatPromptValue) String() string {
	var buf strings.Builder
	for _, m := range v {
		buf.WriteString(m.String())
		buf.WriteString("\n")
	}
	return buf.String()
}

// Messages returns the ChatMessage slice.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}

// ChatPromptTemplate is a list of message templates
type ChatPromptTemplate struct {
	Messages []MessageFormatter
}

// NewChatPromptTemplate returns chat template
func NewChatPromptTemplate(messages []MessageFormatter) ChatPromptTemplate {
	return ChatPromptTemplate{Messages: messages}
}

// FormatPrompt renders all messages in order
func (p ChatPromptTemplate) FormatPrompt(values map[string]any) (ChatPromptValue, error) {
	var list []llms.Message
	for _, m := range p.Messages {
		msgs, err := m.FormatMessages(values)
		if err != nil {
			return nil, err
		}
		list = append(list, msgs...)
	}
	return ChatPromptValue(list), nil
}
