package assistants

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/prompts"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
	"github.com/invopop/jsonschema"
)

const toolTemplate = "Tool: {{ .name }}\n" +
	"Description: {{ .description }}\n" +
	"Parameters:\n" +
	"{{ range .params }}  - {{ .name }}{{ if .required }} (required){{ end }}: " +
	"{{ .description | default \"No description\" }} (type: {{ .type | default \"any\" }})\n" +
	"{{ end }}"

const systemTemplate = "You are a helpful assistant with access to the following tools:\n\n" +
	"{{ .tools }}\n\n" +
	"To use a tool, include a JSON block anywhere in your response like this:\n" +
	"```json\n" +
	"{\n" +
	"  \"tool\": \"tool_name\",\n" +
	"  \"parameters\": {\n" +
	"    \"param1\": value1,\n" +
	"    \"param2\": value2\n" +
	"  }\n" +
	"}\n" +
	"```\n\n" +
	"IMPORTANT RULES:\n" +
	"1. You can explain your reasoning, but ALWAYS use tools for operations - NEVER perform calculations yourself\n" +
	"2. Use ONE tool call per response\n" +
	"3. After receiving a tool result, ALWAYS make the next tool call if more operations remain\n" +
	"4. Only provide a final answer after ALL operations have been performed using tools\n\n" +
	"For multi-step tasks:\n" +
	"1. First explain which step you're on and what you're doing (e.g., 'Step 1: I'll add these numbers')\n" +
	"2. Then include the JSON block to call the appropriate tool\n" +
	"3. For each step, explain what you're doing and why\n" +
	"4. Only provide a final answer when the entire task is complete\n\n" +
	"For example, to calculate '5+10-3':\n" +
	"Step a: I'll add 5 and 10\n" +
	"```json\n" +
	"{\n" +
	"  \"tool\": \"add\",\n" +
	"  \"parameters\": {\n" +
	"    \"a\": 5,\n" +
	"    \"b\": 10\n" +
	"  }\n" +
	"}\n" +
	"```\n\n" +
	"After receiving result 15:\n" +
	"Step b: Now I'll subtract 3 from the result 15\n" +
	"```json\n" +
	"{\n" +
	"  \"tool\": \"subtract\",\n" +
	"  \"parameters\": {\n" +
	"    \"a\": 15,\n" +
	"    \"b\": 3\n" +
	"  }\n" +
	"}\n" +
	"```\n\n" +
	"After receiving result 12:\n" +
	"The result of 5+10-3 is 12.\n\n" +
	"Remember to use tools for EVERY operation, no matter how simple it seems."

var (
	toolPrompt   = prompts.MustPromptTemplate(toolTemplate, []string{"name", "description", "params"})
	systemPrompt = prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(systemTemplate, []string{"tools"}),
	})
)

// FormatTools describes the tools for the model,
// parameters are listed in the schema order.
func FormatTools(list []tools.Descriptor) (string, error) {
	descriptions := make([]string, 0, len(list))
	for _, t := range list {
		desc, err := toolPrompt.Format(map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"params":      toolParams(t.ParametersSchema),
		})
		if err != nil {
			return "", errors.WithMessagef(err, "failed to format tool %s", t.Name)
		}
		descriptions = append(descriptions, desc)
	}
	return strings.Join(descriptions, "\n"), nil
}

func toolParams(s *jsonschema.Schema) []map[string]any {
	if s == nil {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	var params []map[string]any
	for _, name := range schema.Properties(s) {
		prop, _ := s.Properties.Get(name)
		param := map[string]any{
			"name":        name,
			"required":    required[name],
			"description": "",
			"type":        "",
		}
		if prop != nil {
			param["description"] = prop.Description
			param["type"] = prop.Type
		}
		params = append(params, param)
	}
	return params
}

// SystemPrompt returns the system message instructing the model
// how to call the tools.
func SystemPrompt(list []tools.Descriptor) (string, error) {
	desc, err := FormatTools(list)
	if err != nil {
		return "", err
	}
	value, err := systemPrompt.FormatPrompt(map[string]any{
		"tools": desc,
	})
	if err != nil {
		return "", errors.WithMessage(err, "failed to format system prompt")
	}
	msgs := value.Messages()
	if len(msgs) == 0 {
		return "", errors.New("empty system prompt")
	}
	return msgs[0].Content, nil
}
