// Package calculator provides the arithmetic tools served by mcp-calculator.
package calculator

import (
	"context"

	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
)

// Tool IDs
const (
	AddID      = "calculator:add"
	SubtractID = "calculator:subtract"
)

// Args are the operands of a binary operation
type Args struct {
	A *float64 `json:"a" jsonschema:"description=First number" validate:"required"`
	B *float64 `json:"b" jsonschema:"description=Second number" validate:"required"`
}

var resultSchema = schema.MustFromAny(map[string]any{
	"type":        "number",
	"description": "The calculation result",
})

// Add returns a + b
func Add(_ context.Context, in *Args) (float64, error) {
	return *in.A + *in.B, nil
}

// Subtract returns a - b
func Subtract(_ context.Context, in *Args) (float64, error) {
	return *in.A - *in.B, nil
}

// Tools returns the calculator tools in catalog order
func Tools() []*tools.Tool {
	return []*tools.Tool{
		tools.Must(tools.Definition{
			ID:           AddID,
			Name:         "add",
			Description:  "Add two numbers together",
			ReturnSchema: resultSchema,
		}, Add),
		tools.Must(tools.Definition{
			ID:           SubtractID,
			Name:         "subtract",
			Description:  "Subtract the second number from the first",
			ReturnSchema: resultSchema,
		}, Subtract),
	}
}

// NewRegistry returns the registry with the calculator tools
func NewRegistry() *tools.Registry {
	return tools.MustRegistry(Tools()...)
}
