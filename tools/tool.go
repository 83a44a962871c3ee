package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

var (
	// ErrDuplicateID is returned when a tool with the same ID is already registered
	ErrDuplicateID = errors.New("duplicate tool id")
	// ErrUnknownTool is returned when the tool ID is not registered
	ErrUnknownTool = errors.New("unknown tool")
	// ErrMissingParameter is returned when a required parameter is not provided
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrInvalidParameter is returned when a parameter has a wrong type
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Handler executes the tool with raw JSON parameters
type Handler func(ctx context.Context, params json.RawMessage) (float64, error)

// Tool is a callable operation exposed by the registry.
type Tool struct {
	// ID is the unique identifier, namespaced as "<group>:<name>"
	ID string
	// Name is the short name the model refers to the tool by
	Name string
	// Description is used in the prompt
	Description      string
	ParametersSchema *jsonschema.Schema
	ReturnSchema     *jsonschema.Schema
	Handler          Handler
}

// Descriptor is the wire form of a Tool, as returned by tools/list
type Descriptor struct {
	ID               string             `json:"id" yaml:"id"`
	Name             string             `json:"name" yaml:"name"`
	Description      string             `json:"description" yaml:"description"`
	ParametersSchema *jsonschema.Schema `json:"parameters_schema" yaml:"parameters_schema"`
	ReturnSchema     *jsonschema.Schema `json:"return_schema" yaml:"return_schema"`
}

// Descriptor returns the wire form of the tool
func (t *Tool) Descriptor() Descriptor {
	return Descriptor{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		ParametersSchema: t.ParametersSchema,
		ReturnSchema:     t.ReturnSchema,
	}
}

func (t *Tool) validate() error {
	if t.ID == "" || t.Name == "" {
		return errors.New("tool id and name are required")
	}
	if t.Handler == nil {
		return errors.Newf("tool %s: handler is required", t.ID)
	}
	return nil
}
