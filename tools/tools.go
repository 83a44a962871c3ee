package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "tools")

// Registry is an insertion-ordered set of tools.
// It is built once and is read-only after construction.
type Registry struct {
	tools []*Tool
	byID  map[string]*Tool
}

// NewRegistry returns a registry with the provided tools
func NewRegistry(list ...*Tool) (*Registry, error) {
	r := &Registry{
		byID: make(map[string]*Tool, len(list)),
	}
	for _, t := range list {
		if err := r.register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error
func MustRegistry(list ...*Tool) *Registry {
	r, err := NewRegistry(list...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) register(t *Tool) error {
	if t == nil {
		return errors.New("tool is nil")
	}
	if err := t.validate(); err != nil {
		return err
	}
	if _, ok := r.byID[t.ID]; ok {
		return errors.Mark(errors.Newf("duplicate tool id: %s", t.ID), ErrDuplicateID)
	}
	r.tools = append(r.tools, t)
	r.byID[t.ID] = t

	logger.KV(xlog.DEBUG, "status", "registered", "tool", t.ID)
	return nil
}

// Get returns the tool by ID
func (r *Registry) Get(id string) (*Tool, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.tools)
}

// List returns descriptors in registration order.
// The result is never nil.
func (r *Registry) List() []Descriptor {
	list := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t.Descriptor())
	}
	return list
}

// Names returns tool names in registration order
func (r *Registry) Names() []string {
	list := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t.Name)
	}
	return list
}

// Execute runs the tool by ID with raw JSON parameters.
func (r *Registry) Execute(ctx context.Context, id string, params json.RawMessage) (float64, error) {
	t, ok := r.byID[id]
	if !ok {
		return 0, errors.Mark(errors.Newf("unknown tool: %s", id), ErrUnknownTool)
	}
	res, err := t.Handler(ctx, params)
	if err != nil {
		return 0, err
	}
	return res, nil
}
