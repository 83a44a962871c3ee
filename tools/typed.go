package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RunFunc is the typed implementation of a tool
type RunFunc[I any] func(ctx context.Context, in *I) (float64, error)

// Definition describes a typed tool
type Definition struct {
	ID           string
	Name         string
	Description  string
	ReturnSchema *jsonschema.Schema
}

// New returns a Tool which decodes parameters into I,
// the parameters schema is reflected from I.
func New[I any](def Definition, run RunFunc[I]) (*Tool, error) {
	var in I
	s, err := schema.New(reflect.TypeOf(in))
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", def.ID)
	}

	return &Tool{
		ID:               def.ID,
		Name:             def.Name,
		Description:      def.Description,
		ParametersSchema: s.Parameters,
		ReturnSchema:     def.ReturnSchema,
		Handler: func(ctx context.Context, params json.RawMessage) (float64, error) {
			in, err := DecodeParameters[I](params)
			if err != nil {
				return 0, err
			}
			return run(ctx, in)
		},
	}, nil
}

// Must is like New but panics on error
func Must[I any](def Definition, run RunFunc[I]) *Tool {
	t, err := New(def, run)
	if err != nil {
		panic(err)
	}
	return t
}

// DecodeParameters decodes raw JSON parameters into I and validates it.
// Missing required fields are reported as ErrMissingParameter,
// values of a wrong type as ErrInvalidParameter.
func DecodeParameters[I any](params json.RawMessage) (*I, error) {
	in := new(I)
	data := llmutils.CleanJSON(params)
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}
	if err := ljson.Unmarshal(data, in); err != nil {
		return nil, errors.Mark(errors.Newf("invalid parameter: %s", err.Error()), ErrInvalidParameter)
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return nil, errors.Mark(errors.Newf("missing required parameter: %s", fe.Field()), ErrMissingParameter)
			}
			return nil, errors.Mark(errors.Newf("invalid parameter: %s", fe.Field()), ErrInvalidParameter)
		}
		return nil, errors.WithStack(err)
	}
	return in, nil
}
