package transport

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSONRPCVersion is the only protocol version accepted by the server
const JSONRPCVersion = "2.0"

// Standard JSON-RPC 2.0 error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NullID is the id used in responses when the request id is not known
var NullID = json.RawMessage("null")

// Request is the JSON-RPC request envelope.
// ID is kept raw and echoed back verbatim.
type Request struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Response is the JSON-RPC response envelope,
// exactly one of Result or Error is set.
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is the JSON-RPC error object
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// IsError returns the RPC error if err chain contains one
func IsError(err error) (*Error, bool) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}

// ErrParse returns -32700 error
func ErrParse() *Error {
	return &Error{Code: CodeParseError, Message: "Parse error"}
}

// ErrInvalidRequest returns -32600 error
func ErrInvalidRequest() *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid Request"}
}

// ErrEmptyBody returns -32600 error for a request without body
func ErrEmptyBody() *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid Request: empty body"}
}

// ErrMethodNotFound returns -32601 error
func ErrMethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found: " + method}
}

// ErrInternal returns -32603 error
func ErrInternal(detail string) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error: " + detail}
}

// Handler processes a decoded request.
// It must always return a response, errors are reported in the envelope.
type Handler interface {
	Handle(ctx context.Context, req *Request) *Response
}

// HandlerFunc is an adapter to use ordinary functions as Handler
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Handle calls f(ctx, req)
func (f HandlerFunc) Handle(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

// RoundTripper delivers an encoded request and returns the encoded response.
// An error is returned only when no response body could be obtained.
type RoundTripper interface {
	RoundTrip(ctx context.Context, body []byte) ([]byte, error)
}

// Decode parses the request body.
// It returns ErrEmptyBody for zero bytes, ErrParse for malformed JSON,
// and ErrInvalidRequest when the body is not a request object.
// When the object has fields of the wrong type, the returned request
// carries the id to echo along with ErrInvalidRequest.
func Decode(body []byte) (*Request, *Error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody()
	}
	if !json.Valid(body) {
		return nil, ErrParse()
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, ErrInvalidRequest()
	}

	req := &Request{
		Params: fields["params"],
	}
	if id := fields["id"]; isValidID(id) {
		req.ID = id
	}
	if !decodeString(fields, "jsonrpc", &req.Jsonrpc) || !decodeString(fields, "method", &req.Method) {
		return req, ErrInvalidRequest()
	}
	return req, nil
}

// decodeString returns false if the field is present and not a string
func decodeString(fields map[string]json.RawMessage, key string, val *string) bool {
	raw, ok := fields[key]
	if !ok {
		return true
	}
	return json.Unmarshal(raw, val) == nil
}

// isValidID returns true for string, number and null ids
func isValidID(id json.RawMessage) bool {
	id = bytes.TrimSpace(id)
	if len(id) == 0 {
		return false
	}
	switch c := id[0]; {
	case c == '"', c == '-', c >= '0' && c <= '9':
		return true
	}
	return string(id) == "null"
}

// ResponseID returns the request id to echo, or null
func (r *Request) ResponseID() json.RawMessage {
	if r == nil || len(r.ID) == 0 {
		return NullID
	}
	return r.ID
}

// Validate returns ErrInvalidRequest when the envelope is not JSON-RPC 2.0
func (r *Request) Validate() *Error {
	if r.Jsonrpc != JSONRPCVersion || r.Method == "" {
		return ErrInvalidRequest()
	}
	return nil
}

// NewResponse returns a success response with the result encoded as JSON
func NewResponse(id json.RawMessage, result any) (*Response, error) {
	js, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode result")
	}
	if len(id) == 0 {
		id = NullID
	}
	return &Response{
		Jsonrpc: JSONRPCVersion,
		Result:  js,
		ID:      id,
	}, nil
}

// NewErrorResponse returns an error response
func NewErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	if len(id) == 0 {
		id = NullID
	}
	return &Response{
		Jsonrpc: JSONRPCVersion,
		Error:   rpcErr,
		ID:      id,
	}
}

// NewRequest returns a request with params encoded as JSON, and id as a JSON string
func NewRequest(id, method string, params any) (*Request, error) {
	req := &Request{
		Jsonrpc: JSONRPCVersion,
		Method:  method,
	}
	idJS, err := json.Marshal(id)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.ID = idJS
	if params != nil {
		js, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode params")
		}
		req.Params = js
	}
	return req, nil
}
