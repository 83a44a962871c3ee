package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/mcp/transport"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

// DefaultClientTimeout is the bound for a single RPC round trip
const DefaultClientTimeout = 10 * time.Second

// ErrTransport is returned when no valid response could be obtained from the server
var ErrTransport = errors.New("transport failure")

// Client calls the tool server methods over a RoundTripper.
type Client struct {
	rt      transport.RoundTripper
	timeout time.Duration
	info    Implementation
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithClientInfo sets the client info sent in initialize
func WithClientInfo(name, version string) ClientOption {
	return func(c *Client) {
		c.info = Implementation{Name: name, Version: version}
	}
}

// NewClient returns a client
func NewClient(rt transport.RoundTripper, opts ...ClientOption) *Client {
	c := &Client{
		rt:      rt,
		timeout: DefaultClientTimeout,
		info: Implementation{
			Name:    "llm-agent",
			Version: "1.0.0",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize performs the handshake
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	params := &InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      &c.info,
		Capabilities:    map[string]any{},
	}
	res := new(InitializeResult)
	if err := c.Call(ctx, "init", MethodInitialize, params, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListTools returns the tool catalog
func (c *Client) ListTools(ctx context.Context) ([]tools.Descriptor, error) {
	var res []tools.Descriptor
	if err := c.Call(ctx, "list", MethodToolsList, nil, &res); err != nil {
		return nil, err
	}
	if res == nil {
		res = []tools.Descriptor{}
	}
	return res, nil
}

// ExecuteTool runs the tool on the server.
// Faults reported by the server are returned as *transport.Error.
func (c *Client) ExecuteTool(ctx context.Context, toolID string, parameters map[string]any) (float64, error) {
	if parameters == nil {
		parameters = map[string]any{}
	}
	js, err := json.Marshal(parameters)
	if err != nil {
		return 0, errors.Wrap(err, "failed to encode parameters")
	}
	var res float64
	err = c.Call(ctx, "exec", MethodToolsExecute, &ExecuteParams{
		ToolID:     toolID,
		Parameters: js,
	}, &res)
	if err != nil {
		return 0, err
	}
	return res, nil
}

// Call sends the request and decodes the result into result.
// The request id is "<prefix>-<uuid>" and must be echoed by the server.
func (c *Client) Call(ctx context.Context, prefix, method string, params, result any) error {
	id := prefix + "-" + uuid.NewString()
	req, err := transport.NewRequest(id, method, params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return errors.WithStack(err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.rt.RoundTrip(ctx, body)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "method", method, "id", id, "err", err.Error())
		return errors.Mark(errors.WithMessagef(err, "%s", method), ErrTransport)
	}

	res := new(transport.Response)
	if err = json.Unmarshal(raw, res); err != nil {
		return errors.Mark(errors.Wrapf(err, "%s: invalid response", method), ErrTransport)
	}
	if !bytes.Equal(res.ID, req.ID) {
		return errors.Mark(errors.Newf("%s: response id mismatch: expected %s, got %s", method, req.ID, res.ID), ErrTransport)
	}
	if res.Error != nil {
		return res.Error
	}
	if result != nil {
		if err = json.Unmarshal(res.Result, result); err != nil {
			return errors.Mark(errors.Wrapf(err, "%s: invalid result", method), ErrTransport)
		}
	}
	return nil
}
