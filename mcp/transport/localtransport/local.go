// Package localtransport delivers requests to an in-process handler,
// with the same encoding as the network transports.
package localtransport

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/mcp/transport"
)

// Transport is a round-tripper for an in-process handler
type Transport struct {
	handler transport.Handler
}

var _ transport.RoundTripper = (*Transport)(nil)

// New returns the local transport
func New(handler transport.Handler) *Transport {
	return &Transport{
		handler: handler,
	}
}

// RoundTrip decodes the body, calls the handler and encodes the response
func (t *Transport) RoundTrip(ctx context.Context, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	var res *transport.Response
	req, rpcErr := transport.Decode(body)
	if rpcErr != nil {
		res = transport.NewErrorResponse(req.ResponseID(), rpcErr)
	} else {
		res = t.handler.Handle(ctx, req)
	}

	js, err := json.Marshal(res)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode response")
	}
	return js, nil
}
