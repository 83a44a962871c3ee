package httptransport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/effective-security/toolagent/mcp"
	"github.com/effective-security/toolagent/mcp/transport/httptransport"
	"github.com/effective-security/toolagent/tools/calculator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...httptransport.Option) *httptest.Server {
	t.Helper()
	s := httptransport.NewServer(mcp.NewServer(calculator.NewRegistry()), opts...)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (int, http.Header, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(b)
}

func TestServer(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tcases := []struct {
		name   string
		body   string
		status int
		exp    string
	}{
		{
			name:   "empty body",
			body:   "",
			status: http.StatusBadRequest,
			exp:    `{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid Request: empty body"},"id":null}`,
		},
		{
			name:   "malformed",
			body:   `{"jsonrpc":"2.0","method":`,
			status: http.StatusBadRequest,
			exp:    `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"},"id":null}`,
		},
		{
			name:   "not an object",
			body:   `[1,2]`,
			status: http.StatusBadRequest,
			exp:    `{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid Request"},"id":null}`,
		},
		{
			name:   "number marker",
			body:   `{"jsonrpc":2.0,"method":"tools/list","id":"q"}`,
			status: http.StatusOK,
			exp:    `{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid Request"},"id":"q"}`,
		},
		{
			name:   "number method",
			body:   `{"jsonrpc":"2.0","method":7,"id":5}`,
			status: http.StatusOK,
			exp:    `{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid Request"},"id":5}`,
		},
		{
			name:   "execute",
			body:   `{"jsonrpc":"2.0","method":"tools/execute","params":{"tool_id":"calculator:add","parameters":{"a":5,"b":10}},"id":"exec-1"}`,
			status: http.StatusOK,
			exp:    `{"jsonrpc":"2.0","result":15,"id":"exec-1"}`,
		},
		{
			name:   "rpc error",
			body:   `{"jsonrpc":"2.0","method":"nope","id":3}`,
			status: http.StatusOK,
			exp:    `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found: nope"},"id":3}`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			status, hdr, body := post(t, ts.URL+"/", tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, "application/json", hdr.Get("Content-Type"))
			assert.Equal(t, strconv.Itoa(len(body)), hdr.Get("Content-Length"))
			assert.JSONEq(t, tc.exp, body)
		})
	}

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestClient(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, httptransport.WithEndpoint("/rpc"))
	ctx := context.Background()

	c := mcp.NewClient(httptransport.NewClient(ts.URL + "/rpc"))
	list, err := c.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	res, err := c.ExecuteTool(ctx, calculator.SubtractID, map[string]any{"a": 15, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, 12.0, res)

	// wrong endpoint
	_, err = httptransport.NewClient(ts.URL+"/other").RoundTrip(ctx, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")

	// malformed request is rejected with 400
	_, err = httptransport.NewClient(ts.URL+"/rpc").RoundTrip(ctx, []byte(`{`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")

	_, err = httptransport.NewClient("http://127.0.0.1:1/",
		httptransport.WithHTTPClient(&http.Client{Timeout: time.Second}),
	).RoundTrip(ctx, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call http://127.0.0.1:1/")
}

func TestServe(t *testing.T) {
	t.Parallel()
	s := httptransport.NewServer(mcp.NewServer(calculator.NewRegistry()), httptransport.WithAddr("127.0.0.1:0"))
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()

	c := mcp.NewClient(httptransport.NewClient("http://" + s.Addr() + "/"))
	info, err := c.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MCP Calculator Server", info.ServerInfo.Name)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
