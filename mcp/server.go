package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/mcp/transport"
	"github.com/effective-security/toolagent/pkg/metricskey"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "mcp")

// Default server info
const (
	DefaultServerName    = "MCP Calculator Server"
	DefaultServerVersion = "1.0.0"
)

type methodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// Server implements the tool server methods against a read-only registry.
// It is safe for concurrent use.
type Server struct {
	registry *tools.Registry
	info     Implementation
	handlers map[string]methodHandler
}

var _ transport.Handler = (*Server)(nil)

// ServerOption configures the Server
type ServerOption func(*Server)

// WithServerInfo sets the name and version reported by initialize
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) {
		s.info.Name = name
		s.info.Version = version
	}
}

// NewServer returns a Server for the registry
func NewServer(registry *tools.Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.info.Name = values.StringsCoalesce(s.info.Name, DefaultServerName)
	s.info.Version = values.StringsCoalesce(s.info.Version, DefaultServerVersion)

	s.handlers = map[string]methodHandler{
		MethodInitialize:   s.handleInitialize,
		MethodToolsList:    s.handleToolsList,
		MethodToolsExecute: s.handleToolsExecute,
	}
	return s
}

// Initialize returns the server info and capabilities
func (s *Server) Initialize(ctx context.Context, params *InitializeParams) *InitializeResult {
	if params != nil && params.ClientInfo != nil {
		logger.ContextKV(ctx, xlog.INFO,
			"status", "initialize",
			"client", params.ClientInfo.Name,
			"client_version", params.ClientInfo.Version,
		)
	}
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      s.info,
		Capabilities: Capabilities{
			Tools: true,
		},
	}
}

// ListTools returns the tool descriptors in registration order
func (s *Server) ListTools(_ context.Context) []tools.Descriptor {
	return s.registry.List()
}

// ExecuteTool runs the tool
func (s *Server) ExecuteTool(ctx context.Context, toolID string, parameters json.RawMessage) (float64, error) {
	if toolID == "" {
		return 0, errors.Mark(errors.New("missing required parameter: tool_id"), tools.ErrMissingParameter)
	}

	started := time.Now()
	res, err := s.registry.Execute(ctx, toolID, parameters)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			metricskey.StatsToolCallsNotFound.IncrCounter(1, toolID)
		} else {
			metricskey.StatsToolCallsFailed.IncrCounter(1, toolID)
		}
		logger.ContextKV(ctx, xlog.DEBUG, "tool", toolID, "err", err.Error())
		return 0, err
	}
	metricskey.PerfToolCall.MeasureSince(started, toolID)
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolID)

	logger.ContextKV(ctx, xlog.DEBUG, "tool", toolID, "result", res)
	return res, nil
}

// Handle validates and dispatches the request.
// Every fault is returned as an error response, panics included.
func (s *Server) Handle(ctx context.Context, req *transport.Request) (res *transport.Response) {
	if req == nil {
		return transport.NewErrorResponse(nil, transport.ErrInvalidRequest())
	}
	id := req.ResponseID()

	if rpcErr := req.Validate(); rpcErr != nil {
		metricskey.StatsRPCErrors.IncrCounter(1, "invalid", strconv.Itoa(rpcErr.Code))
		return transport.NewErrorResponse(id, rpcErr)
	}

	method := req.Method
	handler, ok := s.handlers[method]
	if !ok {
		metricskey.StatsRPCErrors.IncrCounter(1, "unknown", strconv.Itoa(transport.CodeMethodNotFound))
		return transport.NewErrorResponse(id, transport.ErrMethodNotFound(method))
	}

	started := time.Now()
	metricskey.StatsRPCRequests.IncrCounter(1, method)
	defer metricskey.PerfRPCRequest.MeasureSince(started, method)

	defer func() {
		if r := recover(); r != nil {
			logger.ContextKV(ctx, xlog.ERROR, "method", method, "panic", r)
			metricskey.StatsRPCErrors.IncrCounter(1, method, strconv.Itoa(transport.CodeInternalError))
			res = transport.NewErrorResponse(id, transport.ErrInternal(fmt.Sprintf("%v", r)))
		}
	}()

	result, err := handler(ctx, req.Params)
	if err == nil {
		res, err = transport.NewResponse(id, result)
	}
	if err != nil {
		metricskey.StatsRPCErrors.IncrCounter(1, method, strconv.Itoa(transport.CodeInternalError))
		return transport.NewErrorResponse(id, transport.ErrInternal(err.Error()))
	}

	logger.ContextKV(ctx, xlog.DEBUG, "method", method, "id", string(id))
	return res
}

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	p := new(InitializeParams)
	if err := decodeParams(params, p); err != nil {
		return nil, err
	}
	return s.Initialize(ctx, p), nil
}

func (s *Server) handleToolsList(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.ListTools(ctx), nil
}

func (s *Server) handleToolsExecute(ctx context.Context, params json.RawMessage) (any, error) {
	p := new(ExecuteParams)
	if err := decodeParams(params, p); err != nil {
		return nil, err
	}
	return s.ExecuteTool(ctx, p.ToolID, p.Parameters)
}

func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return errors.Wrap(err, "invalid params")
	}
	return nil
}
