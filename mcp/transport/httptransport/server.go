// Package httptransport serves the tool server over HTTP POST and provides
// the matching client round-tripper.
package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/mcp/transport"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent/mcp/transport", "httptransport")

// Defaults
const (
	DefaultEndpoint = "/"
	DefaultAddr     = "localhost:8000"
	// MaxBodySize is the limit of the request body
	MaxBodySize = 1 << 20
)

// Server is a stateless HTTP adapter for a transport.Handler:
// one POST request carries one JSON-RPC request and gets exactly one response.
type Server struct {
	handler  transport.Handler
	endpoint string
	addr     string
	router   *chi.Mux
	srv      *http.Server
	listener net.Listener
}

// Option configures the Server
type Option func(*Server)

// WithEndpoint sets the path the requests are posted to
func WithEndpoint(endpoint string) Option {
	return func(s *Server) {
		s.endpoint = endpoint
	}
}

// WithAddr sets the address to listen on
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// NewServer returns the HTTP server for the handler
func NewServer(handler transport.Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoint = values.StringsCoalesce(s.endpoint, DefaultEndpoint)
	s.addr = values.StringsCoalesce(s.addr, DefaultAddr)

	s.router = chi.NewRouter()
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Post(s.endpoint, s.handleRequest)
	return s
}

// Router exposes the root HTTP handler
func (s *Server) Router() http.Handler { return s.router }

// Addr returns the listening address, available after Listen
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Listen opens the listener
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.addr)
	}
	s.listener = ln
	return nil
}

// Serve serves the requests until ctx is done,
// then shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.KV(xlog.INFO, "status", "listening", "addr", s.Addr(), "endpoint", s.endpoint)
		errc <- s.srv.Serve(s.listener)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WithStack(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.KV(xlog.INFO, "status", "shutting_down", "addr", s.Addr())
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shutdown")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "read_body", "err", err.Error())
		s.writeError(w, transport.ErrParse())
		return
	}

	req, rpcErr := transport.Decode(body)
	if rpcErr != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"request_id", middleware.GetReqID(ctx),
			"reason", "decode",
			"code", rpcErr.Code,
		)
		if req == nil {
			s.writeError(w, rpcErr)
			return
		}
		// the object is a request with invalid fields, answer like any other RPC error
		js, _ := json.Marshal(transport.NewErrorResponse(req.ResponseID(), rpcErr))
		writeJSON(w, http.StatusOK, js)
		return
	}

	res := s.handler.Handle(ctx, req)
	js, err := json.Marshal(res)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "marshal", "err", err.Error())
		js, _ = json.Marshal(transport.NewErrorResponse(req.ResponseID(), transport.ErrInternal("failed to encode response")))
	}
	writeJSON(w, http.StatusOK, js)
}

func (s *Server) writeError(w http.ResponseWriter, rpcErr *transport.Error) {
	js, _ := json.Marshal(transport.NewErrorResponse(nil, rpcErr))
	writeJSON(w, http.StatusBadRequest, js)
}

func writeJSON(w http.ResponseWriter, status int, js []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(js)))
	w.WriteHeader(status)
	_, _ = w.Write(js)
}
