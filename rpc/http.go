// Package rpc exposes the escrow protocol over JSON-RPC 2.0. Mutating
// methods require a bearer token; queries are open. Every handler reports
// into the prometheus module metrics.
package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"titlevault/core/ledger"
	"titlevault/native/escrow"
	"titlevault/native/registry"
	"titlevault/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	requestsPerSecond = 20
	requestBurst      = 40
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32002

	codeEscrowForbidden    = -32031
	codeEscrowNotFound     = -32032
	codeEscrowConflict     = -32033
	codeEscrowPrecondition = -32034
)

// Server dispatches JSON-RPC requests to the escrow, registry and ledger
// engines.
type Server struct {
	engine *escrow.Engine
	deeds  *registry.Engine
	funds  *ledger.Ledger
	log    *slog.Logger

	authSecret []byte
	metrics    *observability.ModuleMetrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	handlers map[string]handlerEntry
}

type handlerEntry struct {
	fn       func(params []json.RawMessage) (any, *RPCError)
	mutating bool
}

// Options carries the optional server knobs.
type Options struct {
	// AuthSecret is the HMAC secret bearer tokens are verified against.
	// When empty, mutating methods are open; intended for local runs only.
	AuthSecret string
	Logger     *slog.Logger
}

// NewServer builds a JSON-RPC server over the given engines.
func NewServer(engine *escrow.Engine, deeds *registry.Engine, funds *ledger.Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:     engine,
		deeds:      deeds,
		funds:      funds,
		log:        logger,
		authSecret: []byte(opts.AuthSecret),
		metrics:    observability.Metrics(),
		limiters:   make(map[string]*rate.Limiter),
	}
	s.registerHandlers()
	return s
}

// Router returns the HTTP handler serving the RPC endpoint, health check
// and prometheus metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Start serves the router on addr until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      any               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func rpcErr(code int, message string, data any) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data}
}

func writeError(w http.ResponseWriter, status int, id any, rpcError *RPCError) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcError})
}

func writeResult(w http.ResponseWriter, id any, result any) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) limiterFor(remoteAddr string) *rate.Limiter {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst)
		s.limiters[host] = limiter
	}
	return limiter
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.limiterFor(r.RemoteAddr).Allow() {
		writeError(w, http.StatusTooManyRequests, nil, rpcErr(codeRateLimited, "rate_limited", nil))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, rpcErr(codeParseError, "unable to read request body", nil))
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, rpcErr(codeParseError, "invalid JSON", err.Error()))
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr(codeInvalidRequest, "unsupported jsonrpc version", nil))
		return
	}

	entry, ok := s.handlers[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, rpcErr(codeMethodNotFound, "method not found", req.Method))
		return
	}
	if entry.mutating {
		if authErr := s.requireAuth(r); authErr != nil {
			s.metrics.ObserveError(req.Method, strconv.Itoa(authErr.Code))
			writeError(w, http.StatusUnauthorized, req.ID, authErr)
			return
		}
	}

	start := time.Now()
	result, rpcError := entry.fn(req.Params)
	if rpcError != nil {
		s.metrics.ObserveRequest(req.Method, "error", time.Since(start))
		s.metrics.ObserveError(req.Method, strconv.Itoa(rpcError.Code))
		s.log.Warn("rpc request failed", "method", req.Method, "code", rpcError.Code, "message", rpcError.Message)
		writeError(w, statusFor(rpcError.Code), req.ID, rpcError)
		return
	}
	s.metrics.ObserveRequest(req.Method, "ok", time.Since(start))
	writeResult(w, req.ID, result)
}

func statusFor(code int) int {
	switch code {
	case codeUnauthorized, codeEscrowForbidden:
		return http.StatusForbidden
	case codeEscrowNotFound:
		return http.StatusNotFound
	case codeMethodNotFound:
		return http.StatusNotFound
	case codeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// engineErr maps engine errors to JSON-RPC error objects, preserving the
// finalize gate in the error data so callers can tell the gates apart.
func engineErr(err error) *RPCError {
	var pre *escrow.PreconditionError
	switch {
	case errors.As(err, &pre):
		return rpcErr(codeEscrowPrecondition, "precondition_failed", pre.Gate.String())
	case errors.Is(err, escrow.ErrUnauthorized):
		return rpcErr(codeEscrowForbidden, "forbidden", err.Error())
	case errors.Is(err, escrow.ErrNotListed):
		return rpcErr(codeEscrowNotFound, "not_found", err.Error())
	case errors.Is(err, escrow.ErrAlreadyListed),
		errors.Is(err, escrow.ErrInvalidTerms),
		errors.Is(err, escrow.ErrInvalidAmount):
		return rpcErr(codeEscrowConflict, "conflict", err.Error())
	case errors.Is(err, registry.ErrUnknownAsset):
		return rpcErr(codeEscrowNotFound, "not_found", err.Error())
	case errors.Is(err, registry.ErrNotOwner), errors.Is(err, registry.ErrNotAuthorized):
		return rpcErr(codeEscrowForbidden, "forbidden", err.Error())
	case errors.Is(err, registry.ErrEmptyMetaURI):
		return rpcErr(codeInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return rpcErr(codeEscrowConflict, "insufficient_funds", err.Error())
	default:
		return rpcErr(codeServerError, "internal_error", err.Error())
	}
}
