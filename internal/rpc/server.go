// Package rpc provides the JSON-RPC 2.0 server for the crosslock daemon.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/crosslock/crosslockd/internal/chain"
	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/market"
	"github.com/crosslock/crosslockd/internal/orders"
	"github.com/crosslock/crosslockd/internal/storage"
	"github.com/crosslock/crosslockd/internal/swap"
	"github.com/crosslock/crosslockd/pkg/logging"
)

// Server is a JSON-RPC 2.0 server.
type Server struct {
	coordinator *swap.Coordinator
	advisor     *fees.Advisor
	analyzer    *orders.Analyzer
	market      *market.Client
	network     chain.Network
	version     string
	startedAt   time.Time
	log         *logging.Logger
	wsHub       *WSHub

	server   *http.Server
	listener net.Listener

	handlers map[string]Handler
	mu       sync.RWMutex
}

// Handler is a JSON-RPC method handler.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Application error codes. Each error kind from the core maps to one
// stable code so callers can assert on kind rather than message text.
const (
	CodeNotFound            = -32001
	CodeVerificationFailed  = -32002
	CodeExpired             = -32003
	CodeUpstreamUnavailable = -32004
	CodeTerminalState       = -32005
)

// NewServer creates a new JSON-RPC server. The market client may be nil;
// the fetch methods then report the upstream as unavailable.
func NewServer(coordinator *swap.Coordinator, advisor *fees.Advisor, analyzer *orders.Analyzer, marketClient *market.Client, network chain.Network, version string) *Server {
	s := &Server{
		coordinator: coordinator,
		advisor:     advisor,
		analyzer:    analyzer,
		market:      marketClient,
		network:     network,
		version:     version,
		startedAt:   time.Now(),
		log:         logging.GetDefault().Component("rpc"),
		handlers:    make(map[string]Handler),
	}

	s.registerHandlers()

	return s
}

// registerHandlers registers all JSON-RPC method handlers.
func (s *Server) registerHandlers() {
	// Node methods
	s.handlers["node_status"] = s.nodeStatus

	// Secret engine methods
	s.handlers["secret_generate"] = s.secretGenerate

	// Swap session methods
	s.handlers["swap_initiate"] = s.swapInitiate
	s.handlers["swap_redeem"] = s.swapRedeem
	s.handlers["swap_get"] = s.swapGet
	s.handlers["swap_list"] = s.swapList
	s.handlers["swap_createFromOrder"] = s.swapCreateFromOrder

	// Order analysis methods
	s.handlers["orders_analyze"] = s.ordersAnalyze
	s.handlers["orders_analyzeSecrets"] = s.ordersAnalyzeSecrets
	s.handlers["orders_fetchReady"] = s.ordersFetchReady
	s.handlers["orders_fetchSecrets"] = s.ordersFetchSecrets

	// Fee advisor methods
	s.handlers["gas_prices"] = s.gasPrices
	s.handlers["gas_optimize"] = s.gasOptimize
}

// Start starts the RPC server.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wsHub = NewWSHub()
	go s.wsHub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", s.handleRPC)
	mux.HandleFunc("POST /{$}", s.handleRPC)
	mux.HandleFunc("OPTIONS /", s.handleCORS)
	mux.HandleFunc("OPTIONS /{$}", s.handleCORS)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /ws/", s.handleWS)

	s.server = &http.Server{
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("RPC server error", "error", err)
		}
	}()

	s.log.Info("RPC server started", "addr", addr, "ws", "ws://"+addr+"/ws")
	return nil
}

// Stop stops the RPC server.
func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

// handleRPC handles incoming JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, ParseError, "Parse error", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, InvalidRequest, "Invalid Request", nil)
		return
	}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	if !ok {
		s.writeError(w, req.ID, MethodNotFound, "Method not found", req.Method)
		return
	}

	result, err := handler(r.Context(), req.Params)
	if err != nil {
		code, kind := classifyError(err)
		s.writeError(w, req.ID, code, err.Error(), map[string]string{"kind": kind})
		return
	}

	s.writeResult(w, req.ID, result)
}

// classifyError maps core error kinds to stable codes.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrInvalidParams), errors.Is(err, swap.ErrOrderNotCompatible):
		return InvalidParams, "invalid_parameters"
	case errors.Is(err, storage.ErrSessionNotFound):
		return CodeNotFound, "not_found"
	case errors.Is(err, swap.ErrVerificationFailed):
		return CodeVerificationFailed, "verification_failed"
	case errors.Is(err, swap.ErrSwapExpired):
		return CodeExpired, "expired"
	case errors.Is(err, storage.ErrTerminalState):
		return CodeTerminalState, "terminal_state"
	case errors.Is(err, swap.ErrUpstreamUnavailable):
		return CodeUpstreamUnavailable, "upstream_unavailable"
	default:
		return InternalError, "internal"
	}
}

// writeResult writes a successful response.
func (s *Server) writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleCORS handles CORS preflight requests.
func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware adds CORS headers to all responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
