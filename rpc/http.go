package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/events"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/marketplace"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/registry"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/observability"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/state"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeRateLimited    = -32020

	codeNotOwner            = -32030
	codeUnauthorized        = -32031
	codeInvalidPrice        = -32032
	codeInvalidDuration     = -32033
	codeInvalidAmount       = -32034
	codeAlreadyListed       = -32035
	codeNotListed           = -32036
	codeAssetLocked         = -32037
	codeInsufficientPayment = -32038
	codeInsufficientFunds   = -32039
	codeSelfTransaction     = -32040
	codeInvalidIndex        = -32041
	codeOfferNotActive      = -32042
	codeOfferExpired        = -32043
	codeRentalNotExpired    = -32044
	codeNoActiveRental      = -32045
	codeTransferFailed      = -32046
	codePaused              = -32047
	codeAssetNotFound       = -32048
	codeFeeTooHigh          = -32049
	codeZeroTreasury        = -32050
)

// Server exposes the marketplace engine over JSON-RPC 2.0 plus a
// websocket event stream and Prometheus metrics.
type Server struct {
	engine  *marketplace.Engine
	ledger  *registry.Ledger
	store   *state.Manager
	bus     *events.Bus
	logger  *slog.Logger
	limiter *clientLimiter
	metrics *observability.MarketplaceMetrics
	faucet  bool
}

// Options bundles the server dependencies.
type Options struct {
	Engine *marketplace.Engine
	Ledger *registry.Ledger
	Store  *state.Manager
	Bus    *events.Bus
	Logger *slog.Logger
	// RatePerMinute and Burst bound per-client request throughput; zero
	// disables limiting.
	RatePerMinute float64
	Burst         int
	// DevFaucet enables the devnet-only register/fund helpers.
	DevFaucet bool
}

// NewServer constructs the RPC server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  opts.Engine,
		ledger:  opts.Ledger,
		store:   opts.Store,
		bus:     opts.Bus,
		logger:  logger,
		limiter: newClientLimiter(opts.RatePerMinute, opts.Burst),
		metrics: observability.Marketplace(),
		faucet:  opts.DevFaucet,
	}
}

// Router assembles the HTTP surface: JSON-RPC at the root, health and
// metrics probes, and the websocket event feed.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handleRPC)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	return r
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	clientIP := clientAddr(r)
	if !s.limiter.allow(clientIP) {
		writeResponse(w, http.StatusTooManyRequests, rpcResponse{
			JSONRPC: jsonRPCVersion,
			Error:   &rpcError{Code: codeRateLimited, Message: "rate limit exceeded"},
		})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeResponse(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: jsonRPCVersion,
			Error:   &rpcError{Code: codeParseError, Message: "unable to read request"},
		})
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: jsonRPCVersion,
			Error:   &rpcError{Code: codeParseError, Message: "invalid JSON"},
		})
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		writeResponse(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: jsonRPCVersion,
			ID:      req.ID,
			Error:   &rpcError{Code: codeInvalidRequest, Message: "invalid request"},
		})
		return
	}

	start := time.Now()
	result, rpcErr := s.dispatch(&req)
	resp := rpcResponse{JSONRPC: jsonRPCVersion, ID: req.ID}
	status := http.StatusOK
	if rpcErr != nil {
		resp.Error = rpcErr
		status = httpStatusFor(rpcErr.Code)
		s.metrics.ObserveRequest(req.Method, "error", start)
		s.logger.Warn("rpc call failed",
			"method", req.Method,
			"code", rpcErr.Code,
			"message", rpcErr.Message,
			"client", clientIP,
		)
	} else {
		resp.Result = result
		s.metrics.ObserveRequest(req.Method, "ok", start)
	}
	writeResponse(w, status, resp)
}

func writeResponse(w http.ResponseWriter, status int, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func httpStatusFor(code int) int {
	switch code {
	case codeParseError, codeInvalidRequest, codeInvalidParams:
		return http.StatusBadRequest
	case codeMethodNotFound:
		return http.StatusNotFound
	case codeRateLimited:
		return http.StatusTooManyRequests
	case codeUnauthorized, codeNotOwner:
		return http.StatusForbidden
	case codeServerError:
		return http.StatusInternalServerError
	default:
		// Domain precondition failures are well-formed requests the state
		// rejected.
		return http.StatusConflict
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// errorFor maps an engine failure onto its JSON-RPC code so every error
// kind stays distinguishable for callers.
func (s *Server) errorFor(method string, err error) *rpcError {
	code := codeServerError
	switch {
	case errors.Is(err, marketplace.ErrNotOwner):
		code = codeNotOwner
	case errors.Is(err, marketplace.ErrUnauthorized):
		code = codeUnauthorized
	case errors.Is(err, marketplace.ErrInvalidPrice):
		code = codeInvalidPrice
	case errors.Is(err, marketplace.ErrInvalidDuration):
		code = codeInvalidDuration
	case errors.Is(err, marketplace.ErrInvalidAmount):
		code = codeInvalidAmount
	case errors.Is(err, marketplace.ErrAlreadyListed):
		code = codeAlreadyListed
	case errors.Is(err, marketplace.ErrNotListed):
		code = codeNotListed
	case errors.Is(err, marketplace.ErrAssetLocked):
		code = codeAssetLocked
	case errors.Is(err, marketplace.ErrInsufficientPayment):
		code = codeInsufficientPayment
	case errors.Is(err, marketplace.ErrInsufficientFunds):
		code = codeInsufficientFunds
	case errors.Is(err, marketplace.ErrSelfTransaction):
		code = codeSelfTransaction
	case errors.Is(err, marketplace.ErrInvalidIndex):
		code = codeInvalidIndex
	case errors.Is(err, marketplace.ErrOfferNotActive):
		code = codeOfferNotActive
	case errors.Is(err, marketplace.ErrOfferExpired):
		code = codeOfferExpired
	case errors.Is(err, marketplace.ErrRentalNotExpired):
		code = codeRentalNotExpired
	case errors.Is(err, marketplace.ErrNoActiveRental):
		code = codeNoActiveRental
	case errors.Is(err, marketplace.ErrTransferFailed):
		code = codeTransferFailed
	case errors.Is(err, marketplace.ErrPaused):
		code = codePaused
	case errors.Is(err, marketplace.ErrAssetNotFound):
		code = codeAssetNotFound
	case errors.Is(err, marketplace.ErrFeeTooHigh):
		code = codeFeeTooHigh
	case errors.Is(err, marketplace.ErrZeroTreasury):
		code = codeZeroTreasury
	}
	s.metrics.ObserveError(method, errorKind(code))
	return &rpcError{Code: code, Message: err.Error()}
}

func errorKind(code int) string {
	switch code {
	case codeNotOwner:
		return "not_owner"
	case codeUnauthorized:
		return "unauthorized"
	case codeInvalidPrice, codeInvalidDuration, codeInvalidAmount:
		return "invalid_argument"
	case codeAlreadyListed, codeNotListed:
		return "listing_state"
	case codeAssetLocked:
		return "asset_locked"
	case codeInsufficientPayment, codeInsufficientFunds:
		return "funds"
	case codeSelfTransaction:
		return "self_transaction"
	case codeInvalidIndex, codeOfferNotActive, codeOfferExpired:
		return "offer_state"
	case codeRentalNotExpired, codeNoActiveRental:
		return "rental_state"
	case codeTransferFailed:
		return "transfer_failed"
	case codePaused:
		return "paused"
	case codeAssetNotFound:
		return "asset_not_found"
	case codeFeeTooHigh, codeZeroTreasury:
		return "admin"
	default:
		return "internal"
	}
}
