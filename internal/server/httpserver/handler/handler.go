package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
)

// SyncService is the engine surface served over HTTP.
type SyncService interface {
	GetChanges(ctx context.Context, req service.ChangesRequest) (*service.ChangesResult, error)
	ApplyUpdates(ctx context.Context, req service.UpdateRequest) (*service.UpdateResult, error)
	AppendRows(ctx context.Context, req service.AppendRequest) (*service.AppendResult, error)
	InsertColumn(ctx context.Context, req service.ColumnRequest) (*service.ColumnResult, error)
	InvalidateAll()
}

// ReadyFunc reports whether the server can serve traffic.
type ReadyFunc func(ctx context.Context) error

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	sync    SyncService
	ready   ReadyFunc
	version string
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithReadyCheck sets the readiness probe used by GET /ready.
func WithReadyCheck(fn ReadyFunc) Option {
	return func(h *Handler) { h.ready = fn }
}

// WithVersion sets the version reported by GET /health.
func WithVersion(v string) Option {
	return func(h *Handler) { h.version = v }
}

// New creates a new Handler over the sync service.
func New(sync SyncService, log *slog.Logger, opts ...Option) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		sync:   sync,
		logger: log,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /api/data", h.handleData)
	h.mux.HandleFunc("POST /api/update", h.handleUpdate)
	h.mux.HandleFunc("POST /api/push", h.handlePush)
	h.mux.HandleFunc("POST /api/columns", h.handleColumns)
	h.mux.HandleFunc("POST /api/cache/clear", h.handleCacheClear)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"code", domain.CodeOf(err),
			"error", err,
		)
	}
	WriteError(w, r, err)
}

// WriteError writes err in the standard envelope. Errors that are not
// domain errors are reported as internal server errors without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	message := err.Error()
	if code == "" {
		code = domain.ErrInternalServer.Code
		message = domain.ErrInternalServer.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(StatusOf(err))
	_ = json.NewEncoder(w).Encode(NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message, nil))
}

// StatusOf maps an error to its HTTP status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrUnknownWorkbook), errors.Is(err, domain.ErrSheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindStateMismatch:
		return http.StatusConflict
	case domain.KindRemoteStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v. Unknown fields are
// rejected so typos in field names surface as 400s.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.ErrBadRequest.WithDetailsf("request body exceeds %d bytes", maxErr.Limit)
		}
		return domain.ErrBadRequest.WithDetailsf("invalid request body: %v", err)
	}
	return nil
}
