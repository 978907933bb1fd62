package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/sheetsync-go/internal/server/httpserver/handler"
)

// MetricsExporter serves the Prometheus exposition and records requests.
type MetricsExporter interface {
	RequestObserver
	Handler() http.Handler
}

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Sync serves the /api routes.
	Sync handler.SyncService

	// Logger for request logging.
	Logger *slog.Logger

	// PrivateToken guards /api routes. Empty disables the guard.
	PrivateToken string

	// Metrics is optional. When set, /metrics is served and requests are counted.
	Metrics MetricsExporter

	// Ready backs GET /ready.
	Ready handler.ReadyFunc

	// Version is reported by GET /health.
	Version string

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// RateLimit is the per-IP rate limit in requests/second (0 = unlimited).
	RateLimit float64

	// MaxBodyBytes caps request bodies on /api routes.
	MaxBodyBytes int64
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
//
// Order for /api routes: Recover -> RequestID -> CORS -> RateLimit -> Audit -> RequireToken -> MaxBytes -> Handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var opts []handler.Option
	if cfg.Ready != nil {
		opts = append(opts, handler.WithReadyCheck(cfg.Ready))
	}
	if cfg.Version != "" {
		opts = append(opts, handler.WithVersion(cfg.Version))
	}
	h := handler.New(cfg.Sync, log, opts...)

	var obs RequestObserver
	if cfg.Metrics != nil {
		obs = cfg.Metrics
	}

	open := func(route string, next http.Handler) http.Handler {
		return Chain(next,
			Recover(log),
			RequestID(),
			Audit(log, obs, route),
		)
	}
	api := func(route string) http.Handler {
		return Chain(h,
			Recover(log),
			RequestID(),
			CORS(cfg.CORSAllowedOrigins),
			RateLimit(cfg.RateLimit),
			Audit(log, obs, route),
			RequireToken(cfg.PrivateToken),
			MaxBytes(cfg.MaxBodyBytes),
		)
	}

	mux := http.NewServeMux()

	// Health endpoints - no authentication required
	mux.Handle("GET /health", open("health", h))
	mux.Handle("GET /ready", open("ready", h))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", open("metrics", cfg.Metrics.Handler()))
	}

	mux.Handle("GET /api/data", api("data"))
	mux.Handle("POST /api/update", api("update"))
	mux.Handle("POST /api/push", api("push"))
	mux.Handle("POST /api/columns", api("columns"))
	mux.Handle("POST /api/cache/clear", api("cache_clear"))

	// Preflight for any /api path, answered by CORS before the token guard.
	mux.Handle("OPTIONS /api/", api("preflight"))

	return mux
}
