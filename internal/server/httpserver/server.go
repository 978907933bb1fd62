package httpserver

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// ServerOption configures a Server.
type ServerOption func(*http.Server)

// WithTLSConfig serves HTTPS with cfg. With cfg.GetCertificate set,
// ListenAndServeTLS may be called with empty file names.
func WithTLSConfig(cfg *tls.Config) ServerOption {
	return func(s *http.Server) {
		s.TLSConfig = cfg
	}
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, opts ...ServerOption) *Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return &Server{httpServer: srv, handler: handler}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// ListenAndServeTLS starts the HTTPS server.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// ServeTLS accepts TLS connections on ln using the configured TLS config.
func (s *Server) ServeTLS(ln net.Listener) error {
	return s.httpServer.ServeTLS(ln, "", "")
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
