package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yndnr/sheetsync-go/internal/infra/confloader"
)

// Watcher serves a certificate/key pair and reloads it when either file
// changes. A failed reload keeps the previous pair.
type Watcher struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	cert  atomic.Pointer[tls.Certificate]
	files *confloader.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// WithDebounce sets how long the watcher waits for writes to settle. Cert
// and key are usually written back to back.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher loads the pair once and starts watching both files. Run
// applies changes.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	files, err := confloader.NewWatcher([]string{certFile, keyFile},
		func(string) { w.reloadLogged() },
		confloader.WithDebounce(w.debounce),
		confloader.WithWatcherLogger(w.logger))
	if err != nil {
		return nil, fmt.Errorf("tlsroots: %w", err)
	}
	w.files = files
	return w, nil
}

// Run reloads the pair on change until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("certificate watcher started", "cert_file", w.certFile)
	w.files.Run(ctx)
}

// Close ends the watch. It is safe to call more than once.
func (w *Watcher) Close() error {
	return w.files.Close()
}

// GetCertificate implements tls.Config.GetCertificate.
func (w *Watcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return w.cert.Load(), nil
}

// ServerConfig returns a server TLS config that always presents the
// current pair.
func (w *Watcher) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: w.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

func (w *Watcher) reloadLogged() {
	if err := w.reload(); err != nil {
		w.logger.Error("certificate reload failed, keeping previous pair",
			"error", err,
			"cert_file", w.certFile,
			"key_file", w.keyFile)
		return
	}
	w.logger.Info("certificate reloaded", "cert_file", w.certFile)
}

func (w *Watcher) reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	w.cert.Store(&cert)
	return nil
}
