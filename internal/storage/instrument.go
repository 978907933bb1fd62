package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/sheetsync-go/internal/core/service"
)

// RemoteObserver receives remote call and lease events.
type RemoteObserver interface {
	RemoteCall(op string, d time.Duration, err error)
	LeaseAcquired(cached bool)
}

// Instrument reports every remote call of src to obs and logs it at debug
// level.
func Instrument(src service.Source, obs RemoteObserver, logger *slog.Logger) service.Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &wrappedSource{
		inner: src,
		around: func(ctx context.Context, op string, call func() error) error {
			start := time.Now()
			err := call()
			d := time.Since(start)
			obs.RemoteCall(op, d, err)
			if err != nil {
				logger.DebugContext(ctx, "remote call failed", "op", op, "duration", d, "error", err)
			} else {
				logger.DebugContext(ctx, "remote call", "op", op, "duration", d)
			}
			return err
		},
		onLease: func(l service.Lease) {
			obs.LeaseAcquired(l.Cached)
		},
	}
}
