package storage

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
)

// Default remote quota.
const (
	DefaultRequestsPerMinute = 300
	DefaultBurst             = 10
)

// Throttle limits remote calls across all leases of src to
// requestsPerMinute, allowing bursts of up to burst calls. Calls wait for a
// token instead of failing; only a done context aborts the wait.
// A non-positive requestsPerMinute disables throttling.
func Throttle(src service.Source, requestsPerMinute, burst int) service.Source {
	if requestsPerMinute <= 0 {
		return src
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), burst)

	return &wrappedSource{
		inner: src,
		around: func(ctx context.Context, op string, call func() error) error {
			if err := limiter.Wait(ctx); err != nil {
				return domain.ErrRemoteStore.WithDetailsf("%s: waiting for quota: %v", op, err).WithCause(err)
			}
			return call()
		},
	}
}
