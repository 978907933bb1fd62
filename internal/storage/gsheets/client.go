package gsheets

import (
	"context"
	"encoding/pem"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/infra/credpool"
)

// NormalizeKey turns escaped newlines, as found in environment variables,
// into real ones.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// NewClientFactory returns a credpool factory that signs Sheets API calls
// with a service-account JWT. The key must be a PEM block; it is checked
// here so a broken identity fails on first use instead of mid-request.
func NewClientFactory(ctx context.Context, opts ...option.ClientOption) credpool.Factory[*sheets.Service] {
	return func(id credpool.Identity) (*sheets.Service, error) {
		key := NormalizeKey(id.PrivateKey)
		if block, _ := pem.Decode([]byte(key)); block == nil {
			return nil, domain.ErrInvalidCredential.WithDetailsf("private_key for %s is not PEM encoded", id.ClientEmail)
		}

		cfg := &jwt.Config{
			Email:      id.ClientEmail,
			PrivateKey: []byte(key),
			Scopes:     []string{sheets.SpreadsheetsScope},
			TokenURL:   google.JWTTokenURL,
		}
		all := append([]option.ClientOption{option.WithHTTPClient(cfg.Client(ctx))}, opts...)
		svc, err := sheets.NewService(ctx, all...)
		if err != nil {
			return nil, domain.ErrInvalidCredential.Wrap(err)
		}
		return svc, nil
	}
}

// Source leases a Store bound to the next identity of a credential pool.
type Source struct {
	pool *credpool.Pool[*sheets.Service]
}

// NewSource creates a Source over pool.
func NewSource(pool *credpool.Pool[*sheets.Service]) *Source {
	return &Source{pool: pool}
}

// Acquire implements service.Source.
func (s *Source) Acquire(context.Context) (service.Lease, error) {
	lease, err := s.pool.Next()
	if err != nil {
		return service.Lease{}, err
	}
	return service.Lease{
		Store:    New(lease.Client),
		Identity: lease.Index,
		Cached:   lease.Cached,
	}, nil
}
