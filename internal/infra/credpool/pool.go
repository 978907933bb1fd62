// Package credpool rotates requests across a set of service-account
// identities.
//
// Each identity is turned into a client at most once; later selections of
// the same identity reuse the memoized client. Which identity serves the
// next request is decided by a Selector so tests can pin the choice.
package credpool

import (
	"strings"
	"sync"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
)

// Identity is one signing identity.
type Identity struct {
	ClientEmail string `koanf:"client_email" json:"client_email"`
	PrivateKey  string `koanf:"private_key" json:"private_key"`
}

// Validate checks that both fields are present.
func (id Identity) Validate() error {
	if strings.TrimSpace(id.ClientEmail) == "" {
		return domain.ErrInvalidCredential.WithDetails("client_email is empty")
	}
	if strings.TrimSpace(id.PrivateKey) == "" {
		return domain.ErrInvalidCredential.WithDetailsf("private_key is empty for %s", id.ClientEmail)
	}
	return nil
}

// Selector picks the index of the identity that serves the next request.
// n is always > 0. Implementations are called under the pool lock.
type Selector interface {
	Select(n int) int
}

// RoundRobin cycles through identities in configuration order.
type RoundRobin struct {
	next int
}

// Select implements Selector.
func (r *RoundRobin) Select(n int) int {
	i := r.next % n
	r.next = (i + 1) % n
	return i
}

// Fixed always picks the same identity. Used in tests.
type Fixed int

// Select implements Selector.
func (f Fixed) Select(n int) int {
	if int(f) < 0 || int(f) >= n {
		return 0
	}
	return int(f)
}

// Factory builds a client for one identity.
type Factory[C any] func(Identity) (C, error)

// Lease is a client handed out for a single request.
type Lease[C any] struct {
	Client C
	Index  int
	// Cached is true when the client was memoized by an earlier request.
	Cached bool
}

// Pool hands out clients built from a fixed identity list.
type Pool[C any] struct {
	mu         sync.Mutex
	identities []Identity
	clients    []*C
	factory    Factory[C]
	selector   Selector
}

// Option configures a Pool.
type Option[C any] func(*Pool[C])

// WithSelector overrides the default round-robin selector.
func WithSelector[C any](s Selector) Option[C] {
	return func(p *Pool[C]) {
		if s != nil {
			p.selector = s
		}
	}
}

// New validates identities and returns a pool. Clients are built lazily.
func New[C any](identities []Identity, factory Factory[C], opts ...Option[C]) (*Pool[C], error) {
	if len(identities) == 0 {
		return nil, domain.ErrEmptyCredentialPool
	}
	for _, id := range identities {
		if err := id.Validate(); err != nil {
			return nil, err
		}
	}

	p := &Pool[C]{
		identities: append([]Identity(nil), identities...),
		clients:    make([]*C, len(identities)),
		factory:    factory,
		selector:   &RoundRobin{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Next selects an identity and returns its client, building it on first use.
// A factory failure is not memoized, so the next selection retries.
func (p *Pool[C]) Next() (Lease[C], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.selector.Select(len(p.identities))
	if c := p.clients[i]; c != nil {
		return Lease[C]{Client: *c, Index: i, Cached: true}, nil
	}

	c, err := p.factory(p.identities[i])
	if err != nil {
		return Lease[C]{Index: i}, domain.ErrInvalidCredential.Wrap(err)
	}
	p.clients[i] = &c
	return Lease[C]{Client: c, Index: i}, nil
}

// Len returns the number of identities.
func (p *Pool[C]) Len() int {
	return len(p.identities)
}

// Emails returns the configured client emails, used for startup logging.
func (p *Pool[C]) Emails() []string {
	out := make([]string, len(p.identities))
	for i, id := range p.identities {
		out[i] = id.ClientEmail
	}
	return out
}
