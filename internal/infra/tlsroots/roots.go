package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ErrNoCertsFound is returned when PEM data holds no certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// Pool is a set of trusted roots: the system pool plus added CAs.
type Pool struct {
	certs *x509.CertPool
	added int
}

// NewPool creates a pool seeded with the system roots. Platforms without a
// readable system pool start empty.
func NewPool() *Pool {
	certs, err := x509.SystemCertPool()
	if err != nil {
		certs = x509.NewCertPool()
	}
	return &Pool{certs: certs}
}

// NewEmptyPool creates a pool that trusts only what is added to it.
func NewEmptyPool() *Pool {
	return &Pool{certs: x509.NewCertPool()}
}

// AddPEM adds every CERTIFICATE block in data. Other block types are
// skipped.
func (p *Pool) AddPEM(data []byte) error {
	n := 0
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certs.AddCert(cert)
		n++
	}
	if n == 0 {
		return ErrNoCertsFound
	}
	p.added += n
	return nil
}

// AddFile adds the certificates of a PEM file.
func (p *Pool) AddFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	if err := p.AddPEM(data); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}
	return nil
}

// Added reports how many certificates were added beyond the seed.
func (p *Pool) Added() int {
	return p.added
}

// CertPool returns the underlying x509.CertPool.
func (p *Pool) CertPool() *x509.CertPool {
	return p.certs
}

// ClientConfig returns a client TLS config trusting the pool.
func (p *Pool) ClientConfig() *tls.Config {
	return &tls.Config{
		RootCAs:    p.certs,
		MinVersion: tls.VersionTLS12,
	}
}

// LoadClientConfig trusts the system roots plus caFile. An empty caFile
// returns nil so callers keep Go's defaults.
func LoadClientConfig(caFile string) (*tls.Config, error) {
	if caFile == "" {
		return nil, nil
	}
	p := NewPool()
	if err := p.AddFile(caFile); err != nil {
		return nil, err
	}
	return p.ClientConfig(), nil
}

// HTTPClient returns a client using cfg on a clone of the default
// transport. A nil cfg keeps the default TLS settings.
func HTTPClient(cfg *tls.Config, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg != nil {
		transport.TLSClientConfig = cfg
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
