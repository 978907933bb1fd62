package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	if NewPool().CertPool() == nil {
		t.Fatal("CertPool() returned nil")
	}
	if NewEmptyPool().Added() != 0 {
		t.Error("empty pool should report no added certs")
	}
}

func TestAddPEM(t *testing.T) {
	pool := NewEmptyPool()
	if err := pool.AddPEM(testCAPEM(t)); err != nil {
		t.Fatalf("AddPEM() error = %v", err)
	}
	if pool.Added() != 1 {
		t.Errorf("Added() = %d, want 1", pool.Added())
	}
}

func TestAddPEM_Multiple(t *testing.T) {
	pool := NewEmptyPool()
	data := append(testCAPEM(t), testCAPEM(t)...)
	if err := pool.AddPEM(data); err != nil {
		t.Fatalf("AddPEM() error = %v", err)
	}
	if pool.Added() != 2 {
		t.Errorf("Added() = %d, want 2", pool.Added())
	}
}

func TestAddPEM_NoCerts(t *testing.T) {
	tests := map[string][]byte{
		"empty":    {},
		"garbage":  []byte("not pem"),
		"key only": pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1}}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if err := NewEmptyPool().AddPEM(data); !errors.Is(err, ErrNoCertsFound) {
				t.Errorf("AddPEM() error = %v, want ErrNoCertsFound", err)
			}
		})
	}
}

func TestAddPEM_InvalidCert(t *testing.T) {
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("junk")})
	err := NewEmptyPool().AddPEM(data)
	if err == nil || errors.Is(err, ErrNoCertsFound) {
		t.Errorf("AddPEM() error = %v, want parse error", err)
	}
}

func TestAddFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, testCAPEM(t), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewEmptyPool().AddFile(path); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}
	if err := NewEmptyPool().AddFile(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("AddFile() expected error for missing file")
	}
}

func TestLoadClientConfig_Empty(t *testing.T) {
	cfg, err := LoadClientConfig("")
	if err != nil || cfg != nil {
		t.Errorf("LoadClientConfig(\"\") = %v, %v; want nil, nil", cfg, err)
	}
}

func TestLoadClientConfig_TrustsPrivateCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(caFile, caPEM, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := HTTPClient(nil, 5*time.Second).Get(srv.URL); err == nil {
		t.Fatal("default roots should reject the test server")
	}

	cfg, err := LoadClientConfig(caFile)
	if err != nil {
		t.Fatalf("LoadClientConfig() error = %v", err)
	}
	resp, err := HTTPClient(cfg, 5*time.Second).Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() with CA file error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}

// testCAPEM generates a self-signed CA certificate in PEM format.
func testCAPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	serial, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "sheetsync test ca"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
