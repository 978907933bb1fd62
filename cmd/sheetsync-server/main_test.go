package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/server/config"
	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_FileThenOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http:
    addr: 127.0.0.1:4000
store:
  backend: memory
workbooks:
  dev: book-1
sync:
  window_rows: 50
`)

	cfg, err := loadConfig(path, map[string]any{"server.http.addr": "127.0.0.1:5000"})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:5000" {
		t.Errorf("addr = %q, want flag override", cfg.Server.HTTP.Addr)
	}
	if cfg.Sync.WindowRows != 50 {
		t.Errorf("window_rows = %d, want 50", cfg.Sync.WindowRows)
	}
	if cfg.Sync.CacheMaxAge != config.DefaultCacheMaxAge {
		t.Errorf("cache_max_age = %v, want default", cfg.Sync.CacheMaxAge)
	}
	if cfg.Workbooks["dev"] != "book-1" {
		t.Errorf("workbooks = %v", cfg.Workbooks)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := writeFile(t, "config.yaml", `
store:
  backend: memory
`)
	if _, err := loadConfig(path, nil); err == nil {
		t.Fatal("expected error for config without workbooks")
	}
}

func TestInitSource_MemorySeed(t *testing.T) {
	seed := writeFile(t, "seed.yaml", `
book-1:
  Sheet1:
    - [last_modified, id, type]
    - [300, 1, d]
`)
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	cfg.Store.SeedFile = seed

	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	src, identities, err := initSource(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("initSource() error = %v", err)
	}
	if identities != 0 {
		t.Errorf("identities = %d, want 0", identities)
	}

	lease, err := src.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	rows, err := lease.Store.ReadRange(context.Background(), "book-1", "Sheet1!A2")
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "300" {
		t.Errorf("A2 = %v, want 300", rows)
	}
	if _, ok := src.(service.StaticSource); !ok {
		t.Errorf("source = %T, want StaticSource", src)
	}
}

func TestInitSource_SheetsNeedsPEM(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials = []config.CredentialConfig{{ClientEmail: "svc@example.com", PrivateKey: "not-pem"}}

	log, _ := logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard})
	src, identities, err := initSource(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("initSource() error = %v", err)
	}
	if identities != 1 {
		t.Errorf("identities = %d, want 1", identities)
	}
	if _, err := src.Acquire(context.Background()); err == nil {
		t.Error("expected Acquire to fail for a non-PEM key")
	}
}

func TestInitSource_BadCAFile(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials = []config.CredentialConfig{{ClientEmail: "svc@example.com", PrivateKey: "not-pem"}}
	cfg.Store.CAFile = writeFile(t, "ca.pem", "no certificates here")

	log, _ := logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard})
	if _, _, err := initSource(context.Background(), cfg, log); err == nil {
		t.Fatal("expected an error for a CA file without certificates")
	}
}
