package localserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
)

type countingCache struct{ n atomic.Int32 }

func (c *countingCache) InvalidateAll() { c.n.Add(1) }

func (c *countingCache) InvalidateWorkbook(workbook string) (int, error) {
	if workbook != "dev" {
		return 0, errors.New("unknown workbook")
	}
	c.n.Add(1)
	return 2, nil
}

func newHandler(cache *countingCache) *Handler {
	return NewHandler(cache, func() Status {
		return Status{Version: "test", Backend: "memory", Workbooks: 2, CacheEntries: 5}
	})
}

func TestHandler_Execute(t *testing.T) {
	t.Cleanup(func() { logger.SetLevel("info") })
	cache := &countingCache{}
	h := newHandler(cache)

	got, err := h.Execute("status", nil)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	st := got.(Status)
	if st.Version != "test" || st.CacheEntries != 5 || st.LogLevel == "" {
		t.Errorf("status = %+v", st)
	}

	if _, err := h.Execute("cache-clear", nil); err != nil || cache.n.Load() != 1 {
		t.Errorf("cache-clear err = %v, calls = %d", err, cache.n.Load())
	}

	got, err = h.Execute("log-level", []string{"DEBUG"})
	if err != nil || got.(map[string]string)["level"] != "debug" || logger.GetLevel() != "debug" {
		t.Errorf("log-level = %v, %v (global %s)", got, err, logger.GetLevel())
	}
	if _, err := h.Execute("log-level", []string{"loud"}); err == nil {
		t.Error("invalid level should fail")
	}

	if _, err := h.Execute("reboot", nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown command error = %v", err)
	}
}

// socketPath returns a short path; sun_path is limited to about 100 bytes.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ssadm")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "admin.sock")
}

func startServer(t *testing.T, h *Handler, path string) *Server {
	t.Helper()
	srv := New(path, h, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	})
	return srv
}

func TestServer_Call(t *testing.T) {
	cache := &countingCache{}
	srv := startServer(t, newHandler(cache), socketPath(t))

	fi, err := os.Stat(srv.Path())
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("socket mode = %v, want 0600", fi.Mode().Perm())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := Call(ctx, srv.Path(), "status")
	if err != nil {
		t.Fatalf("Call(status) error = %v", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatal(err)
	}
	if st.Backend != "memory" || st.Workbooks != 2 {
		t.Errorf("status = %+v", st)
	}

	if _, err := Call(ctx, srv.Path(), "cache-clear"); err != nil || cache.n.Load() != 1 {
		t.Errorf("cache-clear err = %v, calls = %d", err, cache.n.Load())
	}

	_, err = Call(ctx, srv.Path(), "reboot", "now")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unknown command error = %v", err)
	}
}

func TestServer_ReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)

	first := New(path, newHandler(&countingCache{}))
	if err := first.Listen(); err != nil {
		t.Fatal(err)
	}
	// Simulate a crash: the socket file stays behind after the fd is gone.
	first.listener.(interface{ SetUnlinkOnClose(bool) }).SetUnlinkOnClose(false)
	_ = first.listener.Close()
	if _, err := os.Lstat(path); err != nil {
		t.Fatalf("stale socket missing: %v", err)
	}

	srv := startServer(t, newHandler(&countingCache{}), path)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Call(ctx, srv.Path(), "status"); err != nil {
		t.Errorf("Call() after replacing stale socket: %v", err)
	}
}

func TestServer_RefusesRegularFile(t *testing.T) {
	path := socketPath(t)
	if err := os.WriteFile(path, []byte("keep me"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := New(path, newHandler(&countingCache{})).Listen(); err == nil {
		t.Fatal("Listen() over a regular file should fail")
	}
	if data, _ := os.ReadFile(path); string(data) != "keep me" {
		t.Error("regular file was modified")
	}
}

func TestServer_ShutdownClosesIdleConnections(t *testing.T) {
	path := socketPath(t)
	srv := New(path, newHandler(&countingCache{}))
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Call(ctx, path, "status"); err != nil {
		t.Fatal(err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Errorf("socket file should be removed, Lstat error = %v", err)
	}
	if _, err := Call(ctx, path, "status"); err == nil {
		t.Error("Call() after Shutdown should fail")
	}
}

func TestServe_BeforeListen(t *testing.T) {
	if err := New(socketPath(t), newHandler(&countingCache{})).Serve(); err == nil {
		t.Error("Serve() before Listen() should fail")
	}
}

func TestHandler_CacheClearWorkbook(t *testing.T) {
	cache := &countingCache{}
	h := newHandler(cache)

	got, err := h.Execute("cache-clear", []string{"dev"})
	if err != nil {
		t.Fatalf("cache-clear dev error = %v", err)
	}
	reply := got.(map[string]any)
	if reply["workbook"] != "dev" || reply["entries"] != 2 || cache.n.Load() != 1 {
		t.Errorf("cache-clear dev = %v, calls = %d", reply, cache.n.Load())
	}

	if _, err := h.Execute("cache-clear", []string{"nope"}); err == nil {
		t.Error("unknown workbook should fail")
	}
}
