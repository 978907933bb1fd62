package localserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// idleTimeout closes connections that send nothing for this long.
const idleTimeout = 30 * time.Second

// Reply is one line written back to the client.
type Reply struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Server is the local management server.
type Server struct {
	path    string
	handler *Handler
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	running  atomic.Bool
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server for socketPath.
func New(socketPath string, h *Handler, opts ...Option) *Server {
	s := &Server{
		path:    socketPath,
		handler: h,
		logger:  slog.Default(),
		conns:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen creates the socket. A stale socket left by a crashed process is
// replaced; any other file at the path is an error.
func (s *Server) Listen() error {
	if fi, err := os.Lstat(s.path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return errors.New("admin socket path exists and is not a socket: " + s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return err
		}
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = ln.Close()
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.running.Store(true)
	return nil
}

// Serve accepts connections until Shutdown. Listen must have succeeded.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("localserver: Serve called before Listen")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConnection(conn)
		}()
	}
}

// ListenAndServe calls Listen then Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops accepting connections, closes open ones and waits for
// their goroutines, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	s.mu.Lock()
	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
		s.listener = nil
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if errors.Is(closeErr, net.ErrClosed) {
			return nil
		}
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		reply := s.execute(fields[0], fields[1:])
		if err := enc.Encode(reply); err != nil {
			return
		}
	}
}

func (s *Server) execute(cmd string, args []string) Reply {
	data, err := s.handler.Execute(cmd, args)
	if err != nil {
		s.logger.Warn("admin command failed", "command", cmd, "error", err)
		return Reply{Error: err.Error()}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Reply{Error: err.Error()}
	}
	s.logger.Info("admin command", "command", cmd)
	return Reply{OK: true, Data: raw}
}
