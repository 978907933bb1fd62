package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownLevel is returned for a level name outside debug, info, warn
// and error.
var ErrUnknownLevel = errors.New("logger: unknown level")

// Logger is the application logger. Packages that take a *slog.Logger get
// it from Slog; the context-aware handler chain is shared either way.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

// Config selects the level, the output format ("json" or "text") and the
// destination. A nil Output writes to stderr.
type Config struct {
	Level     string
	Format    string
	Output    io.Writer
	AddSource bool
}

var level = new(slog.LevelVar)

type slogLogger struct {
	*slog.Logger
}

func (l slogLogger) With(args ...any) Logger { return slogLogger{l.Logger.With(args...)} }

func (l slogLogger) Slog() *slog.Logger { return l.Logger }

// New builds a logger and sets the process level to cfg.Level. An empty
// level means info and an empty format means json.
func New(cfg Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	level.Set(lvl)
	return slogLogger{slog.New(contextHandler{h})}, nil
}

// SetDefault installs l as the slog default, so code that logs through
// slog.Default shares the handler chain.
func SetDefault(l Logger) {
	slog.SetDefault(l.Slog())
}

// ParseLevel maps a level name to its slog level. "warning" is accepted as
// an alias and the empty string means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w %q", ErrUnknownLevel, name)
}

// SetLevel changes the process level. The previous level is kept when
// name is not a known level.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// GetLevel returns the process level in lower case.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}
