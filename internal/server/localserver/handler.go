package localserver

import (
	"errors"
	"fmt"

	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
)

// ErrUnknownCommand is returned for a command the handler does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Status is the reply to the status command.
type Status struct {
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Backend      string `json:"backend"`
	Workbooks    int    `json:"workbooks"`
	Identities   int    `json:"identities"`
	CacheEntries int    `json:"cache_entries"`
	LogLevel     string `json:"log_level"`
	Draining     bool   `json:"draining"`
}

// Invalidator drops cached entries. *service.Engine satisfies it.
type Invalidator interface {
	InvalidateAll()
	InvalidateWorkbook(workbook string) (int, error)
}

// Handler executes local management commands.
type Handler struct {
	cache  Invalidator
	status func() Status
}

// NewHandler creates a Handler. status is called on every status command.
func NewHandler(cache Invalidator, status func() Status) *Handler {
	return &Handler{cache: cache, status: status}
}

// Execute runs cmd and returns the value to encode as the reply data.
func (h *Handler) Execute(cmd string, args []string) (any, error) {
	switch cmd {
	case "status":
		st := h.status()
		st.LogLevel = logger.GetLevel()
		return st, nil

	case "cache-clear":
		if len(args) > 0 {
			n, err := h.cache.InvalidateWorkbook(args[0])
			if err != nil {
				return nil, err
			}
			return map[string]any{"cleared": true, "workbook": args[0], "entries": n}, nil
		}
		h.cache.InvalidateAll()
		return map[string]bool{"cleared": true}, nil

	case "log-level":
		if len(args) > 0 {
			if err := logger.SetLevel(args[0]); err != nil {
				return nil, err
			}
		}
		return map[string]string{"level": logger.GetLevel()}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}
