package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
)

// Config holds engine tuning.
type Config struct {
	// CacheMaxAge is the staleness limit for last_col and window entries.
	CacheMaxAge time.Duration

	// WindowRows is the number of mirrored rows read into the sync window,
	// header included.
	WindowRows int

	// FullFetchMaxRows caps the full-range read. Zero means unlimited.
	FullFetchMaxRows int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		CacheMaxAge: 60 * time.Second,
		WindowRows:  20,
	}
}

// Engine runs sync, write and growth operations against a tabular store.
type Engine struct {
	workbooks *domain.Workbooks
	source    Source
	cache     Cache
	observer  Observer
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the engine tuning. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.CacheMaxAge > 0 {
			e.cfg.CacheMaxAge = cfg.CacheMaxAge
		}
		if cfg.WindowRows > 0 {
			e.cfg.WindowRows = cfg.WindowRows
		}
		if cfg.FullFetchMaxRows > 0 {
			e.cfg.FullFetchMaxRows = cfg.FullFetchMaxRows
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces the wall clock used for operation timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(workbooks *domain.Workbooks, source Source, cache Cache, opts ...Option) *Engine {
	e := &Engine{
		workbooks: workbooks,
		source:    source,
		cache:     cache,
		observer:  nopObserver{},
		logger:    slog.Default(),
		cfg:       DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workbooks returns the workbook registry.
func (e *Engine) Workbooks() *domain.Workbooks {
	return e.workbooks
}

// Config returns the effective tuning.
func (e *Engine) Config() Config {
	return e.cfg
}

// InvalidateAll drops every cached entry.
func (e *Engine) InvalidateAll() {
	e.cache.InvalidateAll()
	e.logger.Info("cache cleared")
}

// InvalidateWorkbook drops the cached entries of every sheet in workbook
// and reports how many were removed.
func (e *Engine) InvalidateWorkbook(workbook string) (int, error) {
	if _, err := e.workbooks.Resolve(workbook); err != nil {
		return 0, err
	}
	n := e.cache.InvalidatePrefix(workbook + "_")
	e.logger.Info("workbook cache cleared", "workbook", workbook, "entries", n)
	return n, nil
}

// sheetRef is a resolved (workbook, sheet) pair.
type sheetRef struct {
	workbook      string
	sheet         string
	spreadsheetID string
}

func (r sheetRef) key(entry string) string {
	return r.workbook + "_" + r.sheet + "_" + entry
}

// resolve validates the pair and maps the alias to its spreadsheet id.
func (e *Engine) resolve(workbook, sheet string) (sheetRef, error) {
	if strings.TrimSpace(sheet) == "" {
		return sheetRef{}, domain.ErrMissingArgument.WithDetails("sheet is required")
	}
	id, err := e.workbooks.Resolve(workbook)
	if err != nil {
		return sheetRef{}, err
	}
	return sheetRef{workbook: workbook, sheet: sheet, spreadsheetID: id}, nil
}

// acquire leases a store for one operation.
func (e *Engine) acquire(ctx context.Context) (Lease, error) {
	lease, err := e.source.Acquire(ctx)
	if err != nil {
		return Lease{}, err
	}
	e.logger.DebugContext(ctx, "store lease", "identity", lease.Identity, "token_used", lease.TokenUsed())
	return lease, nil
}

// track reports an operation to the observer.
func (e *Engine) track(op string, start time.Time, err error) {
	e.observer.Operation(op, e.now().Sub(start), err)
}

// invalidate drops the given entries for ref.
func (e *Engine) invalidate(ref sheetRef, entries ...string) {
	for _, entry := range entries {
		e.cache.Invalidate(ref.key(entry))
	}
}

// headerBoundary returns the number of leading non-blank header cells.
func headerBoundary(header []string) int {
	for i, cell := range header {
		if strings.TrimSpace(cell) == "" {
			return i
		}
	}
	return len(header)
}

// remoteErr wraps a store failure unless it already carries a domain code.
func remoteErr(op string, err error) error {
	if _, ok := domain.AsDomainError(err); ok {
		return err
	}
	return domain.ErrRemoteStore.WithDetailsf("%s: %v", op, err).WithCause(err)
}
