package service

import (
	"context"
	"time"
)

// GridStore is the remote tabular store, addressed with A1 ranges.
//
// Read results are row-major text grids. Trailing empty cells and rows may
// be omitted by the store, so callers treat short rows as blank-padded.
type GridStore interface {
	// ReadRange reads one range.
	ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error)

	// BatchRead reads several ranges in one round trip, in request order.
	BatchRead(ctx context.Context, spreadsheetID string, ranges []string) ([][][]string, error)

	// BatchWrite writes several ranges in one round trip. Values are stored
	// raw, without formula or number parsing of strings.
	BatchWrite(ctx context.Context, spreadsheetID string, writes []RangeWrite) error

	// AppendRows inserts rows after the last non-empty row of rng and
	// returns the A1 range the store actually used.
	AppendRows(ctx context.Context, spreadsheetID, rng string, values [][]any) (string, error)

	// SheetMetadata returns the sheet's numeric id and its formatted header row.
	SheetMetadata(ctx context.Context, spreadsheetID, sheet string) (*SheetMetadata, error)

	// StructuralUpdate applies ops atomically, in order.
	StructuralUpdate(ctx context.Context, spreadsheetID string, ops []StructuralOp) error
}

// RangeWrite is one range of a BatchWrite. Values are string or integer.
type RangeWrite struct {
	Range  string
	Values [][]any
}

// SheetMetadata describes one sheet.
type SheetMetadata struct {
	SheetID int64
	Title   string
	Header  []string
}

// StructuralOp is a grid-shape or single-cell operation addressed by sheet
// id. It is either InsertColumnOp or SetCellOp.
type StructuralOp interface {
	structuralOp()
}

// InsertColumnOp inserts one empty column before the 0-based Index.
type InsertColumnOp struct {
	SheetID int64
	Index   int
}

func (InsertColumnOp) structuralOp() {}

// SetCellOp sets the value of the cell at 1-based Row and Col.
type SetCellOp struct {
	SheetID int64
	Row     int
	Col     int
	Value   any
}

func (SetCellOp) structuralOp() {}

// Lease is a store handle bound to one credential for one request.
type Lease struct {
	Store GridStore
	// Identity is the index of the credential that signs the calls.
	Identity int
	// Cached is true when the authenticated client was reused.
	Cached bool
}

// TokenUsed renders Cached as reported to API clients.
func (l Lease) TokenUsed() string {
	if l.Cached {
		return "cached"
	}
	return "new"
}

// Source hands out per-request store leases.
type Source interface {
	Acquire(ctx context.Context) (Lease, error)
}

// Cache is the process-local TTL cache used for last_col and window entries.
type Cache interface {
	Get(key string, maxAge time.Duration) (any, bool)
	Set(key string, value any)
	Invalidate(key string)
	InvalidatePrefix(prefix string) int
	InvalidateAll()
}

// StaticSource always leases the same store. Used by the memory backend.
type StaticSource struct {
	Store GridStore
}

// Acquire implements Source.
func (s StaticSource) Acquire(context.Context) (Lease, error) {
	return Lease{Store: s.Store, Cached: true}, nil
}
