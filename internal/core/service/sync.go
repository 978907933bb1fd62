package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/yndnr/sheetsync-go/internal/core/address"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
)

// ChangesRequest asks for the rows changed since a client's last sync.
type ChangesRequest struct {
	Workbook string
	Sheet    string
	// Since is the newest last_modified the client has seen. Zero means never.
	Since int64
}

// ChangesResult is the answer to a ChangesRequest.
//
// Rows are mirrored rows, most recent first. When the request was answered
// from the window, Rows is the whole window including its header row; the
// client filters rows newer than Since itself.
type ChangesResult struct {
	Rows        [][]string `json:"rows"`
	AllSynced   bool       `json:"all_synced"`
	IsFullFetch bool       `json:"is_fullfetch"`
	Truncated   bool       `json:"truncated,omitempty"`

	ColumnsCached bool `json:"colnum_was_cached"`
	DataCached    bool `json:"data_was_cached"`

	LastColumn int    `json:"last_col_number"`
	Latest     int64  `json:"latest"`
	Oldest     int64  `json:"oldest"`
	TokenUsed  string `json:"token_used"`
}

// windowEntry is the cached sync window. LastCol records the boundary it
// was read with, so a window is never reused across a boundary change.
type windowEntry struct {
	LastCol int
	Rows    [][]string
}

// GetChanges answers an incremental sync request.
//
// Decision precedence: Since equal to the latest row returns the anchor row;
// Since newer than the latest row is ErrSyncStateMismatch; Since older than
// the window re-reads the whole mirrored range; anything else returns the
// window unfiltered.
func (e *Engine) GetChanges(ctx context.Context, req ChangesRequest) (result *ChangesResult, err error) {
	start := e.now()
	defer func() { e.track("get_changes", start, err) }()

	ref, err := e.resolve(req.Workbook, req.Sheet)
	if err != nil {
		return nil, err
	}
	if req.Since < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("last_sync must not be negative")
	}

	lease, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	lastCol, colCached, err := e.lastColumn(ctx, lease.Store, ref)
	if err != nil {
		return nil, err
	}
	window, dataCached, err := e.window(ctx, lease.Store, ref, lastCol)
	if err != nil {
		return nil, err
	}
	latest, oldest, err := windowBounds(window)
	if err != nil {
		return nil, err
	}

	result = &ChangesResult{
		ColumnsCached: colCached,
		DataCached:    dataCached,
		LastColumn:    lastCol,
		Latest:        latest,
		Oldest:        oldest,
		TokenUsed:     lease.TokenUsed(),
	}

	switch since := req.Since; {
	case since == latest:
		e.observer.SyncDecision(DecisionAllSynced)
		result.AllSynced = true
		result.Rows = [][]string{}
		if len(window) > 1 {
			result.Rows = [][]string{window[1]}
		}

	case since > latest:
		e.observer.SyncDecision(DecisionMismatch)
		return nil, domain.ErrSyncStateMismatch.WithDetailsf("last_sync %d is newer than latest %d", since, latest)

	case since < oldest:
		e.observer.SyncDecision(DecisionFullFetch)
		rows, truncated, err := e.fullFetch(ctx, lease.Store, ref, lastCol)
		if err != nil {
			return nil, err
		}
		result.IsFullFetch = true
		result.Truncated = truncated
		result.Rows = rows

	default:
		e.observer.SyncDecision(DecisionWindow)
		result.Rows = window
	}

	return result, nil
}

// lastColumn resolves the header boundary, from cache when fresh.
func (e *Engine) lastColumn(ctx context.Context, store GridStore, ref sheetRef) (int, bool, error) {
	if v, ok := e.cache.Get(ref.key(EntryLastCol), e.cfg.CacheMaxAge); ok {
		if n, ok := v.(int); ok {
			e.observer.CacheLookup(EntryLastCol, true)
			return n, true, nil
		}
	}
	e.observer.CacheLookup(EntryLastCol, false)

	rows, err := store.ReadRange(ctx, ref.spreadsheetID, address.RowRange(ref.sheet, 1))
	if err != nil {
		return 0, false, remoteErr("read header", err)
	}
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	n := headerBoundary(header)
	e.cache.Set(ref.key(EntryLastCol), n)
	return n, false, nil
}

// window resolves the top rows of the mirrored range, from cache when fresh
// and read with the same boundary.
func (e *Engine) window(ctx context.Context, store GridStore, ref sheetRef, lastCol int) ([][]string, bool, error) {
	if v, ok := e.cache.Get(ref.key(EntryData), e.cfg.CacheMaxAge); ok {
		if w, ok := v.(windowEntry); ok && w.LastCol == lastCol {
			e.observer.CacheLookup(EntryData, true)
			return w.Rows, true, nil
		}
	}
	e.observer.CacheLookup(EntryData, false)

	var rows [][]string
	if lastCol > 0 {
		start, end := address.MirrorRange(lastCol)
		rng := address.Range(ref.sheet, start, 1, end, e.cfg.WindowRows)
		var err error
		rows, err = store.ReadRange(ctx, ref.spreadsheetID, rng)
		if err != nil {
			return nil, false, remoteErr("read window", err)
		}
	}
	if rows == nil {
		rows = [][]string{}
	}
	e.cache.Set(ref.key(EntryData), windowEntry{LastCol: lastCol, Rows: rows})
	return rows, false, nil
}

// fullFetch reads the whole mirrored range. The result is not cached.
func (e *Engine) fullFetch(ctx context.Context, store GridStore, ref sheetRef, lastCol int) ([][]string, bool, error) {
	if lastCol == 0 {
		return [][]string{}, false, nil
	}
	start, end := address.MirrorRange(lastCol)

	rng := address.OpenRange(ref.sheet, start, 1, end)
	limit := e.cfg.FullFetchMaxRows
	if limit > 0 {
		rng = address.Range(ref.sheet, start, 1, end, limit)
	}

	begin := e.now()
	rows, err := store.ReadRange(ctx, ref.spreadsheetID, rng)
	if err != nil {
		return nil, false, remoteErr("full fetch", err)
	}
	if rows == nil {
		rows = [][]string{}
	}
	truncated := limit > 0 && len(rows) >= limit
	e.logger.InfoContext(ctx, "full fetch",
		"workbook", ref.workbook,
		"sheet", ref.sheet,
		"rows", len(rows),
		"truncated", truncated,
		"duration", e.now().Sub(begin))
	return rows, truncated, nil
}

// windowBounds returns the timestamps of the first and last data rows.
// A window without data rows yields (0, 0).
func windowBounds(window [][]string) (latest, oldest int64, err error) {
	if len(window) < 2 {
		return 0, 0, nil
	}
	if latest, err = rowTimestamp(window[1], 2); err != nil {
		return 0, 0, err
	}
	if oldest, err = rowTimestamp(window[len(window)-1], len(window)); err != nil {
		return 0, 0, err
	}
	return latest, oldest, nil
}

func rowTimestamp(row []string, rowNum int) (int64, error) {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return 0, domain.ErrMalformedRemoteData.WithDetailsf("window row %d: last_modified %q is not an integer", rowNum, row[0])
	}
	return ts, nil
}
