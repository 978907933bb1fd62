package service

import (
	"context"
	"sort"

	"github.com/yndnr/sheetsync-go/internal/core/address"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
)

// UpdateRequest is a batch of proposed cell writes for one sheet.
type UpdateRequest struct {
	Workbook string
	Sheet    string
	Updates  []domain.Update
}

// UpdateResult reports which updates were written.
type UpdateResult struct {
	Accepted  int               `json:"accepted"`
	Conflicts []domain.Conflict `json:"conflicts"`
	// Outcomes holds one entry per update, in request order.
	Outcomes  []domain.Outcome `json:"-"`
	TokenUsed string           `json:"token_used"`
}

// plannedUpdate is a validated update with its resolved address.
type plannedUpdate struct {
	update  domain.Update
	cell    string
	payload string
}

// ApplyUpdates writes the updates whose version checks pass and reports
// the rest as conflicts.
//
// An update is accepted when value.a == ExpectedVersion+1 and the stored
// version equals ExpectedVersion. Updates to the same cell are evaluated in
// order, each against the version left by the previous accepted one.
// Accepted cells and one column A timestamp per row, the row's maximum
// last_modified, go out in a single batch write.
func (e *Engine) ApplyUpdates(ctx context.Context, req UpdateRequest) (result *UpdateResult, err error) {
	start := e.now()
	defer func() { e.track("apply_updates", start, err) }()

	ref, err := e.resolve(req.Workbook, req.Sheet)
	if err != nil {
		return nil, err
	}
	plan, err := planUpdates(ref.sheet, req.Updates)
	if err != nil {
		return nil, err
	}

	result = &UpdateResult{
		Conflicts: []domain.Conflict{},
		Outcomes:  make([]domain.Outcome, 0, len(plan)),
	}
	if len(plan) == 0 {
		return result, nil
	}

	lease, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	result.TokenUsed = lease.TokenUsed()

	current, err := readCells(ctx, lease.Store, ref, plan)
	if err != nil {
		return nil, err
	}

	// Accepted payloads per cell in first-seen order; a later accepted
	// update to the same cell replaces the earlier payload.
	var cellOrder []string
	cellPayload := make(map[string]string)
	rowStamp := make(map[int]int64)

	for _, p := range plan {
		u := p.update
		state := current[p.cell]

		if u.Value.A != u.ExpectedVersion+1 {
			c := domain.Conflict{Update: u, Reason: domain.ReasonPayloadVersionMismatch}
			result.Conflicts = append(result.Conflicts, c)
			result.Outcomes = append(result.Outcomes, c)
			e.observer.UpdateOutcome(string(c.Reason))
			continue
		}
		if state.Version != u.ExpectedVersion {
			c := domain.Conflict{
				Update:         u,
				Reason:         domain.ReasonStaleExpectedVersion,
				CurrentVersion: state.Version,
				CurrentValue:   state.Value,
			}
			result.Conflicts = append(result.Conflicts, c)
			result.Outcomes = append(result.Outcomes, c)
			e.observer.UpdateOutcome(string(c.Reason))
			continue
		}

		if _, seen := cellPayload[p.cell]; !seen {
			cellOrder = append(cellOrder, p.cell)
		}
		cellPayload[p.cell] = p.payload
		current[p.cell] = domain.CellState{Version: u.Value.A, Value: u.Value.V, Raw: p.payload}
		if ts, ok := rowStamp[u.Row]; !ok || u.LastModified > ts {
			rowStamp[u.Row] = u.LastModified
		}

		result.Accepted++
		result.Outcomes = append(result.Outcomes, domain.Accepted{Update: u})
		e.observer.UpdateOutcome("accepted")
	}

	if result.Accepted == 0 {
		return result, nil
	}

	writes := make([]RangeWrite, 0, len(cellOrder)+len(rowStamp))
	for _, cell := range cellOrder {
		writes = append(writes, RangeWrite{Range: cell, Values: [][]any{{cellPayload[cell]}}})
	}
	rows := make([]int, 0, len(rowStamp))
	for row := range rowStamp {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	for _, row := range rows {
		writes = append(writes, RangeWrite{
			Range:  address.Cell(ref.sheet, 1, row),
			Values: [][]any{{rowStamp[row]}},
		})
	}

	if err := lease.Store.BatchWrite(ctx, ref.spreadsheetID, writes); err != nil {
		return nil, remoteErr("write updates", err)
	}
	e.invalidate(ref, EntryData)

	e.logger.InfoContext(ctx, "updates applied",
		"workbook", ref.workbook,
		"sheet", ref.sheet,
		"accepted", result.Accepted,
		"conflicts", len(result.Conflicts))
	return result, nil
}

// planUpdates validates every update before any remote call.
func planUpdates(sheet string, updates []domain.Update) ([]plannedUpdate, error) {
	plan := make([]plannedUpdate, 0, len(updates))
	for i, u := range updates {
		if u.Row < 2 {
			return nil, domain.ErrInvalidArgument.WithDetailsf("updates[%d]: dbrow %d must be >= 2", i, u.Row)
		}
		col, err := address.ColumnIndex(u.Column)
		if err != nil {
			return nil, domain.ErrInvalidColumn.WithDetailsf("updates[%d]: dbcol %q", i, u.Column)
		}
		if col == 1 {
			return nil, domain.ErrInvalidColumn.WithDetailsf("updates[%d]: column A holds last_modified", i)
		}
		if u.ExpectedVersion < 0 {
			return nil, domain.ErrInvalidArgument.WithDetailsf("updates[%d]: expected_version must not be negative", i)
		}
		payload, err := u.Value.Encode()
		if err != nil {
			return nil, domain.ErrInvalidArgument.WithDetailsf("updates[%d]: value.v is not valid JSON", i)
		}
		plan = append(plan, plannedUpdate{
			update:  u,
			cell:    address.Cell(sheet, col, u.Row),
			payload: payload,
		})
	}
	return plan, nil
}

// readCells fetches the stored state of every distinct target cell in one
// batch read.
func readCells(ctx context.Context, store GridStore, ref sheetRef, plan []plannedUpdate) (map[string]domain.CellState, error) {
	var ranges []string
	seen := make(map[string]bool, len(plan))
	for _, p := range plan {
		if !seen[p.cell] {
			seen[p.cell] = true
			ranges = append(ranges, p.cell)
		}
	}

	grids, err := store.BatchRead(ctx, ref.spreadsheetID, ranges)
	if err != nil {
		return nil, remoteErr("read cells", err)
	}
	if len(grids) != len(ranges) {
		return nil, domain.ErrMalformedRemoteData.WithDetailsf("batch read returned %d ranges, want %d", len(grids), len(ranges))
	}

	states := make(map[string]domain.CellState, len(ranges))
	for i, rng := range ranges {
		var raw string
		if g := grids[i]; len(g) > 0 && len(g[0]) > 0 {
			raw = g[0][0]
		}
		states[rng] = domain.DecodeCell(raw)
	}
	return states, nil
}
