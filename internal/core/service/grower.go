package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yndnr/sheetsync-go/internal/core/address"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
)

// systemColumns is the width of the per-row system block written on append:
// last_modified, a blank placeholder and the row type.
const systemColumns = 3

// AppendRequest is a batch of new records for one sheet.
type AppendRequest struct {
	Workbook string
	Sheet    string
	Records  []domain.Record
}

// AppendedRow reports where one record landed.
type AppendedRow struct {
	Row   int `json:"row"`
	Cells int `json:"cells"`
}

// AppendResult reports the rows assigned by the store.
type AppendResult struct {
	FirstRow  int           `json:"first_row"`
	Rows      []AppendedRow `json:"rows"`
	TokenUsed string        `json:"token_used"`
}

// ColumnRequest asks for one new data column.
type ColumnRequest struct {
	Workbook     string
	Sheet        string
	Name         string
	Metadata     json.RawMessage
	LastModified int64
}

// ColumnResult reports the inserted column.
type ColumnResult struct {
	Success     bool   `json:"success"`
	Column      string `json:"column"`
	ColumnIndex int    `json:"column_index"`
	TokenUsed   string `json:"token_used"`
}

type appendCell struct {
	col     int
	payload string
}

// AppendRows appends records after the last non-empty row, then writes each
// record's sparse cells at version 1 into the rows the store assigned.
//
// The assigned rows come from the store's append response, not from a
// prior read. A row count different from the request is logged and the
// cells are still addressed from the assigned start row.
func (e *Engine) AppendRows(ctx context.Context, req AppendRequest) (result *AppendResult, err error) {
	start := e.now()
	defer func() { e.track("append_rows", start, err) }()

	ref, err := e.resolve(req.Workbook, req.Sheet)
	if err != nil {
		return nil, err
	}
	if len(req.Records) == 0 {
		return nil, domain.ErrEmptyBatch.WithDetails("entries must not be empty")
	}

	values := make([][]any, len(req.Records))
	cells := make([][]appendCell, len(req.Records))
	for i, rec := range req.Records {
		if rec.LastModified < 0 {
			return nil, domain.ErrInvalidArgument.WithDetailsf("entries[%d]: last_modified must not be negative", i)
		}
		typ := rec.RowType()
		if !domain.ValidRowType(typ) {
			return nil, domain.ErrInvalidArgument.WithDetailsf("entries[%d]: unknown row type %q", i, rec.Type)
		}
		values[i] = []any{rec.LastModified, "", typ}

		for j, c := range rec.Cells {
			col, err := address.ColumnIndex(c.Column)
			if err != nil {
				return nil, domain.ErrInvalidColumn.WithDetailsf("entries[%d].cells[%d]: column %q", i, j, c.Column)
			}
			if col <= systemColumns {
				return nil, domain.ErrInvalidColumn.WithDetailsf("entries[%d].cells[%d]: column %s is a system column", i, j, c.Column)
			}
			payload, err := domain.CellPayload{A: 1, V: c.Value}.Encode()
			if err != nil {
				return nil, domain.ErrInvalidArgument.WithDetailsf("entries[%d].cells[%d]: value is not valid JSON", i, j)
			}
			cells[i] = append(cells[i], appendCell{col: col, payload: payload})
		}
	}

	lease, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	assigned, err := lease.Store.AppendRows(ctx, ref.spreadsheetID, address.OpenRange(ref.sheet, 1, 1, systemColumns), values)
	if err != nil {
		return nil, remoteErr("append rows", err)
	}
	e.invalidate(ref, EntryData, EntryLastCol)

	grid, err := address.ParseRange(assigned)
	if err != nil || grid.StartRow < 1 {
		return nil, domain.ErrMalformedRemoteData.WithDetailsf("unparseable assigned range %q", assigned)
	}
	if got := grid.Rows(); got != len(req.Records) {
		e.logger.WarnContext(ctx, "append row count mismatch",
			"workbook", ref.workbook,
			"sheet", ref.sheet,
			"requested", len(req.Records),
			"assigned", got,
			"range", assigned)
	}

	result = &AppendResult{
		FirstRow:  grid.StartRow,
		Rows:      make([]AppendedRow, len(req.Records)),
		TokenUsed: lease.TokenUsed(),
	}
	var writes []RangeWrite
	for i := range req.Records {
		row := grid.StartRow + i
		result.Rows[i] = AppendedRow{Row: row, Cells: len(cells[i])}
		for _, c := range cells[i] {
			writes = append(writes, RangeWrite{
				Range:  address.Cell(ref.sheet, c.col, row),
				Values: [][]any{{c.payload}},
			})
		}
	}

	if len(writes) > 0 {
		if err := lease.Store.BatchWrite(ctx, ref.spreadsheetID, writes); err != nil {
			return nil, remoteErr("write appended cells", err)
		}
	}
	e.observer.RowsAppended(len(req.Records))

	e.logger.InfoContext(ctx, "rows appended",
		"workbook", ref.workbook,
		"sheet", ref.sheet,
		"first_row", grid.StartRow,
		"rows", len(req.Records),
		"cells", len(writes))
	return result, nil
}

// InsertColumn adds one data column at the live header boundary.
//
// The boundary is read fresh from the sheet metadata, never from cache. One
// structural batch inserts the column, writes its header cell and stamps A1
// with LastModified.
func (e *Engine) InsertColumn(ctx context.Context, req ColumnRequest) (result *ColumnResult, err error) {
	start := e.now()
	defer func() { e.track("insert_column", start, err) }()

	ref, err := e.resolve(req.Workbook, req.Sheet)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrMissingArgument.WithDetails("name is required")
	}
	if req.LastModified < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("last_modified must not be negative")
	}
	header, err := columnHeader(req.Name, req.Metadata)
	if err != nil {
		return nil, err
	}

	lease, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	meta, err := lease.Store.SheetMetadata(ctx, ref.spreadsheetID, ref.sheet)
	if err != nil {
		return nil, remoteErr("read sheet metadata", err)
	}
	lastCol := headerBoundary(meta.Header)
	if lastCol == 0 {
		return nil, domain.ErrMalformedRemoteData.WithDetailsf("sheet %q has no header row", ref.sheet)
	}

	newCol := lastCol + 1
	ops := []StructuralOp{
		InsertColumnOp{SheetID: meta.SheetID, Index: lastCol},
		SetCellOp{SheetID: meta.SheetID, Row: 1, Col: newCol, Value: header},
		SetCellOp{SheetID: meta.SheetID, Row: 1, Col: 1, Value: req.LastModified},
	}
	if err := lease.Store.StructuralUpdate(ctx, ref.spreadsheetID, ops); err != nil {
		return nil, remoteErr("insert column", err)
	}
	e.invalidate(ref, EntryData, EntryLastCol)

	label := address.ColumnLabel(newCol)
	e.logger.InfoContext(ctx, "column inserted",
		"workbook", ref.workbook,
		"sheet", ref.sheet,
		"column", label,
		"name", req.Name)
	return &ColumnResult{
		Success:     true,
		Column:      label,
		ColumnIndex: newCol,
		TokenUsed:   lease.TokenUsed(),
	}, nil
}

// columnHeader renders the header cell: the bare name, or a JSON object
// carrying the name and its metadata.
func columnHeader(name string, meta json.RawMessage) (string, error) {
	if len(strings.TrimSpace(string(meta))) == 0 || string(meta) == "null" {
		return name, nil
	}
	if !json.Valid(meta) {
		return "", domain.ErrInvalidArgument.WithDetails("metadata is not valid JSON")
	}
	b, err := json.Marshal(struct {
		Name string          `json:"name"`
		Meta json.RawMessage `json:"meta"`
	}{name, meta})
	if err != nil {
		return "", domain.ErrInvalidArgument.Wrap(err)
	}
	return string(b), nil
}
