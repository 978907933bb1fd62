package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/yndnr/sheetsync-go/internal/core/address"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
)

// Call records one store invocation.
type Call struct {
	Op     string
	Ranges []string
}

// Store operation names used in the call log and with FailNext.
const (
	OpReadRange        = "read_range"
	OpBatchRead        = "batch_read"
	OpBatchWrite       = "batch_write"
	OpAppendRows       = "append_rows"
	OpSheetMetadata    = "sheet_metadata"
	OpStructuralUpdate = "structural_update"
)

type sheet struct {
	id    int64
	title string
	cells [][]string
}

// Store is an in-memory service.GridStore.
//
// It mirrors the remote store closely enough for local development: reads
// drop trailing blank cells and rows, appends land after the last non-empty
// row and every call is recorded for inspection.
type Store struct {
	mu          sync.RWMutex
	books       map[string]map[string]*sheet
	nextSheetID int64

	calls       []Call
	failures    map[string]error
	appendRange string
}

var _ service.GridStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		books:       make(map[string]map[string]*sheet),
		failures:    make(map[string]error),
		nextSheetID: 1,
	}
}

// AddSheet creates or replaces a sheet with the given rows and returns its id.
func (s *Store) AddSheet(spreadsheetID, title string, rows [][]string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[spreadsheetID]
	if !ok {
		book = make(map[string]*sheet)
		s.books[spreadsheetID] = book
	}
	sh := &sheet{id: s.nextSheetID, title: title, cells: cloneGrid(rows)}
	s.nextSheetID++
	book[title] = sh
	return sh.id
}

// Rows returns a copy of a sheet's cells.
func (s *Store) Rows(spreadsheetID, title string) [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sh, ok := s.books[spreadsheetID][title]; ok {
		return cloneGrid(sh.cells)
	}
	return nil
}

// Value returns the text of one cell, or "" when absent.
func (s *Store) Value(spreadsheetID, title string, col, row int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sh, ok := s.books[spreadsheetID][title]; ok {
		return sh.get(row, col)
	}
	return ""
}

// Calls returns the recorded calls in order.
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many calls of op were recorded.
func (s *Store) CallCount(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// FailNext makes the next call of op return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// OverrideAppendRange makes the next AppendRows report rng as the assigned
// range instead of the range actually written.
func (s *Store) OverrideAppendRange(rng string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendRange = rng
}

// record logs a call and returns an injected failure, if any. Callers hold mu.
func (s *Store) record(op string, ranges ...string) error {
	s.calls = append(s.calls, Call{Op: op, Ranges: ranges})
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// ReadRange implements service.GridStore.
func (s *Store) ReadRange(_ context.Context, spreadsheetID, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpReadRange, rng); err != nil {
		return nil, err
	}
	return s.read(spreadsheetID, rng)
}

// BatchRead implements service.GridStore.
func (s *Store) BatchRead(_ context.Context, spreadsheetID string, ranges []string) ([][][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpBatchRead, ranges...); err != nil {
		return nil, err
	}
	out := make([][][]string, len(ranges))
	for i, rng := range ranges {
		grid, err := s.read(spreadsheetID, rng)
		if err != nil {
			return nil, err
		}
		out[i] = grid
	}
	return out, nil
}

// BatchWrite implements service.GridStore. All ranges are validated before
// any cell changes.
func (s *Store) BatchWrite(_ context.Context, spreadsheetID string, writes []service.RangeWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranges := make([]string, len(writes))
	for i, w := range writes {
		ranges[i] = w.Range
	}
	if err := s.record(OpBatchWrite, ranges...); err != nil {
		return err
	}

	type target struct {
		sh   *sheet
		grid address.GridRange
	}
	targets := make([]target, len(writes))
	for i, w := range writes {
		sh, grid, err := s.lookup(spreadsheetID, w.Range)
		if err != nil {
			return err
		}
		if grid.StartCol == 0 {
			return domain.ErrInvalidArgument.WithDetailsf("write range %q has no start column", w.Range)
		}
		targets[i] = target{sh: sh, grid: grid}
	}

	for i, w := range writes {
		t := targets[i]
		for r, row := range w.Values {
			for c, v := range row {
				t.sh.set(t.grid.StartRow+r, t.grid.StartCol+c, formatValue(v))
			}
		}
	}
	return nil
}

// AppendRows implements service.GridStore. Rows land after the last row
// holding any non-blank cell in the range's columns.
func (s *Store) AppendRows(_ context.Context, spreadsheetID, rng string, values [][]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpAppendRows, rng); err != nil {
		return "", err
	}
	sh, grid, err := s.lookup(spreadsheetID, rng)
	if err != nil {
		return "", err
	}
	startCol := max(grid.StartCol, 1)
	endCol := grid.EndCol
	if endCol == 0 {
		endCol = startCol
	}

	first := sh.lastRowIn(startCol, endCol) + 1
	width := 1
	for i, row := range values {
		width = max(width, len(row))
		for j, v := range row {
			sh.set(first+i, startCol+j, formatValue(v))
		}
	}

	assigned := address.Range(sh.title, startCol, first, startCol+width-1, first+len(values)-1)
	if s.appendRange != "" {
		assigned, s.appendRange = s.appendRange, ""
	}
	return assigned, nil
}

// SheetMetadata implements service.GridStore.
func (s *Store) SheetMetadata(_ context.Context, spreadsheetID, title string) (*service.SheetMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpSheetMetadata, title); err != nil {
		return nil, err
	}
	sh, err := s.sheet(spreadsheetID, title)
	if err != nil {
		return nil, err
	}
	var header []string
	if len(sh.cells) > 0 {
		header = append(header, sh.cells[0]...)
	}
	return &service.SheetMetadata{SheetID: sh.id, Title: sh.title, Header: header}, nil
}

// StructuralUpdate implements service.GridStore. Ops apply in order; an
// unknown sheet id rejects the whole batch.
func (s *Store) StructuralUpdate(_ context.Context, spreadsheetID string, ops []service.StructuralOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpStructuralUpdate); err != nil {
		return err
	}

	byID := make(map[int64]*sheet)
	for _, sh := range s.books[spreadsheetID] {
		byID[sh.id] = sh
	}
	for _, op := range ops {
		var id int64
		switch o := op.(type) {
		case service.InsertColumnOp:
			id = o.SheetID
		case service.SetCellOp:
			id = o.SheetID
			if o.Row < 1 || o.Col < 1 {
				return domain.ErrInvalidArgument.WithDetailsf("cell (%d,%d) out of range", o.Col, o.Row)
			}
		default:
			return domain.ErrInvalidArgument.WithDetailsf("unsupported structural op %T", op)
		}
		if _, ok := byID[id]; !ok {
			return domain.ErrSheetNotFound.WithDetailsf("sheet id %d", id)
		}
	}

	for _, op := range ops {
		switch o := op.(type) {
		case service.InsertColumnOp:
			byID[o.SheetID].insertColumn(o.Index)
		case service.SetCellOp:
			byID[o.SheetID].set(o.Row, o.Col, formatValue(o.Value))
		}
	}
	return nil
}

// read returns the cells of rng with trailing blanks dropped. Callers hold mu.
func (s *Store) read(spreadsheetID, rng string) ([][]string, error) {
	sh, g, err := s.lookup(spreadsheetID, rng)
	if err != nil {
		return nil, err
	}

	startRow, endRow := g.StartRow, g.EndRow
	startCol, endCol := g.StartCol, g.EndCol
	switch {
	case startCol == 0: // whole rows
		startCol, endCol = 1, sh.width()
	case endCol == 0 && endRow == 0: // single cell
		endCol, endRow = startCol, startRow
	}
	if endRow == 0 || endRow > len(sh.cells) {
		endRow = len(sh.cells)
	}

	var out [][]string
	for r := startRow; r <= endRow; r++ {
		var row []string
		for c := startCol; c <= endCol; c++ {
			row = append(row, sh.get(r, c))
		}
		out = append(out, trimRow(row))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// lookup parses rng and finds its sheet. Callers hold mu.
func (s *Store) lookup(spreadsheetID, rng string) (*sheet, address.GridRange, error) {
	g, err := address.ParseRange(rng)
	if err != nil {
		return nil, g, err
	}
	sh, err := s.sheet(spreadsheetID, g.Sheet)
	if err != nil {
		return nil, g, err
	}
	return sh, g, nil
}

func (s *Store) sheet(spreadsheetID, title string) (*sheet, error) {
	book, ok := s.books[spreadsheetID]
	if !ok {
		return nil, domain.ErrSheetNotFound.WithDetailsf("spreadsheet %q", spreadsheetID)
	}
	sh, ok := book[title]
	if !ok {
		return nil, domain.ErrSheetNotFound.WithDetailsf("sheet %q", title)
	}
	return sh, nil
}

func (sh *sheet) get(row, col int) string {
	if row < 1 || row > len(sh.cells) {
		return ""
	}
	r := sh.cells[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

func (sh *sheet) set(row, col int, v string) {
	for len(sh.cells) < row {
		sh.cells = append(sh.cells, nil)
	}
	r := sh.cells[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = v
	sh.cells[row-1] = r
}

// insertColumn shifts cells at 0-based index and right by one column.
func (sh *sheet) insertColumn(index int) {
	for i, r := range sh.cells {
		if index >= len(r) {
			continue
		}
		r = append(r, "")
		copy(r[index+1:], r[index:])
		r[index] = ""
		sh.cells[i] = r
	}
}

func (sh *sheet) width() int {
	w := 0
	for _, r := range sh.cells {
		w = max(w, len(r))
	}
	return w
}

// lastRowIn returns the last row with a non-blank cell in [startCol, endCol].
func (sh *sheet) lastRowIn(startCol, endCol int) int {
	for r := len(sh.cells); r >= 1; r-- {
		for c := startCol; c <= endCol; c++ {
			if sh.get(r, c) != "" {
				return r
			}
		}
	}
	return 0
}

func trimRow(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	if n == 0 {
		return []string{}
	}
	return row[:n]
}

func cloneGrid(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// formatValue renders a written value the way the remote store displays it.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}
