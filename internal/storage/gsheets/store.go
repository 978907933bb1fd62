package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/yndnr/sheetsync-go/internal/core/address"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
)

const (
	valueInputRaw       = "RAW"
	valueRenderRaw      = "UNFORMATTED_VALUE"
	insertDataInsertRow = "INSERT_ROWS"
	dimensionColumns    = "COLUMNS"

	metadataFields = "sheets(properties(sheetId,title),data(rowData(values(formattedValue))))"
)

// Store is a GridStore backed by one authenticated Sheets service.
type Store struct {
	svc *sheets.Service
}

var _ service.GridStore = (*Store)(nil)

// New wraps an authenticated Sheets service.
func New(svc *sheets.Service) *Store {
	return &Store{svc: svc}
}

// ReadRange implements service.GridStore.
func (s *Store) ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption(valueRenderRaw).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError("values.get", err)
	}
	return toGrid(resp.Values), nil
}

// BatchRead implements service.GridStore.
func (s *Store) BatchRead(ctx context.Context, spreadsheetID string, ranges []string) ([][][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption(valueRenderRaw).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError("values.batchGet", err)
	}
	if len(resp.ValueRanges) != len(ranges) {
		return nil, domain.ErrMalformedRemoteData.WithDetailsf("batchGet returned %d ranges, want %d", len(resp.ValueRanges), len(ranges))
	}
	out := make([][][]string, len(resp.ValueRanges))
	for i, vr := range resp.ValueRanges {
		out[i] = toGrid(vr.Values)
	}
	return out, nil
}

// BatchWrite implements service.GridStore.
func (s *Store) BatchWrite(ctx context.Context, spreadsheetID string, writes []service.RangeWrite) error {
	data := make([]*sheets.ValueRange, len(writes))
	for i, w := range writes {
		data[i] = &sheets.ValueRange{Range: w.Range, Values: toValues(w.Values)}
	}
	_, err := s.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputRaw,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return mapError("values.batchUpdate", err)
	}
	return nil
}

// AppendRows implements service.GridStore.
func (s *Store) AppendRows(ctx context.Context, spreadsheetID, rng string, values [][]any) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: toValues(values)}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertDataInsertRow).
		Context(ctx).
		Do()
	if err != nil {
		return "", mapError("values.append", err)
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return "", domain.ErrMalformedRemoteData.WithDetails("append response has no updated range")
	}
	return resp.Updates.UpdatedRange, nil
}

// SheetMetadata implements service.GridStore. The header cells are the
// formatted values of row 1.
func (s *Store) SheetMetadata(ctx context.Context, spreadsheetID, sheet string) (*service.SheetMetadata, error) {
	resp, err := s.svc.Spreadsheets.Get(spreadsheetID).
		Ranges(address.RowRange(sheet, 1)).
		IncludeGridData(true).
		Fields(metadataFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError("spreadsheets.get", err)
	}

	for _, sh := range resp.Sheets {
		if sh.Properties == nil || sh.Properties.Title != sheet {
			continue
		}
		meta := &service.SheetMetadata{SheetID: sh.Properties.SheetId, Title: sh.Properties.Title}
		if len(sh.Data) > 0 && len(sh.Data[0].RowData) > 0 {
			for _, cell := range sh.Data[0].RowData[0].Values {
				meta.Header = append(meta.Header, cell.FormattedValue)
			}
		}
		return meta, nil
	}
	return nil, domain.ErrSheetNotFound.WithDetailsf("sheet %q", sheet)
}

// StructuralUpdate implements service.GridStore.
func (s *Store) StructuralUpdate(ctx context.Context, spreadsheetID string, ops []service.StructuralOp) error {
	reqs := make([]*sheets.Request, 0, len(ops))
	for _, op := range ops {
		req, err := toRequest(op)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	_, err := s.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return mapError("spreadsheets.batchUpdate", err)
	}
	return nil
}

func toRequest(op service.StructuralOp) (*sheets.Request, error) {
	switch o := op.(type) {
	case service.InsertColumnOp:
		return &sheets.Request{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         o.SheetID,
					Dimension:       dimensionColumns,
					StartIndex:      int64(o.Index),
					EndIndex:        int64(o.Index + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
				InheritFromBefore: o.Index > 0,
			},
		}, nil

	case service.SetCellOp:
		return &sheets.Request{
			UpdateCells: &sheets.UpdateCellsRequest{
				Start: &sheets.GridCoordinate{
					SheetId:         o.SheetID,
					RowIndex:        int64(o.Row - 1),
					ColumnIndex:     int64(o.Col - 1),
					ForceSendFields: []string{"SheetId", "RowIndex", "ColumnIndex"},
				},
				Rows: []*sheets.RowData{{
					Values: []*sheets.CellData{{UserEnteredValue: extendedValue(o.Value)}},
				}},
				Fields: "userEnteredValue",
			},
		}, nil

	default:
		return nil, domain.ErrInvalidArgument.WithDetailsf("unsupported structural op %T", op)
	}
}

func extendedValue(v any) *sheets.ExtendedValue {
	switch x := v.(type) {
	case int:
		f := float64(x)
		return &sheets.ExtendedValue{NumberValue: &f}
	case int64:
		f := float64(x)
		return &sheets.ExtendedValue{NumberValue: &f}
	case float64:
		return &sheets.ExtendedValue{NumberValue: &x}
	case string:
		return &sheets.ExtendedValue{StringValue: &x}
	default:
		s := fmt.Sprint(x)
		return &sheets.ExtendedValue{StringValue: &s}
	}
}

// toGrid renders API values as text. Whole numbers print without exponent
// so 13-digit millisecond timestamps survive the float64 round trip.
func toGrid(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellText(v)
		}
		out[i] = cells
	}
	return out
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
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

func toValues(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = append([]any(nil), row...)
	}
	return out
}

// mapError classifies a Sheets API failure. A missing spreadsheet or an
// unparseable range naming a missing sheet maps to ErrSheetNotFound.
func mapError(call string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return domain.ErrSheetNotFound.WithDetailsf("%s: %s", call, gerr.Message).WithCause(err)
		case http.StatusBadRequest:
			if isRangeError(gerr.Message) {
				return domain.ErrSheetNotFound.WithDetailsf("%s: %s", call, gerr.Message).WithCause(err)
			}
		}
		return domain.ErrRemoteStore.WithDetailsf("%s: %d %s", call, gerr.Code, gerr.Message).WithCause(err)
	}
	return domain.ErrRemoteStore.WithDetailsf("%s: %v", call, err).WithCause(err)
}

func isRangeError(msg string) bool {
	return strings.HasPrefix(msg, "Unable to parse range")
}
