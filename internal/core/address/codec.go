// Package address converts between grid coordinates and A1 notation.
//
// Columns are 1-based and labeled with bijective base-26 letters
// (A=1 ... Z=26, AA=27 ...). Rows are 1-based.
package address

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
)

// ColumnLabel converts a 1-based column index to its letter label.
// It panics if n <= 0.
func ColumnLabel(n int) string {
	if n <= 0 {
		panic(fmt.Sprintf("address: column index must be positive, got %d", n))
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// ColumnIndex converts a column label back to its 1-based index.
// Labels are case-insensitive.
func ColumnIndex(label string) (int, error) {
	if label == "" {
		return 0, domain.ErrInvalidColumn.WithDetails("empty column label")
	}
	if len(label) > 7 {
		return 0, domain.ErrInvalidColumn.WithDetailsf("column label %q too long", label)
	}
	n := 0
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		default:
			return 0, domain.ErrInvalidColumn.WithDetailsf("column label %q", label)
		}
		n = n*26 + int(c-'A') + 1
	}
	return n, nil
}

// MirrorRange returns the first and last column of the shadow block that
// mirrors lastCol system columns. The block starts one blank column after
// the boundary and has the same width as lastCol.
func MirrorRange(lastCol int) (start, end int) {
	return lastCol + 2, 2*lastCol + 1
}

// QuoteSheet quotes a sheet name for use in A1 notation when needed.
func QuoteSheet(sheet string) string {
	plain := sheet != ""
	for _, r := range sheet {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			plain = false
			break
		}
	}
	if plain && !(sheet[0] >= '0' && sheet[0] <= '9') {
		return sheet
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// Cell returns the A1 reference of a single cell, e.g. Sheet1!C5.
func Cell(sheet string, col, row int) string {
	return QuoteSheet(sheet) + "!" + ColumnLabel(col) + strconv.Itoa(row)
}

// Range returns a bounded rectangular A1 range, e.g. Sheet1!G1:K20.
func Range(sheet string, startCol, startRow, endCol, endRow int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", QuoteSheet(sheet),
		ColumnLabel(startCol), startRow, ColumnLabel(endCol), endRow)
}

// OpenRange returns a range without a row limit, e.g. Sheet1!G1:K.
func OpenRange(sheet string, startCol, startRow, endCol int) string {
	return fmt.Sprintf("%s!%s%d:%s", QuoteSheet(sheet),
		ColumnLabel(startCol), startRow, ColumnLabel(endCol))
}

// RowRange returns a whole-row range, e.g. Sheet1!1:1.
func RowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!%d:%d", QuoteSheet(sheet), row, row)
}

// GridRange is a parsed A1 range. End fields are zero when the range is a
// single cell, and EndRow is zero for open-ended ranges.
type GridRange struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// Rows returns the number of rows covered by a bounded range.
func (g GridRange) Rows() int {
	if g.EndRow == 0 {
		return 1
	}
	return g.EndRow - g.StartRow + 1
}

// ParseRange parses an A1 range such as Sheet1!A10:C12, 'My Sheet'!B2,
// Sheet1!G1:K or Sheet1!1:1.
func ParseRange(a1 string) (GridRange, error) {
	var g GridRange

	sheetPart, cells, ok := cutLast(a1, '!')
	if !ok {
		cells = a1
	} else {
		g.Sheet = unquoteSheet(sheetPart)
	}

	start, end, hasEnd := strings.Cut(cells, ":")
	col, row, err := parseCellRef(start)
	if err != nil {
		return g, err
	}
	g.StartCol, g.StartRow = col, row
	if hasEnd {
		col, row, err = parseCellRef(end)
		if err != nil {
			return g, err
		}
		g.EndCol, g.EndRow = col, row
	}
	return g, nil
}

func cutLast(s string, sep byte) (before, after string, found bool) {
	if i := strings.LastIndexByte(s, sep); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return "", s, false
}

func unquoteSheet(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// parseCellRef parses "C12", "$C$12", a column-only "C" or a row-only "12".
// A zero col or row means the reference spans that whole dimension.
func parseCellRef(ref string) (col, row int, err error) {
	ref = strings.ReplaceAll(ref, "$", "")
	i := 0
	for i < len(ref) && (ref[i] >= 'A' && ref[i] <= 'Z' || ref[i] >= 'a' && ref[i] <= 'z') {
		i++
	}
	if i == 0 {
		row, err = strconv.Atoi(ref)
		if err != nil || row <= 0 {
			return 0, 0, domain.ErrInvalidColumn.WithDetailsf("cell reference %q", ref)
		}
		return 0, row, nil
	}
	col, err = ColumnIndex(ref[:i])
	if err != nil {
		return 0, 0, err
	}
	if i == len(ref) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row <= 0 {
		return 0, 0, domain.ErrInvalidArgument.WithDetailsf("cell reference %q has bad row", ref)
	}
	return col, row, nil
}
