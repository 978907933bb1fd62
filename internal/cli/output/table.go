package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yndnr/sheetsync-go/internal/core/address"
)

// Table is a header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// GridTable lays out sheet rows under column-letter headers starting at
// firstCol (1-based). Short rows are padded to the width of the widest.
func GridTable(rows [][]string, firstCol int) *Table {
	if firstCol < 1 {
		firstCol = 1
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	t := &Table{Headers: make([]string, width)}
	for i := range width {
		t.Headers[i] = address.ColumnLabel(firstCol + i)
	}
	for _, row := range rows {
		cells := make([]string, width)
		copy(cells, row)
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// KeyValueTable renders ordered FIELD/VALUE pairs. pairs alternates
// key, value.
func KeyValueTable(pairs ...any) *Table {
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	for i := 0; i+1 < len(pairs); i += 2 {
		t.AddRow(fmt.Sprint(pairs[i]), formatValue(pairs[i+1]))
	}
	return t
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case json.RawMessage:
		if len(x) == 0 {
			return "-"
		}
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// Render draws the table with aligned columns. Tabs and newlines in cells
// are flattened so they cannot break the layout; a table without headers
// prints rows only.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(t.Headers, "\t")); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = cellReplacer.Replace(c)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

var cellReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", "")

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
