package domain

import "encoding/json"

// Row type markers stored in column C.
const (
	RowTypeData = "d"
	RowTypeView = "view"
)

// CellValue is one sparse cell of an appended record.
type CellValue struct {
	Column string          `json:"column"`
	Value  json.RawMessage `json:"value"`
}

// Record is a new logical row to append.
type Record struct {
	LastModified int64       `json:"last_modified"`
	Type         string      `json:"type,omitempty"`
	Cells        []CellValue `json:"cells,omitempty"`
}

// RowType returns the record's type marker, defaulting to a data row.
func (r Record) RowType() string {
	if r.Type == "" {
		return RowTypeData
	}
	return r.Type
}

// ValidRowType reports whether t is a known row type marker.
func ValidRowType(t string) bool {
	return t == RowTypeData || t == RowTypeView
}
