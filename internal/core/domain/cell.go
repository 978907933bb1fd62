package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CellPayload is the versioned content of a write-guarded data cell.
// It serializes to exactly {"a":<int>,"v":<value>}.
type CellPayload struct {
	A int64           `json:"a"`
	V json.RawMessage `json:"v"`
}

// Encode returns the cell text stored in the grid.
func (p CellPayload) Encode() (string, error) {
	v := p.V
	if len(bytes.TrimSpace(v)) == 0 {
		v = json.RawMessage("null")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"a":`)
	a, err := json.Marshal(p.A)
	if err != nil {
		return "", err
	}
	buf.Write(a)
	buf.WriteString(`,"v":`)
	if err := json.Compact(&buf, v); err != nil {
		return "", ErrInvalidArgument.WithDetails("cell value is not valid JSON")
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// CellState is the decoded server-side view of a cell.
type CellState struct {
	Version int64
	Value   json.RawMessage
	Raw     string
}

// DecodeCell interprets stored cell text. An empty cell is version 0.
// Text that is not a versioned payload is treated as version 0 holding the
// raw text as its value.
func DecodeCell(raw string) CellState {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CellState{}
	}

	var p struct {
		A *int64          `json:"a"`
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil || p.A == nil {
		value, _ := json.Marshal(raw)
		return CellState{Value: value, Raw: raw}
	}
	return CellState{Version: *p.A, Value: p.V, Raw: raw}
}
