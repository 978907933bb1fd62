package domain

import (
	"encoding/json"
	"testing"
)

func TestCellPayload_Encode(t *testing.T) {
	tests := []struct {
		name    string
		payload CellPayload
		want    string
	}{
		{"string value", CellPayload{A: 3, V: json.RawMessage(`"hello"`)}, `{"a":3,"v":"hello"}`},
		{"object value compacted", CellPayload{A: 1, V: json.RawMessage(`{ "x" : 1 }`)}, `{"a":1,"v":{"x":1}}`},
		{"missing value", CellPayload{A: 2}, `{"a":2,"v":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.payload.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCellPayload_EncodeInvalidJSON(t *testing.T) {
	_, err := CellPayload{A: 1, V: json.RawMessage(`{broken`)}.Encode()
	if KindOf(err) != KindValidation {
		t.Errorf("Encode() error = %v, want validation error", err)
	}
}

func TestDecodeCell(t *testing.T) {
	tests := []struct {
		raw         string
		wantVersion int64
		wantValue   string
	}{
		{"", 0, ""},
		{"   ", 0, ""},
		{`{"a":4,"v":"x"}`, 4, `"x"`},
		{`{"v":"no version"}`, 0, `"{\"v\":\"no version\"}"`},
		{"plain text", 0, `"plain text"`},
	}

	for _, tt := range tests {
		got := DecodeCell(tt.raw)
		if got.Version != tt.wantVersion {
			t.Errorf("DecodeCell(%q).Version = %d, want %d", tt.raw, got.Version, tt.wantVersion)
		}
		if string(got.Value) != tt.wantValue {
			t.Errorf("DecodeCell(%q).Value = %s, want %s", tt.raw, got.Value, tt.wantValue)
		}
	}
}

func TestConflict_WireNames(t *testing.T) {
	c := Conflict{
		Update:         Update{Row: 4, Column: "H", Value: CellPayload{A: 2, V: json.RawMessage(`"x"`)}, ExpectedVersion: 1},
		Reason:         ReasonStaleExpectedVersion,
		CurrentVersion: 3,
		CurrentValue:   json.RawMessage(`"y"`),
	}
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got struct {
		Update struct {
			Row    int    `json:"dbrow"`
			Column string `json:"dbcol"`
		} `json:"update"`
		Reason         string `json:"reason"`
		CurrentVersion int64  `json:"current_version"`
		CurrentValue   string `json:"current_value"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Update.Row != 4 || got.Update.Column != "H" || got.Reason != "stale-expected-version" ||
		got.CurrentVersion != 3 || got.CurrentValue != "y" {
		t.Errorf("encoded = %s", raw)
	}
}
