package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format is a --output value.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Tabler is implemented by results with a table rendering.
type Tabler interface {
	Table() *Table
}

// Write renders data in format. The table format draws *Table and Tabler
// values and prints anything else as JSON; nil prints nothing.
func Write(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, data)
	case FormatYAML:
		return writeYAML(w, data)
	}

	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.Render(w)
	case Tabler:
		return v.Table().Render(w)
	default:
		return writeJSON(w, data)
	}
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// writeYAML goes through JSON first so keys match the wire names. Numbers
// decode as json.Number and become int64 where they fit, so millisecond
// timestamps print as plain integers.
func writeYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlNumbers(generic)); err != nil {
		return err
	}
	return enc.Close()
}

// yamlNumbers replaces every json.Number in v with an int64 or float64.
func yamlNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = yamlNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = yamlNumbers(e)
		}
		return x
	default:
		return v
	}
}
