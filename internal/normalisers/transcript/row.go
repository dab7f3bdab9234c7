package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeRow decodes one JSON object. Integral numbers become int64 and
// other numbers float64, so ids keep their integer form when hashed.
func DecodeRow(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return FixNumbers(row), nil
}

// FixNumbers replaces json.Number values in row, recursing into nested
// objects and arrays.
func FixNumbers(row map[string]any) map[string]any {
	for k, v := range row {
		row[k] = fixValue(v)
	}
	return row
}

func fixValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		return FixNumbers(t)
	case []any:
		for i := range t {
			t[i] = fixValue(t[i])
		}
		return t
	default:
		return v
	}
}
