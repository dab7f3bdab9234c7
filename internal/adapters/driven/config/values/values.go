// Package values coerces raw configuration values. TOML decodes integers
// as int64 and the environment supplies strings, so every ConfigStore reads
// through the same conversions.
package values

import (
	"strconv"
	"strings"
)

// Typed derives the typed getters of driven.ConfigStore from Lookup.
type Typed struct {
	Lookup func(key string) (any, bool)
}

// GetString returns the value as a string, or "".
func (t Typed) GetString(key string) string {
	v, _ := t.Lookup(key)
	return String(v)
}

// GetInt returns the value as an int, or 0.
func (t Typed) GetInt(key string) int {
	v, _ := t.Lookup(key)
	return Int(v)
}

// GetBool returns the value as a bool, or false.
func (t Typed) GetBool(key string) bool {
	v, _ := t.Lookup(key)
	return Bool(v)
}

// GetStringSlice returns the value as a string slice, or nil.
func (t Typed) GetStringSlice(key string) []string {
	v, _ := t.Lookup(key)
	return StringSlice(v)
}

// String accepts strings and byte slices.
func String(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return ""
}

// Int accepts Go and TOML integers, floats and numeric strings.
func Int(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case int32:
		return int(x)
	case float64:
		return int(x)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	}
	return 0
}

// Bool accepts bools and strconv.ParseBool strings.
func Bool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	}
	return false
}

// StringSlice accepts []string, TOML arrays and comma separated strings.
func StringSlice(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(x, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}
