package transcript

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Non-printable control characters; tabs and newlines are kept.
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText turns any dataset value into retrieval-friendly text.
// It strips control characters, converts CRLF and CR to LF, collapses runs
// of spaces and tabs, limits blank lines to one and trims the result.
func NormalizeText(value any) string {
	if value == nil {
		return ""
	}

	var text string
	switch v := value.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		text = fmt.Sprint(v)
	}

	text = controlChars.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// NormalizeMetadataValue keeps scalars as they are and flattens anything
// else to normalised text, so every metadata value is filterable.
func NormalizeMetadataValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool, int, int32, int64, float32, float64:
		return v
	default:
		return NormalizeText(v)
	}
}
