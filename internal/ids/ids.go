// Package ids derives stable, content-addressed identifiers for documents
// and chunks. The same parts always produce the same id on every platform,
// so re-indexing overwrites vectors instead of duplicating them.
package ids

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 16

// Common prefixes.
const (
	PrefixDoc   = "doc"
	PrefixChunk = "chunk"
)

// BuildID returns prefix + "_" + the truncated sha256 of the canonical
// serialisation of parts.
func BuildID(prefix string, parts ...any) string {
	return prefix + "_" + StableHash(parts, HashLength)
}

// ChunkID returns the identifier of chunk index of a document.
// An empty docID is recorded as "unknown".
func ChunkID(docID, strategy string, index int, text string) string {
	if docID == "" {
		docID = "unknown"
	}
	return BuildID(PrefixChunk, docID, strategy, index, text)
}

// StableHash returns the first length hex characters of the sha256 of the
// canonical encoding of payload. A length outside (0, 64] keeps the full digest.
func StableHash(payload any, length int) string {
	sum := sha256.Sum256([]byte(Canonical(payload)))
	digest := hex.EncodeToString(sum[:])
	if length <= 0 || length > len(digest) {
		return digest
	}
	return digest[:length]
}

// Canonical serialises v as ASCII-only JSON with sorted object keys,
// ", " between items and ": " after keys. Values that are not JSON
// types are encoded as their fmt string form.
func Canonical(v any) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		writeString(b, t)
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case int:
		b.WriteString(strconv.Itoa(t))
	case int32:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
	case float32:
		writeFloat(b, float64(t))
	case float64:
		writeFloat(b, t)
	case []any:
		writeList(b, t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		writeList(b, items)
	case map[string]any:
		writeMap(b, t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		writeMap(b, m)
	case fmt.Stringer:
		writeString(b, t.String())
	default:
		writeString(b, fmt.Sprint(t))
	}
}

func writeList(b *strings.Builder, items []any) {
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeValue(b, item)
	}
	b.WriteByte(']')
}

func writeMap(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		writeString(b, k)
		b.WriteString(": ")
		writeValue(b, m[k])
	}
	b.WriteByte('}')
}

// writeFloat keeps a trailing ".0" on integral values.
func writeFloat(b *strings.Builder, f float64) {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	b.WriteString(s)
}

func writeString(b *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	quoted := strings.TrimSuffix(buf.String(), "\n")

	for _, r := range quoted {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r > 0xFFFF:
			r -= 0x10000
			fmt.Fprintf(b, `\u%04x\u%04x`, 0xD800+(r>>10), 0xDC00+(r&0x3FF))
		default:
			fmt.Fprintf(b, `\u%04x`, r)
		}
	}
}
