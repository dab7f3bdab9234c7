// Package vecmath holds the similarity and encoding helpers shared by the
// local vector index backends.
package vecmath

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Cosine returns the cosine similarity of a and b. Zero vectors and
// vectors of different lengths score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MatchesFilter reports whether every filter key equals the metadata value.
func MatchesFilter(meta map[string]any, filter map[string]string) bool {
	for k, v := range filter {
		if domain.MetaString(meta, k) != v {
			return false
		}
	}
	return true
}

// CheckDimension returns ErrDimensionMismatch when got differs from want.
// A want of 0 means the dimension is not yet known.
func CheckDimension(namespace string, want, got int) error {
	if want != 0 && want != got {
		return fmt.Errorf("%w: namespace %s has dimension %d, got %d",
			domain.ErrDimensionMismatch, namespace, want, got)
	}
	return nil
}

// Rank sorts matches by descending score, then by id, and keeps topK.
func Rank(matches []driven.VectorMatch, topK int) []driven.VectorMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Encode converts a []float32 to little-endian bytes for storage.
func Encode(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode converts bytes written by Encode back to []float32.
func Decode(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
