package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

func testDoc(content string) *domain.Document {
	return &domain.Document{
		Content: content,
		Metadata: map[string]any{
			domain.MetaDocID:   "doc_test_001",
			domain.MetaCompany: "DemoCorp",
			domain.MetaSource:  "unit-test",
		},
	}
}

func alternatingTranscript(minLen int) string {
	var b strings.Builder
	for i := 0; b.Len() < minLen; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "Operator: Next question comes from line %d, please go ahead.\n", i)
		} else {
			fmt.Fprintf(&b, "CFO: We expect margins to expand %d basis points next quarter.\n", i)
		}
	}
	return b.String()
}

func TestNewUniform_InvalidParameters(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{0, 0}, {-1, 0}, {100, -1}, {100, 100}, {100, 150},
	}
	for _, c := range cases {
		if _, err := NewUniform(c.size, c.overlap); !errors.Is(err, domain.ErrInvalidParameters) {
			t.Errorf("NewUniform(%d, %d): expected ErrInvalidParameters, got %v", c.size, c.overlap, err)
		}
		if _, err := NewStructureAware(c.size, c.overlap); !errors.Is(err, domain.ErrInvalidParameters) {
			t.Errorf("NewStructureAware(%d, %d): expected ErrInvalidParameters, got %v", c.size, c.overlap, err)
		}
	}
}

func TestUniform_Name(t *testing.T) {
	u, _ := NewUniform(100, 10)
	if u.Name() != "baseline" {
		t.Errorf("expected name 'baseline', got '%s'", u.Name())
	}
	s, _ := NewStructureAware(100, 10)
	if s.Name() != "structure_aware" {
		t.Errorf("expected name 'structure_aware', got '%s'", s.Name())
	}
}

func TestUniform_EmptyContent(t *testing.T) {
	u, _ := NewUniform(100, 20)
	chunks, err := u.Process(context.Background(), testDoc(""), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestUniform_SmallContent(t *testing.T) {
	u, _ := NewUniform(100, 20)
	chunks, err := u.Process(context.Background(), testDoc("short text"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "short text" {
		t.Errorf("unexpected content %q", chunks[0].Content)
	}
	if chunks[0].Section != domain.SectionTranscript {
		t.Errorf("expected section transcript, got %q", chunks[0].Section)
	}
}

func TestUniform_BoundsAndOverlap(t *testing.T) {
	text := alternatingTranscript(2000)
	u, _ := NewUniform(180, 30)

	chunks, err := u.Process(context.Background(), testDoc(text), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Content); n > 180 {
			t.Errorf("chunk %d has %d characters, exceeds 180", i, n)
		}
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if i == 0 {
			continue
		}
		prev := chunks[i-1].Content
		tail := prev[len(prev)-30:]
		if !strings.HasPrefix(c.Content, tail) {
			t.Errorf("chunk %d does not start with the previous chunk's %d-char tail", i, 30)
		}
	}

	last := chunks[len(chunks)-1].Content
	if !strings.HasSuffix(text, last) {
		t.Error("last chunk should end the document")
	}
}

func TestUniform_NoTrailingDuplicateWindow(t *testing.T) {
	u, _ := NewUniform(10, 2)
	chunks, _ := u.Process(context.Background(), testDoc(strings.Repeat("x", 10)), nil)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk when text equals chunk size, got %d", len(chunks))
	}
}

func TestUniform_MultiByte(t *testing.T) {
	text := strings.Repeat("é", 25)
	windows := Windows(text, 10, 3)
	if len(windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(windows))
	}
	for _, w := range windows {
		if !utf8.ValidString(w) {
			t.Errorf("window %q is not valid UTF-8", w)
		}
	}
}

func TestUniform_Metadata(t *testing.T) {
	u, _ := NewUniform(50, 10)
	chunks, _ := u.Process(context.Background(), testDoc(strings.Repeat("revenue grew ", 20)), nil)

	for _, c := range chunks {
		if c.Metadata[domain.MetaDocID] != "doc_test_001" {
			t.Errorf("doc_id not preserved: %v", c.Metadata[domain.MetaDocID])
		}
		if c.Metadata[domain.MetaCompany] != "DemoCorp" {
			t.Errorf("company not preserved: %v", c.Metadata[domain.MetaCompany])
		}
		if c.Metadata[domain.MetaChunkID] != c.ID || !strings.HasPrefix(c.ID, "chunk_") {
			t.Errorf("unexpected chunk id %q", c.ID)
		}
		if c.Metadata[domain.MetaSplit] != "baseline" {
			t.Errorf("unexpected split %v", c.Metadata[domain.MetaSplit])
		}
		if c.Metadata[domain.MetaChunkSize] != 50 || c.Metadata[domain.MetaChunkOverlap] != 10 {
			t.Error("chunk size and overlap should be recorded")
		}
	}
}

func TestStructureAware_AlternatingSpeakers(t *testing.T) {
	doc := testDoc(alternatingTranscript(2000))
	s, _ := NewStructureAware(220, 30)

	first, err := s.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(first))
	}
	for i, c := range first {
		if c.Section != domain.SectionQA {
			t.Errorf("chunk %d: expected section qa, got %q", i, c.Section)
		}
		if c.Metadata[domain.MetaSection] != domain.SectionQA {
			t.Errorf("chunk %d: section metadata not set", i)
		}
	}

	second, _ := s.Process(context.Background(), doc, nil)
	if len(second) != len(first) {
		t.Fatalf("rechunking produced %d chunks, expected %d", len(second), len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed: %s != %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestStructureAware_SeedsOverlapTail(t *testing.T) {
	doc := testDoc(alternatingTranscript(1000))
	s, _ := NewStructureAware(200, 25)

	chunks, _ := s.Process(context.Background(), doc, nil)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		tail := strings.TrimSpace(string(prev[len(prev)-25:]))
		if !strings.HasPrefix(chunks[i].Content, tail) {
			t.Errorf("chunk %d is not seeded with the previous tail %q", i, tail)
		}
	}
}

func TestStructureAware_Discussion(t *testing.T) {
	text := "Revenue grew strongly this year.\nMargins improved.\n\nWe invested in new plants."
	s, _ := NewStructureAware(900, 0)

	chunks, _ := s.Process(context.Background(), testDoc(text), nil)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Section != domain.SectionDiscussion {
		t.Errorf("expected discussion, got %q", chunks[0].Section)
	}
	// Unmarked block lines are joined with spaces; units with newlines.
	want := "Revenue grew strongly this year. Margins improved.\nWe invested in new plants."
	if chunks[0].Content != want {
		t.Errorf("unexpected content %q", chunks[0].Content)
	}
}

func TestStructureAware_MarkerLinesAreUnits(t *testing.T) {
	text := "Operator: Welcome.\nCEO: Thanks.\nAnalyst: Question on margins."
	s, _ := NewStructureAware(32, 0)

	chunks, _ := s.Process(context.Background(), testDoc(text), nil)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "Operator: Welcome.\nCEO: Thanks." {
		t.Errorf("unexpected first chunk %q", chunks[0].Content)
	}
	if chunks[1].Content != "Analyst: Question on margins." {
		t.Errorf("unexpected second chunk %q", chunks[1].Content)
	}
}

func TestStructureAware_OversizedUnitIsHardSplit(t *testing.T) {
	text := strings.Repeat("a", 250)
	s, _ := NewStructureAware(100, 0)

	chunks, _ := s.Process(context.Background(), testDoc(text), nil)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Content); n > 100 {
			t.Errorf("chunk %d has %d characters", i, n)
		}
	}
}

func TestStructureAware_EmptyContent(t *testing.T) {
	s, _ := NewStructureAware(100, 10)
	chunks, err := s.Process(context.Background(), testDoc("  \n\n  "), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestHasMarker(t *testing.T) {
	cases := map[string]bool{
		"Operator: hello":          true,
		"  cfo: guidance":          true,
		"intro\nAnalyst: question": true,
		"The operator said":        false,
		"Revenue grew":             false,
	}
	for text, want := range cases {
		if got := HasMarker(text); got != want {
			t.Errorf("HasMarker(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestStructureAware_NoSeedOnlyChunks(t *testing.T) {
	line := "CFO: " + strings.Repeat("m", 85)
	text := strings.Join([]string{line, line, line}, "\n")
	s, _ := NewStructureAware(100, 30)

	chunks, _ := s.Process(context.Background(), testDoc(text), nil)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !strings.Contains(c.Content, "CFO:") {
			t.Errorf("chunk %d holds only the seed: %q", i, c.Content)
		}
	}
}
