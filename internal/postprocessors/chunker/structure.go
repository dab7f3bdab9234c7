package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

var blankLine = regexp.MustCompile(`\n\s*\n`)

// StructureAware packs speaker and paragraph units into chunks.
// It implements the PostProcessor interface.
//
// Each flushed chunk seeds the next with its trailing overlap characters.
// Unlike Uniform this is a continuity hint, not a window guarantee: a
// seeded chunk may exceed chunkSize by up to overlap+1 characters.
type StructureAware struct {
	chunkSize int
	overlap   int
}

// NewStructureAware creates a structure-aware chunker. Invalid bounds fail
// with domain.ErrInvalidParameters.
func NewStructureAware(chunkSize, overlap int) (*StructureAware, error) {
	params := domain.ChunkParams{Size: chunkSize, Overlap: overlap, Strategy: domain.SplitStructureAware}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &StructureAware{chunkSize: chunkSize, overlap: overlap}, nil
}

// Name returns the processor name.
func (s *StructureAware) Name() string {
	return domain.SplitStructureAware.String()
}

// Process packs the document's units into chunks tagged "qa" or "discussion".
func (s *StructureAware) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	var (
		chunks     []domain.Chunk
		running    []string
		currentLen int
		seedOnly   bool
	)

	flush := func() {
		if len(running) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(running, "\n"))
		section := domain.SectionDiscussion
		if HasMarker(text) {
			section = domain.SectionQA
		}
		chunks = append(chunks, newChunk(doc, domain.SplitStructureAware, len(chunks), text, section, s.chunkSize, s.overlap))

		running = running[:0]
		currentLen = 0
		seedOnly = false
		if s.overlap > 0 {
			tail := lastRunes(text, s.overlap)
			running = append(running, tail)
			currentLen = runeLen(tail)
			seedOnly = true
		}
	}

	for _, unit := range s.units(doc.Content) {
		unitLen := runeLen(unit)
		// A chunk holding only the seed is never flushed on its own.
		if currentLen > 0 && !seedOnly && currentLen+1+unitLen > s.chunkSize {
			flush()
		}
		if currentLen > 0 {
			currentLen++
		}
		running = append(running, unit)
		currentLen += unitLen
		seedOnly = false
	}
	if !seedOnly {
		flush()
	}

	return chunks, nil
}

// units splits text on blank lines. A block with any marker line
// contributes one unit per line; other blocks are joined into one unit.
// Units longer than chunkSize are hard-split into chunkSize pieces.
func (s *StructureAware) units(text string) []string {
	var units []string
	for _, block := range blankLine.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		var lines []string
		marked := false
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if markerPattern.MatchString(line) {
				marked = true
			}
			lines = append(lines, line)
		}

		if marked {
			for _, line := range lines {
				units = append(units, s.bound(line)...)
			}
		} else {
			units = append(units, s.bound(strings.Join(lines, " "))...)
		}
	}
	return units
}

func (s *StructureAware) bound(unit string) []string {
	if runeLen(unit) <= s.chunkSize {
		return []string{unit}
	}
	return Windows(unit, s.chunkSize, 0)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
