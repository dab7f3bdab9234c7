package chunker

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// Uniform splits document content into fixed-size overlapping windows.
// It implements the PostProcessor interface.
type Uniform struct {
	chunkSize int
	overlap   int
}

// NewUniform creates a uniform chunker. Invalid bounds fail with
// domain.ErrInvalidParameters.
func NewUniform(chunkSize, overlap int) (*Uniform, error) {
	params := domain.ChunkParams{Size: chunkSize, Overlap: overlap, Strategy: domain.SplitBaseline}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Uniform{chunkSize: chunkSize, overlap: overlap}, nil
}

// Name returns the processor name.
func (u *Uniform) Name() string {
	return domain.SplitBaseline.String()
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (u *Uniform) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	windows := Windows(doc.Content, u.chunkSize, u.overlap)
	if len(windows) == 0 {
		return nil, nil
	}

	section := doc.Section()
	chunks := make([]domain.Chunk, 0, len(windows))
	for i, text := range windows {
		chunks = append(chunks, newChunk(doc, domain.SplitBaseline, i, text, section, u.chunkSize, u.overlap))
	}
	return chunks, nil
}

// Windows returns the character windows of text. Each window starts
// chunkSize-overlap characters after the previous one, so consecutive
// windows share exactly overlap characters. The last window may be shorter.
// Callers must pass valid bounds.
func Windows(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 || chunkSize <= 0 || overlap >= chunkSize {
		return nil
	}

	windows := make([]string, 0, n/(chunkSize-overlap)+1)
	start := 0
	for start < n {
		end := start + chunkSize
		if end > n {
			end = n
		}
		windows = append(windows, string(runes[start:end]))
		if end >= n {
			break
		}
		start = end - overlap
	}
	return windows
}
