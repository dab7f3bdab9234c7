package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

var (
	chunkStrategy string
	chunkSamples  int
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Preview how a transcript file is chunked",
	Long: `Splits one transcript file without embedding or indexing it and prints
the chunk counts and sample chunks as JSON. Use it to compare the baseline
and structure_aware strategies on the same input.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().StringVar(&chunkStrategy, "strategy", "", "split strategy: baseline or structure_aware (default from settings)")
	chunkCmd.Flags().IntVar(&chunkSamples, "samples", 3, "number of sample chunks to print")
	rootCmd.AddCommand(chunkCmd)
}

// chunkPreview is the chunk command's output.
type chunkPreview struct {
	File     string         `json:"file"`
	Strategy string         `json:"strategy"`
	Size     int            `json:"chunk_size"`
	Overlap  int            `json:"chunk_overlap"`
	Records  int            `json:"records"`
	Chunks   int            `json:"chunks"`
	Samples  []chunkSample  `json:"samples"`
	Sections map[string]int `json:"sections"`
}

type chunkSample struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"doc_id"`
	Index      int            `json:"index"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
}

// sampleTextLimit bounds the text printed per sample chunk.
const sampleTextLimit = 200

func runChunk(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	params, err := chunkParams(chunkStrategy)
	if err != nil {
		return err
	}

	records, err := filesystem.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	chunks, err := indexService.Chunk(cmd.Context(), records, params)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	preview := chunkPreview{
		File:     args[0],
		Strategy: params.Strategy.String(),
		Size:     params.Size,
		Overlap:  params.Overlap,
		Records:  len(records),
		Chunks:   len(chunks),
		Samples:  []chunkSample{},
		Sections: map[string]int{},
	}
	for i, c := range chunks {
		section := c.Section
		if section == "" {
			section = domain.SectionTranscript
		}
		preview.Sections[section]++

		if i < chunkSamples {
			preview.Samples = append(preview.Samples, chunkSample{
				ID:         c.ID,
				DocumentID: c.DocumentID,
				Index:      c.Index,
				Text:       truncateRunes(c.Content, sampleTextLimit),
				Metadata:   c.Metadata,
			})
		}
	}

	return outputJSON(cmd, preview)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
