package cli

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/earnings-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/earnings-rag/internal/connectors/huggingface"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Record source kinds accepted by --source.
const (
	sourceHF  = "hf"
	sourceDir = "dir"
)

// newRecordSource opens the record source named by --source.
// Tests replace it to avoid network and disk access.
var newRecordSource = openRecordSource

func openRecordSource(kind, path, mode string) (driven.RecordSource, error) {
	switch kind {
	case sourceHF, "":
		m, err := huggingface.ParseMode(mode)
		if err != nil {
			return nil, err
		}
		return huggingface.New(huggingface.WithMode(m)), nil
	case sourceDir:
		if path == "" {
			return nil, errors.New("--path is required with --source dir")
		}
		return filesystem.New(path), nil
	default:
		return nil, fmt.Errorf("%w: source must be 'hf' or 'dir', got %q", domain.ErrInvalidInput, kind)
	}
}

// chunkParams resolves splitter parameters. An explicit strategy uses that
// strategy's defaults; otherwise the configured chunking settings apply.
func chunkParams(strategy string) (domain.ChunkParams, error) {
	if strategy != "" {
		s := domain.SplitStrategy(strategy)
		if !s.IsValid() {
			return domain.ChunkParams{}, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidParameters, strategy)
		}
		return domain.DefaultChunkParams(s), nil
	}

	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			return settings.Chunking.Params(), nil
		}
	}
	return domain.DefaultChunkParams(domain.SplitBaseline), nil
}
