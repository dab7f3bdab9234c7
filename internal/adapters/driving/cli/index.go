package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

var (
	indexSource    string
	indexPath      string
	indexMode      string
	indexLimit     int
	indexStrategy  string
	indexNamespace string
	indexWatch     bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed and upsert transcripts",
	Long: `Loads transcript records, splits them with the chosen strategy, embeds
the chunks in batches and upserts them into the vector namespace.

Sources:
  hf  - the HuggingFace earnings-call QA dataset (--mode small|full)
  dir - a local directory of .jsonl, .json, .md, .html and .txt files

With --source dir --watch, files created or changed after the initial run
are re-indexed until interrupted. Chunk ids are deterministic, so
re-indexing a file overwrites its previous vectors.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexSource, "source", sourceHF, "record source: hf or dir")
	indexCmd.Flags().StringVar(&indexPath, "path", "", "directory to read with --source dir")
	indexCmd.Flags().StringVar(&indexMode, "mode", "small", "dataset mode for --source hf: small or full")
	indexCmd.Flags().IntVarP(&indexLimit, "limit", "n", 0, "maximum records to load (0 = no limit)")
	indexCmd.Flags().StringVar(&indexStrategy, "strategy", "", "split strategy: baseline or structure_aware (default from settings)")
	indexCmd.Flags().StringVar(&indexNamespace, "namespace", "", "vector namespace (default from settings)")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep indexing changed files (--source dir only)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if indexWatch && indexSource != sourceDir {
		return errors.New("--watch requires --source dir")
	}

	params, err := chunkParams(indexStrategy)
	if err != nil {
		return err
	}
	namespace := resolveNamespace(indexNamespace)

	source, err := newRecordSource(indexSource, indexPath, indexMode)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	records, err := source.Load(ctx, indexLimit)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	summary, err := indexService.Index(ctx, records, namespace, params)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	if err := outputJSON(cmd, summary); err != nil {
		return err
	}

	if !indexWatch {
		return nil
	}
	watchable, ok := source.(driven.WatchableSource)
	if !ok {
		return fmt.Errorf("source %s cannot be watched", source.Name())
	}
	return watchAndIndex(cmd, watchable, namespace, params)
}

// watchAndIndex re-indexes each batch of changed records until interrupted.
func watchAndIndex(cmd *cobra.Command, source driven.WatchableSource, namespace string, params domain.ChunkParams) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batches, err := source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch source: %w", err)
	}

	cmd.PrintErrln("Watching for changes. Press Ctrl+C to stop.")
	for batch := range batches {
		summary, err := indexService.Index(ctx, batch, namespace, params)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Warn("Re-index failed: %v", err)
			continue
		}
		if err := outputJSON(cmd, summary); err != nil {
			return err
		}
	}
	return nil
}

func resolveNamespace(ns string) string {
	if ns != "" {
		return ns
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.Vector.Namespace != "" {
			return settings.Vector.Namespace
		}
	}
	return domain.DefaultNamespace
}
