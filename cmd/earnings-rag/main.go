// Command earnings-rag answers questions about earnings-call transcripts
// with cited evidence from a vector index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-rag/internal/core/services"
	"github.com/custodia-labs/earnings-rag/internal/logger"
	"github.com/custodia-labs/earnings-rag/internal/normalisers/transcript"
	"github.com/custodia-labs/earnings-rag/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// experimentsFileName is read from the config directory when present.
const experimentsFileName = "experiments.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := file.LoadEnv(); err != nil {
		return err
	}

	configDir, err := file.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("resolving config directory: %w", err)
	}

	var base driven.ConfigStore
	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		logger.Warn("config file unavailable, using defaults: %v", err)
		base = memory.NewConfigStore()
	} else {
		base = fileStore
	}
	configStore := file.NewEnvConfigStore(base, nil)
	if configStore.GetBool(file.DebugKey) {
		logger.SetVerbose(true)
	}

	probe := ai.NewProbe()
	settingsService := services.NewSettingsService(configStore, probe)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	capabilities, err := ai.Open(ctx, settings, probe)
	if err != nil {
		return fmt.Errorf("initialising vector backend %s: %w", settings.Vector.Backend, err)
	}
	defer capabilities.Close()

	prompts, err := file.NewPromptStore("", services.DefaultPrompts())
	if err != nil {
		return fmt.Errorf("creating prompt store: %w", err)
	}

	router := services.NewRouter(capabilities.LLM, prompts)
	retriever := services.NewRetriever(capabilities.Embedder, capabilities.Index)
	synthesizer := services.NewSynthesizer(capabilities.LLM, prompts)

	queryService := services.NewQueryService(router, retriever, synthesizer, capabilities.LLM, prompts,
		services.WithDefaultNamespace(settings.Vector.Namespace),
		services.WithDefaultTopK(settings.Retrieval.TopK),
	)

	indexer := services.NewIndexer(
		postprocessors.DefaultRegistry(),
		transcript.New(),
		capabilities.Embedder,
		capabilities.Index,
	)

	experiments, err := file.LoadExperiments(filepath.Join(configDir, experimentsFileName))
	if err != nil {
		return err
	}

	cli.SetVersion(version)
	cli.SetQueryService(queryService)
	cli.SetIndexService(indexer)
	cli.SetSettingsService(settingsService)
	cli.SetExperiments(experiments)
	cli.SetEvalFactory(func(baseNamespace string, skipIndex bool, limit int) driving.EvalService {
		return services.NewEvaluator(indexer, retriever, synthesizer,
			services.WithBaseNamespace(baseNamespace),
			services.WithSkipIndex(skipIndex),
			services.WithQuestionLimit(limit),
		)
	})

	return cli.Execute(ctx)
}
