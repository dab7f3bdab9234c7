// Package cli implements the earnings-rag command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// version is overridden at build time with -ldflags.
var version = "dev"

// EvalFactory builds an evaluator for one run of the eval command.
type EvalFactory func(baseNamespace string, skipIndex bool, limit int) driving.EvalService

var (
	queryService    driving.QueryService
	indexService    driving.IndexService
	settingsService driving.SettingsService
	evalFactory     EvalFactory
	experiments     []domain.Experiment
)

var (
	verbose      bool
	logFile      string
	closeLogFile func() error
)

var rootCmd = &cobra.Command{
	Use:   "earnings-rag",
	Short: "Cited answers from earnings-call transcripts",
	Long: `earnings-rag indexes earnings-call transcripts into a vector store and
answers questions about them with cited evidence.

Each query is routed to one of three paths: retrieve (answer from transcript
evidence), clarify (ask for more detail) or direct (conceptual answer).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write JSON events to this file")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeEventSink()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetQueryService sets the query pipeline used by query and mcp.
func SetQueryService(svc driving.QueryService) {
	queryService = svc
}

// SetIndexService sets the indexer used by index and chunk.
func SetIndexService(svc driving.IndexService) {
	indexService = svc
}

// SetSettingsService sets the settings service used by config.
func SetSettingsService(svc driving.SettingsService) {
	settingsService = svc
}

// SetEvalFactory sets the evaluator constructor used by eval.
func SetEvalFactory(f EvalFactory) {
	evalFactory = f
}

// SetExperiments sets the experiments known to eval and mcp.
func SetExperiments(exps []domain.Experiment) {
	experiments = exps
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}

	path := logFile
	if path == "" && settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			path = settings.Log.File
		}
	}
	if path == "" || closeLogFile != nil {
		return nil
	}

	sink, closer, err := logger.NewFileSink(path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logger.SetEventSink(sink)
	closeLogFile = closer
	logger.Debug("writing events to %s (%s)", path, cmd.Name())
	return nil
}

func closeEventSink() {
	if closeLogFile == nil {
		return
	}
	logger.SetEventSink(nil)
	if err := closeLogFile(); err != nil {
		logger.Warn("closing log file: %v", err)
	}
	closeLogFile = nil
}
