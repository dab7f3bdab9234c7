package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/services"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

var (
	evalExperiment      string
	evalExperimentsFile string
	evalLimit           int
	evalIndexLimit      int
	evalSource          string
	evalPath            string
	evalMode            string
	evalNamespace       string
	evalSkipIndex       bool
	evalReport          string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a retrieval experiment",
	Long: `Indexes records into the experiment's namespace, runs every record with a
question and reference answer through retrieval and synthesis, and scores
the answers:

  answer_correctness  - token F1 against the reference answer
  groundedness        - 1 when cited, 0.75 when cited without inline labels
  retrieval_relevance - mean normalised citation score

Experiments come from --experiments-file (YAML) or the built-in
baseline and improved definitions.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVarP(&evalExperiment, "experiment", "e", "", "experiment name (required)")
	evalCmd.Flags().StringVar(&evalExperimentsFile, "experiments-file", "", "YAML file defining experiments")
	evalCmd.Flags().IntVarP(&evalLimit, "limit", "n", 25, "maximum questions to evaluate")
	evalCmd.Flags().IntVar(&evalIndexLimit, "index-limit", 200, "maximum records to load and index")
	evalCmd.Flags().StringVar(&evalSource, "source", sourceHF, "record source: hf or dir")
	evalCmd.Flags().StringVar(&evalPath, "path", "", "directory to read with --source dir")
	evalCmd.Flags().StringVar(&evalMode, "mode", "small", "dataset mode for --source hf: small or full")
	evalCmd.Flags().StringVar(&evalNamespace, "namespace", "", "base vector namespace (default from settings)")
	evalCmd.Flags().BoolVar(&evalSkipIndex, "skip-index", false, "evaluate against an existing namespace")
	evalCmd.Flags().StringVar(&evalReport, "report", filepath.Join("reports", "eval_summary.md"), "markdown report path (empty to skip)")
	_ = evalCmd.MarkFlagRequired("experiment")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, _ []string) error {
	if evalFactory == nil {
		return errors.New("eval service not configured")
	}

	exps := experiments
	if evalExperimentsFile != "" || len(exps) == 0 {
		loaded, err := file.LoadExperiments(evalExperimentsFile)
		if err != nil {
			return err
		}
		exps = loaded
	}
	exp, err := file.FindExperiment(exps, evalExperiment)
	if err != nil {
		return err
	}

	source, err := newRecordSource(evalSource, evalPath, evalMode)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	records, err := source.Load(ctx, evalIndexLimit)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	logger.Section("Evaluation " + exp.Name)
	evaluator := evalFactory(resolveNamespace(evalNamespace), evalSkipIndex, evalLimit)
	summary, err := evaluator.Run(ctx, exp, records)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if evalReport != "" {
		if err := writeReportFile(evalReport, summary); err != nil {
			return err
		}
		logger.Info("Wrote report to %s", evalReport)
	}

	return outputJSON(cmd, summary)
}

func writeReportFile(path string, summary *domain.EvalSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	if err := services.WriteReport(f, summary, time.Now().UTC()); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}
