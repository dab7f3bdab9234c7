package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// markdownWidth is the wrap width for --pretty output.
const markdownWidth = 80

var (
	queryText      string
	queryDebug     bool
	queryUseLLM    bool
	queryNamespace string
	queryCompany   string
	querySection   string
	queryTopK      int
	queryDiversify bool
	queryPretty    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from indexed transcripts",
	Long: `Runs the query state machine: route, then retrieve and synthesize,
clarify, or answer directly. The final state is printed as JSON.

Pipeline failures are reported in the "error" field of the output and do not
change the exit code.`,
	Args: cobra.ArbitraryArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to answer")
	queryCmd.Flags().BoolVar(&queryDebug, "debug", false, "print pipeline logs to stderr")
	queryCmd.Flags().BoolVar(&queryUseLLM, "use-llm-router", true, "classify the query with the LLM before the keyword heuristic")
	queryCmd.Flags().StringVar(&queryNamespace, "namespace", "", "vector namespace (default from settings)")
	queryCmd.Flags().StringVar(&queryCompany, "company", "", "restrict evidence to a company")
	queryCmd.Flags().StringVar(&querySection, "section", "", "restrict evidence to a section (qa, discussion, transcript)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of evidence chunks (default from settings)")
	queryCmd.Flags().BoolVar(&queryDiversify, "diversify", false, "prefer one chunk per document section")
	queryCmd.Flags().BoolVar(&queryPretty, "pretty", false, "print the answer as markdown instead of JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	question := queryText
	if question == "" {
		question = strings.Join(args, " ")
	}
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required: use --query or pass it as an argument")
	}

	if queryDebug {
		logger.SetVerbose(true)
	}

	// Unset flags follow the configured defaults.
	useLLM, diversify := queryUseLLM, queryDiversify
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			if !cmd.Flags().Changed("use-llm-router") {
				useLLM = settings.Router.UseLLM
			}
			if !cmd.Flags().Changed("diversify") {
				diversify = settings.Retrieval.Diversify
			}
		}
	}

	state := queryService.Run(cmd.Context(), domain.QueryRequest{
		Query:        question,
		Namespace:    queryNamespace,
		UserFilters:  queryFilters(queryCompany, querySection),
		UseLLMRouter: useLLM,
		TopK:         queryTopK,
		Diversify:    diversify,
		Debug:        queryDebug,
	})

	if queryPretty {
		writeMarkdown(cmd.OutOrStdout(), formatState(state))
		return nil
	}
	return outputJSON(cmd, state)
}

func queryFilters(company, section string) map[string]string {
	filters := map[string]string{}
	if company != "" {
		filters[domain.MetaCompany] = company
	}
	if section != "" {
		filters[domain.MetaSection] = section
	}
	return filters
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// formatState renders a finished run as markdown.
func formatState(state domain.QueryState) string {
	var b strings.Builder

	switch state.Route {
	case domain.RouteClarify:
		b.WriteString("**Could you clarify?**\n\n")
		for _, q := range state.ClarifyingQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	default:
		b.WriteString(state.Answer)
		b.WriteString("\n")
	}

	if len(state.Citations) > 0 {
		b.WriteString("\n### Sources\n\n")
		for _, c := range state.Citations {
			fmt.Fprintf(&b, "- **[%s]** %s, %s (%s), score %.3f\n", c.CitationID, c.Company, c.Section, c.Source, c.Score)
		}
	}

	if state.Error != "" {
		fmt.Fprintf(&b, "\n> error: %s\n", state.Error)
	}
	fmt.Fprintf(&b, "\n_route: %s, run %s_\n", state.Route, state.RunID)
	return b.String()
}

// writeMarkdown styles markdown with glamour on a terminal and writes it
// unchanged otherwise, so piped output stays clean.
func writeMarkdown(w io.Writer, md string) {
	if !isTerminal(w) {
		fmt.Fprint(w, md)
		return
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	fmt.Fprint(w, out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
