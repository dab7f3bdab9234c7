package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
)

// mockQueryService implements driving.QueryService for testing.
type mockQueryService struct {
	state       domain.QueryState
	lastRequest domain.QueryRequest
	calls       int
}

func (m *mockQueryService) Run(_ context.Context, req domain.QueryRequest) domain.QueryState {
	m.calls++
	m.lastRequest = req
	state := m.state
	state.Query = req.Query
	return state
}

func (m *mockQueryService) Route(_ context.Context, _ string, _ bool, _ map[string]string) domain.RouteDecision {
	return domain.RouteDecision{Route: m.state.Route}
}

func (m *mockQueryService) Retrieve(
	_ context.Context, _, _ string, _ int, _ bool, _ map[string]string,
) ([]domain.RetrievedChunk, error) {
	return m.state.RetrievedChunks, nil
}

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	mu            sync.Mutex
	err           error
	chunks        []domain.Chunk
	lastRecords   []domain.Record
	lastNamespace string
	lastParams    domain.ChunkParams
	indexCalls    int
}

func (m *mockIndexService) Index(
	_ context.Context, records []domain.Record, namespace string, params domain.ChunkParams,
) (*domain.IndexSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexCalls++
	m.lastRecords = records
	m.lastNamespace = namespace
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IndexSummary{
		Records:   len(records),
		Documents: len(records),
		Chunks:    2 * len(records),
		Upserted:  2 * len(records),
		Batches:   1,
		Namespace: namespace,
	}, nil
}

func (m *mockIndexService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexCalls
}

func (m *mockIndexService) Chunk(
	_ context.Context, records []domain.Record, params domain.ChunkParams,
) ([]domain.Chunk, error) {
	m.lastRecords = records
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

// mockEvalService implements driving.EvalService for testing.
type mockEvalService struct {
	summary *domain.EvalSummary
	err     error
	lastExp domain.Experiment
	records int
}

func (m *mockEvalService) Run(_ context.Context, exp domain.Experiment, records []domain.Record) (*domain.EvalSummary, error) {
	m.lastExp = exp
	m.records = len(records)
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	err         error
	validateErr error
	backend     domain.VectorBackend
	llmProvider domain.AIProvider
	llmModel    string
	llmKey      string
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmProvider, m.llmModel, m.llmKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetVectorBackend(backend domain.VectorBackend) error {
	m.backend = backend
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.validateErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.validateErr }

// mockRecordSource implements driven.RecordSource for testing.
type mockRecordSource struct {
	records   []domain.Record
	err       error
	lastLimit int
}

func (m *mockRecordSource) Name() string { return "mock" }

func (m *mockRecordSource) Load(_ context.Context, limit int) ([]domain.Record, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	query    *mockQueryService
	index    *mockIndexService
	eval     *mockEvalService
	settings *mockSettingsService
	source   *mockRecordSource

	evalBaseNS    string
	evalSkipIndex bool
	evalLimit     int
	sourceKind    string
	sourcePath    string
	sourceMode    string
}

func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		query:    &mockQueryService{state: domain.QueryState{RunID: "run-1", Route: domain.RouteDirect, Citations: []domain.Citation{}}},
		index:    &mockIndexService{},
		eval:     &mockEvalService{summary: &domain.EvalSummary{Samples: 1}},
		settings: newMockSettings(),
		source: &mockRecordSource{records: []domain.Record{
			{DocID: "doc-1", Question: "How did revenue do?", Answer: "Up.", Text: "Revenue grew."},
		}},
	}

	oldQuery, oldIndex, oldSettings := queryService, indexService, settingsService
	oldEval, oldExps, oldSource := evalFactory, experiments, newRecordSource

	queryService = ts.query
	indexService = ts.index
	settingsService = ts.settings
	experiments = domain.DefaultExperiments()
	evalFactory = func(baseNS string, skipIndex bool, limit int) driving.EvalService {
		ts.evalBaseNS, ts.evalSkipIndex, ts.evalLimit = baseNS, skipIndex, limit
		return ts.eval
	}
	newRecordSource = func(kind, path, mode string) (driven.RecordSource, error) {
		ts.sourceKind, ts.sourcePath, ts.sourceMode = kind, path, mode
		if kind == "bogus" {
			return openRecordSource(kind, path, mode)
		}
		return ts.source, nil
	}

	return ts, func() {
		queryService, indexService, settingsService = oldQuery, oldIndex, oldSettings
		evalFactory, experiments, newRecordSource = oldEval, oldExps, oldSource
	}
}

// execute runs the root command with fresh flag values and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

// executeWithInput is execute with stdin content for interactive commands.
func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default, since cobra keeps parsed
// values on the package-level commands between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
