package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

func writeExperiments(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadExperiments_Defaults(t *testing.T) {
	got, err := LoadExperiments("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultExperiments(), got)

	got, err = LoadExperiments(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultExperiments(), got)
}

func TestLoadExperiments_File(t *testing.T) {
	path := writeExperiments(t, `
experiments:
  - name: wide
    strategy: structure_aware
    top_k: 12
    diversify: true
    namespace_suffix: wide-v2
  - name: plain
`)

	got, err := LoadExperiments(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.Experiment{
		Name:            "wide",
		Strategy:        domain.SplitStructureAware,
		TopK:            12,
		Diversify:       true,
		NamespaceSuffix: "wide-v2",
	}, got[0])
	assert.Equal(t, domain.Experiment{
		Name:            "plain",
		Strategy:        domain.SplitBaseline,
		TopK:            domain.DefaultTopK,
		NamespaceSuffix: "plain",
	}, got[1])
}

func TestLoadExperiments_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "experiments: [", "parsing experiments"},
		{"empty", "experiments: []", "no experiments"},
		{"no name", "experiments:\n  - top_k: 3\n", "has no name"},
		{"duplicate", "experiments:\n  - name: a\n  - name: a\n", "duplicate"},
		{"bad strategy", "experiments:\n  - name: a\n    strategy: semantic\n", "unknown strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadExperiments(writeExperiments(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindExperiment(t *testing.T) {
	exps := domain.DefaultExperiments()

	got, err := FindExperiment(exps, "improved")
	require.NoError(t, err)
	assert.Equal(t, 8, got.TopK)

	_, err = FindExperiment(exps, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
