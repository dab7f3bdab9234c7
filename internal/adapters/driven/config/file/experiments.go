package file

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// experimentsFile is the YAML layout of an experiments file:
//
//	experiments:
//	  - name: baseline
//	    strategy: baseline
//	    top_k: 6
//	    diversify: false
//	    namespace_suffix: baseline
type experimentsFile struct {
	Experiments []domain.Experiment `yaml:"experiments"`
}

// LoadExperiments reads experiments from a YAML file. An empty path or a
// missing file yields domain.DefaultExperiments. Missing fields take the
// defaults: strategy baseline, top_k 6, namespace suffix = name.
func LoadExperiments(path string) ([]domain.Experiment, error) {
	if path == "" {
		return domain.DefaultExperiments(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultExperiments(), nil
		}
		return nil, fmt.Errorf("reading experiments: %w", err)
	}

	var parsed experimentsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing experiments %s: %w", path, err)
	}
	if len(parsed.Experiments) == 0 {
		return nil, fmt.Errorf("%w: %s defines no experiments", domain.ErrInvalidInput, path)
	}

	seen := make(map[string]bool, len(parsed.Experiments))
	for i := range parsed.Experiments {
		exp := &parsed.Experiments[i]
		if exp.Name == "" {
			return nil, fmt.Errorf("%w: experiment %d has no name", domain.ErrInvalidInput, i)
		}
		if seen[exp.Name] {
			return nil, fmt.Errorf("%w: duplicate experiment %q", domain.ErrInvalidInput, exp.Name)
		}
		seen[exp.Name] = true

		if exp.Strategy == "" {
			exp.Strategy = domain.SplitBaseline
		}
		if !exp.Strategy.IsValid() {
			return nil, fmt.Errorf("%w: experiment %q has unknown strategy %q",
				domain.ErrInvalidInput, exp.Name, exp.Strategy)
		}
		if exp.TopK <= 0 {
			exp.TopK = domain.DefaultTopK
		}
		if exp.NamespaceSuffix == "" {
			exp.NamespaceSuffix = exp.Name
		}
	}
	return parsed.Experiments, nil
}

// FindExperiment returns the experiment with the given name.
func FindExperiment(experiments []domain.Experiment, name string) (domain.Experiment, error) {
	for _, exp := range experiments {
		if exp.Name == name {
			return exp, nil
		}
	}
	return domain.Experiment{}, fmt.Errorf("%w: experiment %q", domain.ErrNotFound, name)
}
