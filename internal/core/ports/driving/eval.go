package driving

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// EvalService runs retrieval experiments and scores the answers.
type EvalService interface {
	// Run indexes records for the experiment and scores each question.
	Run(ctx context.Context, exp domain.Experiment, records []domain.Record) (*domain.EvalSummary, error)
}
