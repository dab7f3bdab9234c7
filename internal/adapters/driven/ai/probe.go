package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// DefaultPingTimeout bounds each connectivity check.
const DefaultPingTimeout = 5 * time.Second

var _ driven.ProviderProbe = (*Probe)(nil)

// Probe checks provider settings by building the adapter and pinging it.
type Probe struct {
	Timeout time.Duration
}

// NewProbe returns a Probe using DefaultPingTimeout.
func NewProbe() *Probe {
	return &Probe{Timeout: DefaultPingTimeout}
}

// ProbeEmbedding pings the embedding provider. Unconfigured settings pass.
func (p *Probe) ProbeEmbedding(ctx context.Context, s domain.EmbeddingSettings) error {
	if !s.IsConfigured() {
		return nil
	}
	svc, err := connect(ctx, p.timeout(), func() (driven.EmbeddingService, error) { return NewEmbedder(ctx, s) })
	if err != nil {
		return err
	}
	return svc.Close()
}

// ProbeLLM pings the chat provider. Unconfigured settings pass.
func (p *Probe) ProbeLLM(ctx context.Context, s domain.LLMSettings) error {
	if !s.IsConfigured() {
		return nil
	}
	svc, err := connect(ctx, p.timeout(), func() (driven.LLMService, error) { return NewLLM(ctx, s) })
	if err != nil {
		return err
	}
	return svc.Close()
}

func (p *Probe) timeout() time.Duration {
	if p == nil || p.Timeout <= 0 {
		return DefaultPingTimeout
	}
	return p.Timeout
}

type pingCloser interface {
	Ping(ctx context.Context) error
	Close() error
}

// connect builds a service and pings it, closing it again if the ping fails.
func connect[S pingCloser](ctx context.Context, timeout time.Duration, build func() (S, error)) (S, error) {
	var zero S
	svc, err := build()
	if err != nil {
		return zero, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return zero, fmt.Errorf("service unreachable: %w", err)
	}
	return svc, nil
}
