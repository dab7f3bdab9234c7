package mcp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// Version is reported to clients in the initialize handshake.
const Version = "0.1.0"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server publishes the query pipeline as tools and the configuration as
// resources.
type Server struct {
	query       driving.QueryService
	settings    driving.SettingsService
	experiments []domain.Experiment

	// useLLM is the router default for tool calls that leave it unset.
	useLLM bool
	server *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSettings publishes svc as the settings resource and takes the router
// default from it.
func WithSettings(svc driving.SettingsService) Option {
	return func(s *Server) { s.settings = svc }
}

// WithExperiments publishes exps as the experiment resources.
func WithExperiments(exps []domain.Experiment) Option {
	return func(s *Server) { s.experiments = exps }
}

func NewServer(query driving.QueryService, opts ...Option) (*Server, error) {
	if query == nil {
		return nil, ErrMissingQueryService
	}

	s := &Server{query: query, useLLM: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.settings != nil {
		if settings, err := s.settings.Get(); err == nil {
			s.useLLM = settings.Router.UseLLM
		} else {
			logger.Warn("MCP router default: %v", err)
		}
	}

	s.server = mcp.NewServer(&mcp.Implementation{Name: "earnings-rag", Version: Version}, nil)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves stdio until ctx is cancelled or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	logger.Info("MCP server running on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled, then
// drains open requests for up to shutdownTimeout.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr: addr,
		Handler: mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.server
		}, nil),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("MCP server listening on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
