// Package server provides the public entry point for initializing the
// Courtside orchestration core.
//
// It wires the full pipeline: tool registry with the built-in tool set,
// context manager, the built-in worker set, session store, orchestrator,
// and the HTTP API.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/courtside/courtside/internal/agents"
	"github.com/courtside/courtside/internal/api"
	"github.com/courtside/courtside/internal/api/handlers"
	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/internal/contextmgr"
	"github.com/courtside/courtside/internal/orchestrator"
	"github.com/courtside/courtside/internal/sessions"
	"github.com/courtside/courtside/internal/telemetry"
	"github.com/courtside/courtside/internal/toolregistry"
	"github.com/courtside/courtside/internal/tools"
)

// Server holds the initialized orchestration core.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Orchestrator is exposed for in-process embedding.
	Orchestrator *orchestrator.Orchestrator

	// Reports receives everything written through the export tool.
	Reports *tools.ReportStore

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the core with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(promReg)

	registry := toolregistry.New(metrics)
	reports, err := tools.RegisterBuiltins(registry)
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	log.Info().Msg("Tool registry initialized")

	contexts, err := contextmgr.New(config.DefaultRoles(), cfg.Context, contextmgr.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("init context manager: %w", err)
	}

	workers, err := buildWorkers(registry)
	if err != nil {
		return nil, fmt.Errorf("build workers: %w", err)
	}
	log.Info().Int("count", len(workers)).Msg("Workers constructed")

	store := sessions.NewMemoryStore()

	orch, err := orchestrator.New(workers, contexts, store, config.DefaultRouting(), cfg.Orchestrator, metrics)
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	h := handlers.New(orch, registry, contexts, store)
	router := api.NewRouter(cfg, h, promReg)

	return &Server{
		Handler:      router,
		Orchestrator: orch,
		Reports:      reports,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// buildWorkers constructs the built-in worker set. Construction fails fast
// on any capability whose required tools are missing.
func buildWorkers(registry *toolregistry.Registry) ([]agents.Agent, error) {
	constructors := []func(agents.ToolSource) (*agents.Worker, error){
		agents.NewPredictionWorker,
		agents.NewInsightWorker,
		agents.NewGuidanceWorker,
		agents.NewVisualizationWorker,
		agents.NewExportWorker,
	}

	out := make([]agents.Agent, 0, len(constructors))
	for _, build := range constructors {
		w, err := build(registry)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
