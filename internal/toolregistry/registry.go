// Package toolregistry implements the dynamic tool registry: named,
// permission-gated functions that worker logic invokes. Tools are registered
// once at startup and immutable afterwards; the registry is process-scoped
// state passed by reference into the agent framework, never an ambient
// singleton.
package toolregistry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtside/courtside/internal/telemetry"
	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

// Registry holds registered tools and their process-wide counters.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]models.Tool
	order []string

	statsMu sync.Mutex
	stats   map[string]*toolStats

	metrics *telemetry.Metrics
}

// toolStats accumulates per-tool counters. Calls counts handler invocations
// only: permission denials and validation failures never reach the handler
// and never touch these counters.
type toolStats struct {
	calls    atomic.Uint64
	failures atomic.Uint64
	emaMu    sync.Mutex
	emaMs    int64
}

// New creates an empty registry. metrics may be nil.
func New(metrics *telemetry.Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]models.Tool),
		stats:   make(map[string]*toolStats),
		metrics: metrics,
	}
}

// Register adds a tool to the registry. Fails if the name is already taken
// or the parameter schema is malformed.
func (r *Registry) Register(tool models.Tool) error {
	if tool.Name == "" {
		return models.NewError(models.ErrInvalidSchema, "tool name must not be empty")
	}
	if tool.Handler == nil {
		return models.NewError(models.ErrInvalidSchema, "tool %s has no handler", tool.Name)
	}
	if !tool.RequiredPermission.Valid() {
		return models.NewError(models.ErrInvalidSchema, "tool %s: invalid required permission %d", tool.Name, tool.RequiredPermission)
	}
	if err := validateSchema(tool.ParamSchema); err != nil {
		return models.WrapError(models.ErrInvalidSchema, err, "tool %s: malformed param schema", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return models.NewError(models.ErrDuplicateTool, "tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)

	r.statsMu.Lock()
	r.stats[tool.Name] = &toolStats{}
	r.statsMu.Unlock()

	log.Debug().
		Str("tool", tool.Name).
		Str("category", tool.Category).
		Str("permission", tool.RequiredPermission.String()).
		Msg("Tool registered")
	return nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Descriptor returns the descriptor of a registered tool.
func (r *Registry) Descriptor(name string) (models.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return models.ToolDescriptor{}, false
	}
	return descriptorOf(tool), true
}

// RequiredPermission returns the required level of a registered tool.
func (r *Registry) RequiredPermission(name string) (permissions.Level, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return 0, false
	}
	return tool.RequiredPermission, true
}

// List returns descriptors of tools accessible at the given effective level,
// preserving registration order.
func (r *Registry) List(effective permissions.Level) []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs := make([]models.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		if permissions.Check(effective, tool.RequiredPermission) {
			descs = append(descs, descriptorOf(tool))
		}
	}
	return descs
}

// Execute invokes a registered tool. The permission gate runs before any
// parameter validation, so failures never leak schema details to
// unauthorized callers. Handler panics are converted into structured errors;
// a raw runtime failure never propagates.
func (r *Registry) Execute(name string, params map[string]any, effective permissions.Level) models.ToolResult {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return failure(models.NewError(models.ErrUnknownAction, "tool not registered: %s", name), 0)
	}

	if !permissions.Check(effective, tool.RequiredPermission) {
		return failure(models.NewError(models.ErrPermissionDenied,
			"tool %s requires %s, caller has %s", name, tool.RequiredPermission, effective), 0)
	}

	if err := validateParams(tool.ParamSchema, params); err != nil {
		return failure(models.WrapError(models.ErrValidation, err, "tool %s: invalid params", name), 0)
	}

	start := time.Now()
	value, err := invoke(tool, params)
	latency := time.Since(start)
	latencyMs := latency.Milliseconds()

	stats := r.statsFor(name)
	stats.calls.Add(1)
	stats.recordLatency(latencyMs)

	if err != nil {
		stats.failures.Add(1)
		r.metrics.ObserveTool(name, false, latency)
		return failure(models.WrapError(models.ErrToolExecution, err, "tool %s failed", name), latencyMs)
	}
	r.metrics.ObserveTool(name, true, latency)

	return models.ToolResult{Success: true, Value: value, LatencyMs: latencyMs}
}

// Stats returns a snapshot of a tool's counters.
func (r *Registry) Stats(name string) (models.ToolStats, bool) {
	if !r.Has(name) {
		return models.ToolStats{}, false
	}
	s := r.statsFor(name)
	s.emaMu.Lock()
	ema := s.emaMs
	s.emaMu.Unlock()
	return models.ToolStats{
		Calls:        s.calls.Load(),
		Failures:     s.failures.Load(),
		AvgLatencyMs: ema,
	}, true
}

// invoke runs the handler with panic recovery.
func invoke(tool models.Tool, params map[string]any) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("tool", tool.Name).
				Interface("panic", rec).
				Msg("Tool handler panicked")
			value = nil
			err = models.NewError(models.ErrToolExecution, "handler panic: %v", rec)
		}
	}()
	return tool.Handler(params)
}

func (r *Registry) statsFor(name string) *toolStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	s, ok := r.stats[name]
	if !ok {
		s = &toolStats{}
		r.stats[name] = s
	}
	return s
}

// recordLatency folds one observation into the rolling average
// (exponential moving average, 70% history / 30% new).
func (s *toolStats) recordLatency(ms int64) {
	s.emaMu.Lock()
	defer s.emaMu.Unlock()
	if s.emaMs == 0 {
		s.emaMs = ms
	} else {
		s.emaMs = (s.emaMs*7 + ms*3) / 10
	}
}

func descriptorOf(tool models.Tool) models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:               tool.Name,
		Category:           tool.Category,
		RequiredPermission: tool.RequiredPermission,
		ParamSchema:        tool.ParamSchema,
	}
}

func failure(err *models.Error, latencyMs int64) models.ToolResult {
	return models.ToolResult{Success: false, Error: err, LatencyMs: latencyMs}
}
