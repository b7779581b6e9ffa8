// Package agents implements the worker framework: permission-gated units of
// specialized logic invoked by the orchestrator. The framework owns
// capability lookup, the permission gate, and performance counters;
// everything downstream of "execute this specific action" is collaborator
// logic reached through an ActionFunc and the tool registry.
package agents

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

// ToolSource is the slice of the tool registry the framework depends on.
// Satisfied by *toolregistry.Registry.
type ToolSource interface {
	Has(name string) bool
	RequiredPermission(name string) (permissions.Level, bool)
	Execute(name string, params map[string]any, effective permissions.Level) models.ToolResult
}

// Toolbox is the per-call view handed to action logic: every Execute runs
// with the calling request's effective permission, so collaborator code can
// never escalate past its caller.
type Toolbox interface {
	Execute(name string, params map[string]any) models.ToolResult
}

// ActionFunc is worker-specific collaborator logic for one capability.
type ActionFunc func(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error)

// Agent is the closed interface the orchestrator dispatches through.
type Agent interface {
	ID() string
	Name() string
	PermissionLevel() permissions.Level
	Capability(action string) (models.Capability, bool)
	Capabilities() []models.Capability
	ExecuteRequest(ctx context.Context, action string, params, userCtx map[string]any, caller permissions.Level) models.ActionResult
	Counters() models.PerformanceCounters
}

// Worker is the standard Agent implementation. Created once at startup and
// alive for the process lifetime; the only mutable state is its counters.
type Worker struct {
	id    string
	name  string
	level permissions.Level
	caps  map[string]models.Capability
	order []string
	logic map[string]ActionFunc
	tools ToolSource

	totalRequests atomic.Uint64
	totalExecMs   atomic.Int64
	failed        atomic.Uint64
	rejected      atomic.Uint64
}

// New constructs a worker, validating every capability up front: each
// declared required tool must already be registered and each capability must
// have action logic. Failing fast here turns call-time surprises into
// startup errors.
func New(id, name string, level permissions.Level, caps []models.Capability, logic map[string]ActionFunc, tools ToolSource) (*Worker, error) {
	if id == "" {
		return nil, models.NewError(models.ErrInvalidCapability, "worker id must not be empty")
	}
	if !level.Valid() {
		return nil, models.NewError(models.ErrInvalidCapability, "worker %s: invalid permission level %d", id, level)
	}

	w := &Worker{
		id:    id,
		name:  name,
		level: level,
		caps:  make(map[string]models.Capability, len(caps)),
		logic: make(map[string]ActionFunc, len(caps)),
		tools: tools,
	}

	for _, cap := range caps {
		if _, dup := w.caps[cap.Name]; dup {
			return nil, models.NewError(models.ErrInvalidCapability, "worker %s: duplicate capability %s", id, cap.Name)
		}
		for _, toolName := range cap.RequiredTools {
			if !tools.Has(toolName) {
				return nil, models.NewError(models.ErrInvalidCapability,
					"worker %s: capability %s requires unregistered tool %s", id, cap.Name, toolName)
			}
		}
		fn, ok := logic[cap.Name]
		if !ok || fn == nil {
			return nil, models.NewError(models.ErrInvalidCapability,
				"worker %s: capability %s has no action logic", id, cap.Name)
		}
		w.caps[cap.Name] = cap
		w.logic[cap.Name] = fn
		w.order = append(w.order, cap.Name)
	}

	log.Debug().
		Str("worker", id).
		Int("capabilities", len(caps)).
		Str("permission", level.String()).
		Msg("Worker constructed")
	return w, nil
}

func (w *Worker) ID() string                         { return w.id }
func (w *Worker) Name() string                       { return w.name }
func (w *Worker) PermissionLevel() permissions.Level { return w.level }

// Capability returns the capability matching an action name.
func (w *Worker) Capability(action string) (models.Capability, bool) {
	cap, ok := w.caps[action]
	return cap, ok
}

// Capabilities returns capabilities in declaration order.
func (w *Worker) Capabilities() []models.Capability {
	out := make([]models.Capability, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.caps[name])
	}
	return out
}

// ExecuteRequest runs one action. The permission gate covers both the
// capability level and every tool the capability declares, and fires before
// any logic runs; a denial updates only the rejection counter. Collaborator
// logic runs with the caller's effective permission and its panics are
// contained.
func (w *Worker) ExecuteRequest(ctx context.Context, action string, params, userCtx map[string]any, caller permissions.Level) models.ActionResult {
	cap, ok := w.caps[action]
	if !ok {
		return models.ActionResult{
			Error: models.NewError(models.ErrUnknownAction, "worker %s has no action %s", w.id, action),
		}
	}

	if !permissions.Check(caller, cap.RequiredPermission) {
		w.rejected.Add(1)
		return models.ActionResult{
			Error: models.NewError(models.ErrPermissionDenied,
				"action %s requires %s, caller has %s", action, cap.RequiredPermission, caller),
		}
	}

	// The caller must also clear every tool the capability depends on,
	// otherwise the action body would start and then fail partway through
	// its first gated tool call.
	for _, toolName := range cap.RequiredTools {
		required, ok := w.tools.RequiredPermission(toolName)
		if !ok {
			return models.ActionResult{
				Error: models.NewError(models.ErrUnknownAction,
					"worker %s: action %s requires unregistered tool %s", w.id, action, toolName),
			}
		}
		if !permissions.Check(caller, required) {
			w.rejected.Add(1)
			return models.ActionResult{
				Error: models.NewError(models.ErrPermissionDenied,
					"action %s requires tool %s at %s, caller has %s", action, toolName, required, caller),
			}
		}
	}

	start := time.Now()
	value, err := w.run(ctx, action, params, userCtx, caller)
	latencyMs := time.Since(start).Milliseconds()

	w.totalRequests.Add(1)
	w.totalExecMs.Add(latencyMs)

	if err != nil {
		w.failed.Add(1)
		return models.ActionResult{Error: models.AsError(err), LatencyMs: latencyMs}
	}
	return models.ActionResult{Success: true, Value: value, LatencyMs: latencyMs}
}

// run delegates to the collaborator logic with panic containment.
func (w *Worker) run(ctx context.Context, action string, params, userCtx map[string]any, caller permissions.Level) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("worker", w.id).
				Str("action", action).
				Interface("panic", rec).
				Msg("Worker logic panicked")
			value = nil
			err = models.NewError(models.ErrInternal, "worker %s action %s panicked: %v", w.id, action, rec)
		}
	}()
	return w.logic[action](ctx, params, userCtx, boundToolbox{src: w.tools, level: caller})
}

// Counters returns a read-only snapshot of the worker's counters.
func (w *Worker) Counters() models.PerformanceCounters {
	return models.PerformanceCounters{
		TotalRequests:        w.totalRequests.Load(),
		TotalExecutionTimeMs: w.totalExecMs.Load(),
		FailedRequests:       w.failed.Load(),
		RejectedRequests:     w.rejected.Load(),
	}
}

// boundToolbox binds a ToolSource to one request's effective permission.
type boundToolbox struct {
	src   ToolSource
	level permissions.Level
}

func (b boundToolbox) Execute(name string, params map[string]any) models.ToolResult {
	return b.src.Execute(name, params, b.level)
}
