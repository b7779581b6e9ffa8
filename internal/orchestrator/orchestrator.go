// Package orchestrator coordinates one analytics request end to end:
// role detection, context loading, planning, concurrent worker dispatch,
// and synthesis into a single response. The orchestrator is the only
// component that mutates sessions.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/courtside/courtside/internal/agents"
	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/internal/contextmgr"
	"github.com/courtside/courtside/internal/sessions"
	"github.com/courtside/courtside/internal/telemetry"
	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

// Orchestrator owns the request pipeline. Workers, routing, and
// configuration are fixed at construction; all per-request state lives on
// the stack or in the session store.
type Orchestrator struct {
	workers  map[string]agents.Agent
	order    []string
	contexts *contextmgr.Manager
	sessions sessions.Store
	routing  models.RoutingTable
	cfg      config.OrchestratorConfig
	metrics  *telemetry.Metrics
	tracer   trace.Tracer

	// flight collapses concurrent replays of the same RequestID into one
	// execution; later replays are served from the session cache.
	flight singleflight.Group

	// locks holds one mutex per declared write resource. A write-capable
	// call runs in isolation from every other call on its resource.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New wires an orchestrator from its collaborators. Worker dispatch order
// follows registration order.
func New(workers []agents.Agent, contexts *contextmgr.Manager, store sessions.Store, routing models.RoutingTable, cfg config.OrchestratorConfig, metrics *telemetry.Metrics) (*Orchestrator, error) {
	o := &Orchestrator{
		workers:  make(map[string]agents.Agent, len(workers)),
		contexts: contexts,
		sessions: store,
		routing:  routing,
		cfg:      cfg,
		metrics:  metrics,
		tracer:   otel.Tracer("courtside/orchestrator"),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, w := range workers {
		if _, dup := o.workers[w.ID()]; dup {
			return nil, models.NewError(models.ErrInternal, "duplicate worker id %s", w.ID())
		}
		o.workers[w.ID()] = w
		o.order = append(o.order, w.ID())
	}
	return o, nil
}

// Workers returns the registered workers in registration order.
func (o *Orchestrator) Workers() []agents.Agent {
	out := make([]agents.Agent, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.workers[id])
	}
	return out
}

// ProcessRequest runs one analytics request to completion. It always
// returns a well-formed response; internal panics are converted into a
// failed response rather than escaping.
func (o *Orchestrator) ProcessRequest(ctx context.Context, req models.AnalyticsRequest, caller permissions.Level) models.AnalyticsResponse {
	ctx, span := o.tracer.Start(ctx, "orchestrator.process_request",
		trace.WithAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.String("request.user", req.UserID),
		))
	defer span.End()

	start := time.Now()

	// Replays of a completed request return the stored response verbatim.
	if cached, ok := o.sessions.CachedResponse(req.UserID, req.RequestID); ok {
		span.SetAttributes(attribute.Bool("request.replay", true))
		return *cached
	}

	key := req.UserID + "|" + req.RequestID
	result, _, _ := o.flight.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent replay may have
		// completed while this one waited.
		if cached, ok := o.sessions.CachedResponse(req.UserID, req.RequestID); ok {
			return *cached, nil
		}
		resp, role := o.process(ctx, req, caller)
		o.sessions.Record(req.UserID, resp, role, o.cfg.HistoryLimit)
		return resp, nil
	})

	resp := result.(models.AnalyticsResponse)
	o.metrics.ObserveRequest(string(resp.Status), time.Since(start))
	return resp
}

// process executes the pipeline for one request; exactly one invocation per
// RequestID reaches it.
func (o *Orchestrator) process(ctx context.Context, req models.AnalyticsRequest, caller permissions.Level) (resp models.AnalyticsResponse, role models.Role) {
	start := time.Now()
	resp.RequestID = req.RequestID

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("request_id", req.RequestID).
				Interface("panic", rec).
				Msg("Request pipeline panicked")
			resp = models.AnalyticsResponse{
				RequestID: req.RequestID,
				Status:    models.StatusFailed,
				Error:     models.NewError(models.ErrInternal, "internal error processing request"),
			}
		}
		resp.ExecutionTimeMs = time.Since(start).Milliseconds()
	}()

	role = o.contexts.DetectRole(hintsFor(req))
	profile, err := o.contexts.LoadContext(role, req.ContextHints)
	if err != nil {
		resp.Status = models.StatusFailed
		resp.Error = models.AsError(err)
		return resp, role
	}

	plan, planErr := o.buildPlan(req)
	if planErr != nil {
		resp.Status = models.StatusFailed
		resp.Error = planErr
		return resp, role
	}

	log.Debug().
		Str("request_id", req.RequestID).
		Str("role", string(role)).
		Int("steps", len(plan)).
		Msg("Plan built")

	results := o.dispatch(ctx, req, plan, profile, caller)
	resp.PerAgentResponses = results
	resp.Status = statusOf(plan, results)
	resp.SynthesizedResult = o.synthesize(plan, results)

	if resp.Status == models.StatusFailed {
		resp.Error = firstRequiredFailure(plan, results)
	}
	return resp, role
}

// dispatch fans a plan out over the worker pool and joins on completion.
// Synthesis never starts until every step has returned, failed, or timed
// out.
func (o *Orchestrator) dispatch(ctx context.Context, req models.AnalyticsRequest, plan []models.PlanStep, profile models.ContextProfile, caller permissions.Level) []models.AgentResponse {
	results := make([]models.AgentResponse, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.WorkerPoolSize)

	for i, step := range plan {
		i, step := i, step
		g.Go(func() error {
			results[i] = o.dispatchStep(gctx, req, step, profile, caller)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// dispatchStep runs one (worker, action) call with resource isolation and a
// bounded timeout.
func (o *Orchestrator) dispatchStep(ctx context.Context, req models.AnalyticsRequest, step models.PlanStep, profile models.ContextProfile, caller permissions.Level) models.AgentResponse {
	worker := o.workers[step.WorkerID]

	if step.WriteResource != "" {
		lock := o.resourceLock(step.WriteResource)
		lock.Lock()
		defer lock.Unlock()
	}

	timeout := o.cfg.TimeoutFloor
	if cap, ok := worker.Capability(step.Action); ok {
		scaled := time.Duration(o.cfg.TimeoutFactor*float64(cap.EstimatedDurationMs)) * time.Millisecond
		if scaled > timeout {
			timeout = scaled
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	userCtx := map[string]any{
		"query": req.Query,
		"role":  string(profile.Role),
	}

	start := time.Now()
	done := make(chan models.ActionResult, 1)
	go func() {
		done <- worker.ExecuteRequest(callCtx, step.Action, req.Parameters, userCtx, caller)
	}()

	var result models.ActionResult
	select {
	case result = <-done:
	case <-callCtx.Done():
		// The call is abandoned, not interrupted; its result, if any, is
		// discarded. Timeout fails this worker only.
		result = models.ActionResult{
			Error:     models.NewError(models.ErrTimeout, "worker %s action %s exceeded %s", step.WorkerID, step.Action, timeout),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	o.metrics.ObserveDispatch(step.WorkerID, result.Success)

	resp := models.AgentResponse{
		AgentID:         step.WorkerID,
		Result:          &result,
		ExecutionTimeMs: result.LatencyMs,
		Required:        step.Required,
	}
	if result.Success {
		resp.Status = models.StatusSuccess
	} else {
		resp.Status = models.StatusFailed
		resp.Error = result.Error
		log.Warn().
			Str("request_id", req.RequestID).
			Str("worker", step.WorkerID).
			Str("action", step.Action).
			Bool("required", step.Required).
			Err(result.Error).
			Msg("Worker call failed")
	}
	return resp
}

func (o *Orchestrator) resourceLock(resource string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	lock, ok := o.locks[resource]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[resource] = lock
	}
	return lock
}

// statusOf applies the partial-failure rules: any failed required step
// fails the request; failed optional steps alone degrade it to partial
// success.
func statusOf(plan []models.PlanStep, results []models.AgentResponse) models.ResponseStatus {
	optionalFailed := false
	for i, r := range results {
		if r.Status == models.StatusSuccess {
			continue
		}
		if plan[i].Required {
			return models.StatusFailed
		}
		optionalFailed = true
	}
	if optionalFailed {
		return models.StatusPartialSuccess
	}
	return models.StatusSuccess
}

func firstRequiredFailure(plan []models.PlanStep, results []models.AgentResponse) *models.Error {
	for i, r := range results {
		if plan[i].Required && r.Status != models.StatusSuccess {
			return r.Error
		}
	}
	return nil
}

// hintsFor merges the query into the caller's context hints so role
// detection sees both.
func hintsFor(req models.AnalyticsRequest) map[string]any {
	hints := make(map[string]any, len(req.ContextHints)+1)
	for k, v := range req.ContextHints {
		hints[k] = v
	}
	if req.Query != "" {
		if _, ok := hints["query"]; !ok {
			hints["query"] = req.Query
		}
	}
	return hints
}
