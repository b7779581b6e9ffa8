// Package handlers implements the HTTP handlers for the Courtside
// orchestration API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/courtside/courtside/internal/api/middleware"
	"github.com/courtside/courtside/internal/contextmgr"
	"github.com/courtside/courtside/internal/orchestrator"
	"github.com/courtside/courtside/internal/sessions"
	"github.com/courtside/courtside/internal/toolregistry"
	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *toolregistry.Registry
	Contexts     *contextmgr.Manager
	Sessions     sessions.Store
}

// New creates a Handlers instance.
func New(o *orchestrator.Orchestrator, reg *toolregistry.Registry, cm *contextmgr.Manager, store sessions.Store) *Handlers {
	return &Handlers{
		Orchestrator: o,
		Registry:     reg,
		Contexts:     cm,
		Sessions:     store,
	}
}

// ── Analytics ────────────────────────────────────────────────

// Query runs one analytics request through the orchestrator.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	caller := middleware.PermissionLevel(r.Context())
	resp := h.Orchestrator.ProcessRequest(r.Context(), req, caller)

	code := http.StatusOK
	if resp.Status == models.StatusFailed {
		code = statusCodeFor(resp.Error)
	}
	respondJSON(w, code, resp)
}

// ── Tools ────────────────────────────────────────────────────

// ListTools lists the registered tools visible at the caller's effective
// permission level.
func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PermissionLevel(r.Context())
	tools := h.Registry.List(caller)
	respondJSON(w, http.StatusOK, map[string]any{
		"tools": tools,
		"count": len(tools),
	})
}

// ToolStats returns call counters for one tool.
func (h *Handlers) ToolStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "toolName")
	stats, ok := h.Registry.Stats(name)
	if !ok {
		respondError(w, http.StatusNotFound, "tool not found: "+name)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tool":  name,
		"stats": stats,
	})
}

// ── Workers ──────────────────────────────────────────────────

type workerInfo struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Permission   permissions.Level          `json:"permission_level"`
	Capabilities []models.Capability        `json:"capabilities"`
	Counters     models.PerformanceCounters `json:"counters"`
}

// ListWorkers lists registered workers with their capabilities and
// performance counters.
func (h *Handlers) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers := h.Orchestrator.Workers()
	out := make([]workerInfo, 0, len(workers))
	for _, wk := range workers {
		out = append(out, workerInfo{
			ID:           wk.ID(),
			Name:         wk.Name(),
			Permission:   wk.PermissionLevel(),
			Capabilities: wk.Capabilities(),
			Counters:     wk.Counters(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"workers": out,
		"count":   len(out),
	})
}

// ── Context ──────────────────────────────────────────────────

// GetContext assembles and returns the context profile for a role.
func (h *Handlers) GetContext(w http.ResponseWriter, r *http.Request) {
	role := models.Role(chi.URLParam(r, "role"))
	profile, err := h.Contexts.LoadContext(role, nil)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// InvalidateContext drops all cached context profiles. Admin only.
func (h *Handlers) InvalidateContext(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PermissionLevel(r.Context())
	if !permissions.Check(caller, permissions.Admin) {
		respondError(w, http.StatusForbidden, "admin permission required")
		return
	}
	h.Contexts.Invalidate()
	log.Info().Msg("Context cache invalidated")
	respondJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// ── Sessions ─────────────────────────────────────────────────

// GetSession returns the session for a user.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sess, ok := h.Sessions.Get(userID)
	if !ok {
		respondError(w, http.StatusNotFound, "no session for user "+userID)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// ListSessions lists all sessions.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.List()
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": sess,
		"count":    len(sess),
	})
}

// ── Helpers ──────────────────────────────────────────────────

// statusCodeFor maps a failed response's error code to an HTTP status.
// Partial successes stay 200; the body carries the degradation.
func statusCodeFor(err *models.Error) int {
	if err == nil {
		return http.StatusOK
	}
	switch err.Code {
	case models.ErrPermissionDenied:
		return http.StatusForbidden
	case models.ErrValidation, models.ErrUnknownRole:
		return http.StatusBadRequest
	case models.ErrUnknownAction, models.ErrUnknownWorker:
		return http.StatusNotFound
	case models.ErrDependencyConflict:
		return http.StatusConflict
	case models.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}
