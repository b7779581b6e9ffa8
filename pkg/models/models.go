// Package models defines the shared data model for the Courtside analytics
// orchestration core: roles, context profiles, tools, workers, requests,
// responses, and sessions. All components depend on this package; it depends
// only on pkg/permissions.
package models

import (
	"time"

	"github.com/courtside/courtside/pkg/permissions"
)

// ── Roles & Context ──────────────────────────────────────────

// Role classifies a caller and drives context scope and token budget.
type Role string

const (
	RoleAnalyst       Role = "analyst"
	RoleDataScientist Role = "data_scientist"
	RoleProduction    Role = "production"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAnalyst, RoleDataScientist, RoleProduction:
		return true
	}
	return false
}

// Segment is a named, weighted unit of role-specific content. Segments are
// atomic: a segment is either included whole in a context profile or not at
// all.
type Segment struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	TokenCost int     `json:"token_cost"`
}

// RoleDefinition is the static, immutable configuration of a role. Supplied
// at startup; the context manager never mutates it. Segments are listed in
// declared priority order; assembly is greedy over this order.
type RoleDefinition struct {
	Role                Role
	TokenBudgetFraction float64
	DataScope           string
	FocusAreas          []string
	Segments            []Segment

	// SignalWeights maps a hint signal kind ("query", "notebook", "model")
	// to its scoring weight during role detection. Treated as configuration,
	// not hard-coded logic.
	SignalWeights map[string]float64
}

// ContextProfile is the token-budgeted content bundle assembled for a role.
type ContextProfile struct {
	Role             Role      `json:"role"`
	TokenBudget      int       `json:"token_budget"`
	SelectedSegments []Segment `json:"selected_segments"`
	AssembledSize    int       `json:"assembled_size"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// ── Tools ────────────────────────────────────────────────────

// ToolHandler executes tool-specific logic. The core never inspects handler
// internals; any error or panic is converted into a structured ToolResult.
type ToolHandler func(params map[string]any) (any, error)

// Tool is a reusable, permission-gated function registered at startup.
// Immutable after registration.
type Tool struct {
	Name               string
	Category           string
	RequiredPermission permissions.Level
	ParamSchema        map[string]any
	Handler            ToolHandler
}

// ToolDescriptor is the externally visible description of a registered tool.
type ToolDescriptor struct {
	Name               string            `json:"name"`
	Category           string            `json:"category"`
	RequiredPermission permissions.Level `json:"required_permission"`
	ParamSchema        map[string]any    `json:"param_schema,omitempty"`
}

// ToolResult is the structured outcome of one tool invocation.
type ToolResult struct {
	Success   bool   `json:"success"`
	Value     any    `json:"value,omitempty"`
	Error     *Error `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// ToolStats is a read-only snapshot of a tool's process-wide counters.
type ToolStats struct {
	Calls        uint64 `json:"calls"`
	Failures     uint64 `json:"failures"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}

// ── Workers ──────────────────────────────────────────────────

// Capability is a named action a worker can perform, gated by a required
// permission level. Owned by exactly one worker and immutable once the
// worker is constructed.
type Capability struct {
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	RequiredPermission  permissions.Level `json:"required_permission"`
	RequiredTools       []string          `json:"required_tools,omitempty"`
	EstimatedDurationMs int64             `json:"estimated_duration_ms"`
}

// ActionResult is the outcome of one worker action execution.
type ActionResult struct {
	Success   bool   `json:"success"`
	Value     any    `json:"value,omitempty"`
	Error     *Error `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// PerformanceCounters is a read-only snapshot of a worker's monotonically
// accumulating metrics.
type PerformanceCounters struct {
	TotalRequests        uint64 `json:"total_requests"`
	TotalExecutionTimeMs int64  `json:"total_execution_time_ms"`
	FailedRequests       uint64 `json:"failed_requests"`
	RejectedRequests     uint64 `json:"rejected_requests"`
}

// Insight is the preferred Value shape for analytic worker results. The
// synthesizer understands it: Text contributes to the merged narrative,
// Facts participate in confidence-based conflict resolution.
type Insight struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Facts      map[string]Fact `json:"facts,omitempty"`
}

// Fact is a single keyed claim with a confidence tag.
type Fact struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ── Requests & Responses ─────────────────────────────────────

// AnalyticsRequest is one logical caller request. RequestID is
// caller-supplied and must be unique per logical request; replays with the
// same RequestID return the originally stored response.
type AnalyticsRequest struct {
	RequestID    string         `json:"request_id"`
	UserID       string         `json:"user_id"`
	Query        string         `json:"query"`
	QueryType    string         `json:"query_type"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	ContextHints map[string]any `json:"context_hints,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ResponseStatus is the terminal status of a request or a per-worker call.
type ResponseStatus string

const (
	StatusSuccess        ResponseStatus = "success"
	StatusPartialSuccess ResponseStatus = "partial_success"
	StatusFailed         ResponseStatus = "failed"
)

// AgentResponse records one worker's contribution to a request.
type AgentResponse struct {
	AgentID         string         `json:"agent_id"`
	Status          ResponseStatus `json:"status"`
	Result          *ActionResult  `json:"result,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Error           *Error         `json:"error,omitempty"`
	Required        bool           `json:"required"`
}

// AnalyticsResponse is the synthesized outcome of one request. Every request
// terminates in a well-formed AnalyticsResponse, whatever went wrong inside.
type AnalyticsResponse struct {
	RequestID         string          `json:"request_id"`
	Status            ResponseStatus  `json:"status"`
	SynthesizedResult string          `json:"synthesized_result"`
	PerAgentResponses []AgentResponse `json:"per_agent_responses"`
	ExecutionTimeMs   int64           `json:"execution_time_ms"`
	Error             *Error          `json:"error,omitempty"`
}

// ── Planning ─────────────────────────────────────────────────

// PlanStep is one (worker, action) pair scheduled for a request. A required
// step's failure fails the whole request; other steps are best-effort
// enrichments. WriteResource names the external resource the step mutates;
// empty means the step is read-only.
type PlanStep struct {
	WorkerID      string
	Action        string
	Required      bool
	WriteResource string
}

// RoutingTable maps query categories to ordered plan steps, plus the keyword
// rules that assign free-form queries to a category. Static configuration,
// supplied at startup.
type RoutingTable struct {
	Categories      map[string][]PlanStep
	KeywordRules    []KeywordRule
	DefaultCategory string
}

// KeywordRule assigns a query to a category when any keyword matches.
type KeywordRule struct {
	Keywords []string
	Category string
}

// ── Sessions ─────────────────────────────────────────────────

// Session is the per-user accumulated request history and response cache.
// Created on the first request from a user, mutated only by the
// orchestrator, never deleted automatically.
type Session struct {
	UserID string `json:"user_id"`

	// History is a bounded ring of recent responses, oldest evicted first.
	History []AnalyticsResponse `json:"history"`

	LastRole Role `json:"last_role,omitempty"`

	// Cache maps RequestID to the stored response. Set at most once per
	// RequestID; replays return the stored value verbatim.
	Cache map[string]*AnalyticsResponse `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendHistory appends a response, evicting the oldest entry once the ring
// holds limit responses.
func (s *Session) AppendHistory(resp AnalyticsResponse, limit int) {
	s.History = append(s.History, resp)
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}
