package agents

import (
	"context"
	"testing"

	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

// fakeTools is a minimal ToolSource that records the effective permission
// each call arrived with. Registered tools require ReadOnly unless levels
// says otherwise.
type fakeTools struct {
	registered map[string]bool
	levels     map[string]permissions.Level
	lastLevel  permissions.Level
	calls      int
	fail       bool
}

func (f *fakeTools) Has(name string) bool { return f.registered[name] }

func (f *fakeTools) RequiredPermission(name string) (permissions.Level, bool) {
	if !f.registered[name] {
		return 0, false
	}
	if lvl, ok := f.levels[name]; ok {
		return lvl, true
	}
	return permissions.ReadOnly, true
}

func (f *fakeTools) Execute(name string, params map[string]any, effective permissions.Level) models.ToolResult {
	f.lastLevel = effective
	f.calls++
	if !f.registered[name] {
		return models.ToolResult{Error: models.NewError(models.ErrUnknownAction, "tool not registered: %s", name)}
	}
	if f.fail {
		return models.ToolResult{Error: models.NewError(models.ErrToolExecution, "tool %s failed", name)}
	}
	return models.ToolResult{Success: true, Value: "ok"}
}

func newTestWorker(t *testing.T, tools ToolSource) *Worker {
	t.Helper()
	caps := []models.Capability{
		{Name: "lookup", RequiredPermission: permissions.ReadOnly, RequiredTools: []string{"stats_load"}},
		{Name: "mutate", RequiredPermission: permissions.ReadExecuteWrite},
	}
	logic := map[string]ActionFunc{
		"lookup": func(ctx context.Context, params, userCtx map[string]any, tb Toolbox) (any, error) {
			res := tb.Execute("stats_load", nil)
			if !res.Success {
				return nil, res.Error
			}
			return res.Value, nil
		},
		"mutate": func(ctx context.Context, params, userCtx map[string]any, tb Toolbox) (any, error) {
			return "written", nil
		},
	}
	w, err := New("test_worker", "Test", permissions.ReadExecuteWrite, caps, logic, tools)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestNewRejectsUnregisteredRequiredTool(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{}}
	caps := []models.Capability{
		{Name: "lookup", RequiredPermission: permissions.ReadOnly, RequiredTools: []string{"stats_load"}},
	}
	logic := map[string]ActionFunc{
		"lookup": func(ctx context.Context, params, userCtx map[string]any, tb Toolbox) (any, error) {
			return nil, nil
		},
	}
	_, err := New("w", "W", permissions.ReadOnly, caps, logic, tools)
	if models.CodeOf(err) != models.ErrInvalidCapability {
		t.Fatalf("expected invalid_capability, got %v", err)
	}
}

func TestNewRejectsMissingLogic(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{"stats_load": true}}
	caps := []models.Capability{
		{Name: "lookup", RequiredPermission: permissions.ReadOnly},
	}
	_, err := New("w", "W", permissions.ReadOnly, caps, map[string]ActionFunc{}, tools)
	if models.CodeOf(err) != models.ErrInvalidCapability {
		t.Fatalf("expected invalid_capability, got %v", err)
	}
}

func TestNewRejectsDuplicateCapability(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{}}
	caps := []models.Capability{
		{Name: "lookup", RequiredPermission: permissions.ReadOnly},
		{Name: "lookup", RequiredPermission: permissions.ReadOnly},
	}
	logic := map[string]ActionFunc{
		"lookup": func(ctx context.Context, params, userCtx map[string]any, tb Toolbox) (any, error) {
			return nil, nil
		},
	}
	_, err := New("w", "W", permissions.ReadOnly, caps, logic, tools)
	if models.CodeOf(err) != models.ErrInvalidCapability {
		t.Fatalf("expected invalid_capability, got %v", err)
	}
}

func TestExecuteRequestUnknownAction(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{"stats_load": true}}
	w := newTestWorker(t, tools)

	res := w.ExecuteRequest(context.Background(), "no_such_action", nil, nil, permissions.Admin)
	if models.CodeOf(res.Error) != models.ErrUnknownAction {
		t.Fatalf("expected unknown_action, got %v", res.Error)
	}

	c := w.Counters()
	if c.TotalRequests != 0 || c.RejectedRequests != 0 {
		t.Errorf("unknown action must not touch counters, got %+v", c)
	}
}

func TestExecuteRequestPermissionGate(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{"stats_load": true}}
	w := newTestWorker(t, tools)

	res := w.ExecuteRequest(context.Background(), "mutate", nil, nil, permissions.ReadExecute)
	if models.CodeOf(res.Error) != models.ErrPermissionDenied {
		t.Fatalf("expected permission_denied, got %v", res.Error)
	}

	c := w.Counters()
	if c.RejectedRequests != 1 {
		t.Errorf("rejected = %d, want 1", c.RejectedRequests)
	}
	if c.TotalRequests != 0 || c.FailedRequests != 0 {
		t.Errorf("denial must update only the rejection counter, got %+v", c)
	}
}

func TestExecuteRequestRequiredToolPermissionGate(t *testing.T) {
	tools := &fakeTools{
		registered: map[string]bool{"secret_write": true},
		levels:     map[string]permissions.Level{"secret_write": permissions.Admin},
	}
	logicRan := 0
	caps := []models.Capability{
		{Name: "leak", RequiredPermission: permissions.ReadOnly, RequiredTools: []string{"secret_write"}},
	}
	logic := map[string]ActionFunc{
		"leak": func(ctx context.Context, params, userCtx map[string]any, tb Toolbox) (any, error) {
			logicRan++
			return tb.Execute("secret_write", nil).Value, nil
		},
	}
	w, err := New("w", "W", permissions.Admin, caps, logic, tools)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Capability level clears ReadExecute, but the declared tool demands
	// Admin; the call must be rejected before any logic runs.
	res := w.ExecuteRequest(context.Background(), "leak", nil, nil, permissions.ReadExecute)
	if models.CodeOf(res.Error) != models.ErrPermissionDenied {
		t.Fatalf("expected permission_denied, got %v", res.Error)
	}
	if logicRan != 0 {
		t.Errorf("action logic ran %d times, want 0", logicRan)
	}
	if tools.calls != 0 {
		t.Errorf("tool invoked %d times, want 0", tools.calls)
	}

	c := w.Counters()
	if c.RejectedRequests != 1 {
		t.Errorf("rejected = %d, want 1", c.RejectedRequests)
	}
	if c.TotalRequests != 0 || c.FailedRequests != 0 {
		t.Errorf("denial must update only the rejection counter, got %+v", c)
	}

	// An Admin caller clears both gates.
	if res := w.ExecuteRequest(context.Background(), "leak", nil, nil, permissions.Admin); !res.Success {
		t.Fatalf("admin call: %v", res.Error)
	}
	if logicRan != 1 {
		t.Errorf("action logic ran %d times, want 1", logicRan)
	}
}

func TestExecuteRequestSuccessCounters(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{"stats_load": true}}
	w := newTestWorker(t, tools)

	for i := 0; i < 3; i++ {
		res := w.ExecuteRequest(context.Background(), "lookup", nil, nil, permissions.ReadOnly)
		if !res.Success {
			t.Fatalf("call %d: %v", i, res.Error)
		}
	}

	c := w.Counters()
	if c.TotalRequests != 3 {
		t.Errorf("total = %d, want 3", c.TotalRequests)
	}
	if c.FailedRequests != 0 || c.RejectedRequests != 0 {
		t.Errorf("unexpected failures in %+v", c)
	}
}

func TestExecuteRequestToolFailureCountsAsFailed(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{"stats_load": true}, fail: true}
	w := newTestWorker(t, tools)

	res := w.ExecuteRequest(context.Background(), "lookup", nil, nil, permissions.ReadOnly)
	if res.Success {
		t.Fatal("expected failure")
	}

	c := w.Counters()
	if c.TotalRequests != 1 || c.FailedRequests != 1 {
		t.Errorf("counters = %+v, want total 1 failed 1", c)
	}
}

func TestExecuteRequestPanicContained(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{}}
	caps := []models.Capability{
		{Name: "boom", RequiredPermission: permissions.ReadOnly},
	}
	logic := map[string]ActionFunc{
		"boom": func(ctx context.Context, params, userCtx map[string]any, tb Toolbox) (any, error) {
			panic("kaboom")
		},
	}
	w, err := New("w", "W", permissions.ReadOnly, caps, logic, tools)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := w.ExecuteRequest(context.Background(), "boom", nil, nil, permissions.Admin)
	if models.CodeOf(res.Error) != models.ErrInternal {
		t.Fatalf("expected internal error, got %v", res.Error)
	}

	c := w.Counters()
	if c.TotalRequests != 1 || c.FailedRequests != 1 {
		t.Errorf("counters = %+v, want total 1 failed 1", c)
	}
}

func TestToolboxBindsCallerPermission(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{"stats_load": true}}
	w := newTestWorker(t, tools)

	// Worker itself is ReadExecuteWrite, but a ReadOnly caller's tool calls
	// must carry ReadOnly.
	res := w.ExecuteRequest(context.Background(), "lookup", nil, nil, permissions.ReadOnly)
	if !res.Success {
		t.Fatalf("lookup: %v", res.Error)
	}
	if tools.lastLevel != permissions.ReadOnly {
		t.Errorf("tool saw permission %v, want ReadOnly", tools.lastLevel)
	}
}

func TestCapabilitiesDeclarationOrder(t *testing.T) {
	tools := &fakeTools{registered: map[string]bool{"stats_load": true}}
	w := newTestWorker(t, tools)

	caps := w.Capabilities()
	if len(caps) != 2 || caps[0].Name != "lookup" || caps[1].Name != "mutate" {
		t.Errorf("unexpected capability order: %+v", caps)
	}
}
