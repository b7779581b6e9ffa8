package toolregistry_test

import (
	"errors"
	"testing"

	"github.com/courtside/courtside/internal/toolregistry"
	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

func newTestRegistry(t *testing.T) *toolregistry.Registry {
	t.Helper()
	return toolregistry.New(nil)
}

func echoTool(name string, required permissions.Level) models.Tool {
	return models.Tool{
		Name:               name,
		Category:           "test",
		RequiredPermission: required,
		ParamSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"msg": map[string]any{"type": "string"}},
			"required":   []string{"msg"},
		},
		Handler: func(params map[string]any) (any, error) {
			return params["msg"], nil
		},
	}
}

// ─── Registration ────────────────────────────────────────────

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Register(echoTool("echo", permissions.ReadOnly)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register(echoTool("echo", permissions.ReadOnly))
	if !models.IsCode(err, models.ErrDuplicateTool) {
		t.Errorf("duplicate Register() error = %v, want code %s", err, models.ErrDuplicateTool)
	}
}

func TestRegisterMalformedSchema(t *testing.T) {
	r := newTestRegistry(t)

	tool := models.Tool{
		Name:               "broken",
		RequiredPermission: permissions.ReadOnly,
		ParamSchema: map[string]any{
			"properties": map[string]any{"x": map[string]any{"type": "quantum"}},
		},
		Handler: func(map[string]any) (any, error) { return nil, nil },
	}
	err := r.Register(tool)
	if !models.IsCode(err, models.ErrInvalidSchema) {
		t.Errorf("Register() error = %v, want code %s", err, models.ErrInvalidSchema)
	}
}

func TestRegisterRequiredNotDeclared(t *testing.T) {
	r := newTestRegistry(t)

	tool := models.Tool{
		Name:               "broken",
		RequiredPermission: permissions.ReadOnly,
		ParamSchema: map[string]any{
			"properties": map[string]any{"x": map[string]any{"type": "string"}},
			"required":   []string{"y"},
		},
		Handler: func(map[string]any) (any, error) { return nil, nil },
	}
	if err := r.Register(tool); !models.IsCode(err, models.ErrInvalidSchema) {
		t.Errorf("Register() error = %v, want code %s", err, models.ErrInvalidSchema)
	}
}

// ─── Listing ─────────────────────────────────────────────────

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)

	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		if err := r.Register(echoTool(name, permissions.ReadOnly)); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	descs := r.List(permissions.Admin)
	if len(descs) != 3 {
		t.Fatalf("List() returned %d tools, want 3", len(descs))
	}
	for i, name := range names {
		if descs[i].Name != name {
			t.Errorf("List()[%d].Name = %q, want %q (registration order)", i, descs[i].Name, name)
		}
	}
}

func TestListFiltersByPermission(t *testing.T) {
	r := newTestRegistry(t)

	r.Register(echoTool("public", permissions.ReadOnly))
	r.Register(echoTool("privileged", permissions.Admin))

	descs := r.List(permissions.ReadExecute)
	if len(descs) != 1 || descs[0].Name != "public" {
		t.Errorf("List(ReadExecute) = %v, want only \"public\"", descs)
	}
}

// ─── Execution ───────────────────────────────────────────────

func TestExecuteSuccess(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(echoTool("echo", permissions.ReadExecute))

	res := r.Execute("echo", map[string]any{"msg": "hello"}, permissions.ReadExecute)
	if !res.Success {
		t.Fatalf("Execute() failed: %v", res.Error)
	}
	if res.Value != "hello" {
		t.Errorf("Execute().Value = %v, want \"hello\"", res.Value)
	}

	stats, ok := r.Stats("echo")
	if !ok {
		t.Fatal("Stats() not found for registered tool")
	}
	if stats.Calls != 1 {
		t.Errorf("Stats().Calls = %d, want 1", stats.Calls)
	}
}

func TestExecutePermissionDeniedBeforeValidation(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(echoTool("gated", permissions.Admin))

	// Params are invalid too; the permission error must win so schema
	// details never leak to unauthorized callers.
	res := r.Execute("gated", map[string]any{"bogus": 1}, permissions.ReadExecute)
	if res.Success {
		t.Fatal("Execute() should have failed")
	}
	if res.Error.Code != models.ErrPermissionDenied {
		t.Errorf("Execute().Error.Code = %s, want %s", res.Error.Code, models.ErrPermissionDenied)
	}

	stats, _ := r.Stats("gated")
	if stats.Calls != 0 {
		t.Errorf("call counter = %d after denial, want 0", stats.Calls)
	}
}

func TestExecuteValidation(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(echoTool("echo", permissions.ReadOnly))

	cases := []struct {
		name   string
		params map[string]any
	}{
		{"missing required", map[string]any{}},
		{"wrong type", map[string]any{"msg": 42}},
		{"unknown param", map[string]any{"msg": "ok", "extra": true}},
	}
	for _, tc := range cases {
		res := r.Execute("echo", tc.params, permissions.ReadOnly)
		if res.Success || res.Error.Code != models.ErrValidation {
			t.Errorf("%s: Execute() = %+v, want validation error", tc.name, res)
		}
	}

	stats, _ := r.Stats("echo")
	if stats.Calls != 0 {
		t.Errorf("call counter = %d after validation failures, want 0", stats.Calls)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := newTestRegistry(t)

	res := r.Execute("ghost", nil, permissions.Admin)
	if res.Success || res.Error.Code != models.ErrUnknownAction {
		t.Errorf("Execute(unknown) = %+v, want code %s", res, models.ErrUnknownAction)
	}
}

func TestExecuteHandlerError(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(models.Tool{
		Name:               "flaky",
		RequiredPermission: permissions.ReadOnly,
		Handler: func(map[string]any) (any, error) {
			return nil, errors.New("upstream unavailable")
		},
	})

	res := r.Execute("flaky", nil, permissions.ReadOnly)
	if res.Success || res.Error.Code != models.ErrToolExecution {
		t.Errorf("Execute() = %+v, want code %s", res, models.ErrToolExecution)
	}

	stats, _ := r.Stats("flaky")
	if stats.Calls != 1 || stats.Failures != 1 {
		t.Errorf("stats = %+v, want 1 call, 1 failure", stats)
	}
}

func TestExecuteHandlerPanicIsContained(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(models.Tool{
		Name:               "bomb",
		RequiredPermission: permissions.ReadOnly,
		Handler: func(map[string]any) (any, error) {
			panic("boom")
		},
	})

	res := r.Execute("bomb", nil, permissions.ReadOnly)
	if res.Success {
		t.Fatal("Execute() of panicking handler should fail")
	}
	if res.Error.Code != models.ErrToolExecution {
		t.Errorf("Execute().Error.Code = %s, want %s", res.Error.Code, models.ErrToolExecution)
	}
}

func TestToolWithNoParams(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(models.Tool{
		Name:               "ping",
		RequiredPermission: permissions.ReadOnly,
		Handler:            func(map[string]any) (any, error) { return "pong", nil },
	})

	if res := r.Execute("ping", nil, permissions.ReadOnly); !res.Success {
		t.Errorf("Execute() with nil params = %+v, want success", res)
	}
	res := r.Execute("ping", map[string]any{"x": 1}, permissions.ReadOnly)
	if res.Success || res.Error.Code != models.ErrValidation {
		t.Errorf("Execute() with unexpected params = %+v, want validation error", res)
	}
}
