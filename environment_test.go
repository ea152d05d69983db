package luabridge

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/lua-bridge/errors"
)

func newTestEnv(t *testing.T, opts ...Option) *Environment {
	t.Helper()
	env, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { env.Close() })
	return env
}

func TestRun_ScalarReturns(t *testing.T) {
	env := newTestEnv(t)

	results, err := env.Run(`return true, 42, 3.5, "hi"`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	if results[0] != true {
		t.Fatalf("Expected true, got %v", results[0])
	}
	if results[1] != int64(42) {
		t.Fatalf("Expected int64(42), got %T %v", results[1], results[1])
	}
	if results[2] != 3.5 {
		t.Fatalf("Expected 3.5, got %v", results[2])
	}
	if results[3] != "hi" {
		t.Fatalf("Expected \"hi\", got %v", results[3])
	}
}

func TestRun_NoReturn(t *testing.T) {
	env := newTestEnv(t)

	results, err := env.Run(`x = 1`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no results, got %v", results)
	}
}

func TestRunWith_GlobalBinding(t *testing.T) {
	env := newTestEnv(t)

	results, err := env.RunWith(`return x + 1`, "x", 41)
	if err != nil {
		t.Fatalf("RunWith failed: %v", err)
	}
	if results[0] != int64(42) {
		t.Fatalf("Expected 42, got %v", results[0])
	}

	// The binding persists for later scripts.
	results, err = env.Run(`return x`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != int64(41) {
		t.Fatalf("Expected 41, got %v", results[0])
	}
}

func TestRun_CompileError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Run(`return +++`)
	if err == nil {
		t.Fatal("Expected a compile error")
	}
	if !errors.IsScriptError(err) {
		t.Fatalf("Expected a script error, got %v", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindSyntax {
		t.Fatalf("Expected syntax kind, got %v", err)
	}
}

func TestRun_RuntimeErrorCarriesText(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Run(`error("kaboom")`)
	if err == nil {
		t.Fatal("Expected a runtime error")
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Expected interpreter error text, got %v", err)
	}
}

func TestDefine(t *testing.T) {
	env := newTestEnv(t)

	if err := env.Define("answer", 42); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	results, err := env.Run(`return answer`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != int64(42) {
		t.Fatalf("Expected 42, got %v", results[0])
	}
}

func TestSandbox_Defaults(t *testing.T) {
	env := newTestEnv(t)

	results, err := env.Run(`return io == nil, debug == nil, loadfile == nil, dofile == nil, package.loadlib == nil`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, r := range results {
		if r != true {
			t.Fatalf("Expected restricted library %d to be gone, got %v", i, results)
		}
	}

	// The safe os subset survives.
	results, err = env.Run(`return os.clock ~= nil, os.getenv == nil`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != true || results[1] != true {
		t.Fatalf("Expected os whitelist, got %v", results)
	}
}

func TestSandbox_Toggles(t *testing.T) {
	env := newTestEnv(t, WithIOLib(), WithOSLib())

	results, err := env.Run(`return io ~= nil, os.getenv ~= nil, debug == nil`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != true || results[1] != true || results[2] != true {
		t.Fatalf("Unexpected library visibility: %v", results)
	}
}

func TestSandbox_AllLibs(t *testing.T) {
	env := newTestEnv(t, WithAllLibs())

	results, err := env.Run(`return io ~= nil, debug ~= nil`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != true || results[1] != true {
		t.Fatalf("Expected all libraries, got %v", results)
	}
}

func TestWithSetupScript(t *testing.T) {
	env := newTestEnv(t, WithSetupScript(`configured = "yes"`))

	results, err := env.Run(`return configured`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != "yes" {
		t.Fatalf("Expected setup script to run, got %v", results[0])
	}
}

func TestClose_OperationsFail(t *testing.T) {
	env, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := env.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := env.Close(); err != nil {
		t.Fatalf("Close must be idempotent: %v", err)
	}

	if _, err := env.Run(`return 1`); !errors.IsEnvironmentClosed(err) {
		t.Fatalf("Expected environment_closed, got %v", err)
	}
	if err := env.Define("x", 1); !errors.IsEnvironmentClosed(err) {
		t.Fatalf("Expected environment_closed, got %v", err)
	}
	if _, err := env.MakeTable(nil); !errors.IsEnvironmentClosed(err) {
		t.Fatalf("Expected environment_closed, got %v", err)
	}
}

func TestExposeModule_Map(t *testing.T) {
	env := newTestEnv(t)

	err := env.ExposeModule("config", map[string]any{
		"name":        "bridge",
		"_hostsecret": 7,
	})
	if err != nil {
		t.Fatalf("ExposeModule failed: %v", err)
	}

	results, err := env.Run(`local c = require("config") return c.name, c._secret`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != "bridge" {
		t.Fatalf("Expected module value, got %v", results[0])
	}
	if results[1] != int64(7) {
		t.Fatalf("Expected remapped reserved key, got %v", results[1])
	}

	// The module is also bound as a global.
	results, err = env.Run(`return config.name`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != "bridge" {
		t.Fatalf("Expected global binding, got %v", results[0])
	}
}

type calcModule struct {
	Version string
}

func (c *calcModule) Add(a, b int) int { return a + b }

func (c *calcModule) DivMod(a, b int) (int, int, error) {
	if b == 0 {
		return 0, 0, errors.BadArgument(errors.PhaseHost, "division by zero")
	}
	return a / b, a % b, nil
}

func TestExposeModule_Reflected(t *testing.T) {
	env := newTestEnv(t)

	if err := env.ExposeModule("calc", &calcModule{Version: "1.0"}); err != nil {
		t.Fatalf("ExposeModule failed: %v", err)
	}

	results, err := env.Run(`return calc.Add(2, 3), calc.Version`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0] != int64(5) {
		t.Fatalf("Expected 5, got %v", results[0])
	}
	if results[1] != "1.0" {
		t.Fatalf("Expected exported field, got %v", results[1])
	}

	results, err = env.Run(`return calc.DivMod(7, 2)`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 || results[0] != int64(3) || results[1] != int64(1) {
		t.Fatalf("Expected multiple returns (3, 1), got %v", results)
	}

	if _, err := env.Run(`return calc.DivMod(1, 0)`); err == nil {
		t.Fatal("Expected the method error to cross the boundary")
	} else if !strings.Contains(err.Error(), "division by zero") {
		t.Fatalf("Expected error text preserved, got %v", err)
	}
}

func TestEnvironments_Independent(t *testing.T) {
	a := newTestEnv(t)
	b := newTestEnv(t)

	if err := a.Define("who", "a"); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := b.Define("who", "b"); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	ra, _ := a.Run(`return who`)
	rb, _ := b.Run(`return who`)
	if ra[0] != "a" || rb[0] != "b" {
		t.Fatalf("Environments leaked globals: %v %v", ra, rb)
	}
}
