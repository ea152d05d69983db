package luabridge

import (
	"strings"
	"testing"

	"github.com/wippyai/lua-bridge/errors"
)

func scriptFunction(t *testing.T, env *Environment, script string) *Function {
	t.Helper()
	results, err := env.Run(script)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	fn, ok := results[0].(*Function)
	if !ok {
		t.Fatalf("Expected a function proxy, got %T", results[0])
	}
	return fn
}

func TestFunction_Call(t *testing.T) {
	env := newTestEnv(t)
	fn := scriptFunction(t, env, `return function(a, b) return a + b end`)

	result, err := fn.Call(2, 3)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != int64(5) {
		t.Fatalf("Expected 5, got %v", result)
	}
}

func TestFunction_CallCollapse(t *testing.T) {
	env := newTestEnv(t)

	// No returns collapse to nil.
	fn := scriptFunction(t, env, `return function() end`)
	result, err := fn.Call()
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != nil {
		t.Fatalf("Expected nil, got %v", result)
	}

	// Multiple returns collapse to an ordered sequence.
	fn = scriptFunction(t, env, `return function() return 1, 2 end`)
	result, err = fn.Call()
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	seq, ok := result.([]any)
	if !ok {
		t.Fatalf("Expected a sequence, got %T", result)
	}
	if len(seq) != 2 || seq[0] != int64(1) || seq[1] != int64(2) {
		t.Fatalf("Expected [1 2], got %v", seq)
	}
}

func TestFunction_CallMulti(t *testing.T) {
	env := newTestEnv(t)
	fn := scriptFunction(t, env, `return function(n) return n, n * 2, n * 3 end`)

	results, err := fn.CallMulti(2)
	if err != nil {
		t.Fatalf("CallMulti failed: %v", err)
	}
	if len(results) != 3 || results[2] != int64(6) {
		t.Fatalf("Expected [2 4 6], got %v", results)
	}
}

func TestFunction_ScriptErrorSurfaces(t *testing.T) {
	env := newTestEnv(t)
	fn := scriptFunction(t, env, `return function() error("inner failure") end`)

	_, err := fn.Call()
	if err == nil {
		t.Fatal("Expected the script error to surface")
	}
	if !strings.Contains(err.Error(), "inner failure") {
		t.Fatalf("Expected the script error text, got %v", err)
	}
}

func TestFunction_TableArgument(t *testing.T) {
	env := newTestEnv(t)
	fn := scriptFunction(t, env, `return function(t) return #t end`)

	tbl := makeListTable(t, env, 1, 2, 3)
	result, err := fn.Call(tbl)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != int64(3) {
		t.Fatalf("Expected 3, got %v", result)
	}
}

func TestFunction_Closure(t *testing.T) {
	env := newTestEnv(t)
	fn := scriptFunction(t, env, `
		local count = 0
		return function() count = count + 1 return count end
	`)

	for want := int64(1); want <= 3; want++ {
		result, err := fn.Call()
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if result != want {
			t.Fatalf("Expected %d, got %v", want, result)
		}
	}
}

func TestFunction_Release(t *testing.T) {
	env := newTestEnv(t)

	before := env.References().Len()
	fn := scriptFunction(t, env, `return function() end`)
	if env.References().Len() != before+1 {
		t.Fatalf("Expected a pinned slot, got %d", env.References().Len())
	}

	if err := fn.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := fn.Release(); err != nil {
		t.Fatalf("Release must be idempotent: %v", err)
	}
	if env.References().Len() != before {
		t.Fatalf("Expected the slot returned, got %d", env.References().Len())
	}

	if _, err := fn.Call(); err == nil {
		t.Fatal("Calling a released proxy must fail")
	}
}

func TestFunction_AfterEnvironmentClose(t *testing.T) {
	env, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	results, err := env.Run(`return function() end`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	fn := results[0].(*Function)
	env.Close()

	if _, err := fn.Call(); !errors.IsEnvironmentClosed(err) {
		t.Fatalf("Expected environment_closed, got %v", err)
	}
}
