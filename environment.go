package luabridge

import (
	"go.uber.org/zap"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-bridge/errors"
	"github.com/wippyai/lua-bridge/registry"
)

// Environment owns one interpreter instance and its two registries. It is
// the unit of isolation: handles and proxies from different environments
// are never interchangeable, and Close invalidates everything derived from
// this environment.
type Environment struct {
	state   *lua.LState
	objects *registry.HostObjects
	refs    *registry.References
	mt      *lua.LTable
	logger  *zap.Logger

	// table.remove, pinned at construction; drives Table.Remove.
	tableRemove *Function

	closed bool
}

type config struct {
	logger *zap.Logger
	setup  []string
	libs   libraries
}

// Option configures an Environment at construction.
type Option func(*config)

// WithSetupScript runs a configuration script before any user code
// executes. Scripts run in registration order, after sandboxing.
func WithSetupScript(script string) Option {
	return func(c *config) { c.setup = append(c.setup, script) }
}

// New creates an Environment with the configured standard library subsets.
// By default the debug library, io library, loadfile/dofile, dynamic
// library loading, and most of the os library are disabled.
func New(opts ...Option) (*Environment, error) {
	cfg := &config{logger: nopLogger}
	for _, opt := range opts {
		opt(cfg)
	}

	L := lua.NewState()
	env := &Environment{
		state:   L,
		objects: registry.NewHostObjects(),
		refs:    registry.NewReferences(),
		logger:  cfg.logger,
	}
	env.mt = env.newDispatchTable()

	if err := env.applySandbox(cfg.libs); err != nil {
		L.Close()
		return nil, err
	}
	for _, script := range cfg.setup {
		if _, err := env.Run(script); err != nil {
			L.Close()
			return nil, err
		}
	}

	// Pin table.remove so Table.Remove keeps working even if a script
	// replaces the global table module later.
	rm := L.GetField(L.GetGlobal("table"), "remove")
	fn, err := newFunction(env, rm)
	if err != nil {
		L.Close()
		return nil, err
	}
	env.tableRemove = fn

	return env, nil
}

// Run compiles and executes a script, returning all values the chunk
// returns. Compile failures surface as compile/syntax errors without
// touching interpreter state; execution failures as run/runtime errors
// carrying the interpreter's error text.
func (e *Environment) Run(script string) ([]any, error) {
	return e.run(script, "chunk", "", nil)
}

// RunWith binds a global before executing the script, making the value
// visible to it and to subsequently run scripts.
func (e *Environment) RunWith(script, globalName string, globalValue any) ([]any, error) {
	return e.run(script, "chunk", globalName, globalValue)
}

// RunFile loads and executes a script file.
func (e *Environment) RunFile(path string) ([]any, error) {
	if e.closed {
		return nil, errors.EnvironmentClosed(errors.PhaseRun)
	}

	fn, err := e.state.LoadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindSyntax).
			Detail("%s", luaErrText(err)).
			Build()
	}
	return e.pcall(fn, nil)
}

func (e *Environment) run(script, name, globalName string, globalValue any) ([]any, error) {
	if e.closed {
		return nil, errors.EnvironmentClosed(errors.PhaseRun)
	}

	if globalName != "" {
		if err := e.Define(globalName, globalValue); err != nil {
			return nil, err
		}
	}

	fn, err := e.state.LoadString(script)
	if err != nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindSyntax).
			Path(name).
			Detail("%s", luaErrText(err)).
			Build()
	}
	return e.pcall(fn, nil)
}

// pcall pushes fn and args, runs a protected call, and collects all return
// values. The stack is restored to its entry depth on every exit path.
func (e *Environment) pcall(fn lua.LValue, args []lua.LValue) ([]any, error) {
	L := e.state
	base := L.GetTop()

	L.Push(fn)
	for _, arg := range args {
		L.Push(arg)
	}

	if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
		L.SetTop(base)
		text := luaErrText(err)
		e.logger.Error("script error",
			zap.String("error", text),
			zap.Stack("host_stack"))
		return nil, errors.Runtime(text)
	}

	n := L.GetTop() - base
	results := make([]any, 0, n)
	for i := base + 1; i <= base+n; i++ {
		v, err := e.fromLua(L.Get(i))
		if err != nil {
			L.SetTop(base)
			return nil, err
		}
		results = append(results, v)
	}
	L.SetTop(base)
	return results, nil
}

// Define binds a global visible to subsequently run scripts.
func (e *Environment) Define(name string, value any) error {
	if e.closed {
		return errors.EnvironmentClosed(errors.PhaseRun)
	}
	lv, err := e.toLua(value)
	if err != nil {
		return err
	}
	e.state.SetGlobal(name, lv)
	return nil
}

// MakeTable creates an interpreter-owned table from a host sequence or
// mapping (nil for an empty table) and returns a proxy over it.
func (e *Environment) MakeTable(initial any) (*Table, error) {
	if e.closed {
		return nil, errors.EnvironmentClosed(errors.PhaseHost)
	}
	tbl, err := e.buildLuaTable(initial)
	if err != nil {
		return nil, err
	}
	return newTable(e, tbl)
}

// Close releases the interpreter and both registries. All outstanding
// proxies and handles become dangling; using them fails with an
// environment_closed error. Close is idempotent.
func (e *Environment) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.refs.Close()
	e.objects.Close()
	e.state.Close()
	return nil
}

// Objects exposes the host-object registry. Intended for diagnostics.
func (e *Environment) Objects() *registry.HostObjects { return e.objects }

// References exposes the reference-slot registry. Intended for diagnostics.
func (e *Environment) References() *registry.References { return e.refs }

// luaErrText extracts the interpreter's error message. gopher-lua wraps
// script errors in *lua.ApiError whose Object carries the raised value.
func luaErrText(err error) string {
	if ae, ok := err.(*lua.ApiError); ok {
		return ae.Object.String()
	}
	return err.Error()
}
