package luabridge

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-bridge/errors"
	"github.com/wippyai/lua-bridge/registry"
)

// Function is a host-owned view over an interpreter function or closure.
// It holds exactly one reference slot, released by Release (or implicitly
// when the environment closes).
type Function struct {
	env      *Environment
	slot     registry.Slot
	released bool
}

func newFunction(e *Environment, lv lua.LValue) (*Function, error) {
	slot, err := e.refs.Pin(lv)
	if err != nil {
		return nil, err
	}
	return &Function{env: e, slot: slot}, nil
}

func (f *Function) value() (lua.LValue, error) {
	if f.env.closed {
		return nil, errors.EnvironmentClosed(errors.PhaseHost)
	}
	if f.released {
		return nil, errors.Released(errors.PhaseHost, "function proxy")
	}
	lv, ok := f.env.refs.Value(f.slot)
	if !ok {
		return nil, errors.Released(errors.PhaseHost, "function proxy slot")
	}
	return lv, nil
}

// CallMulti invokes the interpreter function with the given arguments and
// returns every value it returns, in order.
func (f *Function) CallMulti(args ...any) ([]any, error) {
	fn, err := f.value()
	if err != nil {
		return nil, err
	}

	largs := make([]lua.LValue, len(args))
	for i, arg := range args {
		lv, err := f.env.toLua(arg)
		if err != nil {
			return nil, err
		}
		largs[i] = lv
	}
	return f.env.pcall(fn, largs)
}

// Call invokes the interpreter function and collapses its results: nil for
// no return values, the single value for one, and the full ordered
// sequence for more. Use CallMulti to always keep the sequence.
func (f *Function) Call(args ...any) (any, error) {
	results, err := f.CallMulti(args...)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Release frees the proxy's reference slot. It is idempotent; after the
// environment closes it is a no-op because the slot died with the
// environment.
func (f *Function) Release() error {
	if f.released {
		return nil
	}
	f.released = true
	if f.env.closed {
		return nil
	}
	f.env.refs.Unpin(f.slot)
	return nil
}
