package luabridge

import (
	"math"
	"reflect"
	"runtime"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-bridge/errors"
	"github.com/wippyai/lua-bridge/registry"
)

// maxExactInt is the largest magnitude a Lua number can hold without
// losing integer precision.
const maxExactInt = 1 << 53

// toLua converts a host value to exactly one interpreter value.
//
// Scalars map directly; strings and []byte are opaque byte sequences;
// Table/Function proxies push their pinned slot value without allocating a
// new slot; anything else becomes userdata carrying a fresh host-object
// handle with the shared metatable attached. Values with no marshalling
// rule (channels, unsafe pointers) fail with unsupported_type.
func (e *Environment) toLua(v any) (lua.LValue, error) {
	switch x := v.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(x), nil
	case int:
		return lua.LNumber(x), nil
	case int8:
		return lua.LNumber(x), nil
	case int16:
		return lua.LNumber(x), nil
	case int32:
		return lua.LNumber(x), nil
	case int64:
		return lua.LNumber(x), nil
	case uint:
		return lua.LNumber(x), nil
	case uint8:
		return lua.LNumber(x), nil
	case uint16:
		return lua.LNumber(x), nil
	case uint32:
		return lua.LNumber(x), nil
	case uint64:
		return lua.LNumber(x), nil
	case float32:
		return lua.LNumber(x), nil
	case float64:
		return lua.LNumber(x), nil
	case string:
		return lua.LString(x), nil
	case []byte:
		return lua.LString(x), nil
	case *Table:
		return x.value()
	case *Function:
		return x.value()
	case lua.LValue:
		return x, nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Chan, reflect.UnsafePointer, reflect.Uintptr:
		return nil, errors.UnsupportedType(errors.PhaseMarshal, reflect.TypeOf(v).String())
	}

	return e.wrapHostObject(v)
}

// wrapHostObject allocates a host-object entry and wraps its handle as
// userdata. One entry per push, even for the same object pushed twice; the
// entry is removed exactly once, when the interpreter's collector frees the
// userdata.
func (e *Environment) wrapHostObject(v any) (lua.LValue, error) {
	h, err := e.objects.Register(v)
	if err != nil {
		return nil, err
	}

	ud := e.state.NewUserData()
	ud.Value = h
	e.state.SetMetatable(ud, e.mt)

	// The interpreter's values are managed by the Go collector, so this is
	// the finalize callback of the metatable contract: it fires when the
	// userdata becomes unreachable, at a time the collector controls.
	objects := e.objects
	runtime.SetFinalizer(ud, func(u *lua.LUserData) {
		objects.Release(h)
	})
	return ud, nil
}

// fromLua converts an interpreter value to a host value. Tables and
// functions come out as proxies owning a fresh reference slot; userdata
// carrying a host-object handle comes out as the original host object.
func (e *Environment) fromLua(lv lua.LValue) (any, error) {
	switch lv.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTBool:
		return bool(lv.(lua.LBool)), nil
	case lua.LTNumber:
		n := float64(lv.(lua.LNumber))
		if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) <= maxExactInt {
			return int64(n), nil
		}
		return n, nil
	case lua.LTString:
		return string(lv.(lua.LString)), nil
	case lua.LTTable:
		return newTable(e, lv)
	case lua.LTFunction:
		return newFunction(e, lv)
	case lua.LTUserData:
		ud := lv.(*lua.LUserData)
		if h, ok := ud.Value.(registry.Handle); ok {
			obj, live := e.objects.Get(h)
			if !live {
				return nil, errors.Released(errors.PhaseMarshal, "host object handle")
			}
			return obj, nil
		}
		return ud.Value, nil
	default:
		// Threads and channels cross as opaque interpreter values.
		return lv, nil
	}
}

// buildLuaTable creates a real interpreter table (not a wrapped host
// object) from a host sequence or mapping.
func (e *Environment) buildLuaTable(initial any) (*lua.LTable, error) {
	tbl := e.state.NewTable()
	if initial == nil {
		return tbl, nil
	}

	rv := reflect.ValueOf(initial)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			lv, err := e.toLua(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			tbl.RawSetInt(i+1, lv)
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			k, err := e.toLua(iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			v, err := e.toLua(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			tbl.RawSet(k, v)
		}
	default:
		return nil, errors.BadArgument(errors.PhaseMarshal,
			"table initializer must be a sequence or mapping, got "+reflect.TypeOf(initial).String())
	}
	return tbl, nil
}
