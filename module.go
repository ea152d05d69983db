package luabridge

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-bridge/errors"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ExposeModule makes a host mapping or object importable by name from
// interpreter code, and also binds it as a global of the same name. A
// map[string]any is used as the module body directly (keys carrying the
// reserved `_host` prefix are exposed under their `_` form); any other
// value is reflected: exported methods become callables, exported struct
// fields become values.
func (e *Environment) ExposeModule(name string, value any) error {
	if e.closed {
		return errors.EnvironmentClosed(errors.PhaseRun)
	}

	tbl, err := e.moduleTable(value)
	if err != nil {
		return err
	}

	e.state.SetGlobal(name, tbl)
	e.state.PreloadModule(name, func(L *lua.LState) int {
		L.Push(tbl)
		return 1
	})
	return nil
}

func (e *Environment) moduleTable(value any) (*lua.LTable, error) {
	if m, ok := value.(map[string]any); ok {
		tbl := e.state.NewTable()
		for k, v := range m {
			lv, err := e.toLua(v)
			if err != nil {
				return nil, err
			}
			e.state.SetField(tbl, remapKeyOut(k), lv)
		}
		return tbl, nil
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return nil, errors.BadArgument(errors.PhaseMarshal, "cannot expose nil as a module")
	}

	tbl := e.state.NewTable()
	rt := rv.Type()

	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !m.IsExported() {
			continue
		}
		lv, err := e.toLua(methodFunc(rv.Method(i)))
		if err != nil {
			return nil, err
		}
		e.state.SetField(tbl, m.Name, lv)
	}

	sv := rv
	if sv.Kind() == reflect.Pointer {
		sv = sv.Elem()
	}
	if sv.Kind() == reflect.Struct {
		st := sv.Type()
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if !f.IsExported() {
				continue
			}
			lv, err := e.toLua(sv.Field(i).Interface())
			if err != nil {
				return nil, err
			}
			e.state.SetField(tbl, f.Name, lv)
		}
	}
	return tbl, nil
}

// methodFunc adapts a bound method to the Callable capability, coercing
// marshalled argument types (int64, float64, ...) to the parameter types
// the method declares. A trailing error result propagates as the call
// error; multiple remaining results come back as an ordered sequence.
func methodFunc(fn reflect.Value) Func {
	return func(args ...any) (any, error) {
		ft := fn.Type()

		numIn := ft.NumIn()
		fixed := numIn
		if ft.IsVariadic() {
			fixed = numIn - 1
		}
		if len(args) < fixed || (!ft.IsVariadic() && len(args) > fixed) {
			return nil, errors.BadArgument(errors.PhaseDispatch,
				"argument count mismatch for "+ft.String())
		}

		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			var want reflect.Type
			if i < fixed {
				want = ft.In(i)
			} else {
				want = ft.In(numIn - 1).Elem()
			}
			av, err := coerceArg(arg, want)
			if err != nil {
				return nil, err
			}
			in[i] = av
		}

		outs := fn.Call(in)

		if n := len(outs); n > 0 && outs[n-1].Type() == errType {
			if !outs[n-1].IsNil() {
				return nil, outs[n-1].Interface().(error)
			}
			outs = outs[:n-1]
		}

		switch len(outs) {
		case 0:
			return nil, nil
		case 1:
			return outs[0].Interface(), nil
		default:
			results := make([]any, len(outs))
			for i, out := range outs {
				results[i] = out.Interface()
			}
			return results, nil
		}
	}
}

func coerceArg(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(want), nil
	}
	av := reflect.ValueOf(arg)
	if av.Type().AssignableTo(want) {
		return av, nil
	}
	// Numbers arrive as int64/float64 regardless of what the method
	// declares; convert within numeric kinds only. A blanket ConvertibleTo
	// would also accept int-to-string, which is never what a caller meant.
	if isNumericKind(av.Kind()) && isNumericKind(want.Kind()) {
		return av.Convert(want), nil
	}
	if av.Kind() == reflect.String && want == reflect.TypeOf([]byte(nil)) {
		return av.Convert(want), nil
	}
	return reflect.Value{}, errors.New(errors.PhaseDispatch, errors.KindBadArgument).
		Detail("cannot use %s as %s", av.Type(), want).
		Build()
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
