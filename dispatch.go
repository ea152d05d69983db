package luabridge

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"go.uber.org/zap"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-bridge/errors"
	"github.com/wippyai/lua-bridge/registry"
)

// reservedPrefix is the longer reserved form that leading-underscore keys
// are rewritten to, so host objects can expose members whose natural name
// would collide with interpreter-reserved names. Applied symmetrically on
// index read and write, and reversed when a module table is built.
const reservedPrefix = "_host"

func remapKeyIn(key string) string {
	if strings.HasPrefix(key, "_") {
		return reservedPrefix + key[1:]
	}
	return key
}

func remapKeyOut(key string) string {
	if strings.HasPrefix(key, reservedPrefix) {
		return "_" + key[len(reservedPrefix):]
	}
	return key
}

// newDispatchTable builds the shared metatable installed on every wrapped
// host object. The metamethod names and operand order (primary object
// first) are the interpreter's fixed C-level contract. Callbacks are
// closures over this environment, so multiple environments coexist without
// any process-wide state.
func (e *Environment) newDispatchTable() *lua.LTable {
	L := e.state
	mt := L.NewTable()

	set := func(name string, fn lua.LGFunction) {
		L.SetField(mt, name, L.NewFunction(fn))
	}

	set("__add", e.arithCallback(OpAdd))
	set("__sub", e.arithCallback(OpSub))
	set("__mul", e.arithCallback(OpMul))
	set("__div", e.arithCallback(OpDiv))
	set("__mod", e.arithCallback(OpMod))
	set("__pow", e.arithCallback(OpPow))
	set("__unm", e.arithCallback(OpNeg))
	set("__idiv", e.arithCallback(OpIDiv))
	set("__band", e.arithCallback(OpBAnd))
	set("__bor", e.arithCallback(OpBOr))
	set("__bxor", e.arithCallback(OpBXor))
	set("__bnot", e.arithCallback(OpBNot))
	set("__shl", e.arithCallback(OpShl))
	set("__shr", e.arithCallback(OpShr))
	set("__concat", e.arithCallback(OpConcat))
	set("__len", e.lenCallback)
	set("__eq", e.eqCallback)
	set("__lt", e.ltCallback)
	set("__le", e.leCallback)
	set("__index", e.indexCallback)
	set("__newindex", e.newindexCallback)
	set("__call", e.callCallback)
	set("__close", e.closeCallback)
	set("__gc", e.gcCallback)
	set("__tostring", e.tostringCallback)

	return mt
}

// hostOperand recovers the host object behind the first operand. The
// metamethod contract puts the primary object first; anything else is a
// loud failure rather than a silent misdispatch.
func (e *Environment) hostOperand(L *lua.LState, op string) any {
	ud := L.CheckUserData(1)
	h, ok := ud.Value.(registry.Handle)
	if !ok {
		e.raise(L, op, errors.BadArgument(errors.PhaseDispatch, "userdata does not carry a host object handle"))
	}
	obj, live := e.objects.Get(h)
	if !live {
		e.raise(L, op, errors.Released(errors.PhaseDispatch, "host object handle"))
	}
	return obj
}

// raise logs the host failure and converts it to an interpreter error, the
// only recovery boundary being the interpreter's protected call. It does
// not return.
func (e *Environment) raise(L *lua.LState, op string, err error) {
	e.logger.Error("host callback failed",
		zap.String("op", op),
		zap.Error(err),
		zap.Stack("host_stack"))
	L.RaiseError("%s", err.Error())
}

func (e *Environment) arithCallback(op ArithOp) lua.LGFunction {
	name := op.String()
	return func(L *lua.LState) int {
		obj := e.hostOperand(L, name)
		a, ok := obj.(Arithmetic)
		if !ok {
			e.raise(L, name, errors.MissingCapability(name, goTypeName(obj), "Arithmetic"))
			return 0
		}

		var rhs any
		if !op.IsUnary() {
			var err error
			rhs, err = e.fromLua(L.Get(2))
			if err != nil {
				e.raise(L, name, err)
				return 0
			}
		}

		result, err := a.Arith(op, rhs)
		if err != nil {
			e.raise(L, name, errors.HostCallback(name, err))
			return 0
		}
		return e.pushResult(L, name, result)
	}
}

func (e *Environment) lenCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "len")
	l, ok := obj.(Lengthable)
	if !ok {
		e.raise(L, "len", errors.MissingCapability("len", goTypeName(obj), "Lengthable"))
		return 0
	}
	n, err := l.Len()
	if err != nil {
		e.raise(L, "len", errors.HostCallback("len", err))
		return 0
	}
	L.Push(lua.LNumber(n))
	return 1
}

func (e *Environment) eqCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "eq")
	c, ok := obj.(Comparable)
	if !ok {
		e.raise(L, "eq", errors.MissingCapability("eq", goTypeName(obj), "Comparable"))
		return 0
	}
	rhs, err := e.fromLua(L.Get(2))
	if err != nil {
		e.raise(L, "eq", err)
		return 0
	}
	equal, err := c.Equal(rhs)
	if err != nil {
		e.raise(L, "eq", errors.HostCallback("eq", err))
		return 0
	}
	L.Push(lua.LBool(equal))
	return 1
}

func (e *Environment) ltCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "lt")
	c, ok := obj.(Comparable)
	if !ok {
		e.raise(L, "lt", errors.MissingCapability("lt", goTypeName(obj), "Comparable"))
		return 0
	}
	rhs, err := e.fromLua(L.Get(2))
	if err != nil {
		e.raise(L, "lt", err)
		return 0
	}
	less, err := c.Less(rhs)
	if err != nil {
		e.raise(L, "lt", errors.HostCallback("lt", err))
		return 0
	}
	L.Push(lua.LBool(less))
	return 1
}

func (e *Environment) leCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "le")
	c, ok := obj.(Comparable)
	if !ok {
		e.raise(L, "le", errors.MissingCapability("le", goTypeName(obj), "Comparable"))
		return 0
	}
	rhs, err := e.fromLua(L.Get(2))
	if err != nil {
		e.raise(L, "le", err)
		return 0
	}
	less, err := c.Less(rhs)
	if err != nil {
		e.raise(L, "le", errors.HostCallback("le", err))
		return 0
	}
	if less {
		L.Push(lua.LTrue)
		return 1
	}
	equal, err := c.Equal(rhs)
	if err != nil {
		e.raise(L, "le", errors.HostCallback("le", err))
		return 0
	}
	L.Push(lua.LBool(equal))
	return 1
}

// indexKey converts an interpreter key for the host side: reserved-looking
// string keys are remapped, and exact-integer numeric keys shift from the
// interpreter's 1-based convention to the host's 0-based one.
func (e *Environment) indexKey(lv lua.LValue) (any, error) {
	switch lv.Type() {
	case lua.LTString:
		return remapKeyIn(string(lv.(lua.LString))), nil
	case lua.LTNumber:
		n := float64(lv.(lua.LNumber))
		if n == math.Trunc(n) && math.Abs(n) <= maxExactInt {
			return int64(n) - 1, nil
		}
		return n, nil
	default:
		return e.fromLua(lv)
	}
}

// indexCallback reads a member of a host object. A missing member does not
// raise: it logs a diagnostic and yields nil, so scripts can probe for
// optional members.
func (e *Environment) indexCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "index")
	key, err := e.indexKey(L.Get(2))
	if err != nil {
		e.raise(L, "index", err)
		return 0
	}

	g, ok := obj.(Gettable)
	if !ok {
		e.logger.Warn("index read on host object without Gettable",
			zap.String("type", goTypeName(obj)),
			zap.Any("key", key))
		L.Push(lua.LNil)
		return 1
	}

	v, err := g.Get(key)
	if err != nil {
		e.logger.Warn("index read missed",
			zap.String("type", goTypeName(obj)),
			zap.Any("key", key),
			zap.Error(err))
		L.Push(lua.LNil)
		return 1
	}

	lv, err := e.toLua(v)
	if err != nil {
		e.raise(L, "index", err)
		return 0
	}
	L.Push(lv)
	return 1
}

// newindexCallback writes a member of a host object. Unlike reads, write
// failures raise; a silently dropped write would hide bugs.
func (e *Environment) newindexCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "newindex")
	key, err := e.indexKey(L.Get(2))
	if err != nil {
		e.raise(L, "newindex", err)
		return 0
	}
	value, err := e.fromLua(L.Get(3))
	if err != nil {
		e.raise(L, "newindex", err)
		return 0
	}

	s, ok := obj.(Settable)
	if !ok {
		e.raise(L, "newindex", errors.MissingCapability("newindex", goTypeName(obj), "Settable"))
		return 0
	}
	if err := s.Set(key, value); err != nil {
		e.raise(L, "newindex", errors.HostCallback("newindex", err))
		return 0
	}
	return 0
}

func (e *Environment) callCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "call")
	c, ok := obj.(Callable)
	if !ok {
		e.raise(L, "call", errors.MissingCapability("call", goTypeName(obj), "Callable"))
		return 0
	}

	top := L.GetTop()
	args := make([]any, 0, top-1)
	for i := 2; i <= top; i++ {
		v, err := e.fromLua(L.Get(i))
		if err != nil {
			e.raise(L, "call", err)
			return 0
		}
		args = append(args, v)
	}

	result, err := c.Call(args...)
	if err != nil {
		e.raise(L, "call", errors.HostCallback("call", err))
		return 0
	}
	return e.pushResult(L, "call", result)
}

// pushResult marshals a host result back to the interpreter. An ordered
// sequence expands into multiple return values; anything else is a single
// return value.
func (e *Environment) pushResult(L *lua.LState, op string, result any) int {
	if seq, ok := result.([]any); ok {
		for _, item := range seq {
			lv, err := e.toLua(item)
			if err != nil {
				e.raise(L, op, err)
				return 0
			}
			L.Push(lv)
		}
		return len(seq)
	}

	lv, err := e.toLua(result)
	if err != nil {
		e.raise(L, op, err)
		return 0
	}
	L.Push(lv)
	return 1
}

// closeCallback implements the scope-close metamethod for to-be-closed
// variables holding host objects.
func (e *Environment) closeCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "close")
	c, ok := obj.(io.Closer)
	if !ok {
		return 0
	}
	if err := c.Close(); err != nil {
		e.raise(L, "close", errors.HostCallback("close", err))
	}
	return 0
}

// gcCallback removes the host-object entry for the collected userdata.
// This path and the userdata finalizer share one release, which is
// idempotent in the registry.
func (e *Environment) gcCallback(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if h, ok := ud.Value.(registry.Handle); ok {
		e.objects.Release(h)
	}
	return 0
}

func (e *Environment) tostringCallback(L *lua.LState) int {
	obj := e.hostOperand(L, "tostring")
	if s, ok := obj.(Stringable); ok {
		L.Push(lua.LString(s.String()))
		return 1
	}
	L.Push(lua.LString(fmt.Sprintf("%v", obj)))
	return 1
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
