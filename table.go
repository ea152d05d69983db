package luabridge

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-bridge/errors"
	"github.com/wippyai/lua-bridge/registry"
)

// Table is a host-owned view over an interpreter-owned table. It holds
// exactly one reference slot, released by Release (or implicitly when the
// environment closes). Keys and indices use the interpreter's convention
// (1-based arrays), except where an operation documents otherwise.
type Table struct {
	env      *Environment
	slot     registry.Slot
	released bool
}

func newTable(e *Environment, lv lua.LValue) (*Table, error) {
	slot, err := e.refs.Pin(lv)
	if err != nil {
		return nil, err
	}
	return &Table{env: e, slot: slot}, nil
}

func (t *Table) value() (lua.LValue, error) {
	if t.env.closed {
		return nil, errors.EnvironmentClosed(errors.PhaseHost)
	}
	if t.released {
		return nil, errors.Released(errors.PhaseHost, "table proxy")
	}
	lv, ok := t.env.refs.Value(t.slot)
	if !ok {
		return nil, errors.Released(errors.PhaseHost, "table proxy slot")
	}
	return lv, nil
}

func (t *Table) raw() (*lua.LTable, error) {
	lv, err := t.value()
	if err != nil {
		return nil, err
	}
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, errors.BadArgument(errors.PhaseHost, "reference slot does not hold a table")
	}
	return tbl, nil
}

// Len returns the table's length via the interpreter's length operator: a
// __len metamethod is honored, otherwise the raw array length is used.
func (t *Table) Len() (int, error) {
	lv, err := t.value()
	if err != nil {
		return 0, err
	}

	L := t.env.state
	if mm := L.GetMetaField(lv, "__len"); mm != lua.LNil {
		results, err := t.env.pcall(mm, []lua.LValue{lv})
		if err != nil {
			return 0, err
		}
		if len(results) > 0 {
			if n, ok := results[0].(int64); ok {
				return int(n), nil
			}
		}
		return 0, errors.BadArgument(errors.PhaseHost, "__len did not return an integer")
	}
	return L.ObjLen(lv), nil
}

// Get reads a value by key. A missing key is a key_not_found error; use
// interpreter-side reads to probe without an error.
func (t *Table) Get(key any) (any, error) {
	lv, err := t.value()
	if err != nil {
		return nil, err
	}
	kv, err := t.env.toLua(key)
	if err != nil {
		return nil, err
	}

	res := t.env.state.GetTable(lv, kv)
	if res == lua.LNil {
		return nil, errors.KeyNotFound(key)
	}
	return t.env.fromLua(res)
}

// Set writes a value by key. Setting nil removes the key, as in the
// interpreter.
func (t *Table) Set(key, value any) error {
	lv, err := t.value()
	if err != nil {
		return err
	}
	kv, err := t.env.toLua(key)
	if err != nil {
		return err
	}
	vv, err := t.env.toLua(value)
	if err != nil {
		return err
	}
	t.env.state.SetTable(lv, kv, vv)
	return nil
}

// Delete removes a key. Unlike Set(key, nil) it fails with key_not_found
// when the key is absent.
func (t *Table) Delete(key any) error {
	if _, err := t.Get(key); err != nil {
		return err
	}
	return t.Set(key, nil)
}

// Contains reports whether key is present. The interpreter has no fast
// membership path, so this is a linear scan.
func (t *Table) Contains(key any) (bool, error) {
	tbl, err := t.raw()
	if err != nil {
		return false, err
	}
	kv, err := t.env.toLua(key)
	if err != nil {
		return false, err
	}

	k := lua.LValue(lua.LNil)
	for {
		k, _ = tbl.Next(k)
		if k == lua.LNil {
			return false, nil
		}
		if k == kv {
			return true, nil
		}
	}
}

// Map materializes the table as an unordered key-to-value copy.
func (t *Table) Map() (map[any]any, error) {
	out := make(map[any]any)
	err := t.Each(func(k, v any) bool {
		out[k] = v
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List materializes an array-like table as an ordered copy. Element i of
// the result corresponds to key i+1 of the table (interpreter arrays are
// 1-based, the copy is 0-based).
func (t *Table) List() ([]any, error) {
	tbl, err := t.raw()
	if err != nil {
		return nil, err
	}

	n := tbl.Len()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := t.env.fromLua(tbl.RawGetInt(i + 1))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Append appends values to the array part of the table.
func (t *Table) Append(values ...any) error {
	tbl, err := t.raw()
	if err != nil {
		return err
	}
	for _, v := range values {
		lv, err := t.env.toLua(v)
		if err != nil {
			return err
		}
		tbl.Append(lv)
	}
	return nil
}

// Remove removes the element at the given 0-based position, shifting later
// elements down to close the gap, and returns the removed value. Negative
// positions count from the end. The removal runs through the interpreter's
// own remove routine, pinned at environment construction.
func (t *Table) Remove(index int) (any, error) {
	if index < 0 {
		n, err := t.Len()
		if err != nil {
			return nil, err
		}
		index += n
	}
	return t.env.tableRemove.Call(t, index+1)
}

// Each iterates the table in the interpreter's traversal order, stopping
// early when fn returns false.
func (t *Table) Each(fn func(key, value any) bool) error {
	tbl, err := t.raw()
	if err != nil {
		return err
	}

	k := lua.LValue(lua.LNil)
	for {
		var v lua.LValue
		k, v = tbl.Next(k)
		if k == lua.LNil {
			return nil
		}
		hk, err := t.env.fromLua(k)
		if err != nil {
			return err
		}
		hv, err := t.env.fromLua(v)
		if err != nil {
			return err
		}
		if !fn(hk, hv) {
			return nil
		}
	}
}

// Equal reports whether both proxies view the same interpreter table
// (raw identity, not structural comparison).
func (t *Table) Equal(other *Table) bool {
	if other == nil {
		return false
	}
	a, err := t.value()
	if err != nil {
		return false
	}
	b, err := other.value()
	if err != nil {
		return false
	}
	return a == b
}

// Release frees the proxy's reference slot. It is idempotent; after the
// environment closes it is a no-op because the slot died with the
// environment.
func (t *Table) Release() error {
	if t.released {
		return nil
	}
	t.released = true
	if t.env.closed {
		return nil
	}
	t.env.refs.Unpin(t.slot)
	return nil
}
