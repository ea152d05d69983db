package registry

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-bridge/errors"
)

// Slot is a persistent storage location keeping an interpreter value alive
// for host-side reference. Slot 0 is reserved and always invalid.
type Slot uint32

// References maps slots to interpreter values (tables, functions, or other
// complex values) that must outlive their stack positions. Pin and Unpin
// are strictly paired: ownership of a slot belongs to exactly one proxy,
// and released slot ids are reused for later pins.
type References struct {
	mu     sync.Mutex
	arena  arena[lua.LValue]
	closed bool
}

// NewReferences creates an empty reference table.
func NewReferences() *References {
	return &References{arena: newArena[lua.LValue]()}
}

// Pin captures an interpreter value into a persistent slot.
func (t *References) Pin(lv lua.LValue) (Slot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errors.EnvironmentClosed(errors.PhaseRegistry)
	}
	return Slot(t.arena.insert(lv)), nil
}

// Value returns the interpreter value pinned in a slot.
func (t *References) Value(s Slot) (lua.LValue, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, false
	}
	return t.arena.get(uint32(s))
}

// Unpin releases a slot, making its id eligible for reuse.
func (t *References) Unpin(s Slot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	_, ok := t.arena.remove(uint32(s))
	return ok
}

// Len returns the number of pinned slots.
func (t *References) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.arena.size()
}

// Close drops all slots. Outstanding proxies become dangling and every
// operation through them fails from here on.
func (t *References) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.arena.clear()
	return nil
}
