package registry

import (
	"sync"

	"github.com/wippyai/lua-bridge/errors"
)

// Handle is an opaque reference the interpreter holds for a host object.
// Handle 0 is reserved and always invalid.
type Handle uint32

// HostObjects maps handles to host objects wrapped as interpreter userdata.
// Every push of a host object allocates a fresh entry, even for the same
// object pushed twice: arbitrary host values (maps, slices, funcs) are not
// comparable, so a reverse object-to-handle index cannot exist. Each entry
// is released exactly once, by the finalizer of the userdata holding it.
//
// The mutex is not a concurrency guarantee for the bridge (which is
// single-threaded by contract); it exists because finalizers run on the
// collector's goroutine.
type HostObjects struct {
	mu     sync.Mutex
	arena  arena[any]
	closed bool
}

// NewHostObjects creates an empty host object table.
func NewHostObjects() *HostObjects {
	return &HostObjects{arena: newArena[any]()}
}

// Register stores a host object and returns a fresh handle for it.
func (t *HostObjects) Register(obj any) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errors.EnvironmentClosed(errors.PhaseRegistry)
	}
	return Handle(t.arena.insert(obj)), nil
}

// Get retrieves the host object for a handle.
func (t *HostObjects) Get(h Handle) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, false
	}
	return t.arena.get(uint32(h))
}

// Release removes an entry. It is called only from the finalizer of the
// userdata carrying the handle, never by host code directly. Releasing an
// unknown or already released handle is a no-op.
func (t *HostObjects) Release(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	_, ok := t.arena.remove(uint32(h))
	return ok
}

// Len returns the number of live entries.
func (t *HostObjects) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.arena.size()
}

// Close drops all entries. Outstanding handles become dangling and every
// lookup through them fails from here on.
func (t *HostObjects) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.arena.clear()
	return nil
}
