package registry

// arena is a slot store with free-list reuse. Slot ids grow monotonically
// until released ids become available again; id 0 is reserved and never
// issued, so the zero value of Handle and Slot is always invalid.
type arena[T any] struct {
	entries  []arenaEntry[T]
	freeList []uint32
}

type arenaEntry[T any] struct {
	value T
	valid bool
}

func newArena[T any]() arena[T] {
	return arena[T]{
		entries:  make([]arenaEntry[T], 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

func (a *arena[T]) insert(v T) uint32 {
	e := arenaEntry[T]{value: v, valid: true}

	if len(a.freeList) > 0 {
		id := a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
		a.entries[id-1] = e
		return id
	}

	a.entries = append(a.entries, e)
	return uint32(len(a.entries))
}

func (a *arena[T]) get(id uint32) (T, bool) {
	var zero T
	if id == 0 || int(id) > len(a.entries) {
		return zero, false
	}
	e := a.entries[id-1]
	if !e.valid {
		return zero, false
	}
	return e.value, true
}

func (a *arena[T]) remove(id uint32) (T, bool) {
	var zero T
	if id == 0 || int(id) > len(a.entries) {
		return zero, false
	}
	e := &a.entries[id-1]
	if !e.valid {
		return zero, false
	}

	value := e.value
	e.valid = false
	e.value = zero
	a.freeList = append(a.freeList, id)
	return value, true
}

func (a *arena[T]) size() int {
	count := 0
	for i := range a.entries {
		if a.entries[i].valid {
			count++
		}
	}
	return count
}

func (a *arena[T]) clear() {
	a.entries = nil
	a.freeList = nil
}
