package projectile

import "bulletsim/server/internal/collision"

// Handle addresses a controller stored in an Arena. A handle goes stale as
// soon as its slot is freed; the generation counter keeps a recycled slot
// from answering for an old handle.
type Handle struct {
	Index      uint32
	Generation uint32
}

// ID packs the handle into the identifier used on the wire and in collision
// exclusion. Generations start at one so valid IDs are never zero.
func (h Handle) ID() uint64 {
	return uint64(h.Generation)<<32 | uint64(h.Index)
}

// HandleFromID reverses Handle.ID.
func HandleFromID(id uint64) Handle {
	return Handle{Index: uint32(id), Generation: uint32(id >> 32)}
}

// Valid reports whether the handle was ever issued.
func (h Handle) Valid() bool {
	return h.Generation != 0
}

type slot struct {
	generation uint32
	controller *Controller
}

// Arena stores the active projectiles of one simulation. It is not safe for
// concurrent use; the simulation loop owns it.
type Arena struct {
	slots []slot
	free  []uint32
	live  int
}

// NewArena constructs an arena with room for capacity controllers before
// growing.
func NewArena(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{slots: make([]slot, 0, capacity)}
}

// Insert stores the controller and assigns its identifier.
func (a *Arena) Insert(c *Controller) Handle {
	if c == nil {
		return Handle{}
	}
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		index = uint32(len(a.slots) - 1)
	}
	s := &a.slots[index]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.controller = c
	a.live++

	h := Handle{Index: index, Generation: s.generation}
	c.id = collision.ObjectID(h.ID())
	return h
}

// Get returns the controller for a live handle.
func (a *Arena) Get(h Handle) (*Controller, bool) {
	if int(h.Index) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[h.Index]
	if s.controller == nil || s.generation != h.Generation {
		return nil, false
	}
	return s.controller, true
}

// Remove frees the slot in O(1). Stale handles are ignored.
func (a *Arena) Remove(h Handle) bool {
	if int(h.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.Index]
	if s.controller == nil || s.generation != h.Generation {
		return false
	}
	s.controller = nil
	a.free = append(a.free, h.Index)
	a.live--
	return true
}

// Len reports the number of live controllers.
func (a *Arena) Len() int {
	return a.live
}

// Each visits live controllers in slot order. The visitor must not insert
// into or remove from the arena; collect handles and remove afterwards.
func (a *Arena) Each(visit func(Handle, *Controller)) {
	for i := range a.slots {
		s := a.slots[i]
		if s.controller == nil {
			continue
		}
		visit(Handle{Index: uint32(i), Generation: s.generation}, s.controller)
	}
}
