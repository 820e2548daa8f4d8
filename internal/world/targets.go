package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/ballistics"
	"bulletsim/server/internal/collision"
)

const (
	treeDimensions = 3
	treeMinBranch  = 25
	treeMaxBranch  = 50
	// minExtent keeps degenerate boxes indexable; the tree rejects
	// zero-length sides.
	minExtent = 1e-6
)

var (
	// ErrDuplicateTarget reports an insert reusing a live identifier.
	ErrDuplicateTarget = errors.New("world: duplicate target id")
	// ErrInvalidTarget reports a target with non-finite geometry or health.
	ErrInvalidTarget = errors.New("world: invalid target")
)

// Target is a dynamic object projectiles can strike.
type Target struct {
	ID       collision.ObjectID
	Kind     collision.ObjectKind
	Centre   mgl64.Vec3
	Half     mgl64.Vec3
	Pickable bool
	HealthState
}

// Bounds returns the axis-aligned box occupied by the target.
func (t Target) Bounds() collision.AABB {
	return collision.AABB{Min: t.Centre.Sub(t.Half), Max: t.Centre.Add(t.Half)}
}

// Alive reports whether the target still has health left.
func (t Target) Alive() bool {
	return t.Health > HealthEpsilon
}

func (t Target) object() collision.Object {
	return collision.Object{
		ID:       t.ID,
		Kind:     t.Kind,
		Bounds:   t.Bounds(),
		Alive:    t.Alive(),
		Pickable: t.Pickable,
	}
}

// indexed is the tree entry for a target. The rectangle is captured on
// insert so deletes find the entry even after the target moves.
type indexed struct {
	target *Target
	rect   rtreego.Rect
}

func (e *indexed) Bounds() rtreego.Rect {
	return e.rect
}

// Targets indexes dynamic objects in an R-tree for box queries.
type Targets struct {
	tree    *rtreego.Rtree
	entries map[collision.ObjectID]*indexed
}

// NewTargets constructs an empty index.
func NewTargets() *Targets {
	return &Targets{
		tree:    rtreego.NewTree(treeDimensions, treeMinBranch, treeMaxBranch),
		entries: make(map[collision.ObjectID]*indexed),
	}
}

// Add inserts a target. The index keeps its own copy.
func (ts *Targets) Add(target Target) error {
	if _, exists := ts.entries[target.ID]; exists {
		return fmt.Errorf("target %d: %w", target.ID, ErrDuplicateTarget)
	}
	if !ballistics.Finite(target.Centre) || !ballistics.Finite(target.Half) {
		return fmt.Errorf("target %d geometry: %w", target.ID, ErrInvalidTarget)
	}
	rect, err := rectFor(target.Bounds())
	if err != nil {
		return fmt.Errorf("target %d bounds: %w", target.ID, err)
	}
	stored := target
	entry := &indexed{target: &stored, rect: rect}
	ts.tree.Insert(entry)
	ts.entries[target.ID] = entry
	return nil
}

// Remove deletes the target with the given identifier.
func (ts *Targets) Remove(id collision.ObjectID) bool {
	entry, ok := ts.entries[id]
	if !ok {
		return false
	}
	ts.tree.Delete(entry)
	delete(ts.entries, id)
	return true
}

// Move relocates a target, reindexing it.
func (ts *Targets) Move(id collision.ObjectID, centre mgl64.Vec3) error {
	entry, ok := ts.entries[id]
	if !ok {
		return fmt.Errorf("target %d: %w", id, ErrInvalidTarget)
	}
	if !ballistics.Finite(centre) {
		return fmt.Errorf("target %d centre: %w", id, ErrInvalidTarget)
	}
	moved := *entry.target
	moved.Centre = centre
	rect, err := rectFor(moved.Bounds())
	if err != nil {
		return fmt.Errorf("target %d bounds: %w", id, err)
	}
	ts.tree.Delete(entry)
	*entry.target = moved
	entry.rect = rect
	ts.tree.Insert(entry)
	return nil
}

// Get returns a copy of the target.
func (ts *Targets) Get(id collision.ObjectID) (Target, bool) {
	entry, ok := ts.entries[id]
	if !ok {
		return Target{}, false
	}
	return *entry.target, true
}

// Len reports the number of indexed targets.
func (ts *Targets) Len() int {
	return len(ts.entries)
}

// Query returns every target whose box intersects volume and satisfies the
// predicate, ordered by identifier.
func (ts *Targets) Query(volume collision.AABB, predicate collision.Predicate) []collision.Object {
	rect, err := rectFor(volume)
	if err != nil {
		return nil
	}
	hits := ts.tree.SearchIntersect(rect)
	objects := make([]collision.Object, 0, len(hits))
	for _, spatial := range hits {
		entry, ok := spatial.(*indexed)
		if !ok {
			continue
		}
		obj := entry.target.object()
		if !obj.Bounds.Intersects(volume) {
			continue
		}
		if predicate != nil && !predicate(obj) {
			continue
		}
		objects = append(objects, obj)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })
	return objects
}

// Damage subtracts amount from the target's health, clamping at zero. It
// reports the remaining health and whether the target was alive before.
func (ts *Targets) Damage(id collision.ObjectID, amount float32) (float64, bool) {
	entry, ok := ts.entries[id]
	if !ok || !entry.target.Alive() {
		return 0, false
	}
	target := entry.target
	SetHealth(&target.HealthState, target.MaxHealth, target.Health-float64(amount))
	return target.Health, true
}

// Each visits targets in identifier order.
func (ts *Targets) Each(visit func(Target)) {
	ids := make([]collision.ObjectID, 0, len(ts.entries))
	for id := range ts.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		visit(*ts.entries[id].target)
	}
}

func rectFor(box collision.AABB) (rtreego.Rect, error) {
	size := box.Size()
	lengths := []float64{size[0], size[1], size[2]}
	for i, l := range lengths {
		if !(l >= minExtent) {
			lengths[i] = minExtent
		}
	}
	return rtreego.NewRect(rtreego.Point{box.Min[0], box.Min[1], box.Min[2]}, lengths)
}
