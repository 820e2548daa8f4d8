package collision

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
)

//go:generate go tool mockgen -destination=./mocks/world_mock.go -package=mocks . World

// ObjectID identifies a dynamic object known to the world.
type ObjectID uint64

func (id ObjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ObjectKind classifies dynamic objects for hit filtering.
type ObjectKind string

const (
	KindLiving     ObjectKind = "living"
	KindProjectile ObjectKind = "projectile"
	KindProp       ObjectKind = "prop"
)

// Object is the query-time view of a dynamic object.
type Object struct {
	ID       ObjectID
	Kind     ObjectKind
	Bounds   AABB
	Alive    bool
	Pickable bool
}

// Impact describes where a terrain cast stopped.
type Impact struct {
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Block    [3]int
	Fraction float64
}

// Predicate filters candidate objects during a volume query.
type Predicate func(Object) bool

// World is the query surface consumed by the detector. Implementations are
// called from the simulation goroutine only.
type World interface {
	// CastTerrain returns the first static collidable intersection along
	// the segment.
	CastTerrain(segment Segment) (Impact, bool)
	// QueryObjectsIn returns every object whose bounds intersect volume and
	// satisfy predicate.
	QueryObjectsIn(volume AABB, predicate Predicate) []Object
	// ApplyEffect delivers a payload to the target's own mutation entry point.
	ApplyEffect(target ObjectID, payload float32)
}
