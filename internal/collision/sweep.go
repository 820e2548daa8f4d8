package collision

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// HitKind distinguishes what stopped a sweep.
type HitKind uint8

const (
	HitTerrain HitKind = iota + 1
	HitObject
)

func (k HitKind) String() string {
	switch k {
	case HitTerrain:
		return "terrain"
	case HitObject:
		return "object"
	default:
		return "none"
	}
}

// Hit describes the first blocking intersection found along a segment.
// Target is only meaningful for object hits.
type Hit struct {
	Kind     HitKind
	Point    mgl64.Vec3
	Target   ObjectID
	SubStep  int
	Fraction float64
}

// Config tunes the dynamic-object sweep.
type Config struct {
	// SampleDensity is the number of sub-steps per world unit travelled.
	SampleDensity float64
	// Radius is the projectile's collision radius.
	Radius float64
	// SearchPadding grows each sub-step volume before querying candidates.
	SearchPadding float64
	// TargetPadding grows each candidate's bounds before clipping.
	TargetPadding float64
}

// DefaultConfig matches the bullet entity: a 0.1 cube, 0.5 search inflate
// and 0.3 target inflate.
func DefaultConfig() Config {
	return Config{
		SampleDensity: 2,
		Radius:        0.05,
		SearchPadding: 0.5,
		TargetPadding: 0.3,
	}
}

// SubSteps returns max(1, ceil(length*density)).
func SubSteps(length, density float64) int {
	if !(length > 0) || !(density > 0) {
		return 1
	}
	n := math.Ceil(length * density)
	if n < 1 || math.IsNaN(n) {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// Qualifies builds the candidate predicate for a sweep: the projectile
// itself, other projectiles, dead and non-pickable objects never count.
func Qualifies(excluded ObjectID) Predicate {
	return func(obj Object) bool {
		if obj.ID == excluded {
			return false
		}
		if obj.Kind == KindProjectile {
			return false
		}
		return obj.Alive && obj.Pickable
	}
}

// Sweep tests the movement from start to end against terrain and then
// against dynamic objects, returning the first blocking hit. Terrain is cast
// once over the whole segment and short-circuits the object pass.
func Sweep(start, end mgl64.Vec3, excluded ObjectID, world World, cfg Config) (Hit, bool) {
	if world == nil {
		return Hit{}, false
	}
	segment := Segment{Start: start, End: end}

	if impact, ok := world.CastTerrain(segment); ok {
		return Hit{
			Kind:     HitTerrain,
			Point:    impact.Point,
			Fraction: impact.Fraction,
		}, true
	}

	n := SubSteps(segment.Length(), cfg.SampleDensity)
	predicate := Qualifies(excluded)
	for i, sub := range segment.Split(n) {
		volume := sub.Bounds().Inflate(cfg.Radius + cfg.SearchPadding)
		candidates := world.QueryObjectsIn(volume, predicate)
		if len(candidates) == 0 {
			continue
		}
		if hit, ok := nearestIntersection(sub, candidates, predicate, cfg); ok {
			hit.SubStep = i
			hit.Fraction = (float64(i) + hit.Fraction) / float64(n)
			return hit, true
		}
	}
	return Hit{}, false
}

type entry struct {
	t  float64
	id ObjectID
}

func nearestIntersection(sub Segment, candidates []Object, predicate Predicate, cfg Config) (Hit, bool) {
	entries := make([]entry, 0, len(candidates))
	for _, candidate := range candidates {
		if !predicate(candidate) {
			continue
		}
		box := candidate.Bounds.Inflate(cfg.TargetPadding + cfg.Radius)
		if t, ok := box.Clip(sub); ok {
			entries = append(entries, entry{t: t, id: candidate.ID})
		}
	}
	if len(entries) == 0 {
		return Hit{}, false
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].t != entries[j].t {
			return entries[i].t < entries[j].t
		}
		return entries[i].id < entries[j].id
	})
	first := entries[0]
	return Hit{
		Kind:     HitObject,
		Point:    sub.At(first.t),
		Target:   first.id,
		Fraction: first.t,
	}, true
}
