package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Segment is the straight path travelled by a projectile during one tick or
// one sub-step of a tick.
type Segment struct {
	Start mgl64.Vec3
	End   mgl64.Vec3
}

// Delta returns End - Start.
func (s Segment) Delta() mgl64.Vec3 {
	return s.End.Sub(s.Start)
}

// Length returns the euclidean length of the segment.
func (s Segment) Length() float64 {
	return s.Delta().Len()
}

// At interpolates along the segment, t in [0,1].
func (s Segment) At(t float64) mgl64.Vec3 {
	d := s.Delta()
	return mgl64.Vec3{
		s.Start[0] + d[0]*t,
		s.Start[1] + d[1]*t,
		s.Start[2] + d[2]*t,
	}
}

// Split divides the segment into n contiguous sub-segments of equal length.
// Each sub-segment starts exactly where the previous one ended.
func (s Segment) Split(n int) []Segment {
	if n < 1 {
		n = 1
	}
	parts := make([]Segment, n)
	prev := s.Start
	for i := 0; i < n; i++ {
		end := s.End
		if i < n-1 {
			end = s.At(float64(i+1) / float64(n))
		}
		parts[i] = Segment{Start: prev, End: end}
		prev = end
	}
	return parts
}

// Bounds returns the axis-aligned box spanned by the segment.
func (s Segment) Bounds() AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(s.Start[0], s.End[0]), math.Min(s.Start[1], s.End[1]), math.Min(s.Start[2], s.End[2])},
		Max: mgl64.Vec3{math.Max(s.Start[0], s.End[0]), math.Max(s.Start[1], s.End[1]), math.Max(s.Start[2], s.End[2])},
	}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// BoxAround returns a cube of the given half extent centred on p.
func BoxAround(p mgl64.Vec3, half float64) AABB {
	return AABB{
		Min: mgl64.Vec3{p[0] - half, p[1] - half, p[2] - half},
		Max: mgl64.Vec3{p[0] + half, p[1] + half, p[2] + half},
	}
}

// Inflate grows the box by amount on every side.
func (b AABB) Inflate(amount float64) AABB {
	return AABB{
		Min: mgl64.Vec3{b.Min[0] - amount, b.Min[1] - amount, b.Min[2] - amount},
		Max: mgl64.Vec3{b.Max[0] + amount, b.Max[1] + amount, b.Max[2] + amount},
	}
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl64.Vec3 {
	return mgl64.Vec3{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Intersects reports whether the two boxes overlap, touching faces included.
func (b AABB) Intersects(other AABB) bool {
	for axis := 0; axis < 3; axis++ {
		if b.Max[axis] < other.Min[axis] || b.Min[axis] > other.Max[axis] {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside or on the boundary of the box.
func (b AABB) Contains(p mgl64.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if p[axis] < b.Min[axis] || p[axis] > b.Max[axis] {
			return false
		}
	}
	return true
}

// Clip intersects the segment with the box using the slab method and returns
// the entry fraction along the segment. A segment starting inside the box
// enters at t=0.
func (b AABB) Clip(s Segment) (float64, bool) {
	d := s.Delta()
	tMin := 0.0
	tMax := 1.0
	for axis := 0; axis < 3; axis++ {
		origin := s.Start[axis]
		if d[axis] == 0 {
			if origin < b.Min[axis] || origin > b.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / d[axis]
		t1 := (b.Min[axis] - origin) * inv
		t2 := (b.Max[axis] - origin) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
