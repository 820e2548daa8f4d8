package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/ballistics"
	"bulletsim/server/internal/collision"
)

// MaxBlockCoord bounds the addressable grid on every axis. Past it float64
// can no longer tell neighbouring blocks apart.
const MaxBlockCoord = 1 << 52

// BlockPos addresses the unit cube spanning [X, X+1) x [Y, Y+1) x [Z, Z+1).
type BlockPos [3]int

// BlockAt returns the block containing p.
func BlockAt(p mgl64.Vec3) BlockPos {
	return BlockPos{int(math.Floor(p[0])), int(math.Floor(p[1])), int(math.Floor(p[2]))}
}

// Centre returns the midpoint of the block.
func (b BlockPos) Centre() mgl64.Vec3 {
	return mgl64.Vec3{float64(b[0]) + 0.5, float64(b[1]) + 0.5, float64(b[2]) + 0.5}
}

// Terrain is a sparse grid of solid blocks with an optional solid floor.
// Only the simulation goroutine mutates it.
type Terrain struct {
	solid    map[BlockPos]struct{}
	floor    int
	hasFloor bool
}

// NewTerrain constructs empty terrain.
func NewTerrain() *Terrain {
	return &Terrain{solid: make(map[BlockPos]struct{})}
}

// SetFloor makes every block at or below y solid.
func (t *Terrain) SetFloor(y int) {
	t.floor = y
	t.hasFloor = true
}

// Set marks a single block solid or clears it.
func (t *Terrain) Set(pos BlockPos, solid bool) {
	if solid {
		t.solid[pos] = struct{}{}
		return
	}
	delete(t.solid, pos)
}

// Fill marks every block in the inclusive box solid.
func (t *Terrain) Fill(from, to BlockPos) {
	lo, hi := from, to
	for axis := 0; axis < 3; axis++ {
		if lo[axis] > hi[axis] {
			lo[axis], hi[axis] = hi[axis], lo[axis]
		}
	}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				t.solid[BlockPos{x, y, z}] = struct{}{}
			}
		}
	}
}

// Solid reports whether the block blocks projectiles.
func (t *Terrain) Solid(pos BlockPos) bool {
	if t == nil {
		return false
	}
	if t.hasFloor && pos[1] <= t.floor {
		return true
	}
	_, ok := t.solid[pos]
	return ok
}

// Blocks reports the number of explicitly placed solid blocks.
func (t *Terrain) Blocks() int {
	if t == nil {
		return 0
	}
	return len(t.solid)
}

// Cast walks the blocks the segment passes through in order and reports
// the first solid one. A segment starting inside a solid block hits at its
// start. Segments reaching outside the addressable grid miss.
func (t *Terrain) Cast(segment collision.Segment) (collision.Impact, bool) {
	if t == nil || !addressable(segment.Start) || !addressable(segment.End) {
		return collision.Impact{}, false
	}
	cell := BlockAt(segment.Start)
	last := BlockAt(segment.End)
	remaining := 0
	for axis := 0; axis < 3; axis++ {
		remaining += absInt(last[axis] - cell[axis])
	}
	if t.Solid(cell) {
		return collision.Impact{Point: segment.Start, Block: cell, Fraction: 0}, true
	}

	delta := segment.Delta()
	var (
		step   [3]int
		tMax   [3]float64
		tDelta [3]float64
	)
	for axis := 0; axis < 3; axis++ {
		d := delta[axis]
		switch {
		case d > 0:
			step[axis] = 1
			tMax[axis] = (float64(cell[axis]+1) - segment.Start[axis]) / d
			tDelta[axis] = 1 / d
		case d < 0:
			step[axis] = -1
			tMax[axis] = (float64(cell[axis]) - segment.Start[axis]) / d
			tDelta[axis] = -1 / d
		default:
			tMax[axis] = math.Inf(1)
			tDelta[axis] = math.Inf(1)
		}
	}

	for walked := 0; walked <= remaining; walked++ {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		at := tMax[axis]
		if at > 1 {
			return collision.Impact{}, false
		}
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		if t.Solid(cell) {
			var normal mgl64.Vec3
			normal[axis] = -float64(step[axis])
			return collision.Impact{
				Point:    segment.At(at),
				Normal:   normal,
				Block:    cell,
				Fraction: at,
			}, true
		}
	}
	return collision.Impact{}, false
}

func addressable(p mgl64.Vec3) bool {
	if !ballistics.Finite(p) {
		return false
	}
	for _, v := range p {
		if math.Abs(v) >= MaxBlockCoord {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
