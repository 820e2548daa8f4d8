// Package world holds the authoritative environment projectiles fly
// through: voxel terrain and dynamic targets.
package world

import (
	"context"

	"bulletsim/server/internal/collision"
	"bulletsim/server/logging"
	loggingprojectile "bulletsim/server/logging/projectile"
)

// Deps bundles runtime dependencies required to construct a World.
type Deps struct {
	Publisher logging.Publisher
	// Tick reports the current simulation tick for published events.
	Tick func() uint64
}

// World implements collision.World on top of Terrain and Targets. It is
// owned by the simulation goroutine.
type World struct {
	config  Config
	terrain *Terrain
	targets *Targets

	publisher logging.Publisher
	tick      func() uint64
}

var _ collision.World = (*World)(nil)

// New constructs a world from its layout.
func New(cfg Config, deps Deps) (*World, error) {
	normalized := cfg.normalized()

	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	tick := deps.Tick
	if tick == nil {
		tick = func() uint64 { return 0 }
	}

	w := &World{
		config:    normalized,
		terrain:   NewTerrain(),
		targets:   NewTargets(),
		publisher: publisher,
		tick:      tick,
	}
	if normalized.Floor != nil {
		w.terrain.SetFloor(*normalized.Floor)
	}
	for _, wall := range normalized.Walls {
		w.terrain.Fill(wall.From, wall.To)
	}
	for _, spec := range normalized.Targets {
		if err := w.targets.Add(spec.target()); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Config returns the normalized layout the world was built from.
func (w *World) Config() Config {
	return w.config
}

// Terrain exposes the block grid.
func (w *World) Terrain() *Terrain {
	return w.terrain
}

// Targets exposes the dynamic object index.
func (w *World) Targets() *Targets {
	return w.targets
}

// CastTerrain reports the first solid block along the segment.
func (w *World) CastTerrain(segment collision.Segment) (collision.Impact, bool) {
	return w.terrain.Cast(segment)
}

// QueryObjectsIn returns indexed targets overlapping the volume.
func (w *World) QueryObjectsIn(volume collision.AABB, predicate collision.Predicate) []collision.Object {
	return w.targets.Query(volume, predicate)
}

// ApplyEffect subtracts the payload from the target's health.
func (w *World) ApplyEffect(target collision.ObjectID, payload float32) {
	remaining, ok := w.targets.Damage(target, payload)
	if !ok {
		return
	}
	actor := logging.EntityRef{ID: target.String(), Kind: logging.EntityKindTarget}
	loggingprojectile.Damaged(
		context.Background(),
		w.publisher,
		w.tick(),
		actor,
		loggingprojectile.DamagedPayload{Amount: payload, Remaining: remaining, Defeated: remaining <= HealthEpsilon},
		nil,
	)
}
