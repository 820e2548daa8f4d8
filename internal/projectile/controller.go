package projectile

import (
	"fmt"

	"bulletsim/server/internal/collision"
)

// Outcome reports what a single tick did to a projectile.
type Outcome struct {
	Terminal     Terminal
	Transitioned bool
	Suppressed   bool
	Struck       bool
	Hit          collision.Hit
}

// Controller wraps a Lifecycle with role-aware behaviour. Only an authority
// controller sweeps for collisions and may declare a hit; a replica
// integrates the same motion for smooth local prediction.
type Controller struct {
	id    collision.ObjectID
	life  Lifecycle
	world collision.World
	sweep collision.Config
}

// NewAuthority constructs the authoritative simulation of a freshly spawned
// projectile. A nil world is a configuration error.
func NewAuthority(spawn Spawn, params Params, world collision.World) (*Controller, error) {
	if world == nil {
		return nil, ErrNoWorld
	}
	if !finite(spawn.Position, spawn.Velocity) {
		return nil, fmt.Errorf("authority spawn at %v: %w", spawn.Position, ErrNonFinite)
	}
	params = params.normalized()
	state := State{
		Position: spawn.Position,
		Velocity: spawn.Velocity,
		Payload:  spawn.Payload,
		Role:     Authority,
	}
	return &Controller{
		life:  newLifecycle(state, params.MaxLifetime),
		world: world,
		sweep: params.Sweep,
	}, nil
}

// NewReplica constructs a predicted copy from the snapshot the authority
// transmitted. The snapshot already includes one tick of authority-side
// integration, so the replica's first tick only ages it.
func NewReplica(snapshot Snapshot, params Params) (*Controller, error) {
	if !finite(snapshot.Position, snapshot.Velocity) {
		return nil, fmt.Errorf("replica snapshot at %v: %w", snapshot.Position, ErrNonFinite)
	}
	params = params.normalized()
	state := State{
		Position:                   snapshot.Position,
		Velocity:                   snapshot.Velocity,
		Payload:                    snapshot.Payload,
		Role:                       Replica,
		pendingFirstStepSuppressed: true,
	}
	return &Controller{
		life:  newLifecycle(state, params.MaxLifetime),
		sweep: params.Sweep,
	}, nil
}

// ResumeReplica constructs a replica for a projectile already in flight,
// e.g. for an observer joining mid-flight. The snapshot was taken after the
// authority's tick, so no step is suppressed and the age carries over.
func ResumeReplica(snapshot Snapshot, age uint32, params Params) (*Controller, error) {
	ctrl, err := NewReplica(snapshot, params)
	if err != nil {
		return nil, err
	}
	ctrl.life.state.pendingFirstStepSuppressed = false
	ctrl.life.state.Age = age
	ctrl.life.expireIfDue()
	return ctrl, nil
}

// ID returns the object identifier assigned when the controller entered an
// arena.
func (c *Controller) ID() collision.ObjectID {
	return c.id
}

// State returns a copy of the projectile state.
func (c *Controller) State() State {
	return c.life.State()
}

// Role reports the fixed role.
func (c *Controller) Role() Role {
	return c.life.state.Role
}

// Alive reports whether the projectile is still simulated.
func (c *Controller) Alive() bool {
	return c.life.alive()
}

// Snapshot captures the state transmitted to replicas.
func (c *Controller) Snapshot() Snapshot {
	s := c.life.State()
	return Snapshot{Position: s.Position, Velocity: s.Velocity, Payload: s.Payload}
}

// Tick advances the projectile by one simulation step. Ticks after a
// terminal transition are no-ops.
func (c *Controller) Tick() Outcome {
	if !c.life.alive() {
		return Outcome{Terminal: c.life.state.Terminal}
	}
	switch c.life.state.Role {
	case Replica:
		return c.tickReplica()
	default:
		return c.tickAuthority()
	}
}

func (c *Controller) tickAuthority() Outcome {
	if c.life.expireIfDue() {
		return Outcome{Terminal: Expired, Transitioned: true}
	}

	start := c.life.state.Position
	next := c.life.candidate()
	if hit, ok := collision.Sweep(start, next, c.id, c.world, c.sweep); ok {
		if hit.Kind == collision.HitObject {
			c.world.ApplyEffect(hit.Target, c.life.state.Payload)
		}
		c.life.declareHit()
		return Outcome{Terminal: Hit, Transitioned: true, Struck: true, Hit: hit}
	}

	c.life.commit(next)
	return c.settled()
}

func (c *Controller) tickReplica() Outcome {
	if c.life.state.pendingFirstStepSuppressed {
		c.life.state.pendingFirstStepSuppressed = false
		c.life.skip()
		out := c.settled()
		out.Suppressed = true
		return out
	}
	if c.life.expireIfDue() {
		return Outcome{Terminal: Expired, Transitioned: true}
	}
	c.life.commit(c.life.candidate())
	return c.settled()
}

func (c *Controller) settled() Outcome {
	terminal := c.life.state.Terminal
	return Outcome{Terminal: terminal, Transitioned: terminal != Alive}
}

// MirrorRemoval applies the authority's terminal-state message to a replica.
// The message carries no reason, so a replica that has already reached its
// lifetime records Expired and any other replica records Hit.
func (c *Controller) MirrorRemoval() bool {
	if c.life.state.Role != Replica || !c.life.alive() {
		return false
	}
	if c.life.expireIfDue() {
		return true
	}
	return c.life.declareHit()
}
