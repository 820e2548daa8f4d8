// Package replica runs predicted copies of the authority's projectiles on an
// observer. A Mirror advances once per received batch, so its replicas stay
// tick-aligned with the authority without any resync.
package replica

import (
	"errors"
	"fmt"

	"bulletsim/server/internal/net/proto"
	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/telemetry"
)

// ErrNotJoined is returned for batches received before the join frame.
var ErrNotJoined = errors.New("replica: batch before join")

// Hooks observe replica lifecycle changes. Every hook runs on the goroutine
// feeding the mirror.
type Hooks struct {
	OnSpawn  func(id uint64, state projectile.State)
	OnRemove func(id uint64, state projectile.State)
}

// Mirror owns the replica controllers of one observer. It is not safe for
// concurrent use.
type Mirror struct {
	params  projectile.Params
	arena   *projectile.Arena
	handles map[uint64]projectile.Handle
	ids     map[projectile.Handle]uint64
	hooks   Hooks
	logger  telemetry.Logger

	tick     uint64
	joined   bool
	terminal []projectile.Handle
}

// NewMirror constructs an empty mirror. The lifetime in params is replaced
// by the authority's value on join.
func NewMirror(params projectile.Params, hooks Hooks, logger telemetry.Logger) *Mirror {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	return &Mirror{
		params:  params,
		arena:   projectile.NewArena(64),
		handles: make(map[uint64]projectile.Handle),
		ids:     make(map[projectile.Handle]uint64),
		hooks:   hooks,
		logger:  logger,
	}
}

// Tick reports the authority tick the mirror has caught up to.
func (m *Mirror) Tick() uint64 {
	return m.tick
}

// Len reports the number of live replicas.
func (m *Mirror) Len() int {
	return m.arena.Len()
}

// Get returns the state of the replica mirroring the authority id.
func (m *Mirror) Get(id uint64) (projectile.State, bool) {
	h, ok := m.handles[id]
	if !ok {
		return projectile.State{}, false
	}
	ctrl, ok := m.arena.Get(h)
	if !ok {
		return projectile.State{}, false
	}
	return ctrl.State(), true
}

// Each visits live replicas keyed by authority id.
func (m *Mirror) Each(visit func(id uint64, state projectile.State)) {
	m.arena.Each(func(h projectile.Handle, ctrl *projectile.Controller) {
		visit(m.ids[h], ctrl.State())
	})
}

// Handle decodes a server frame and applies it. Command acknowledgements
// are ignored.
func (m *Mirror) Handle(frame []byte) error {
	env, err := proto.Decode(frame)
	if err != nil {
		return err
	}
	switch env.Type {
	case proto.TypeJoin:
		var msg proto.JoinMessage
		if err := env.Into(proto.TypeJoin, &msg); err != nil {
			return err
		}
		return m.Join(msg)
	case proto.TypeBatch:
		var msg proto.BatchMessage
		if err := env.Into(proto.TypeBatch, &msg); err != nil {
			return err
		}
		return m.Apply(msg)
	case proto.TypeCommandReject:
		var msg proto.CommandReject
		if err := env.Into(proto.TypeCommandReject, &msg); err == nil {
			m.logger.Printf("[replica] %s rejected: %s", msg.Type, msg.Reason)
		}
		return nil
	default:
		return nil
	}
}

// Join discards every replica and rebuilds the mirror from the projectiles
// the authority reported in flight.
func (m *Mirror) Join(msg proto.JoinMessage) error {
	m.arena.Each(func(h projectile.Handle, _ *projectile.Controller) {
		m.terminal = append(m.terminal, h)
	})
	for _, h := range m.terminal {
		m.arena.Remove(h)
	}
	m.terminal = m.terminal[:0]
	clear(m.handles)
	clear(m.ids)

	if msg.LifetimeTicks > 0 {
		m.params.MaxLifetime = msg.LifetimeTicks
	}
	m.tick = msg.Tick
	m.joined = true

	var errs []error
	for _, p := range msg.Projectiles {
		ctrl, err := projectile.ResumeReplica(p.Snapshot(), p.Age, m.params)
		if err != nil {
			errs = append(errs, fmt.Errorf("resume %d: %w", p.ID, err))
			continue
		}
		if !ctrl.Alive() {
			continue
		}
		m.insert(p.ID, ctrl)
	}
	return errors.Join(errs...)
}

// Apply advances the mirror to the batch tick. Replicas tick first so they
// reach the authority's state for that tick, then the authority's removals
// are mirrored and finally the new spawns take their suppressed first step.
// Batches at or before the current tick are ignored; missing ticks are
// simulated locally.
func (m *Mirror) Apply(msg proto.BatchMessage) error {
	if !m.joined {
		return ErrNotJoined
	}
	if msg.Tick <= m.tick {
		return nil
	}
	for m.tick+1 < msg.Tick {
		m.step()
	}
	m.step()

	for _, removal := range msg.Removes {
		h, ok := m.handles[removal.ID]
		if !ok {
			continue
		}
		if ctrl, ok := m.arena.Get(h); ok {
			ctrl.MirrorRemoval()
			m.remove(h, ctrl)
		}
	}

	var errs []error
	for _, spawned := range msg.Spawns {
		if _, exists := m.handles[spawned.ID]; exists {
			continue
		}
		ctrl, err := projectile.NewReplica(spawned.Snapshot(), m.params)
		if err != nil {
			errs = append(errs, fmt.Errorf("spawn %d: %w", spawned.ID, err))
			continue
		}
		ctrl.Tick()
		h := m.insert(spawned.ID, ctrl)
		if m.hooks.OnSpawn != nil {
			m.hooks.OnSpawn(spawned.ID, ctrl.State())
		}
		if !ctrl.Alive() {
			m.remove(h, ctrl)
		}
	}
	return errors.Join(errs...)
}

func (m *Mirror) step() {
	m.tick++
	m.terminal = m.terminal[:0]
	m.arena.Each(func(h projectile.Handle, ctrl *projectile.Controller) {
		if out := ctrl.Tick(); out.Terminal != projectile.Alive {
			m.terminal = append(m.terminal, h)
		}
	})
	for _, h := range m.terminal {
		if ctrl, ok := m.arena.Get(h); ok {
			m.remove(h, ctrl)
		}
	}
}

func (m *Mirror) insert(id uint64, ctrl *projectile.Controller) projectile.Handle {
	h := m.arena.Insert(ctrl)
	m.handles[id] = h
	m.ids[h] = id
	return h
}

func (m *Mirror) remove(h projectile.Handle, ctrl *projectile.Controller) {
	id := m.ids[h]
	m.arena.Remove(h)
	delete(m.handles, id)
	delete(m.ids, h)
	if m.hooks.OnRemove != nil {
		m.hooks.OnRemove(id, ctrl.State())
	}
}
