package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/collision"
	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/spawn"
	"bulletsim/server/logging"
	loggingprojectile "bulletsim/server/logging/projectile"
)

const (
	metricProjectilesActive   = "sim_projectiles_active"
	metricProjectilesSpawned  = "sim_projectiles_spawned_total"
	metricProjectilesRejected = "sim_projectiles_rejected_total"
	metricProjectilesHit      = "sim_projectiles_hit_total"
	metricProjectilesExpired  = "sim_projectiles_expired_total"
	metricCommandsRejected    = "sim_commands_rejected_total"
)

var (
	// ErrMissingWorld indicates the engine was constructed without a world.
	ErrMissingWorld = fmt.Errorf("sim: %w", projectile.ErrNoWorld)
	// ErrUnknownEmitter indicates a command addressed a turret that does not exist.
	ErrUnknownEmitter = errors.New("sim: unknown emitter")
	// ErrDuplicateEmitter indicates two turrets were registered under one id.
	ErrDuplicateEmitter = errors.New("sim: duplicate emitter")
	// ErrInvalidCommand indicates a command missing its body or of unknown type.
	ErrInvalidCommand = errors.New("sim: invalid command")
)

// Spawned announces a projectile to replicas. It is produced once, after the
// projectile's first authoritative tick.
type Spawned struct {
	ID       uint64
	Snapshot projectile.Snapshot
}

// Removed tells replicas that a previously announced projectile reached a
// terminal state.
type Removed struct {
	ID       uint64
	Terminal projectile.Terminal
}

// Batch collects the replication messages produced by one tick.
type Batch struct {
	Tick    uint64
	Spawned []Spawned
	Removed []Removed
}

// Empty reports whether the batch carries no messages.
func (b Batch) Empty() bool {
	return len(b.Spawned) == 0 && len(b.Removed) == 0
}

// InFlight describes a live projectile for observers joining mid-flight.
type InFlight struct {
	ID       uint64
	Snapshot projectile.Snapshot
	Age      uint32
}

// Snapshot captures the state exposed to non-simulation callers.
type Snapshot struct {
	Tick        uint64
	Projectiles []InFlight
	Turrets     []TurretState
}

// TurretState reports whether a turret is armed.
type TurretState struct {
	ID    string
	Armed bool
}

// Core owns the projectile arena, the emitters and the world mutation entry
// points. Every method must be called from the simulation goroutine.
type Core struct {
	deps      Deps
	world     collision.World
	params    projectile.Params
	arena     *projectile.Arena
	requester *spawn.Requester

	turretIDs []string
	turrets   map[string]*spawn.PeriodicEmitter
	guns      map[string]*spawn.CooldownEmitter

	tick     uint64
	fresh    map[projectile.Handle]struct{}
	terminal []projectile.Handle
	pending  Batch
}

// NewCore constructs an engine core around the world.
func NewCore(world collision.World, params projectile.Params, deps Deps) (*Core, error) {
	if world == nil {
		return nil, ErrMissingWorld
	}
	c := &Core{
		deps:    deps.normalized(),
		world:   world,
		params:  params,
		arena:   projectile.NewArena(64),
		turrets: make(map[string]*spawn.PeriodicEmitter),
		guns:    make(map[string]*spawn.CooldownEmitter),
		fresh:   make(map[projectile.Handle]struct{}),
	}
	c.requester = &spawn.Requester{
		Spawn:    c.spawn,
		Rejected: c.rejected,
	}
	return c, nil
}

// Deps returns the injected dependencies.
func (c *Core) Deps() Deps {
	return c.deps
}

// Tick reports the last completed tick.
func (c *Core) Tick() uint64 {
	return c.tick
}

// Active reports the number of projectiles in flight.
func (c *Core) Active() int {
	return c.arena.Len()
}

// Requester exposes the spawn entry point for triggers living outside the
// engine.
func (c *Core) Requester() *spawn.Requester {
	return c.requester
}

// AddTurret registers a periodic emitter under id.
func (c *Core) AddTurret(id string, turret *spawn.PeriodicEmitter) error {
	if turret == nil {
		return fmt.Errorf("turret %q: %w", id, ErrInvalidCommand)
	}
	if _, exists := c.turrets[id]; exists {
		return fmt.Errorf("turret %q: %w", id, ErrDuplicateEmitter)
	}
	c.turrets[id] = turret
	c.turretIDs = append(c.turretIDs, id)
	sort.Strings(c.turretIDs)
	return nil
}

// Gun returns the hand-held emitter of an actor, creating it on first use.
func (c *Core) Gun(actorID string) *spawn.CooldownEmitter {
	gun, ok := c.guns[actorID]
	if !ok {
		gun = spawn.NewCooldownEmitter()
		c.guns[actorID] = gun
	}
	return gun
}

// DropGun retires the hand-held emitter of an actor. It reports whether
// the actor had one.
func (c *Core) DropGun(actorID string) bool {
	if _, ok := c.guns[actorID]; !ok {
		return false
	}
	delete(c.guns, actorID)
	return true
}

// Guns reports the number of hand-held emitters in use.
func (c *Core) Guns() int {
	return len(c.guns)
}

// Apply processes staged commands in order. Invalid commands are skipped
// and reported together.
func (c *Core) Apply(cmds []Command) error {
	var errs []error
	for _, cmd := range cmds {
		if err := c.apply(cmd); err != nil {
			c.deps.metrics().Add(metricCommandsRejected, 1)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Core) apply(cmd Command) error {
	switch cmd.Type {
	case CommandFire:
		if cmd.Fire == nil {
			return fmt.Errorf("fire from %q without body: %w", cmd.ActorID, ErrInvalidCommand)
		}
		c.Gun(cmd.ActorID).Trigger(c.requester, mgl64.Vec3(cmd.Fire.Origin), mgl64.Vec3(cmd.Fire.Direction))
		return nil
	case CommandArm, CommandDisarm:
		if cmd.Emitter == nil {
			return fmt.Errorf("%s from %q without emitter: %w", cmd.Type, cmd.ActorID, ErrInvalidCommand)
		}
		turret, ok := c.turrets[cmd.Emitter.EmitterID]
		if !ok {
			return fmt.Errorf("%s %q: %w", cmd.Type, cmd.Emitter.EmitterID, ErrUnknownEmitter)
		}
		if cmd.Type == CommandArm {
			turret.Arm()
		} else {
			turret.Disarm()
		}
		return nil
	case CommandLeave:
		if cmd.Leave == nil || cmd.Leave.ActorID == "" {
			return fmt.Errorf("leave without actor: %w", ErrInvalidCommand)
		}
		c.DropGun(cmd.Leave.ActorID)
		return nil
	default:
		return fmt.Errorf("command %q: %w", cmd.Type, ErrInvalidCommand)
	}
}

// Step advances the simulation by one tick: turrets fire, cooldowns count
// down, every projectile ticks and terminal projectiles leave the arena.
func (c *Core) Step() {
	c.tick++
	c.pending.Tick = c.tick

	for _, id := range c.turretIDs {
		c.turrets[id].Tick(c.requester)
	}
	for _, gun := range c.guns {
		gun.Tick()
	}

	c.terminal = c.terminal[:0]
	c.arena.Each(func(h projectile.Handle, ctrl *projectile.Controller) {
		out := ctrl.Tick()
		_, fresh := c.fresh[h]
		if out.Terminal != projectile.Alive {
			c.terminal = append(c.terminal, h)
			c.reportTerminal(ctrl, out)
			// A projectile that ends on its first tick was never announced.
			if !fresh {
				c.pending.Removed = append(c.pending.Removed, Removed{ID: h.ID(), Terminal: out.Terminal})
			}
			return
		}
		if fresh {
			c.pending.Spawned = append(c.pending.Spawned, Spawned{ID: h.ID(), Snapshot: ctrl.Snapshot()})
		}
	})
	for _, h := range c.terminal {
		c.arena.Remove(h)
	}
	clear(c.fresh)
	c.deps.metrics().Store(metricProjectilesActive, uint64(c.arena.Len()))
}

// Drain returns the replication messages accumulated since the last call.
func (c *Core) Drain() Batch {
	batch := c.pending
	batch.Tick = c.tick
	c.pending = Batch{}
	return batch
}

// Snapshot lists the projectiles currently in flight in arena order.
func (c *Core) Snapshot() Snapshot {
	snapshot := Snapshot{Tick: c.tick}
	c.arena.Each(func(h projectile.Handle, ctrl *projectile.Controller) {
		if _, fresh := c.fresh[h]; fresh {
			return
		}
		snapshot.Projectiles = append(snapshot.Projectiles, InFlight{
			ID:       h.ID(),
			Snapshot: ctrl.Snapshot(),
			Age:      ctrl.State().Age,
		})
	})
	for _, id := range c.turretIDs {
		snapshot.Turrets = append(snapshot.Turrets, TurretState{ID: id, Armed: c.turrets[id].Armed()})
	}
	return snapshot
}

func (c *Core) spawn(s projectile.Spawn) (projectile.Handle, bool) {
	ctrl, err := projectile.NewAuthority(s, c.params, c.world)
	if err != nil {
		c.deps.Logger.Printf("[sim] spawn refused: %v", err)
		c.deps.metrics().Add(metricProjectilesRejected, 1)
		return projectile.Handle{}, false
	}
	h := c.arena.Insert(ctrl)
	c.fresh[h] = struct{}{}
	c.deps.metrics().Add(metricProjectilesSpawned, 1)
	loggingprojectile.Spawned(context.Background(), c.deps.Publisher, c.tick, projectileRef(h.ID()), loggingprojectile.SpawnedPayload{
		Position: loggingprojectile.Vector(s.Position),
		Velocity: loggingprojectile.Vector(s.Velocity),
		Payload:  s.Payload,
	}, nil)
	return h, true
}

func (c *Core) rejected(req spawn.Request) {
	c.deps.metrics().Add(metricProjectilesRejected, 1)
	loggingprojectile.SpawnRejected(context.Background(), c.deps.Publisher, c.tick, logging.EntityRef{Kind: logging.EntityKindEmitter}, loggingprojectile.SpawnRejectedPayload{
		Origin:    loggingprojectile.Vector(req.Origin),
		Direction: loggingprojectile.Vector(req.Direction),
		Speed:     req.Speed,
	}, nil)
}

func (c *Core) reportTerminal(ctrl *projectile.Controller, out projectile.Outcome) {
	state := ctrl.State()
	actor := projectileRef(uint64(ctrl.ID()))
	switch out.Terminal {
	case projectile.Hit:
		c.deps.metrics().Add(metricProjectilesHit, 1)
		var targets []logging.EntityRef
		if out.Hit.Kind == collision.HitObject {
			targets = []logging.EntityRef{{ID: out.Hit.Target.String(), Kind: logging.EntityKindTarget}}
		}
		loggingprojectile.Hit(context.Background(), c.deps.Publisher, c.tick, actor, targets, loggingprojectile.HitPayload{
			Kind:     out.Hit.Kind.String(),
			Point:    loggingprojectile.Vector(out.Hit.Point),
			Age:      state.Age,
			SubStep:  out.Hit.SubStep,
			Fraction: out.Hit.Fraction,
		}, nil)
	case projectile.Expired:
		c.deps.metrics().Add(metricProjectilesExpired, 1)
		loggingprojectile.Expired(context.Background(), c.deps.Publisher, c.tick, actor, loggingprojectile.ExpiredPayload{
			Position: loggingprojectile.Vector(state.Position),
			Age:      state.Age,
		}, nil)
	}
}

func projectileRef(id uint64) logging.EntityRef {
	return logging.EntityRef{ID: strconv.FormatUint(id, 10), Kind: logging.EntityKindProjectile}
}
