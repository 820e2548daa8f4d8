package spawn

import (
	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/projectile"
)

const (
	// DefaultInterval fires on every tick while a turret is armed.
	DefaultInterval uint32 = 1
	// MuzzleOffset is how far in front of the block centre a turret spawns
	// its projectiles.
	MuzzleOffset = 0.6
	// DefaultCooldown is the number of ticks a hand-held emitter refuses to
	// fire after a shot.
	DefaultCooldown uint32 = 10
	// DefaultDurability is the number of shots before a hand-held emitter
	// breaks.
	DefaultDurability uint32 = 500
)

// PeriodicEmitter fires along a fixed facing at a fixed interval while it
// is armed.
type PeriodicEmitter struct {
	Centre   mgl64.Vec3
	Facing   mgl64.Vec3
	Interval uint32
	Speed    float64
	Payload  float32

	armed bool
	wait  uint32
}

// NewPeriodicEmitter constructs a turret with the stock interval, speed and
// payload.
func NewPeriodicEmitter(centre, facing mgl64.Vec3) *PeriodicEmitter {
	return &PeriodicEmitter{
		Centre:   centre,
		Facing:   facing,
		Interval: DefaultInterval,
		Speed:    DefaultSpeed,
		Payload:  DefaultPayload,
	}
}

// Arm starts firing on the next tick.
func (e *PeriodicEmitter) Arm() {
	if e == nil || e.armed {
		return
	}
	e.armed = true
	e.wait = 0
}

// Disarm stops firing.
func (e *PeriodicEmitter) Disarm() {
	if e == nil {
		return
	}
	e.armed = false
}

// Armed reports whether the emitter is currently firing.
func (e *PeriodicEmitter) Armed() bool {
	return e != nil && e.armed
}

// Muzzle is the spawn origin in front of the block.
func (e *PeriodicEmitter) Muzzle() mgl64.Vec3 {
	facing := e.Facing
	if l := facing.Len(); l > 0 {
		facing = facing.Mul(1 / l)
	}
	return e.Centre.Add(facing.Mul(MuzzleOffset))
}

// Tick advances the emitter by one simulation step and fires through the
// requester when the interval elapses.
func (e *PeriodicEmitter) Tick(r *Requester) (projectile.Handle, bool) {
	if e == nil || !e.armed {
		return projectile.Handle{}, false
	}
	if e.wait > 0 {
		e.wait--
		return projectile.Handle{}, false
	}
	interval := e.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	e.wait = interval - 1
	return r.RequestSpawn(e.Muzzle(), e.Facing, e.Speed, e.Payload)
}

// CooldownEmitter fires on demand, then refuses until its cooldown has
// elapsed. Each shot wears it down until it breaks.
type CooldownEmitter struct {
	Cooldown uint32
	Speed    float64
	Payload  float32

	remaining  uint32
	durability uint32
}

// NewCooldownEmitter constructs a hand-held emitter with the stock
// cooldown, durability, speed and payload.
func NewCooldownEmitter() *CooldownEmitter {
	return &CooldownEmitter{
		Cooldown:   DefaultCooldown,
		Speed:      DefaultSpeed,
		Payload:    DefaultPayload,
		durability: DefaultDurability,
	}
}

// Trigger fires from origin along look when the emitter is ready.
func (e *CooldownEmitter) Trigger(r *Requester, origin, look mgl64.Vec3) (projectile.Handle, bool) {
	if e == nil || e.remaining > 0 || e.Broken() {
		return projectile.Handle{}, false
	}
	handle, ok := r.RequestSpawn(origin, look, e.Speed, e.Payload)
	if !ok {
		return handle, false
	}
	e.remaining = e.Cooldown
	e.durability--
	return handle, true
}

// Tick counts the cooldown down by one.
func (e *CooldownEmitter) Tick() {
	if e == nil || e.remaining == 0 {
		return
	}
	e.remaining--
}

// Remaining reports the ticks left before the emitter can fire again.
func (e *CooldownEmitter) Remaining() uint32 {
	if e == nil {
		return 0
	}
	return e.remaining
}

// Durability reports the shots left before the emitter breaks.
func (e *CooldownEmitter) Durability() uint32 {
	if e == nil {
		return 0
	}
	return e.durability
}

// Broken reports whether the emitter has no shots left.
func (e *CooldownEmitter) Broken() bool {
	return e == nil || e.durability == 0
}
