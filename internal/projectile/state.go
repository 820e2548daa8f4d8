package projectile

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/ballistics"
	"bulletsim/server/internal/collision"
)

// DefaultLifetime is the number of ticks a projectile may fly before it
// expires: five seconds at twenty ticks per second.
const DefaultLifetime uint32 = 100

var (
	// ErrNoWorld reports an authority constructed without a world to query.
	ErrNoWorld = errors.New("projectile: authority requires a world")
	// ErrNonFinite reports a spawn or snapshot carrying NaN or infinite vectors.
	ErrNonFinite = errors.New("projectile: non-finite initial state")
)

// Terminal tracks whether a projectile is still simulated.
type Terminal uint8

const (
	Alive Terminal = iota
	Hit
	Expired
)

func (t Terminal) String() string {
	switch t {
	case Alive:
		return "alive"
	case Hit:
		return "hit"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Role is fixed at construction and selects the controller behaviour.
type Role uint8

const (
	Authority Role = iota
	Replica
)

func (r Role) String() string {
	if r == Replica {
		return "replica"
	}
	return "authority"
}

// State is owned by exactly one controller and never shared.
type State struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Age      uint32
	Payload  float32
	Terminal Terminal
	Role     Role

	pendingFirstStepSuppressed bool
}

// FirstStepSuppressed reports whether the next replica tick will skip
// integration.
func (s State) FirstStepSuppressed() bool {
	return s.pendingFirstStepSuppressed
}

// Spawn is the fully specified initial state handed to an authority.
type Spawn struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Payload  float32
}

// Snapshot is the one-shot state a replica is constructed from.
type Snapshot struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Payload  float32
}

func finite(position, velocity mgl64.Vec3) bool {
	return ballistics.Finite(position) && ballistics.Finite(velocity)
}

// Params holds the simulation-wide settings shared by every projectile.
type Params struct {
	MaxLifetime uint32
	Sweep       collision.Config
}

// DefaultParams returns the stock lifetime and sweep tuning.
func DefaultParams() Params {
	return Params{
		MaxLifetime: DefaultLifetime,
		Sweep:       collision.DefaultConfig(),
	}
}

func (p Params) normalized() Params {
	if p.MaxLifetime == 0 {
		p.MaxLifetime = DefaultLifetime
	}
	if !(p.Sweep.SampleDensity > 0) {
		p.Sweep.SampleDensity = collision.DefaultConfig().SampleDensity
	}
	return p
}
