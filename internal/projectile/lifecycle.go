package projectile

import (
	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/ballistics"
)

// Lifecycle owns a projectile's mutable state and the Alive -> Hit / Expired
// transitions. It never branches on role; Controller decides which steps run.
type Lifecycle struct {
	state       State
	maxLifetime uint32
}

func newLifecycle(state State, maxLifetime uint32) Lifecycle {
	return Lifecycle{state: state, maxLifetime: maxLifetime}
}

// State returns a copy of the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// MaxLifetime reports the age at which the projectile expires.
func (l *Lifecycle) MaxLifetime() uint32 {
	return l.maxLifetime
}

func (l *Lifecycle) alive() bool {
	return l.state.Terminal == Alive
}

// expireIfDue transitions to Expired once the lifetime has elapsed.
func (l *Lifecycle) expireIfDue() bool {
	if !l.alive() {
		return false
	}
	if l.state.Age >= l.maxLifetime {
		l.state.Terminal = Expired
		return true
	}
	return false
}

// candidate is the position reached this tick if nothing blocks it.
func (l *Lifecycle) candidate() mgl64.Vec3 {
	return ballistics.Advance(l.state.Position, l.state.Velocity)
}

// commit stores the new position, integrates velocity for the next tick and
// ages the projectile, expiring it on the tick its age reaches the lifetime.
func (l *Lifecycle) commit(next mgl64.Vec3) {
	if !l.alive() {
		return
	}
	l.state.Position = next
	l.state.Velocity = ballistics.Integrate(l.state.Velocity, ballistics.Drag, ballistics.Gravity)
	l.age()
}

// skip ages the projectile without touching position or velocity.
func (l *Lifecycle) skip() {
	if !l.alive() {
		return
	}
	l.age()
}

func (l *Lifecycle) age() {
	l.state.Age++
	l.expireIfDue()
}

// declareHit freezes the projectile at its pre-impact position.
func (l *Lifecycle) declareHit() bool {
	if !l.alive() {
		return false
	}
	l.state.Terminal = Hit
	return true
}
