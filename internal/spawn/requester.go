// Package spawn turns triggers into projectile spawn requests. It decides
// when and with what initial state a projectile appears; it never simulates
// one.
package spawn

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/ballistics"
	"bulletsim/server/internal/projectile"
)

const (
	// DefaultSpeed is the launch speed in units per tick.
	DefaultSpeed = 4.0
	// DefaultPayload is the effect magnitude applied on an object hit.
	DefaultPayload float32 = 10
)

// Request is the raw input a trigger hands over before normalization.
type Request struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
	Speed     float64
	Payload   float32
}

// Requester validates spawn requests and forwards them to the simulation.
type Requester struct {
	// Spawn inserts a fully specified authority projectile. Required.
	Spawn func(projectile.Spawn) (projectile.Handle, bool)
	// Rejected observes requests that were dropped for carrying
	// non-finite values.
	Rejected func(Request)
}

// RequestSpawn launches a projectile from origin along direction at the
// given speed. A zero direction launches a motionless projectile. Requests
// with non-finite values are discarded without error.
func (r *Requester) RequestSpawn(origin, direction mgl64.Vec3, speed float64, payload float32) (projectile.Handle, bool) {
	if r == nil || r.Spawn == nil {
		return projectile.Handle{}, false
	}
	req := Request{Origin: origin, Direction: direction, Speed: speed, Payload: payload}
	velocity, ok := launchVelocity(direction, speed)
	if !ok || !ballistics.Finite(origin) || !finitePayload(payload) {
		if r.Rejected != nil {
			r.Rejected(req)
		}
		return projectile.Handle{}, false
	}
	return r.Spawn(projectile.Spawn{Position: origin, Velocity: velocity, Payload: payload})
}

func launchVelocity(direction mgl64.Vec3, speed float64) (mgl64.Vec3, bool) {
	if !ballistics.Finite(direction) || !ballistics.Finite(mgl64.Vec3{speed, 0, 0}) {
		return mgl64.Vec3{}, false
	}
	length := direction.Len()
	if length == 0 {
		return mgl64.Vec3{}, true
	}
	velocity := direction.Mul(speed / length)
	if !ballistics.Finite(velocity) {
		return mgl64.Vec3{}, false
	}
	return velocity, true
}

func finitePayload(payload float32) bool {
	v := float64(payload)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
