package ballistics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Drag scales the horizontal velocity components once per tick.
	Drag = 0.99
	// Gravity is subtracted from the vertical velocity once per tick.
	Gravity = 0.03
)

// Advance returns the tentative position reached after travelling one tick
// with the provided velocity.
func Advance(position, velocity mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		position[0] + velocity[0],
		position[1] + velocity[1],
		position[2] + velocity[2],
	}
}

// Integrate applies horizontal drag and vertical gravity to produce the
// velocity used on the following tick. Y is the vertical axis.
func Integrate(velocity mgl64.Vec3, drag, gravity float64) mgl64.Vec3 {
	return mgl64.Vec3{
		velocity[0] * drag,
		velocity[1] - gravity,
		velocity[2] * drag,
	}
}

// Step advances a projectile by one tick using the package constants. The
// displacement always uses the velocity captured before drag and gravity are
// applied so every runtime derives identical trajectories.
func Step(position, velocity mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	next := Advance(position, velocity)
	return next, Integrate(velocity, Drag, Gravity)
}

// Finite reports whether every component of v is a finite number.
func Finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// HorizontalLength returns the magnitude of the X/Z components.
func HorizontalLength(v mgl64.Vec3) float64 {
	return math.Hypot(v[0], v[2])
}

// Orientation reports the yaw and pitch in degrees implied by a velocity,
// using the same convention renderers expect for bullet models.
func Orientation(velocity mgl64.Vec3) (yaw, pitch float64) {
	yaw = math.Atan2(velocity[0], velocity[2]) * (180.0 / math.Pi)
	pitch = math.Atan2(velocity[1], HorizontalLength(velocity)) * (180.0 / math.Pi)
	return yaw, pitch
}
