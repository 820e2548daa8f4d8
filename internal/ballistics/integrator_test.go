package ballistics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"pgregory.net/rapid"
)

func TestStepUsesPreMutationVelocity(t *testing.T) {
	position := mgl64.Vec3{1, 2, 3}
	velocity := mgl64.Vec3{4, 0.5, -2}

	next, nextVelocity := Step(position, velocity)

	if want := (mgl64.Vec3{5, 2.5, 1}); next != want {
		t.Fatalf("expected displacement with pre-mutation velocity %v, got %v", want, next)
	}
	if want := (mgl64.Vec3{velocity[0] * Drag, velocity[1] - Gravity, velocity[2] * Drag}); nextVelocity != want {
		t.Fatalf("expected integrated velocity %v, got %v", want, nextVelocity)
	}
}

func TestIntegrateLeavesInputUntouched(t *testing.T) {
	velocity := mgl64.Vec3{1, 1, 1}
	_ = Integrate(velocity, 0.5, 0.25)
	if velocity != (mgl64.Vec3{1, 1, 1}) {
		t.Fatalf("expected input velocity to be unchanged, got %v", velocity)
	}
}

func TestFinite(t *testing.T) {
	cases := []struct {
		name string
		v    mgl64.Vec3
		want bool
	}{
		{name: "zero", v: mgl64.Vec3{}, want: true},
		{name: "regular", v: mgl64.Vec3{1, -2, 3.5}, want: true},
		{name: "nan", v: mgl64.Vec3{math.NaN(), 0, 0}, want: false},
		{name: "positive infinity", v: mgl64.Vec3{0, math.Inf(1), 0}, want: false},
		{name: "negative infinity", v: mgl64.Vec3{0, 0, math.Inf(-1)}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Finite(tc.v); got != tc.want {
				t.Fatalf("Finite(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestOrientation(t *testing.T) {
	yaw, pitch := Orientation(mgl64.Vec3{0, 0, 4})
	if yaw != 0 || pitch != 0 {
		t.Fatalf("expected level flight along +Z to face (0,0), got (%.2f, %.2f)", yaw, pitch)
	}
	yaw, pitch = Orientation(mgl64.Vec3{4, 4, 0})
	if math.Abs(yaw-90) > 1e-9 || math.Abs(pitch-45) > 1e-9 {
		t.Fatalf("expected (90,45), got (%.4f, %.4f)", yaw, pitch)
	}
}

func TestIntegrateVerticalVelocityStrictlyDecreases(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		drag := rapid.Float64Range(0.01, 0.99).Draw(t, "drag")
		gravity := rapid.Float64Range(0.001, 1).Draw(t, "gravity")
		velocity := mgl64.Vec3{
			rapid.Float64Range(-10, 10).Draw(t, "vx"),
			rapid.Float64Range(-10, 10).Draw(t, "vy"),
			rapid.Float64Range(-10, 10).Draw(t, "vz"),
		}
		steps := rapid.IntRange(1, 200).Draw(t, "steps")

		previous := velocity
		for i := 0; i < steps; i++ {
			next := Integrate(previous, drag, gravity)
			if !(next[1] < previous[1]) {
				t.Fatalf("step %d: vertical velocity did not decrease: %v -> %v", i, previous[1], next[1])
			}
			if HorizontalLength(next) > HorizontalLength(previous) {
				t.Fatalf("step %d: horizontal speed grew: %v -> %v", i, HorizontalLength(previous), HorizontalLength(next))
			}
			previous = next
		}
	})
}

func TestIntegrateHorizontalVelocityVanishes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		drag := rapid.Float64Range(0.01, 0.95).Draw(t, "drag")
		start := mgl64.Vec3{
			rapid.Float64Range(-100, 100).Draw(t, "vx"),
			0,
			rapid.Float64Range(-100, 100).Draw(t, "vz"),
		}
		velocity := start
		for i := 0; i < 2000; i++ {
			velocity = Integrate(velocity, drag, Gravity)
		}
		bound := HorizontalLength(start) * math.Pow(drag, 2000)
		if HorizontalLength(velocity) > bound+1e-9 {
			t.Fatalf("horizontal speed %v exceeds geometric bound %v", HorizontalLength(velocity), bound)
		}
		if HorizontalLength(velocity) > 1e-6 {
			t.Fatalf("expected horizontal speed to vanish, got %v", HorizontalLength(velocity))
		}
	})
}
