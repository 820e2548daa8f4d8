package spawn

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/projectile"
)

type recorder struct {
	spawns   []projectile.Spawn
	rejected []Request
}

func (r *recorder) requester() *Requester {
	return &Requester{
		Spawn: func(s projectile.Spawn) (projectile.Handle, bool) {
			r.spawns = append(r.spawns, s)
			return projectile.Handle{Index: uint32(len(r.spawns) - 1), Generation: 1}, true
		},
		Rejected: func(req Request) {
			r.rejected = append(r.rejected, req)
		},
	}
}

func TestRequestSpawnNormalizesDirection(t *testing.T) {
	rec := &recorder{}
	handle, ok := rec.requester().RequestSpawn(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0, 10}, 4, 10)
	if !ok || !handle.Valid() {
		t.Fatalf("expected spawn to succeed")
	}
	if len(rec.spawns) != 1 {
		t.Fatalf("expected one spawn, got %d", len(rec.spawns))
	}
	got := rec.spawns[0]
	if got.Velocity != (mgl64.Vec3{0, 0, 4}) {
		t.Fatalf("expected velocity (0,0,4), got %v", got.Velocity)
	}
	if got.Position != (mgl64.Vec3{1, 2, 3}) || got.Payload != 10 {
		t.Fatalf("unexpected spawn %+v", got)
	}
}

func TestRequestSpawnDropsInvalidInput(t *testing.T) {
	cases := []struct {
		name      string
		origin    mgl64.Vec3
		direction mgl64.Vec3
		speed     float64
		payload   float32
	}{
		{name: "nan origin", origin: mgl64.Vec3{math.NaN(), 0, 0}, direction: mgl64.Vec3{1, 0, 0}, speed: 4, payload: 10},
		{name: "infinite direction", direction: mgl64.Vec3{math.Inf(1), 0, 0}, speed: 4, payload: 10},
		{name: "nan speed", direction: mgl64.Vec3{1, 0, 0}, speed: math.NaN(), payload: 10},
		{name: "nan payload", direction: mgl64.Vec3{1, 0, 0}, speed: 4, payload: float32(math.NaN())},
		{name: "infinite payload", direction: mgl64.Vec3{1, 0, 0}, speed: 4, payload: float32(math.Inf(-1))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			if _, ok := rec.requester().RequestSpawn(tc.origin, tc.direction, tc.speed, tc.payload); ok {
				t.Fatalf("expected request to be dropped")
			}
			if len(rec.spawns) != 0 {
				t.Fatalf("expected no spawn, got %d", len(rec.spawns))
			}
			if len(rec.rejected) != 1 {
				t.Fatalf("expected rejection to be observed once, got %d", len(rec.rejected))
			}
		})
	}
}

func TestRequestSpawnAcceptsZeroDirection(t *testing.T) {
	rec := &recorder{}
	if _, ok := rec.requester().RequestSpawn(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{}, 4, 10); !ok {
		t.Fatalf("expected a zero direction to spawn")
	}
	if len(rec.rejected) != 0 {
		t.Fatalf("expected no rejection, got %d", len(rec.rejected))
	}
	if len(rec.spawns) != 1 || rec.spawns[0].Velocity != (mgl64.Vec3{}) {
		t.Fatalf("expected one motionless spawn, got %+v", rec.spawns)
	}
	if rec.spawns[0].Position != (mgl64.Vec3{0, 3, 0}) {
		t.Fatalf("expected spawn at the origin, got %v", rec.spawns[0].Position)
	}
}

func TestNilRequesterRefuses(t *testing.T) {
	var r *Requester
	if _, ok := r.RequestSpawn(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 4, 10); ok {
		t.Fatalf("expected nil requester to refuse")
	}
}

func TestPeriodicEmitterFiresFromMuzzle(t *testing.T) {
	rec := &recorder{}
	r := rec.requester()
	turret := NewPeriodicEmitter(mgl64.Vec3{0, 0.5, 0.5}, mgl64.Vec3{1, 0, 0})

	if _, ok := turret.Tick(r); ok {
		t.Fatalf("expected disarmed turret to stay silent")
	}
	turret.Arm()
	for i := 0; i < 3; i++ {
		if _, ok := turret.Tick(r); !ok {
			t.Fatalf("tick %d: expected armed turret to fire every tick", i)
		}
	}
	if len(rec.spawns) != 3 {
		t.Fatalf("expected three spawns, got %d", len(rec.spawns))
	}
	first := rec.spawns[0]
	if first.Position != (mgl64.Vec3{0.6, 0.5, 0.5}) {
		t.Fatalf("expected muzzle at (0.6,0.5,0.5), got %v", first.Position)
	}
	if first.Velocity != (mgl64.Vec3{4, 0, 0}) || first.Payload != DefaultPayload {
		t.Fatalf("unexpected launch state %+v", first)
	}

	turret.Disarm()
	turret.Tick(r)
	if len(rec.spawns) != 3 {
		t.Fatalf("expected disarm to stop firing")
	}
}

func TestPeriodicEmitterHonoursInterval(t *testing.T) {
	rec := &recorder{}
	r := rec.requester()
	turret := NewPeriodicEmitter(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1})
	turret.Interval = 3
	turret.Arm()

	var fired []int
	for tick := 0; tick < 7; tick++ {
		if _, ok := turret.Tick(r); ok {
			fired = append(fired, tick)
		}
	}
	if len(fired) != 3 || fired[0] != 0 || fired[1] != 3 || fired[2] != 6 {
		t.Fatalf("expected shots on ticks 0, 3 and 6, got %v", fired)
	}
}

func TestCooldownEmitterRefusesUntilReady(t *testing.T) {
	rec := &recorder{}
	r := rec.requester()
	gun := NewCooldownEmitter()

	if _, ok := gun.Trigger(r, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}); !ok {
		t.Fatalf("expected first trigger to fire")
	}
	if gun.Remaining() != DefaultCooldown {
		t.Fatalf("expected cooldown %d, got %d", DefaultCooldown, gun.Remaining())
	}
	for i := uint32(0); i < DefaultCooldown; i++ {
		if _, ok := gun.Trigger(r, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}); ok {
			t.Fatalf("expected trigger to be refused with %d ticks remaining", gun.Remaining())
		}
		gun.Tick()
	}
	if _, ok := gun.Trigger(r, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}); !ok {
		t.Fatalf("expected trigger to fire once the cooldown elapsed")
	}
	if gun.Durability() != DefaultDurability-2 {
		t.Fatalf("expected durability %d, got %d", DefaultDurability-2, gun.Durability())
	}
}

func TestCooldownEmitterBreaks(t *testing.T) {
	rec := &recorder{}
	r := rec.requester()
	gun := NewCooldownEmitter()
	gun.Cooldown = 0
	for i := uint32(0); i < DefaultDurability; i++ {
		if _, ok := gun.Trigger(r, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}); !ok {
			t.Fatalf("shot %d: expected emitter to fire", i)
		}
	}
	if !gun.Broken() {
		t.Fatalf("expected emitter to break after %d shots", DefaultDurability)
	}
	if _, ok := gun.Trigger(r, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}); ok {
		t.Fatalf("expected broken emitter to refuse")
	}
}

func TestCooldownEmitterKeepsCooldownOnRejectedShot(t *testing.T) {
	rec := &recorder{}
	gun := NewCooldownEmitter()
	if _, ok := gun.Trigger(rec.requester(), mgl64.Vec3{}, mgl64.Vec3{math.NaN(), 0, 1}); ok {
		t.Fatalf("expected non-finite look vector to be dropped")
	}
	if gun.Remaining() != 0 || gun.Durability() != DefaultDurability {
		t.Fatalf("expected rejected shot to cost nothing")
	}
}
