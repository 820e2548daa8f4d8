package projectile_test

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"bulletsim/server/internal/collision"
	"bulletsim/server/internal/collision/mocks"
	"bulletsim/server/internal/projectile"
)

// openWorld has no terrain and no objects.
type openWorld struct {
	casts int
}

func (w *openWorld) CastTerrain(collision.Segment) (collision.Impact, bool) {
	w.casts++
	return collision.Impact{}, false
}

func (w *openWorld) QueryObjectsIn(collision.AABB, collision.Predicate) []collision.Object {
	return nil
}

func (w *openWorld) ApplyEffect(collision.ObjectID, float32) {}

// wallWorld blocks everything beyond a plane x >= wallX.
type wallWorld struct {
	openWorld
	wallX float64
}

func (w *wallWorld) CastTerrain(segment collision.Segment) (collision.Impact, bool) {
	wall := collision.AABB{Min: mgl64.Vec3{w.wallX, -1e6, -1e6}, Max: mgl64.Vec3{w.wallX + 1, 1e6, 1e6}}
	t, ok := wall.Clip(segment)
	if !ok {
		return collision.Impact{}, false
	}
	return collision.Impact{Point: segment.At(t), Fraction: t}, true
}

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

func newAuthority(t testingT, spawn projectile.Spawn, lifetime uint32, world collision.World) *projectile.Controller {
	t.Helper()
	params := projectile.DefaultParams()
	params.MaxLifetime = lifetime
	ctrl, err := projectile.NewAuthority(spawn, params, world)
	if err != nil {
		t.Fatalf("unexpected error constructing authority: %v", err)
	}
	arena := projectile.NewArena(1)
	arena.Insert(ctrl)
	return ctrl
}

func TestFreeFlightExpiresAfterLifetime(t *testing.T) {
	world := &openWorld{}
	ctrl := newAuthority(t, projectile.Spawn{Velocity: mgl64.Vec3{0, 0, 4}, Payload: 10}, 1200, world)

	transitions := 0
	for tick := 1; tick <= 1200; tick++ {
		out := ctrl.Tick()
		if out.Terminal == projectile.Hit {
			t.Fatalf("tick %d: unexpected hit in an empty world", tick)
		}
		if out.Transitioned {
			transitions++
			if tick != 1200 {
				t.Fatalf("expected expiry on tick 1200, got tick %d", tick)
			}
		}
	}
	state := ctrl.State()
	if state.Terminal != projectile.Expired {
		t.Fatalf("expected expired after 1200 ticks, got %s", state.Terminal)
	}
	if state.Age != 1200 {
		t.Fatalf("expected age 1200, got %d", state.Age)
	}
	if transitions != 1 {
		t.Fatalf("expected exactly one transition, got %d", transitions)
	}
	if world.casts != 1200 {
		t.Fatalf("expected one terrain cast per tick, got %d", world.casts)
	}
}

func TestExpiredProjectileIgnoresFurtherTicks(t *testing.T) {
	ctrl := newAuthority(t, projectile.Spawn{Velocity: mgl64.Vec3{1, 0, 0}}, 3, &openWorld{})
	for i := 0; i < 3; i++ {
		ctrl.Tick()
	}
	frozen := ctrl.State()
	if frozen.Terminal != projectile.Expired {
		t.Fatalf("expected expiry after three ticks, got %s", frozen.Terminal)
	}
	for i := 0; i < 5; i++ {
		out := ctrl.Tick()
		if out.Transitioned {
			t.Fatalf("expected terminal projectile to stay inert")
		}
	}
	if got := ctrl.State(); got != frozen {
		t.Fatalf("expected state to stay frozen at %+v, got %+v", frozen, got)
	}
}

func TestPointBlankTargetIsHitOnFirstTick(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	world := mocks.NewMockWorld(mockCtrl)

	target := collision.Object{
		ID:       99,
		Kind:     collision.KindLiving,
		Bounds:   collision.BoxAround(mgl64.Vec3{0, 0, 2}, 0.3),
		Alive:    true,
		Pickable: true,
	}
	world.EXPECT().CastTerrain(gomock.Any()).Return(collision.Impact{}, false).Times(1)
	world.EXPECT().QueryObjectsIn(gomock.Any(), gomock.Any()).DoAndReturn(
		func(volume collision.AABB, predicate collision.Predicate) []collision.Object {
			if volume.Intersects(target.Bounds) && predicate(target) {
				return []collision.Object{target}
			}
			return nil
		},
	).AnyTimes()
	world.EXPECT().ApplyEffect(collision.ObjectID(99), float32(10)).Times(1)

	ctrl := newAuthority(t, projectile.Spawn{Velocity: mgl64.Vec3{0, 0, 4}, Payload: 10}, 1200, world)
	out := ctrl.Tick()
	if out.Terminal != projectile.Hit || !out.Transitioned || !out.Struck {
		t.Fatalf("expected hit on the first tick, got %+v", out)
	}
	if out.Hit.Target != 99 {
		t.Fatalf("expected target 99, got %d", out.Hit.Target)
	}
	state := ctrl.State()
	if state.Position != (mgl64.Vec3{}) {
		t.Fatalf("expected projectile to stay at its pre-hit position, got %v", state.Position)
	}
	if state.Age != 0 {
		t.Fatalf("expected no aging on the hit tick, got %d", state.Age)
	}

	// Further ticks must not reach the world again.
	ctrl.Tick()
}

func TestTerrainHitAppliesNoPayload(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	world := mocks.NewMockWorld(mockCtrl)
	world.EXPECT().CastTerrain(gomock.Any()).Return(collision.Impact{Point: mgl64.Vec3{1, 0, 0}}, true)
	world.EXPECT().ApplyEffect(gomock.Any(), gomock.Any()).Times(0)

	ctrl := newAuthority(t, projectile.Spawn{Velocity: mgl64.Vec3{4, 0, 0}, Payload: 10}, 100, world)
	if out := ctrl.Tick(); out.Terminal != projectile.Hit || out.Hit.Kind != collision.HitTerrain {
		t.Fatalf("expected terrain hit, got %+v", out)
	}
}

func TestTerrainCrossingAlwaysHits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		speed := rapid.Float64Range(0.1, 8).Draw(t, "speed")
		lifetime := rapid.Uint32Range(1, 5000).Draw(t, "lifetime")
		wallX := rapid.Float64Range(0.01, 0.99).Draw(t, "fraction") * speed

		ctrl := newAuthority(t, projectile.Spawn{Velocity: mgl64.Vec3{speed, 0, 0}}, lifetime, &wallWorld{wallX: wallX})
		out := ctrl.Tick()
		if out.Terminal != projectile.Hit {
			t.Fatalf("expected hit crossing wall at %v with lifetime %d, got %s", wallX, lifetime, out.Terminal)
		}
	})
}

func TestAuthorityAndReplicaTrajectoriesMatch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spawn := projectile.Spawn{
			Position: mgl64.Vec3{
				rapid.Float64Range(-100, 100).Draw(t, "x"),
				rapid.Float64Range(-100, 100).Draw(t, "y"),
				rapid.Float64Range(-100, 100).Draw(t, "z"),
			},
			Velocity: mgl64.Vec3{
				rapid.Float64Range(-5, 5).Draw(t, "vx"),
				rapid.Float64Range(-5, 5).Draw(t, "vy"),
				rapid.Float64Range(-5, 5).Draw(t, "vz"),
			},
			Payload: float32(rapid.Float64Range(0, 50).Draw(t, "payload")),
		}
		lifetime := rapid.Uint32Range(2, 300).Draw(t, "lifetime")
		params := projectile.DefaultParams()
		params.MaxLifetime = lifetime

		authority := newAuthority(t, spawn, lifetime, &openWorld{})
		authority.Tick()

		replica, err := projectile.NewReplica(authority.Snapshot(), params)
		if err != nil {
			t.Fatalf("unexpected replica error: %v", err)
		}
		if out := replica.Tick(); !out.Suppressed {
			t.Fatalf("expected the first replica tick to be suppressed")
		}

		for tick := uint32(1); ; tick++ {
			a := authority.State()
			r := replica.State()
			if a.Position != r.Position || a.Velocity != r.Velocity || a.Age != r.Age || a.Terminal != r.Terminal {
				t.Fatalf("tick %d: desync authority=%+v replica=%+v", tick, a, r)
			}
			if a.Terminal != projectile.Alive {
				break
			}
			authority.Tick()
			replica.Tick()
		}
		if replica.State().Terminal != projectile.Expired {
			t.Fatalf("expected replica to expire locally, got %s", replica.State().Terminal)
		}
	})
}

func TestReplicaFirstTickOnlyAges(t *testing.T) {
	snapshot := projectile.Snapshot{Position: mgl64.Vec3{1, 2, 3}, Velocity: mgl64.Vec3{0, 0, 4}, Payload: 10}
	replica, err := projectile.NewReplica(snapshot, projectile.DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !replica.State().FirstStepSuppressed() {
		t.Fatalf("expected suppression flag on a fresh replica")
	}
	replica.Tick()
	state := replica.State()
	if state.Position != snapshot.Position || state.Velocity != snapshot.Velocity {
		t.Fatalf("expected no integration on the suppressed tick, got %+v", state)
	}
	if state.Age != 1 || state.FirstStepSuppressed() {
		t.Fatalf("expected age 1 and cleared flag, got %+v", state)
	}
	replica.Tick()
	if got := replica.State().Position; got != (mgl64.Vec3{1, 2, 7}) {
		t.Fatalf("expected replica to integrate on its second tick, got %v", got)
	}
}

func TestReplicaMirrorsRemoval(t *testing.T) {
	params := projectile.DefaultParams()
	params.MaxLifetime = 4
	replica, err := projectile.NewReplica(projectile.Snapshot{Velocity: mgl64.Vec3{1, 0, 0}}, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	replica.Tick()
	if !replica.MirrorRemoval() {
		t.Fatalf("expected removal to transition a live replica")
	}
	if replica.State().Terminal != projectile.Hit {
		t.Fatalf("expected early removal to be mirrored as hit, got %s", replica.State().Terminal)
	}
	if replica.MirrorRemoval() {
		t.Fatalf("expected second removal to be ignored")
	}

	authority := newAuthority(t, projectile.Spawn{}, 10, &openWorld{})
	if authority.MirrorRemoval() {
		t.Fatalf("authority must not mirror removals")
	}
}

func TestConstructorsRejectInvalidInput(t *testing.T) {
	params := projectile.DefaultParams()
	if _, err := projectile.NewAuthority(projectile.Spawn{}, params, nil); !errors.Is(err, projectile.ErrNoWorld) {
		t.Fatalf("expected ErrNoWorld, got %v", err)
	}
	bad := projectile.Spawn{Velocity: mgl64.Vec3{math.NaN(), 0, 0}}
	if _, err := projectile.NewAuthority(bad, params, &openWorld{}); !errors.Is(err, projectile.ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	if _, err := projectile.NewReplica(projectile.Snapshot{Position: mgl64.Vec3{0, math.Inf(1), 0}}, params); !errors.Is(err, projectile.ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite for replica, got %v", err)
	}
}

func TestResumedReplicaStaysAligned(t *testing.T) {
	authority := newAuthority(t, projectile.Spawn{Velocity: mgl64.Vec3{1, 2, 3}}, 20, &openWorld{})
	for i := 0; i < 7; i++ {
		authority.Tick()
	}
	params := projectile.DefaultParams()
	params.MaxLifetime = 20
	replica, err := projectile.ResumeReplica(authority.Snapshot(), authority.State().Age, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replica.State().FirstStepSuppressed() {
		t.Fatalf("expected resumed replica to integrate immediately")
	}
	for authority.Alive() {
		authority.Tick()
		replica.Tick()
		a, r := authority.State(), replica.State()
		if a.Position != r.Position || a.Velocity != r.Velocity || a.Age != r.Age || a.Terminal != r.Terminal {
			t.Fatalf("desync at age %d: authority=%+v replica=%+v", a.Age, a, r)
		}
	}
	if replica.State().Terminal != projectile.Expired || replica.State().Age != 20 {
		t.Fatalf("expected resumed replica to expire with the authority, got %+v", replica.State())
	}
}
