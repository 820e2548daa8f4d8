package proto

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"

	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/sim"
)

func TestBatchFrameCarriesEngineMessages(t *testing.T) {
	batch := sim.Batch{
		Tick: 9,
		Spawned: []sim.Spawned{{
			ID:       1<<32 | 3,
			Snapshot: projectile.Snapshot{Position: mgl64.Vec3{1, 2, 3}, Velocity: mgl64.Vec3{0, -0.03, 3.96}, Payload: 10},
		}},
		Removed: []sim.Removed{{ID: 1<<32 | 1, Terminal: projectile.Hit}},
	}
	frame, err := EncodeBatch(BatchFrom(batch))
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	env, err := Decode(frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	var got BatchMessage
	if err := env.Into(TypeBatch, &got); err != nil {
		t.Fatalf("unexpected body error: %v", err)
	}
	if got.Tick != 9 || len(got.Spawns) != 1 || len(got.Removes) != 1 {
		t.Fatalf("unexpected batch %+v", got)
	}
	if got.Spawns[0].Snapshot() != batch.Spawned[0].Snapshot {
		t.Fatalf("expected bit-exact snapshot, got %+v", got.Spawns[0].Snapshot())
	}
	if got.Removes[0].ID != batch.Removed[0].ID {
		t.Fatalf("unexpected removal %+v", got.Removes[0])
	}
}

func TestJoinFrameCarriesInFlightProjectiles(t *testing.T) {
	join := JoinMessage{
		SubscriberID:  "abc",
		Tick:          40,
		TickRate:      20,
		LifetimeTicks: 100,
		Projectiles: InFlightFrom([]sim.InFlight{{
			ID:       7,
			Snapshot: projectile.Snapshot{Position: mgl64.Vec3{4, 5, 6}, Velocity: mgl64.Vec3{1, 0, 0}, Payload: 3},
			Age:      12,
		}}),
	}
	frame, err := EncodeJoin(join)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	env, err := Decode(frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	var got JoinMessage
	if err := env.Into(TypeJoin, &got); err != nil {
		t.Fatalf("unexpected body error: %v", err)
	}
	if got.SubscriberID != "abc" || got.LifetimeTicks != 100 || len(got.Projectiles) != 1 {
		t.Fatalf("unexpected join %+v", got)
	}
	if p := got.Projectiles[0]; p.ID != 7 || p.Age != 12 || p.Position != (Vector{4, 5, 6}) {
		t.Fatalf("unexpected in-flight projectile %+v", p)
	}
}

func TestDecodeRejectsForeignFrames(t *testing.T) {
	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Fatalf("expected garbage to fail")
	}
	old, err := msgpack.Marshal(Envelope{Type: TypeBatch, Version: Version + 1})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	if _, err := Decode(old); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}

	frame, _ := EncodeCommandAck(CommandAck{Type: TypeFire, Tick: 1})
	env, err := Decode(frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	var batch BatchMessage
	if err := env.Into(TypeBatch, &batch); !errors.Is(err, ErrUnexpectedType) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

func TestClientCommand(t *testing.T) {
	t.Run("fire", func(t *testing.T) {
		frame, _ := Encode(TypeFire, FireMessage{Origin: Vector{1, 2, 3}, Direction: Vector{0, 0, 1}})
		env, _ := Decode(frame)
		cmd, ok := ClientCommand(env)
		if !ok || cmd.Type != sim.CommandFire || cmd.Fire == nil {
			t.Fatalf("expected fire command, got %+v", cmd)
		}
		if cmd.Fire.Origin != [3]float64{1, 2, 3} || cmd.Fire.Direction != [3]float64{0, 0, 1} {
			t.Fatalf("unexpected fire body %+v", cmd.Fire)
		}
	})

	t.Run("disarm", func(t *testing.T) {
		frame, _ := Encode(TypeDisarm, EmitterMessage{EmitterID: "north"})
		env, _ := Decode(frame)
		cmd, ok := ClientCommand(env)
		if !ok || cmd.Type != sim.CommandDisarm || cmd.Emitter.EmitterID != "north" {
			t.Fatalf("expected disarm command, got %+v", cmd)
		}
	})

	t.Run("missing emitter id", func(t *testing.T) {
		frame, _ := Encode(TypeArm, EmitterMessage{})
		env, _ := Decode(frame)
		if _, ok := ClientCommand(env); ok {
			t.Fatalf("expected arm without id to be refused")
		}
	})

	t.Run("server message", func(t *testing.T) {
		frame, _ := EncodeBatch(BatchMessage{Tick: 1})
		env, _ := Decode(frame)
		if _, ok := ClientCommand(env); ok {
			t.Fatalf("expected server frames to be refused as commands")
		}
	})
}
