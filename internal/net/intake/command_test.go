package intake

import (
	"testing"
	"time"

	"bulletsim/server/internal/net/proto"
	"bulletsim/server/internal/sim"
)

type fakeEngine struct {
	enqueueOK     bool
	enqueueReason string
	commands      []sim.Command
}

func (f *fakeEngine) Enqueue(cmd sim.Command) (bool, string) {
	f.commands = append(f.commands, cmd)
	if f.enqueueOK {
		return true, ""
	}
	if f.enqueueReason == "" {
		f.enqueueReason = sim.CommandRejectQueueLimit
	}
	return false, f.enqueueReason
}
func (f *fakeEngine) Advance(sim.LoopTickContext) sim.LoopStepResult { return sim.LoopStepResult{} }
func (f *fakeEngine) Snapshot() sim.Snapshot                         { return sim.Snapshot{} }
func (f *fakeEngine) Pending() int                                   { return len(f.commands) }
func (f *fakeEngine) Run(<-chan struct{})                            {}

func envelope(t *testing.T, msgType string, body any) proto.Envelope {
	t.Helper()
	frame, err := proto.Encode(msgType, body)
	if err != nil {
		t.Fatalf("failed to encode %s: %v", msgType, err)
	}
	env, err := proto.Decode(frame)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", msgType, err)
	}
	return env
}

func TestStageClientCommandAcceptsFire(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	issuedAt := time.Unix(100, 0)
	ctx := CommandContext{
		Engine: engine,
		Tick:   func() uint64 { return 42 },
		Now:    func() time.Time { return issuedAt },
	}

	msg := envelope(t, proto.TypeFire, proto.FireMessage{Origin: proto.Vector{0, 1, 0}, Direction: proto.Vector{0, 0, 1}})
	cmd, ok, reason := StageClientCommand(ctx, "observer-1", msg)
	if !ok {
		t.Fatalf("expected command to be accepted, got reason %q", reason)
	}
	if cmd.ActorID != "observer-1" {
		t.Fatalf("expected ActorID to be set, got %q", cmd.ActorID)
	}
	if cmd.OriginTick != 42 {
		t.Fatalf("expected OriginTick to be 42, got %d", cmd.OriginTick)
	}
	if !cmd.IssuedAt.Equal(issuedAt) {
		t.Fatalf("expected IssuedAt %v, got %v", issuedAt, cmd.IssuedAt)
	}
	if len(engine.commands) != 1 || engine.commands[0].Type != sim.CommandFire {
		t.Fatalf("expected engine to record fire command, got %+v", engine.commands)
	}
}

func TestStageClientCommandRejectsUnknownEmitter(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	ctx := CommandContext{
		Engine:     engine,
		HasEmitter: func(id string) bool { return id == "north" },
	}

	_, ok, reason := StageClientCommand(ctx, "observer-1", envelope(t, proto.TypeArm, proto.EmitterMessage{EmitterID: "south"}))
	if ok || reason != RejectUnknownEmitter {
		t.Fatalf("expected unknown emitter rejection, got ok=%v reason=%q", ok, reason)
	}
	if len(engine.commands) != 0 {
		t.Fatalf("expected rejected command to stay out of the queue")
	}

	cmd, ok, reason := StageClientCommand(ctx, "observer-1", envelope(t, proto.TypeArm, proto.EmitterMessage{EmitterID: "north"}))
	if !ok {
		t.Fatalf("expected arm to be accepted, got %q", reason)
	}
	if cmd.Type != sim.CommandArm || cmd.Emitter.EmitterID != "north" {
		t.Fatalf("unexpected staged command %+v", cmd)
	}
}

func TestStageClientCommandRejectsServerFrames(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	_, ok, reason := StageClientCommand(CommandContext{Engine: engine}, "observer-1", envelope(t, proto.TypeBatch, proto.BatchMessage{Tick: 3}))
	if ok || reason != RejectInvalidCommand {
		t.Fatalf("expected invalid command rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestStageClientCommandPropagatesQueueReason(t *testing.T) {
	engine := &fakeEngine{enqueueReason: sim.CommandRejectQueueFull}
	msg := envelope(t, proto.TypeFire, proto.FireMessage{Direction: proto.Vector{1, 0, 0}})
	_, ok, reason := StageClientCommand(CommandContext{Engine: engine}, "observer-1", msg)
	if ok {
		t.Fatalf("expected enqueue failure to reject the command")
	}
	if reason != sim.CommandRejectQueueFull {
		t.Fatalf("expected queue full reason, got %q", reason)
	}
}

func TestStageClientCommandWithoutEngine(t *testing.T) {
	msg := envelope(t, proto.TypeFire, proto.FireMessage{Direction: proto.Vector{1, 0, 0}})
	if _, ok, reason := StageClientCommand(CommandContext{}, "observer-1", msg); ok || reason != sim.CommandRejectQueueFull {
		t.Fatalf("expected missing engine to reject with queue full, got ok=%v reason=%q", ok, reason)
	}
}
