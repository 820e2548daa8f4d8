package intake

import (
	"time"

	"bulletsim/server/internal/net/proto"
	"bulletsim/server/internal/sim"
)

const (
	// RejectInvalidCommand indicates a frame that does not decode to a command.
	RejectInvalidCommand = "invalid_command"
	// RejectUnknownEmitter indicates an arm or disarm for a turret that does
	// not exist.
	RejectUnknownEmitter = "unknown_emitter"
)

// CommandContext carries the collaborators used to stage observer commands.
type CommandContext struct {
	Engine     sim.Engine
	HasEmitter func(string) bool
	Tick       func() uint64
	Now        func() time.Time
}

// StageClientCommand validates an observer frame and enqueues the resulting
// command for the next tick. The reason is empty when the command is staged.
func StageClientCommand(ctx CommandContext, actorID string, env proto.Envelope) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(env)
	if !ok {
		return zero, false, RejectInvalidCommand
	}

	switch command.Type {
	case sim.CommandFire:
		if command.Fire == nil {
			return zero, false, RejectInvalidCommand
		}
	case sim.CommandArm, sim.CommandDisarm:
		if command.Emitter == nil {
			return zero, false, RejectInvalidCommand
		}
		if ctx.HasEmitter != nil && !ctx.HasEmitter(command.Emitter.EmitterID) {
			return zero, false, RejectUnknownEmitter
		}
	default:
		return zero, false, RejectInvalidCommand
	}

	command.ActorID = actorID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
