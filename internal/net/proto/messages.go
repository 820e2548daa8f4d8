// Package proto defines the binary websocket frames exchanged between the
// authority and its observers. Frames are msgpack-encoded envelopes whose
// body is decoded according to the envelope type.
package proto

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"

	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Server message type identifiers.
const (
	TypeJoin          = "join"
	TypeBatch         = "batch"
	TypeCommandAck    = "commandAck"
	TypeCommandReject = "commandReject"
)

// Client message type identifiers.
const (
	TypeFire   = "fire"
	TypeArm    = "arm"
	TypeDisarm = "disarm"
)

var (
	// ErrVersionMismatch reports a frame from an incompatible peer.
	ErrVersionMismatch = errors.New("proto: version mismatch")
	// ErrUnexpectedType reports a frame decoded as the wrong message.
	ErrUnexpectedType = errors.New("proto: unexpected message type")
)

// Vector is a position or velocity on the wire.
type Vector [3]float64

// Envelope wraps every frame.
type Envelope struct {
	Type    string             `msgpack:"t"`
	Version int                `msgpack:"v"`
	Body    msgpack.RawMessage `msgpack:"b,omitempty"`
}

// SpawnMessage is the one-shot snapshot a replica is built from.
type SpawnMessage struct {
	ID       uint64  `msgpack:"id"`
	Position Vector  `msgpack:"p"`
	Velocity Vector  `msgpack:"vel"`
	Payload  float32 `msgpack:"pl"`
}

// RemoveMessage announces that a projectile reached a terminal state. The
// reason is not transmitted.
type RemoveMessage struct {
	ID uint64 `msgpack:"id"`
}

// InFlightMessage describes a projectile an observer joins mid-flight.
type InFlightMessage struct {
	SpawnMessage `msgpack:",inline"`
	Age          uint32 `msgpack:"age"`
}

// JoinMessage greets a new observer with the simulation settings and the
// projectiles currently in flight.
type JoinMessage struct {
	SubscriberID  string            `msgpack:"sub"`
	Tick          uint64            `msgpack:"tick"`
	TickRate      int               `msgpack:"rate"`
	LifetimeTicks uint32            `msgpack:"life"`
	Projectiles   []InFlightMessage `msgpack:"proj,omitempty"`
}

// BatchMessage carries one tick's replication messages.
type BatchMessage struct {
	Tick    uint64          `msgpack:"tick"`
	Spawns  []SpawnMessage  `msgpack:"spawn,omitempty"`
	Removes []RemoveMessage `msgpack:"remove,omitempty"`
}

// FireMessage asks the authority to fire the sender's hand-held emitter.
type FireMessage struct {
	Origin    Vector `msgpack:"o"`
	Direction Vector `msgpack:"d"`
}

// EmitterMessage arms or disarms a turret.
type EmitterMessage struct {
	EmitterID string `msgpack:"id"`
}

// CommandAck confirms a staged command.
type CommandAck struct {
	Type string `msgpack:"type"`
	Tick uint64 `msgpack:"tick"`
}

// CommandReject reports a refused command.
type CommandReject struct {
	Type   string `msgpack:"type"`
	Reason string `msgpack:"reason"`
}

// Encode wraps body in an envelope of the given type.
func Encode(msgType string, body any) ([]byte, error) {
	raw, err := msgpack.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", msgType, err)
	}
	data, err := msgpack.Marshal(Envelope{Type: msgType, Version: Version, Body: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Decode reads the envelope of a frame.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != Version {
		return Envelope{}, fmt.Errorf("frame version %d: %w", env.Version, ErrVersionMismatch)
	}
	return env, nil
}

// Into decodes the envelope body into out after checking the type.
func (e Envelope) Into(msgType string, out any) error {
	if e.Type != msgType {
		return fmt.Errorf("want %s, got %s: %w", msgType, e.Type, ErrUnexpectedType)
	}
	if err := msgpack.Unmarshal(e.Body, out); err != nil {
		return fmt.Errorf("decode %s body: %w", msgType, err)
	}
	return nil
}

// EncodeJoin renders a join frame.
func EncodeJoin(msg JoinMessage) ([]byte, error) {
	return Encode(TypeJoin, msg)
}

// EncodeBatch renders a batch frame.
func EncodeBatch(msg BatchMessage) ([]byte, error) {
	return Encode(TypeBatch, msg)
}

// EncodeCommandAck renders a command acknowledgement.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	return Encode(TypeCommandAck, msg)
}

// EncodeCommandReject renders a command rejection.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	return Encode(TypeCommandReject, msg)
}

// SpawnFrom converts an engine spawn record.
func SpawnFrom(id uint64, snapshot projectile.Snapshot) SpawnMessage {
	return SpawnMessage{
		ID:       id,
		Position: Vector(snapshot.Position),
		Velocity: Vector(snapshot.Velocity),
		Payload:  snapshot.Payload,
	}
}

// Snapshot converts the message back into replica input.
func (m SpawnMessage) Snapshot() projectile.Snapshot {
	return projectile.Snapshot{
		Position: mgl64.Vec3(m.Position),
		Velocity: mgl64.Vec3(m.Velocity),
		Payload:  m.Payload,
	}
}

// BatchFrom converts an engine batch.
func BatchFrom(batch sim.Batch) BatchMessage {
	msg := BatchMessage{Tick: batch.Tick}
	for _, spawned := range batch.Spawned {
		msg.Spawns = append(msg.Spawns, SpawnFrom(spawned.ID, spawned.Snapshot))
	}
	for _, removed := range batch.Removed {
		msg.Removes = append(msg.Removes, RemoveMessage{ID: removed.ID})
	}
	return msg
}

// InFlightFrom converts the engine's mid-flight projectiles.
func InFlightFrom(projectiles []sim.InFlight) []InFlightMessage {
	if len(projectiles) == 0 {
		return nil
	}
	out := make([]InFlightMessage, 0, len(projectiles))
	for _, p := range projectiles {
		out = append(out, InFlightMessage{SpawnMessage: SpawnFrom(p.ID, p.Snapshot), Age: p.Age})
	}
	return out
}

// ClientCommand converts an observer frame into a simulation command.
func ClientCommand(env Envelope) (sim.Command, bool) {
	switch env.Type {
	case TypeFire:
		var msg FireMessage
		if err := env.Into(TypeFire, &msg); err != nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandFire,
			Fire: &sim.FireCommand{Origin: msg.Origin, Direction: msg.Direction},
		}, true
	case TypeArm, TypeDisarm:
		var msg EmitterMessage
		if err := env.Into(env.Type, &msg); err != nil || msg.EmitterID == "" {
			return sim.Command{}, false
		}
		cmdType := sim.CommandArm
		if env.Type == TypeDisarm {
			cmdType = sim.CommandDisarm
		}
		return sim.Command{
			Type:    cmdType,
			Emitter: &sim.EmitterCommand{EmitterID: msg.EmitterID},
		}, true
	default:
		return sim.Command{}, false
	}
}
