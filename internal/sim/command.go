package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	// CommandFire pulls the trigger of the actor's hand-held emitter.
	CommandFire CommandType = "Fire"
	// CommandArm powers a turret.
	CommandArm CommandType = "Arm"
	// CommandDisarm unpowers a turret.
	CommandDisarm CommandType = "Disarm"
	// CommandLeave retires the hand-held emitter of a departed actor.
	CommandLeave CommandType = "Leave"
)

// FireCommand carries the muzzle position and look direction of a shot.
type FireCommand struct {
	Origin    [3]float64 `json:"origin" msgpack:"origin"`
	Direction [3]float64 `json:"direction" msgpack:"direction"`
}

// EmitterCommand identifies a turret.
type EmitterCommand struct {
	EmitterID string `json:"emitterId" msgpack:"emitterId"`
}

// LeaveCommand names the actor whose emitter is retired. It is issued by
// the server, never by the actor itself.
type LeaveCommand struct {
	ActorID string `json:"actorId" msgpack:"actorId"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64          `json:"originTick"`
	ActorID    string          `json:"actorId"`
	Type       CommandType     `json:"type"`
	IssuedAt   time.Time       `json:"issuedAt"`
	Fire       *FireCommand    `json:"fire,omitempty"`
	Emitter    *EmitterCommand `json:"emitter,omitempty"`
	Leave      *LeaveCommand   `json:"leave,omitempty"`
}
