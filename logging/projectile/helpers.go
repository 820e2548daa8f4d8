package projectile

import (
	"context"

	"bulletsim/server/logging"
)

const (
	// EventSpawned is emitted when the authority inserts a projectile.
	EventSpawned logging.EventType = "projectile.spawned"
	// EventSpawnRejected is emitted when a spawn request carried unusable vectors.
	EventSpawnRejected logging.EventType = "projectile.spawn_rejected"
	// EventHit is emitted when a projectile strikes terrain or an object.
	EventHit logging.EventType = "projectile.hit"
	// EventExpired is emitted when a projectile reaches its lifetime.
	EventExpired logging.EventType = "projectile.expired"
	// EventDamaged is emitted when a payload lands on a target.
	EventDamaged logging.EventType = "projectile.damaged"
)

// Vector is the wire-friendly form of a position or velocity.
type Vector [3]float64

// SpawnedPayload captures the initial state of a projectile.
type SpawnedPayload struct {
	Position Vector  `json:"position"`
	Velocity Vector  `json:"velocity"`
	Payload  float32 `json:"payload"`
}

// SpawnRejectedPayload captures the discarded request.
type SpawnRejectedPayload struct {
	Origin    Vector  `json:"origin"`
	Direction Vector  `json:"direction"`
	Speed     float64 `json:"speed"`
}

// HitPayload describes the impact.
type HitPayload struct {
	Kind     string  `json:"kind"`
	Point    Vector  `json:"point"`
	Age      uint32  `json:"age"`
	SubStep  int     `json:"subStep"`
	Fraction float64 `json:"fraction"`
}

// ExpiredPayload captures where the projectile ended its flight.
type ExpiredPayload struct {
	Position Vector `json:"position"`
	Age      uint32 `json:"age"`
}

// DamagedPayload captures the effect of a payload on its target.
type DamagedPayload struct {
	Amount    float32 `json:"amount"`
	Remaining float64 `json:"remaining"`
	Defeated  bool    `json:"defeated"`
}

// Spawned publishes a debug event for a new projectile.
func Spawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SpawnedPayload, extra map[string]any) {
	publish(ctx, pub, EventSpawned, logging.SeverityDebug, tick, actor, nil, payload, extra)
}

// SpawnRejected publishes a warning for a discarded spawn request.
func SpawnRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SpawnRejectedPayload, extra map[string]any) {
	publish(ctx, pub, EventSpawnRejected, logging.SeverityWarn, tick, actor, nil, payload, extra)
}

// Hit publishes an impact. targets is empty for terrain hits.
func Hit(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload HitPayload, extra map[string]any) {
	publish(ctx, pub, EventHit, logging.SeverityInfo, tick, actor, targets, payload, extra)
}

// Expired publishes a lifetime expiry.
func Expired(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ExpiredPayload, extra map[string]any) {
	publish(ctx, pub, EventExpired, logging.SeverityDebug, tick, actor, nil, payload, extra)
}

// Damaged publishes a payload application on a target.
func Damaged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DamagedPayload, extra map[string]any) {
	publish(ctx, pub, EventDamaged, logging.SeverityInfo, tick, actor, nil, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: severity,
		Category: logging.CategoryProjectile,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
