package network

import (
	"context"

	"bulletsim/server/logging"
)

const (
	// EventSubscriberJoined is emitted when an observer connects.
	EventSubscriberJoined logging.EventType = "network.subscriber_joined"
	// EventSubscriberLeft is emitted when an observer disconnects or is dropped.
	EventSubscriberLeft logging.EventType = "network.subscriber_left"
)

// SubscriberJoinedPayload captures the state handed to a new observer.
type SubscriberJoinedPayload struct {
	RemoteAddr  string `json:"remoteAddr,omitempty"`
	Projectiles int    `json:"projectiles"`
}

// SubscriberLeftPayload captures why an observer went away.
type SubscriberLeftPayload struct {
	Reason string `json:"reason"`
}

// SubscriberJoined publishes an observer join.
func SubscriberJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SubscriberJoinedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSubscriberJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// SubscriberLeft publishes an observer departure.
func SubscriberLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SubscriberLeftPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSubscriberLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
