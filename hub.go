// Package server hosts the authoritative projectile simulation and fans its
// replication messages out to websocket observers.
package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bulletsim/server/internal/net/proto"
	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/sim"
	"bulletsim/server/internal/spawn"
	"bulletsim/server/internal/telemetry"
	"bulletsim/server/internal/world"
	"bulletsim/server/logging"
	loggingnetwork "bulletsim/server/logging/network"
)

// ErrHubClosed is returned when subscribing to a hub that has shut down.
var ErrHubClosed = errors.New("server: hub closed")

// TurretConfig places a periodic emitter in the world.
type TurretConfig struct {
	ID       string
	Centre   [3]float64
	Facing   [3]float64
	Interval uint32
	Armed    bool
}

// HubConfig captures the tunable settings for a hub.
type HubConfig struct {
	World   world.Config
	Params  projectile.Params
	Loop    sim.LoopConfig
	Turrets []TurretConfig
	Logger  telemetry.Logger
}

// DefaultHubConfig returns the demo layout: the default world with one
// unarmed turret aimed down the range.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		World:  world.DefaultConfig(),
		Params: projectile.DefaultParams(),
		Loop: sim.LoopConfig{
			TickRate:        sim.DefaultTickRate,
			CatchupMaxTicks: 2,
			CommandCapacity: 256,
			PerActorLimit:   8,
			WarningStep:     64,
		},
		Turrets: []TurretConfig{{
			ID:       "range",
			Centre:   [3]float64{0, 1.5, 0.5},
			Facing:   [3]float64{0, 0, 1},
			Interval: 10,
		}},
	}
}

// Hub owns the engine and every live observer connection.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	closed      bool

	config    HubConfig
	engine    *sim.Loop
	core      *sim.Core
	world     *world.World
	turrets   map[string]struct{}
	logger    telemetry.Logger
	publisher logging.Publisher
	metrics   telemetry.Metrics
	counters  *logging.Metrics

	lastTick atomic.Uint64
}

type subscriber struct {
	id         string
	remoteAddr string
	joinedTick uint64
	joinedAt   time.Time
	conn       *websocket.Conn

	mu     sync.Mutex
	frames uint64
}

// ID returns the identifier assigned at subscription.
func (s *subscriber) ID() string {
	return s.id
}

// WriteMessage writes a frame under the subscriber's write lock.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(messageType, data)
}

func (s *subscriber) writeLocked(messageType int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	s.frames++
	return nil
}

// NewHubWithConfig builds the world and the engine described by cfg. When a
// publisher exposes router metrics the hub and engine count into them.
func NewHubWithConfig(cfg HubConfig, pubs ...logging.Publisher) (*Hub, error) {
	var pub logging.Publisher = logging.NopPublisher()
	if len(pubs) > 0 && pubs[0] != nil {
		pub = pubs[0]
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	var counters *logging.Metrics
	if provider, ok := pub.(interface{ Metrics() *logging.Metrics }); ok {
		counters = provider.Metrics()
	}
	if counters == nil {
		counters = &logging.Metrics{}
	}
	metrics := telemetry.WrapMetrics(counters)

	h := &Hub{
		subscribers: make(map[string]*subscriber),
		config:      cfg,
		turrets:     make(map[string]struct{}),
		logger:      logger,
		publisher:   pub,
		metrics:     metrics,
		counters:    counters,
	}

	w, err := world.New(cfg.World, world.Deps{Publisher: pub, Tick: h.tick})
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}
	h.world = w

	opts := []sim.EngineOption{
		sim.WithDeps(sim.Deps{Logger: logger, Metrics: metrics, Publisher: pub, Clock: logging.SystemClock{}}),
		sim.WithParams(cfg.Params),
		sim.WithLoopConfig(cfg.Loop),
		sim.WithLoopHooks(sim.LoopHooks{
			AfterStep: h.afterStep,
			OnCommandDrop: func(reason string, cmd sim.Command) {
				logger.Printf("[hub] dropped %s from %s: %s", cmd.Type, cmd.ActorID, reason)
			},
			OnQueueWarning: func(length int) {
				logger.Printf("[hub] command queue holds %d commands", length)
			},
		}),
	}
	for _, turret := range cfg.Turrets {
		emitter := spawn.NewPeriodicEmitter(mgl64.Vec3(turret.Centre), mgl64.Vec3(turret.Facing))
		if turret.Interval > 0 {
			emitter.Interval = turret.Interval
		}
		if turret.Armed {
			emitter.Arm()
		}
		opts = append(opts, sim.WithTurret(turret.ID, emitter))
		h.turrets[turret.ID] = struct{}{}
	}

	loop, core, err := sim.NewEngine(w, opts...)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	h.engine = loop
	h.core = core
	return h, nil
}

func (h *Hub) tick() uint64 {
	if h.core == nil {
		return 0
	}
	return h.core.Tick()
}

// Tick reports the last tick broadcast to observers.
func (h *Hub) Tick() uint64 {
	return h.lastTick.Load()
}

// Engine exposes the command surface of the simulation.
func (h *Hub) Engine() sim.Engine {
	return h.engine
}

// World returns the authoritative world.
func (h *Hub) World() *world.World {
	return h.world
}

// Config returns the configuration the hub was built with.
func (h *Hub) Config() HubConfig {
	return h.config
}

// HasTurret reports whether a turret id is registered.
func (h *Hub) HasTurret(id string) bool {
	_, ok := h.turrets[id]
	return ok
}

// Metrics returns the counters shared by the hub and the engine.
func (h *Hub) Metrics() *logging.Metrics {
	return h.counters
}

// RunSimulation drives the fixed-rate tick loop until the stop channel closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	h.engine.Run(stop)
}

// Subscribe registers an observer connection and sends it the join frame.
// The snapshot and the registration happen under the hub lock so the
// observer receives every batch after the join tick and none before it.
func (h *Hub) Subscribe(conn *websocket.Conn, remoteAddr string) (*subscriber, error) {
	sub := &subscriber{
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
		joinedAt:   time.Now(),
		conn:       conn,
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	snapshot := h.engine.Snapshot()
	sub.joinedTick = snapshot.Tick
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()
	h.metrics.Store(metricSubscribers, uint64(count))

	frame, err := proto.EncodeJoin(proto.JoinMessage{
		SubscriberID:  sub.id,
		Tick:          snapshot.Tick,
		TickRate:      h.engine.Config().TickRate,
		LifetimeTicks: h.lifetime(),
		Projectiles:   proto.InFlightFrom(snapshot.Projectiles),
	})
	if err == nil {
		err = sub.writeLocked(websocket.BinaryMessage, frame)
	}
	if err != nil {
		h.remove(sub.id, LeaveWriteFailed)
		return nil, fmt.Errorf("send join to %s: %w", remoteAddr, err)
	}
	h.recordSent(len(frame))

	loggingnetwork.SubscriberJoined(context.Background(), h.publisher, snapshot.Tick, subscriberRef(sub.id), loggingnetwork.SubscriberJoinedPayload{
		RemoteAddr:  remoteAddr,
		Projectiles: len(snapshot.Projectiles),
	}, nil)
	return sub, nil
}

// Disconnect removes an observer and closes its connection.
func (h *Hub) Disconnect(id string, reason string) bool {
	sub, ok := h.remove(id, reason)
	if ok {
		sub.conn.Close()
	}
	return ok
}

func (h *Hub) remove(id string, reason string) (*subscriber, bool) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()
	if !ok {
		return nil, false
	}
	h.metrics.Store(metricSubscribers, uint64(count))
	if reason == LeaveWriteFailed {
		h.metrics.Add(metricSubscribersDropped, 1)
	}
	h.retireGun(id)
	loggingnetwork.SubscriberLeft(context.Background(), h.publisher, h.lastTick.Load(), subscriberRef(id), loggingnetwork.SubscriberLeftPayload{Reason: reason}, nil)
	return sub, true
}

// retireGun queues the removal of a departed observer's hand-held emitter.
// The command carries no actor so per-actor throttling never refuses it.
func (h *Hub) retireGun(id string) {
	ok, reason := h.engine.Enqueue(sim.Command{
		Type:     sim.CommandLeave,
		IssuedAt: time.Now(),
		Leave:    &sim.LeaveCommand{ActorID: id},
	})
	if !ok {
		h.logger.Printf("[hub] could not retire emitter of %s: %s", id, reason)
	}
}

// Close disconnects every observer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Disconnect(id, LeaveShutdown)
	}
}

// Broadcast encodes a tick's batch once and writes it to every observer
// that joined before the tick. Observers whose write fails are dropped.
func (h *Hub) Broadcast(batch sim.Batch) {
	h.lastTick.Store(batch.Tick)
	frame, err := proto.EncodeBatch(proto.BatchFrom(batch))
	if err != nil {
		h.logger.Printf("[hub] failed to encode batch for tick %d: %v", batch.Tick, err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		if sub.joinedTick < batch.Tick {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			h.logger.Printf("[hub] failed to send tick %d to %s: %v", batch.Tick, sub.id, err)
			h.Disconnect(sub.id, LeaveWriteFailed)
			continue
		}
		h.recordSent(len(frame))
	}
}

func (h *Hub) afterStep(result sim.LoopStepResult) {
	h.Broadcast(result.Batch)
}

func (h *Hub) recordSent(size int) {
	h.metrics.Add(metricFramesSent, 1)
	h.metrics.Add(metricBytesSent, uint64(size))
}

func (h *Hub) lifetime() uint32 {
	if h.config.Params.MaxLifetime == 0 {
		return projectile.DefaultLifetime
	}
	return h.config.Params.MaxLifetime
}

// SubscriberInfo describes an observer for diagnostics.
type SubscriberInfo struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remoteAddr"`
	JoinedTick uint64 `json:"joinedTick"`
	JoinedAt   int64  `json:"joinedAt"`
	Frames     uint64 `json:"frames"`
}

// DiagnosticsSnapshot lists the connected observers ordered by join tick.
func (h *Hub) DiagnosticsSnapshot() []SubscriberInfo {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	infos := make([]SubscriberInfo, 0, len(subs))
	for _, sub := range subs {
		sub.mu.Lock()
		frames := sub.frames
		sub.mu.Unlock()
		infos = append(infos, SubscriberInfo{
			ID:         sub.id,
			RemoteAddr: sub.remoteAddr,
			JoinedTick: sub.joinedTick,
			JoinedAt:   sub.joinedAt.UnixMilli(),
			Frames:     frames,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].JoinedTick != infos[j].JoinedTick {
			return infos[i].JoinedTick < infos[j].JoinedTick
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// SubscriberCount reports the number of connected observers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func subscriberRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindSubscriber}
}
