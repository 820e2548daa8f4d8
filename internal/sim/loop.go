package sim

import (
	"context"
	"sync"
	"time"

	loggingsimulation "bulletsim/server/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"

	// DefaultTickRate is the authority tick rate in ticks per second.
	DefaultTickRate = 20

	metricTickOverruns = "sim_tick_budget_overrun_total"
	metricTickDuration = "sim_tick_duration_micros"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// LoopTickContext describes the tick about to run.
type LoopTickContext struct {
	Now   time.Time
	Delta float64
}

// LoopStepResult reports what a single Advance did.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
	Commands     []Command
	Batch        Batch
	ApplyErr     error
}

// LoopHooks observe the loop without owning it.
type LoopHooks struct {
	// Prepare runs before staged commands are applied.
	Prepare func(LoopTickContext)
	// AfterStep runs on the simulation goroutine once the tick completes.
	AfterStep func(LoopStepResult)
	// OnCommandDrop reports commands refused by Enqueue.
	OnCommandDrop func(reason string, cmd Command)
	// OnQueueWarning fires each time the queue grows by WarningStep.
	OnQueueWarning func(length int)
}

// EngineCore is the tick-by-tick simulation the loop drives.
type EngineCore interface {
	Deps() Deps
	Apply([]Command) error
	Step()
	Drain() Batch
	Snapshot() Snapshot
}

// Engine defines the surface exposed to non-simulation callers.
type Engine interface {
	Enqueue(Command) (bool, string)
	Advance(LoopTickContext) LoopStepResult
	Snapshot() Snapshot
	Pending() int
	Run(stop <-chan struct{})
}

// Loop coordinates command ingestion and the fixed-timestep simulation runner.
type Loop struct {
	core   EngineCore
	buffer *CommandBuffer
	hooks  LoopHooks
	config LoopConfig
	deps   Deps

	// stepMu serialises ticks against snapshot readers.
	stepMu sync.Mutex

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64

	overrunStreak uint64
}

// NewLoop wraps the provided engine core with a ring-buffer queue and loop.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	deps := core.Deps().normalized()
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		deps:          deps,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Config returns the loop configuration with defaults applied.
func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Snapshot returns the in-flight projectiles between ticks.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	l.stepMu.Lock()
	defer l.stepMu.Unlock()
	return l.core.Snapshot()
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	l.stepMu.Lock()
	applyErr := l.core.Apply(commands)
	l.core.Step()
	batch := l.core.Drain()
	l.stepMu.Unlock()
	if applyErr != nil {
		l.deps.Logger.Printf("[sim] tick %d: %v", batch.Tick, applyErr)
	}
	return LoopStepResult{
		Tick:     batch.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Commands: commands,
		Batch:    batch,
		ApplyErr: applyErr,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	budgetDuration := time.Second / time.Duration(tickRate)
	ticker := time.NewTicker(budgetDuration)
	defer ticker.Stop()

	clock := l.deps.Clock
	last := clock.Now()
	budgetSeconds := 1.0 / float64(tickRate)
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			start := clock.Now()
			result := l.Advance(LoopTickContext{Now: now, Delta: dt})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budgetDuration
			result.ClampedDelta = clamped
			result.MaxDelta = maxDt
			l.observeBudget(result)

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) observeBudget(result LoopStepResult) {
	metrics := l.deps.metrics()
	metrics.Store(metricTickDuration, uint64(result.Duration.Microseconds()))
	if result.Budget <= 0 || result.Duration <= result.Budget {
		l.overrunStreak = 0
		return
	}
	l.overrunStreak++
	metrics.Add(metricTickOverruns, 1)
	loggingsimulation.TickBudgetOverrun(context.Background(), l.deps.Publisher, result.Tick, loggingsimulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         l.overrunStreak,
	}, nil)
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		clear(l.perActorCount)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		l.deps.Logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			l.config.PerActorLimit,
		)
	}
}

var _ Engine = (*Loop)(nil)
