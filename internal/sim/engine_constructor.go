package sim

import (
	"bulletsim/server/internal/collision"
	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/spawn"
)

// EngineOption configures NewEngine behaviour. Options are applied in order;
// later options override earlier ones.
type EngineOption interface {
	apply(*engineConfig)
}

type engineOptionFunc func(*engineConfig)

func (f engineOptionFunc) apply(cfg *engineConfig) {
	if f != nil {
		f(cfg)
	}
}

type turretPlacement struct {
	id     string
	turret *spawn.PeriodicEmitter
}

type engineConfig struct {
	deps       Deps
	params     projectile.Params
	loopConfig LoopConfig
	loopHooks  LoopHooks
	turrets    []turretPlacement
}

// WithDeps injects shared infrastructure dependencies used by the engine core
// and loop orchestration.
func WithDeps(deps Deps) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.deps = deps
	})
}

// WithParams overrides the simulation-wide projectile settings.
func WithParams(params projectile.Params) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.params = params
	})
}

// WithLoopConfig overrides the default command queue and tick loop sizing used
// by the engine.
func WithLoopConfig(config LoopConfig) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopConfig = config
	})
}

// WithLoopHooks supplies custom loop callbacks.
func WithLoopHooks(hooks LoopHooks) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopHooks = hooks
	})
}

// WithTurret places a periodic emitter addressable by id.
func WithTurret(id string, turret *spawn.PeriodicEmitter) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.turrets = append(cfg.turrets, turretPlacement{id: id, turret: turret})
	})
}

// NewEngine constructs the authority simulation for the world and wraps it
// in a fixed-timestep loop.
func NewEngine(world collision.World, opts ...EngineOption) (*Loop, *Core, error) {
	cfg := engineConfig{params: projectile.DefaultParams()}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}

	core, err := NewCore(world, cfg.params, cfg.deps)
	if err != nil {
		return nil, nil, err
	}
	for _, placement := range cfg.turrets {
		if err := core.AddTurret(placement.id, placement.turret); err != nil {
			return nil, nil, err
		}
	}

	loop := NewLoop(core, cfg.loopConfig, cfg.loopHooks)
	return loop, core, nil
}
