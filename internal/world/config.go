package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"bulletsim/server/internal/collision"
)

const (
	// DefaultTargetHealth matches a player-sized mob.
	DefaultTargetHealth = 20.0
	// DefaultTargetHalfWidth and DefaultTargetHalfHeight describe a
	// player-sized box.
	DefaultTargetHalfWidth  = 0.3
	DefaultTargetHalfHeight = 0.9
)

// Wall fills an inclusive box of blocks.
type Wall struct {
	From BlockPos `json:"from"`
	To   BlockPos `json:"to"`
}

// TargetSpec places a target when the world is built.
type TargetSpec struct {
	ID       uint64               `json:"id"`
	Kind     collision.ObjectKind `json:"kind"`
	Centre   [3]float64           `json:"centre"`
	Half     [3]float64           `json:"half"`
	Health   float64              `json:"health"`
	Pickable *bool                `json:"pickable,omitempty"`
}

func (s TargetSpec) target() Target {
	pickable := true
	if s.Pickable != nil {
		pickable = *s.Pickable
	}
	return Target{
		ID:       collision.ObjectID(s.ID),
		Kind:     s.Kind,
		Centre:   mgl64.Vec3(s.Centre),
		Half:     mgl64.Vec3(s.Half),
		Pickable: pickable,
		HealthState: HealthState{
			Health:    s.Health,
			MaxHealth: s.Health,
		},
	}
}

// Config describes the initial world layout.
type Config struct {
	Floor   *int         `json:"floor,omitempty"`
	Walls   []Wall       `json:"walls,omitempty"`
	Targets []TargetSpec `json:"targets,omitempty"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Walls = append([]Wall(nil), cfg.Walls...)
	normalized.Targets = make([]TargetSpec, 0, len(cfg.Targets))
	for _, spec := range cfg.Targets {
		if spec.Kind == "" {
			spec.Kind = collision.KindLiving
		}
		if spec.Half == ([3]float64{}) {
			spec.Half = [3]float64{DefaultTargetHalfWidth, DefaultTargetHalfHeight, DefaultTargetHalfWidth}
		}
		if spec.Health <= 0 {
			spec.Health = DefaultTargetHealth
		}
		normalized.Targets = append(normalized.Targets, spec)
	}
	return normalized
}

// Normalized returns the layout with defaults applied.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// DefaultConfig is a small firing range: a floor, a back wall and three
// targets in front of it.
func DefaultConfig() Config {
	floor := -1
	return Config{
		Floor: &floor,
		Walls: []Wall{
			{From: BlockPos{-8, 0, 40}, To: BlockPos{8, 6, 40}},
		},
		Targets: []TargetSpec{
			{ID: 1, Centre: [3]float64{-3, 0.9, 20}},
			{ID: 2, Centre: [3]float64{0, 0.9, 24}},
			{ID: 3, Centre: [3]float64{3, 0.9, 28}},
		},
	}
}
