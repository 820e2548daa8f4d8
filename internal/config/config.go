// Package config loads process settings from BULLETSIM_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

var (
	// ErrInvalid reports a setting outside its allowed range.
	ErrInvalid = errors.New("config: invalid value")
	// ErrTurretLayout reports a malformed BULLETSIM_TURRETS entry.
	ErrTurretLayout = errors.New("config: malformed turret")
)

// Config holds the settings shared by the server and observer binaries. The
// default turret layout is one unarmed turret aimed down the range.
type Config struct {
	Addr            string  `env:"BULLETSIM_ADDR"             envDefault:":8080"`
	TickRate        int     `env:"BULLETSIM_TICK_RATE"        envDefault:"20"`
	LifetimeTicks   uint32  `env:"BULLETSIM_LIFETIME_TICKS"   envDefault:"100"`
	SampleDensity   float64 `env:"BULLETSIM_SAMPLE_DENSITY"   envDefault:"2"`
	CommandCapacity int     `env:"BULLETSIM_COMMAND_CAPACITY" envDefault:"256"`
	PerActorLimit   int     `env:"BULLETSIM_PER_ACTOR_LIMIT"  envDefault:"8"`
	LogLevel        string  `env:"BULLETSIM_LOG_LEVEL"        envDefault:"info"`
	LogJSONPath     string  `env:"BULLETSIM_LOG_JSON_PATH"`
	ServerURL       string  `env:"BULLETSIM_SERVER_URL"       envDefault:"ws://localhost:8080/ws"`
	TurretLayout    string  `env:"BULLETSIM_TURRETS"          envDefault:"range:0,1.5,0.5:0,0,1:10"`
	EnablePprof     bool    `env:"BULLETSIM_PPROF"`

	turrets []Turret
}

// Turret is one entry of the turret layout.
type Turret struct {
	ID       string
	Centre   [3]float64
	Facing   [3]float64
	Interval uint32
	Armed    bool
}

// Load parses the environment, the turret layout and validates the result.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom parses settings from the given variables instead of the process
// environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	turrets, err := ParseTurrets(cfg.TurretLayout)
	if err != nil {
		return Config{}, err
	}
	cfg.turrets = turrets
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Turrets returns the layout parsed from BULLETSIM_TURRETS.
func (c Config) Turrets() []Turret {
	return c.turrets
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("BULLETSIM_TICK_RATE=%d: %w", c.TickRate, ErrInvalid))
	}
	if c.LifetimeTicks == 0 {
		errs = append(errs, fmt.Errorf("BULLETSIM_LIFETIME_TICKS=0: %w", ErrInvalid))
	}
	if !(c.SampleDensity > 0) || math.IsInf(c.SampleDensity, 0) {
		errs = append(errs, fmt.Errorf("BULLETSIM_SAMPLE_DENSITY=%v: %w", c.SampleDensity, ErrInvalid))
	}
	if c.CommandCapacity <= 0 {
		errs = append(errs, fmt.Errorf("BULLETSIM_COMMAND_CAPACITY=%d: %w", c.CommandCapacity, ErrInvalid))
	}
	if c.PerActorLimit < 0 {
		errs = append(errs, fmt.Errorf("BULLETSIM_PER_ACTOR_LIMIT=%d: %w", c.PerActorLimit, ErrInvalid))
	}
	seen := make(map[string]struct{}, len(c.turrets))
	for _, turret := range c.turrets {
		if _, dup := seen[turret.ID]; dup {
			errs = append(errs, fmt.Errorf("turret %q listed twice: %w", turret.ID, ErrTurretLayout))
		}
		seen[turret.ID] = struct{}{}
	}
	return errors.Join(errs...)
}

// ParseTurrets reads a semicolon separated turret layout. Each entry is
// id:x,y,z:fx,fy,fz with an optional :interval and a trailing :armed flag.
func ParseTurrets(layout string) ([]Turret, error) {
	layout = strings.TrimSpace(layout)
	if layout == "" {
		return nil, nil
	}
	var turrets []Turret
	for _, entry := range strings.Split(layout, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		turret, err := parseTurret(entry)
		if err != nil {
			return nil, err
		}
		turrets = append(turrets, turret)
	}
	return turrets, nil
}

func parseTurret(entry string) (Turret, error) {
	fields := strings.Split(entry, ":")
	if len(fields) < 3 || len(fields) > 5 || fields[0] == "" {
		return Turret{}, fmt.Errorf("%q: %w", entry, ErrTurretLayout)
	}
	turret := Turret{ID: fields[0]}
	var err error
	if turret.Centre, err = parseVector(fields[1]); err != nil {
		return Turret{}, fmt.Errorf("%q centre: %w", entry, err)
	}
	if turret.Facing, err = parseVector(fields[2]); err != nil {
		return Turret{}, fmt.Errorf("%q facing: %w", entry, err)
	}
	if turret.Facing == ([3]float64{}) {
		return Turret{}, fmt.Errorf("%q has no facing: %w", entry, ErrTurretLayout)
	}
	for _, field := range fields[3:] {
		if field == "armed" {
			turret.Armed = true
			continue
		}
		interval, err := strconv.ParseUint(field, 10, 32)
		if err != nil || interval == 0 {
			return Turret{}, fmt.Errorf("%q interval %q: %w", entry, field, ErrTurretLayout)
		}
		turret.Interval = uint32(interval)
	}
	return turret, nil
}

func parseVector(raw string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("want x,y,z, got %q: %w", raw, ErrTurretLayout)
	}
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return out, fmt.Errorf("component %q: %w", part, ErrTurretLayout)
		}
		out[i] = value
	}
	return out, nil
}
