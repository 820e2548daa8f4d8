package logging

import (
	"maps"
	"time"
)

// Config tunes the event router.
type Config struct {
	BufferSize int
	// MinimumSeverity is the floor for categories without their own entry.
	MinimumSeverity Severity
	// CategorySeverity overrides the floor per event category.
	CategorySeverity map[string]Severity
	// Fields are stamped into every event's Extra unless the event sets them.
	Fields            map[string]any
	JSONFlushInterval time.Duration
	Console           ConsoleConfig
	DropWarnInterval  time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

// DefaultConfig passes projectile hits, observer traffic and simulation
// warnings. Per-projectile spawn and expiry chatter is debug only.
func DefaultConfig() Config {
	return Config{
		BufferSize:      512,
		MinimumSeverity: SeverityInfo,
		CategorySeverity: map[string]Severity{
			CategoryProjectile: SeverityInfo,
			CategoryNetwork:    SeverityInfo,
			CategorySimulation: SeverityWarn,
		},
		JSONFlushInterval: 2 * time.Second,
		DropWarnInterval:  5 * time.Second,
	}
}

// WithFloor returns a copy in which every category uses severity.
func (c Config) WithFloor(severity Severity) Config {
	c.MinimumSeverity = severity
	floors := make(map[string]Severity, len(c.CategorySeverity))
	for category := range c.CategorySeverity {
		floors[category] = severity
	}
	c.CategorySeverity = floors
	return c
}

// Floor returns the minimum severity forwarded for category.
func (c Config) Floor(category string) Severity {
	if floor, ok := c.CategorySeverity[category]; ok {
		return floor
	}
	return c.MinimumSeverity
}

func (c Config) clone() Config {
	c.CategorySeverity = maps.Clone(c.CategorySeverity)
	c.Fields = maps.Clone(c.Fields)
	return c
}
