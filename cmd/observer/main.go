// Command observer mirrors the authority's projectiles locally and logs
// each replica as it appears and disappears. Turret ids given as arguments
// are armed once connected.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"bulletsim/server/internal/collision"
	"bulletsim/server/internal/config"
	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/replica"
	"bulletsim/server/internal/telemetry"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "observer"})

	settings, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if level, err := log.ParseLevel(settings.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := collision.DefaultConfig()
	sweep.SampleDensity = settings.SampleDensity
	mirror := replica.NewMirror(projectile.Params{Sweep: sweep}, replica.Hooks{
		OnSpawn: func(id uint64, state projectile.State) {
			logger.Info("replica spawned", "id", id, "position", state.Position, "velocity", state.Velocity, "age", state.Age)
		},
		OnRemove: func(id uint64, state projectile.State) {
			logger.Info("replica removed", "id", id, "position", state.Position, "age", state.Age, "terminal", state.Terminal)
		},
	}, telemetry.WrapLogger(logger))

	client, err := replica.Dial(ctx, settings.ServerURL, mirror, telemetry.WrapLogger(logger))
	if err != nil {
		logger.Fatal("failed to connect", "url", settings.ServerURL, "err", err)
	}
	defer client.Close()
	logger.Info("connected", "url", settings.ServerURL)

	for _, turret := range os.Args[1:] {
		if err := client.Arm(turret); err != nil {
			logger.Fatal("failed to arm turret", "turret", turret, "err", err)
		}
	}

	if err := client.Run(ctx); err != nil {
		logger.Fatal("connection lost", "err", err)
	}
}
