package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"bulletsim/server/internal/app"
	"bulletsim/server/internal/config"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "bulletsim"})

	settings, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if level, err := log.ParseLevel(settings.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Settings: settings, Logger: logger}); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}
