package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	server "bulletsim/server"
	"bulletsim/server/internal/collision"
	"bulletsim/server/internal/config"
	servernet "bulletsim/server/internal/net"
	"bulletsim/server/internal/observability"
	"bulletsim/server/internal/projectile"
	"bulletsim/server/internal/telemetry"
	"bulletsim/server/logging"
	loggingSinks "bulletsim/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Config wires the process-level settings into Run.
type Config struct {
	Settings config.Config
	Logger   *log.Logger
	// Listener overrides Settings.Addr when set.
	Listener net.Listener
}

// Run serves the authority until ctx is cancelled or the HTTP server fails.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	telemetryLogger := telemetry.WrapLogger(logger)
	settings := cfg.Settings

	router, closeSinks, err := newRouter(settings)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Warn("failed to close logging router", "err", cerr)
		}
		closeSinks()
	}()

	hub, err := server.NewHubWithConfig(HubConfig(settings, telemetryLogger), router)
	if err != nil {
		return fmt.Errorf("failed to construct hub: %w", err)
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:        telemetryLogger,
		Observability: observability.Config{EnablePprof: settings.EnablePprof},
	})

	listener := cfg.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", settings.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", settings.Addr, err)
		}
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", "addr", listener.Addr().String(), "tickRate", settings.TickRate)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		hub.RunSimulation(groupCtx.Done())
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped", "tick", hub.Tick())
		return nil
	})
	return group.Wait()
}

// HubConfig translates process settings into the hub layout.
func HubConfig(settings config.Config, logger telemetry.Logger) server.HubConfig {
	hubCfg := server.DefaultHubConfig()
	hubCfg.Logger = logger

	sweep := collision.DefaultConfig()
	if settings.SampleDensity > 0 {
		sweep.SampleDensity = settings.SampleDensity
	}
	hubCfg.Params = projectile.Params{MaxLifetime: settings.LifetimeTicks, Sweep: sweep}

	if settings.TickRate > 0 {
		hubCfg.Loop.TickRate = settings.TickRate
	}
	if settings.CommandCapacity > 0 {
		hubCfg.Loop.CommandCapacity = settings.CommandCapacity
	}
	if settings.PerActorLimit > 0 {
		hubCfg.Loop.PerActorLimit = settings.PerActorLimit
	}

	turrets := settings.Turrets()
	hubCfg.Turrets = make([]server.TurretConfig, 0, len(turrets))
	for _, turret := range turrets {
		hubCfg.Turrets = append(hubCfg.Turrets, server.TurretConfig(turret))
	}
	return hubCfg
}

func newRouter(settings config.Config) (*logging.Router, func(), error) {
	logConfig := logging.DefaultConfig().WithFloor(severityFor(settings.LogLevel))
	logConfig.Fields = map[string]any{"service": "bulletsim"}
	logConfig.Console.UseColor = isatty.IsTerminal(os.Stdout.Fd())

	sinks := []logging.NamedSink{{
		Name: "console",
		Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console),
	}}

	closeSinks := func() {}
	if settings.LogJSONPath != "" {
		file, err := os.OpenFile(settings.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open json log: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSONFlushInterval),
		})
		closeSinks = func() { file.Close() }
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		closeSinks()
		return nil, nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	return router, closeSinks, nil
}

func severityFor(level string) logging.Severity {
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logging.SeverityInfo
	}
	switch {
	case parsed <= log.DebugLevel:
		return logging.SeverityDebug
	case parsed == log.InfoLevel:
		return logging.SeverityInfo
	case parsed == log.WarnLevel:
		return logging.SeverityWarn
	default:
		return logging.SeverityError
	}
}
