package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"bulletsim/server"
	"bulletsim/server/internal/net/ws"
	"bulletsim/server/internal/observability"
	"bulletsim/server/internal/telemetry"
)

type HTTPHandlerConfig struct {
	Logger        telemetry.Logger
	Observability observability.Config
}

type diagnosticsPayload struct {
	Status      string                  `json:"status"`
	ServerTime  int64                   `json:"serverTime"`
	Tick        uint64                  `json:"tick"`
	TickRate    int                     `json:"tickRate"`
	Projectiles int                     `json:"projectiles"`
	Turrets     []turretPayload         `json:"turrets"`
	Subscribers []server.SubscriberInfo `json:"subscribers"`
	Metrics     map[string]uint64       `json:"metrics"`
}

type turretPayload struct {
	ID    string `json:"id"`
	Armed bool   `json:"armed"`
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		engine := hub.Engine()
		snapshot := engine.Snapshot()
		turrets := make([]turretPayload, 0, len(snapshot.Turrets))
		for _, turret := range snapshot.Turrets {
			turrets = append(turrets, turretPayload{ID: turret.ID, Armed: turret.Armed})
		}

		payload := diagnosticsPayload{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			Tick:        snapshot.Tick,
			TickRate:    hub.Config().Loop.TickRate,
			Projectiles: len(snapshot.Projectiles),
			Turrets:     turrets,
			Subscribers: hub.DiagnosticsSnapshot(),
			Metrics:     hub.Metrics().Snapshot(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.Observability.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
