package ws

import (
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"bulletsim/server"
	"bulletsim/server/internal/telemetry"
)

type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades observer connections and hands them to a session.
type Handler struct {
	hub      *server.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h == nil || h.hub == nil {
		nethttp.Error(w, "simulation unavailable", nethttp.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub, err := h.hub.Subscribe(conn, r.RemoteAddr)
	if err != nil {
		h.logger.Printf("subscribe failed for %s: %v", r.RemoteAddr, err)
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscribe failed")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	s := newSession(h.hub, sub, conn, h.logger)
	s.serve()
}
