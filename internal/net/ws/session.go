package ws

import (
	"github.com/gorilla/websocket"

	"bulletsim/server"
	"bulletsim/server/internal/net/intake"
	"bulletsim/server/internal/net/proto"
	"bulletsim/server/internal/sim"
	"bulletsim/server/internal/telemetry"
)

// readLimit caps the size of a single observer frame.
const readLimit = 4096

type subscription interface {
	ID() string
	WriteMessage(messageType int, data []byte) error
}

// session reads observer commands until the connection fails.
type session struct {
	hub    *server.Hub
	sub    subscription
	conn   *websocket.Conn
	logger telemetry.Logger
}

func newSession(hub *server.Hub, sub subscription, conn *websocket.Conn, logger telemetry.Logger) *session {
	return &session{hub: hub, sub: sub, conn: conn, logger: logger}
}

func (s *session) serve() {
	s.conn.SetReadLimit(readLimit)
	ctx := intake.CommandContext{
		Engine:     s.hub.Engine(),
		HasEmitter: s.hub.HasTurret,
		Tick:       s.hub.Tick,
	}

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.hub.Disconnect(s.sub.ID(), server.LeaveClosed)
			return
		}

		env, err := proto.Decode(payload)
		if err != nil {
			s.logger.Printf("discarding malformed frame from %s: %v", s.sub.ID(), err)
			if !s.reject(env.Type, intake.RejectInvalidCommand) {
				return
			}
			continue
		}

		cmd, ok, reason := intake.StageClientCommand(ctx, s.sub.ID(), env)
		if !ok {
			if reason == intake.RejectUnknownEmitter {
				s.logger.Printf("%s addressed an unknown emitter", s.sub.ID())
			}
			if !s.reject(env.Type, reason) {
				return
			}
			continue
		}
		if !s.ack(env.Type, cmd) {
			return
		}
	}
}

func (s *session) ack(msgType string, cmd sim.Command) bool {
	frame, err := proto.EncodeCommandAck(proto.CommandAck{Type: msgType, Tick: cmd.OriginTick})
	if err != nil {
		s.logger.Printf("failed to encode ack for %s: %v", s.sub.ID(), err)
		return true
	}
	return s.write(frame)
}

func (s *session) reject(msgType string, reason string) bool {
	frame, err := proto.EncodeCommandReject(proto.CommandReject{Type: msgType, Reason: reason})
	if err != nil {
		s.logger.Printf("failed to encode reject for %s: %v", s.sub.ID(), err)
		return true
	}
	return s.write(frame)
}

func (s *session) write(frame []byte) bool {
	if err := s.sub.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		s.hub.Disconnect(s.sub.ID(), server.LeaveWriteFailed)
		return false
	}
	return true
}
