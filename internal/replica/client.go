package replica

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bulletsim/server/internal/net/proto"
	"bulletsim/server/internal/telemetry"
)

const writeWait = 10 * time.Second

// Client feeds a Mirror from an authority websocket and sends observer
// commands back.
type Client struct {
	conn   *websocket.Conn
	mirror *Mirror
	logger telemetry.Logger

	writeMu sync.Mutex
}

// Dial connects to the authority's /ws endpoint.
func Dial(ctx context.Context, url string, mirror *Mirror, logger telemetry.Logger) (*Client, error) {
	if mirror == nil {
		return nil, errors.New("replica: nil mirror")
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, mirror: mirror, logger: logger}, nil
}

// Run applies frames to the mirror until the context ends or the
// connection fails. A cancelled context is not reported as an error.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		c.conn.Close()
	})
	defer stop()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if err := c.mirror.Handle(frame); err != nil {
			c.logger.Printf("[replica] frame skipped: %v", err)
		}
	}
}

// Fire asks the authority to fire the observer's hand-held emitter.
func (c *Client) Fire(origin, direction [3]float64) error {
	return c.send(proto.TypeFire, proto.FireMessage{Origin: origin, Direction: direction})
}

// Arm powers a turret.
func (c *Client) Arm(emitterID string) error {
	return c.send(proto.TypeArm, proto.EmitterMessage{EmitterID: emitterID})
}

// Disarm unpowers a turret.
func (c *Client) Disarm(emitterID string) error {
	return c.send(proto.TypeDisarm, proto.EmitterMessage{EmitterID: emitterID})
}

func (c *Client) send(msgType string, body any) error {
	frame, err := proto.Encode(msgType, body)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
