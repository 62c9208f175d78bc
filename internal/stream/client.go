package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Paulumo/System-Remaster-sub001/internal/metrics"
)

// writeWait bounds every write to the peer.
const writeWait = 10 * time.Second

// client manages a single websocket connection's write operations. Only the
// connection's serve loop writes, so no lock is needed.
type client struct {
	conn   *websocket.Conn
	ip     string
	logger *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// sendJSON marshals v and sends it as one text message.
func (c *client) sendJSON(kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.messagesSent++
	c.bytesSent += int64(len(data))
	metrics.IncStreamMessages(kind)
	metrics.AddStreamBytes(len(data))
	return nil
}

// sendPing sends a keepalive ping control frame.
func (c *client) sendPing() error {
	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// close sends a close frame with the given code and closes the connection.
func (c *client) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.conn.Close()
}
