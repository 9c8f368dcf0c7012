package chat

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Connection represents one participant's websocket leg in a session room.
type Connection struct {
	sessionID    int64
	role         string
	ws           *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	writeTimeout time.Duration
	onMessage    func(ctx context.Context, from *Connection, raw []byte)
	onClose      func(*Connection)
}

// NewConnection wraps an upgraded websocket.
func NewConnection(sessionID int64, role string, ws *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger) *Connection {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Connection{
		sessionID:    sessionID,
		role:         role,
		ws:           ws,
		send:         make(chan []byte, 16),
		logger:       logger,
		writeTimeout: writeTimeout,
	}
}

// SessionID returns the room identifier.
func (c *Connection) SessionID() int64 {
	return c.sessionID
}

// Role returns which side of the consultation this leg is.
func (c *Connection) Role() string {
	return c.role
}

// Start launches the read/write pumps and blocks until the leg closes.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(64 * 1024)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("chat leg closed",
				zap.Int64("session_id", c.sessionID), zap.String("role", c.role), zap.Error(err))
			return
		}
		if c.onMessage != nil {
			c.onMessage(ctx, c, message)
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message for this leg.
func (c *Connection) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("attempted to send on closed chat leg", zap.Int64("session_id", c.sessionID))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping chat message, buffer full", zap.Int64("session_id", c.sessionID))
	}
}

// Ping sends a keepalive frame.
func (c *Connection) Ping() error {
	return c.write(websocket.PingMessage, []byte("ping"))
}

func (c *Connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	close(c.send)
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c)
	}
}
