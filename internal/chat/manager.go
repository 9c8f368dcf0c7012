// Package chat relays messages between the two legs of an active
// consultation session. One room per session; the room disappears when the
// session ends or both legs disconnect.
package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager tracks session rooms.
type Manager struct {
	mu           sync.RWMutex
	rooms        map[int64][]*Connection
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewManager builds the room manager.
func NewManager(pingInterval time.Duration, logger *zap.Logger) *Manager {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Manager{
		rooms:        make(map[int64][]*Connection),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Join adds a leg to its session room and wires relaying.
func (m *Manager) Join(conn *Connection) {
	conn.onMessage = m.relay
	conn.onClose = m.leave

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[conn.SessionID()] = append(m.rooms[conn.SessionID()], conn)
}

// CloseRoom drops every leg of a session, used when the session ends.
func (m *Manager) CloseRoom(sessionID int64) {
	m.mu.Lock()
	legs := m.rooms[sessionID]
	delete(m.rooms, sessionID)
	m.mu.Unlock()

	for _, leg := range legs {
		leg.Send([]byte(`{"type":"session_ended"}`))
	}
}

// RoomSize reports how many legs a session room currently has.
func (m *Manager) RoomSize(sessionID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[sessionID])
}

// Start begins the keepalive loop.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			for _, legs := range m.rooms {
				for _, leg := range legs {
					_ = leg.Ping()
				}
			}
			m.mu.RUnlock()
		}
	}
}

// relay forwards a message to every other leg in the sender's room.
func (m *Manager) relay(_ context.Context, from *Connection, raw []byte) {
	m.mu.RLock()
	legs := m.rooms[from.SessionID()]
	m.mu.RUnlock()

	for _, leg := range legs {
		if leg == from {
			continue
		}
		leg.Send(raw)
	}
}

func (m *Manager) leave(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	legs := m.rooms[conn.SessionID()]
	for i, leg := range legs {
		if leg == conn {
			legs = append(legs[:i], legs[i+1:]...)
			break
		}
	}
	if len(legs) == 0 {
		delete(m.rooms, conn.SessionID())
		return
	}
	m.rooms[conn.SessionID()] = legs
}
