package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hypershop/shopstream/internal/protocol"
)

// Conn represents a single client WebSocket connection.
type Conn struct {
	ID          string
	UserID      string
	WS          *websocket.Conn
	writeMu     sync.Mutex
	ConnectedAt time.Time

	mu    sync.Mutex
	files []string // attachment paths saved during this connection
}

// Send writes an event to the WebSocket connection (thread-safe).
func (c *Conn) Send(evt protocol.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.WS.WriteJSON(evt)
}

// AddFile records a stored attachment path for this connection.
func (c *Conn) AddFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, path)
}

// TakeFiles returns pending attachment paths and clears them, so each chat
// turn consumes the files uploaded since the previous one.
func (c *Conn) TakeFiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	files := c.files
	c.files = nil
	return files
}

// ConnManager tracks all active client connections.
type ConnManager struct {
	mu    sync.RWMutex
	conns map[string]*Conn // connID → conn
}

func NewConnManager() *ConnManager {
	return &ConnManager{conns: make(map[string]*Conn)}
}

// Add registers a new connection.
func (m *ConnManager) Add(conn *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn.ID] = conn
}

// Remove unregisters a connection.
func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connID)
}

// Get returns a connection by ID.
func (m *ConnManager) Get(connID string) *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[connID]
}

// ForUser returns every connection belonging to a user. A user can hold
// several tabs open against the same session.
func (m *ConnManager) ForUser(userID string) []*Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Conn
	for _, conn := range m.conns {
		if conn.UserID == userID {
			out = append(out, conn)
		}
	}
	return out
}

// Count returns the number of connected clients.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}
