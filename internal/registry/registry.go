package registry

import (
	"sync"

	"github.com/phostann/ybook/pkg/log"
)

// Conn is the handle the registry keeps for a live connection. The
// websocket client implements it; tests substitute fakes.
type Conn interface {
	// SendEvent queues an event for delivery; it must not block the
	// caller on a slow peer.
	SendEvent(v interface{}) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Registry maps user ids to their single live connection, with a
// reverse map for cleanup on disconnect. A user has at most one
// registered connection; registering a new one closes the old.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]Conn
	byConn map[Conn]int64
}

// New creates an empty connection registry.
func New() *Registry {
	return &Registry{
		byUser: make(map[int64]Conn),
		byConn: make(map[Conn]int64),
	}
}

// Register installs conn as the user's live connection. Any previous
// connection for the same user is unmapped and closed, so a stale
// reconnect cannot leave an undetectable dead entry behind.
func (r *Registry) Register(userID int64, conn Conn) {
	var stale Conn

	r.mu.Lock()
	if old, ok := r.byUser[userID]; ok && old != conn {
		delete(r.byConn, old)
		stale = old
	}
	r.byUser[userID] = conn
	r.byConn[conn] = userID
	r.mu.Unlock()

	if stale != nil {
		// Close outside the lock; the old write pump may be blocked.
		_ = stale.Close()
		l := log.L()
		l.Debug().Int64(log.FieldUserID, userID).Msg("replaced stale connection")
	}
}

// Unregister removes the connection by reverse lookup. Idempotent; it
// reports whether conn was still the user's active connection, so a
// late close of a replaced connection does not evict its successor.
func (r *Registry) Unregister(conn Conn) (userID int64, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn]
	if !ok {
		return 0, false
	}
	delete(r.byConn, conn)
	if r.byUser[userID] == conn {
		delete(r.byUser, userID)
		return userID, true
	}
	return userID, false
}

// Lookup returns the user's live connection, if any.
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byUser[userID]
	return conn, ok
}

// IsOnline reports whether the user has a registered connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
