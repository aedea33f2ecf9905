package websocket

import (
	"sync"

	"qaboard/pkg/types"
)

// Registry tracks every live connection by member ID. Pure connection
// bookkeeping; it is mutated only through the hub's lifecycle hooks.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
	}
}

// Register adds a connection.
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	r.conns[conn.ID()] = conn
	r.mu.Unlock()
	return nil
}

// Unregister removes a connection and reports whether it was present.
// Idempotent; only removes the exact instance that is registered, so a
// stale connection cannot unregister its replacement.
func (r *Registry) Unregister(conn *Connection) bool {
	if conn == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	registered, exists := r.conns[conn.ID()]
	if !exists || registered != conn {
		return false
	}
	delete(r.conns, conn.ID())
	return true
}

// Get returns the connection for a member ID.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, exists := r.conns[id]
	return conn, exists
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Members returns the identity of every registered connection.
func (r *Registry) Members() []types.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]types.Member, 0, len(r.conns))
	for _, conn := range r.conns {
		members = append(members, conn.Member())
	}
	return members
}

// Clear removes every connection and returns the removed set so the
// caller can close them.
func (r *Registry) Clear() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	return conns
}
