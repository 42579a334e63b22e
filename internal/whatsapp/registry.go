package whatsapp

import (
	"sync"
)

// Factory builds a session (and its transport) for a user. Injected so
// tests can substitute fake sessions.
type Factory func(userID string) *Session

// Registry is the process-wide table of live sessions, at most one per
// user.
type Registry struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry using the given session factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// CreateOrReplace installs a fresh session for the user. Any existing
// instance is shut down first so at most one live transport exists per
// user.
func (r *Registry) CreateOrReplace(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[userID]; ok {
		old.Shutdown()
	}

	session := r.factory(userID)
	r.sessions[userID] = session
	return session
}

// Get returns the user's session, if one exists.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	return session, ok
}

// Remove drops the user's session from the table. The caller is
// responsible for having disconnected it.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// ConnectedSessions returns a snapshot of sessions currently in the
// Connected state, keyed by user id.
func (r *Registry) ConnectedSessions() map[string]*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Session)
	for userID, session := range r.sessions {
		if session.IsConnected() {
			out[userID] = session
		}
	}
	return out
}

// Shutdown releases every session's transport, best effort, leaving
// credentials on disk for the next start.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, session := range r.sessions {
		session.Shutdown()
		delete(r.sessions, userID)
	}
}
