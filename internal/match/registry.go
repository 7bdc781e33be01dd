package match

import (
	"fmt"
	"sync"
)

// Registry is the process-wide mapping from session keys to sessions and
// from participants to their active session key. A session and its
// participant pointers are inserted and removed as one atomic step, which
// keeps the one-active-session-per-participant invariant observable at all
// times.
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionKey]*Session
	byPlayer map[ParticipantKey]SessionKey
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[SessionKey]*Session),
		byPlayer: make(map[ParticipantKey]SessionKey),
	}
}

// Insert registers a session together with a pointer for every human slot.
// It fails with ErrAlreadyInSession if any human slot is already in a
// match, leaving the registry untouched.
func (r *Registry) Insert(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	humans := s.Humans()
	for _, p := range humans {
		if _, busy := r.byPlayer[p]; busy {
			return ErrAlreadyInSession
		}
	}
	if _, exists := r.sessions[s.Key]; exists {
		return ErrAlreadyInSession
	}

	r.sessions[s.Key] = s
	for _, p := range humans {
		r.byPlayer[p] = s.Key
	}
	return nil
}

// Remove deletes a session and all its participant pointers atomically.
// Removing an absent key is a no-op.
func (r *Registry) Remove(key SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return
	}
	delete(r.sessions, key)
	for _, p := range s.Humans() {
		delete(r.byPlayer, p)
	}
}

// Get returns the session registered under the given key.
func (r *Registry) Get(key SessionKey) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Lookup returns the active session for a participant, if any.
func (r *Registry) Lookup(p ParticipantKey) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.byPlayer[p]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[key]
	if !ok {
		// A pointer without a session is an internal invariant
		// violation; surface it to the caller as absent rather than
		// inventing state.
		return nil, false
	}
	return s, true
}

// IsBusy reports whether a participant has an active session.
func (r *Registry) IsBusy(p ParticipantKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, busy := r.byPlayer[p]
	return busy
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CheckConsistency verifies that every participant pointer resolves to a
// registered session that actually lists the participant. It returns an
// error describing the first violation found. Used by tests and the
// engine's invariant checks.
func (r *Registry) CheckConsistency() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for p, key := range r.byPlayer {
		s, ok := r.sessions[key]
		if !ok {
			return fmt.Errorf("participant %v points at missing session %v", p, key)
		}
		if s.SlotOf(p.UserID) < 0 {
			return fmt.Errorf("participant %v points at session %v that does not include them", p, key)
		}
	}
	return nil
}
