package handlers

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"littletoes/internal/session"
	"littletoes/internal/stream"
)

// LiveSession bundles a session controller with its event feed
type LiveSession struct {
	Controller *session.Controller
	Feed       *stream.Feed
}

// SessionHub tracks all live practice sessions by id
type SessionHub struct {
	mu       sync.RWMutex
	sessions map[string]*LiveSession
}

// NewSessionHub creates an empty hub
func NewSessionHub() *SessionHub {
	return &SessionHub{
		sessions: make(map[string]*LiveSession),
	}
}

// Put registers a live session under its id
func (h *SessionHub) Put(id string, ls *LiveSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[id] = ls
}

// Get returns the live session for an id, or nil
func (h *SessionHub) Get(id string) *LiveSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

// Remove unregisters a session and closes its feed
func (h *SessionHub) Remove(id string) {
	h.mu.Lock()
	ls, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	if ok && ls.Feed != nil {
		ls.Feed.Close()
	}
}

// Len returns the number of live sessions
func (h *SessionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// StartCleanup launches a background loop that drops sessions older than
// maxAge. Returns a stop function.
func (h *SessionHub) StartCleanup(maxAge, interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.cleanupExpired(maxAge)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func (h *SessionHub) cleanupExpired(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	h.mu.RLock()
	var expired []string
	for id, ls := range h.sessions {
		started := ls.Controller.StartedAt()
		if !started.IsZero() && started.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range expired {
		h.Remove(id)
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("Cleaned up expired sessions")
	}
}
