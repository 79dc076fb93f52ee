package session

import (
	"sync"

	"littletoes/internal/models"
)

// HistoryStore holds the append-only log of completed assessments for one
// session. Entries appear in completion order and are never edited or
// removed individually; only a whole-session Clear discards them.
type HistoryStore struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
}

// NewHistoryStore creates an empty history store
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append adds one completed entry to the end of the log
func (h *HistoryStore) Append(entry models.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
}

// Snapshot returns a copy of the full ordered log
func (h *HistoryStore) Snapshot() []models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries
func (h *HistoryStore) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear discards the entire history
func (h *HistoryStore) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
