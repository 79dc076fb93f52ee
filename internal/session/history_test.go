package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"littletoes/internal/models"
)

func historyEntry(promptID int64, ts time.Time) models.HistoryEntry {
	return models.HistoryEntry{
		Assessment: models.Assessment{
			PronunciationScore: 3,
			GrammarScore:       4,
			RelevanceScore:     5,
			Transcription:      "hello",
			Feedback:           "nice",
			Sticker:            "⭐",
		},
		PromptID:  promptID,
		Timestamp: ts,
	}
}

func TestHistoryAppendPreservesOrder(t *testing.T) {
	h := NewHistoryStore()
	base := time.Now()

	for i := 0; i < 5; i++ {
		h.Append(historyEntry(int64(i+1), base.Add(time.Duration(i)*time.Second)))
	}

	entries := h.Snapshot()
	require.Len(t, entries, 5)
	for i, entry := range entries {
		assert.Equal(t, int64(i+1), entry.PromptID)
	}
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistoryStore()
	h.Append(historyEntry(1, time.Now()))

	entries := h.Snapshot()
	entries[0].PromptID = 99

	assert.Equal(t, int64(1), h.Snapshot()[0].PromptID)
}

func TestHistoryClear(t *testing.T) {
	h := NewHistoryStore()
	h.Append(historyEntry(1, time.Now()))
	h.Append(historyEntry(2, time.Now()))
	require.Equal(t, 2, h.Len())

	h.Clear()

	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Snapshot())
}
