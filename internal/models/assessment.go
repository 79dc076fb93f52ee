package models

import "time"

// ClipMIMEType is the encoded format produced by the browser recorder
const ClipMIMEType = "audio/webm"

// AudioClip is a finalized, immutable recorded utterance
type AudioClip struct {
	Data     []byte
	MIMEType string
}

// Empty reports whether the clip contains no audio data
func (c AudioClip) Empty() bool {
	return len(c.Data) == 0
}

// Assessment is the scored outcome of one (prompt, clip) submission.
// All fields are required; scores are integers in [1,5].
type Assessment struct {
	PronunciationScore int
	GrammarScore       int
	RelevanceScore     int
	Transcription      string
	Feedback           string
	Sticker            string
}

// HistoryEntry is an Assessment augmented with the context it was earned in.
// Prompt text and learner identity are denormalized so an entry stays
// meaningful even after the session moves on.
type HistoryEntry struct {
	Assessment
	PromptID    int64
	PromptText  string
	LearnerName string
	UnitID      int64
	Timestamp   time.Time
}
