package models

import "time"

// Session represents the live learner context, active from the moment the
// learner confirms their name and unit until they explicitly end it
type Session struct {
	ID          string
	LearnerName string
	UnitID      int64
	PromptIndex int
	StartedAt   time.Time
}
