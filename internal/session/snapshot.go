package session

import (
	"time"

	"littletoes/internal/models"
)

// Snapshot is a read-only view of the controller for rendering
type Snapshot struct {
	State          State
	LearnerName    string
	UnitID         int64
	UnitTitle      string
	PromptIndex    int
	PromptCount    int
	Prompt         *models.Prompt
	Result         *models.Assessment
	Failure        string
	WorkingMessage string
	HistoryLen     int
}

// Snapshot returns a consistent view of the current session state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:          c.state,
		LearnerName:    c.session.LearnerName,
		UnitID:         c.session.UnitID,
		PromptIndex:    c.session.PromptIndex,
		Failure:        c.failure,
		WorkingMessage: c.workingMsg,
		HistoryLen:     c.history.Len(),
	}

	if c.unit != nil {
		snap.UnitTitle = c.unit.Title
		snap.PromptCount = len(c.unit.Prompts)
	}

	if p := c.currentPromptLocked(); p != nil {
		prompt := *p
		snap.Prompt = &prompt
	}
	if c.result != nil {
		result := *c.result
		snap.Result = &result
	}

	return snap
}

// Learner returns the active learner name and unit for report naming
func (c *Controller) Learner() (name string, unitID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.LearnerName, c.session.UnitID
}

// StartedAt returns when the current session began, or the zero time
// before any session has started.
func (c *Controller) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.StartedAt
}
