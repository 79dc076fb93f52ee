package models

// Prompt represents one spoken question presented to the learner
type Prompt struct {
	ID     int64
	UnitID int64
	// Position is the 1-based order of the prompt within its unit,
	// shown to the learner as the question number
	Position int
	Text     string
	Hint     string
}

// Unit represents an ordered group of prompts forming one curriculum lesson
type Unit struct {
	ID      int64
	Title   string
	Prompts []Prompt
}

// PromptCount returns the number of prompts in the unit
func (u *Unit) PromptCount() int {
	return len(u.Prompts)
}
