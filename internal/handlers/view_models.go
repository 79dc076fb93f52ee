package handlers

import (
	"littletoes/internal/models"
	"littletoes/internal/session"
)

// unitView is the unit listing payload
type unitView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PromptCount int    `json:"promptCount"`
}

// promptView is the current question shown to the learner
type promptView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Hint string `json:"hint,omitempty"`
}

// assessmentView is a completed score card
type assessmentView struct {
	PronunciationScore int    `json:"pronunciationScore"`
	GrammarScore       int    `json:"grammarScore"`
	RelevanceScore     int    `json:"relevanceScore"`
	Transcription      string `json:"transcription"`
	Feedback           string `json:"feedback"`
	Sticker            string `json:"sticker"`
}

// sessionView is the full session state payload
type sessionView struct {
	State          string          `json:"state"`
	LearnerName    string          `json:"learnerName,omitempty"`
	UnitID         int64           `json:"unitId,omitempty"`
	UnitTitle      string          `json:"unitTitle,omitempty"`
	PromptIndex    int             `json:"promptIndex"`
	PromptCount    int             `json:"promptCount"`
	Prompt         *promptView     `json:"prompt,omitempty"`
	Result         *assessmentView `json:"result,omitempty"`
	Failure        string          `json:"failure,omitempty"`
	WorkingMessage string          `json:"workingMessage,omitempty"`
	HistoryLen     int             `json:"historyLen"`
}

func newUnitView(u models.Unit) unitView {
	return unitView{
		ID:          u.ID,
		Title:       u.Title,
		PromptCount: u.PromptCount(),
	}
}

func newAssessmentView(a models.Assessment) assessmentView {
	return assessmentView{
		PronunciationScore: a.PronunciationScore,
		GrammarScore:       a.GrammarScore,
		RelevanceScore:     a.RelevanceScore,
		Transcription:      a.Transcription,
		Feedback:           a.Feedback,
		Sticker:            a.Sticker,
	}
}

func newSessionView(snap session.Snapshot) sessionView {
	view := sessionView{
		State:          string(snap.State),
		LearnerName:    snap.LearnerName,
		UnitID:         snap.UnitID,
		UnitTitle:      snap.UnitTitle,
		PromptIndex:    snap.PromptIndex,
		PromptCount:    snap.PromptCount,
		Failure:        snap.Failure,
		WorkingMessage: snap.WorkingMessage,
		HistoryLen:     snap.HistoryLen,
	}
	if snap.Prompt != nil {
		view.Prompt = &promptView{ID: snap.Prompt.ID, Text: snap.Prompt.Text, Hint: snap.Prompt.Hint}
	}
	if snap.Result != nil {
		result := newAssessmentView(*snap.Result)
		view.Result = &result
	}
	return view
}
