package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"littletoes/internal/audio"
	"littletoes/internal/capture"
	"littletoes/internal/security"
	"littletoes/internal/service"
	"littletoes/internal/session"
	"littletoes/internal/stream"
)

// SessionHandler manages practice session lifecycle endpoints
type SessionHandler struct {
	curriculum      *service.CurriculumService
	hub             *SessionHub
	assessor        session.Assessor
	tts             *audio.TTSService
	audioURLPrefix  string
	secret          []byte
	sessionDuration time.Duration
	ctrlCfg         session.Config
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(curriculum *service.CurriculumService, hub *SessionHub, assessor session.Assessor, tts *audio.TTSService, audioURLPrefix string, secret []byte, sessionDuration time.Duration, ctrlCfg session.Config) *SessionHandler {
	return &SessionHandler{
		curriculum:      curriculum,
		hub:             hub,
		assessor:        assessor,
		tts:             tts,
		audioURLPrefix:  audioURLPrefix,
		secret:          secret,
		sessionDuration: sessionDuration,
		ctrlCfg:         ctrlCfg,
	}
}

// ListUnits handles GET /api/units
func (h *SessionHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units := h.curriculum.Units()
	views := make([]unitView, 0, len(units))
	for _, u := range units {
		views = append(views, newUnitView(u))
	}
	respondJSON(w, http.StatusOK, views)
}

type createSessionRequest struct {
	LearnerName string `json:"learnerName"`
	UnitID      int64  `json:"unitId"`
}

// CreateSession handles POST /api/session. It builds the controller with
// its recorder, narrator and event feed, starts the session at the
// unit's first question and sets the signed session cookie.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	unit := h.curriculum.UnitByID(req.UnitID)

	id := security.GenerateSessionID()
	feed := stream.NewFeed()

	recorder := capture.NewRecorder(func(bins []int) {
		feed.Publish(stream.Event{
			Type: stream.EventLevel,
			Data: map[string][]int{"bins": bins},
		})
	})

	narrator := audio.NewPromptNarrator(h.tts, h.audioURLPrefix, func(ev audio.NarrationEvent) {
		feed.Publish(stream.Event{Type: stream.EventNarrate, Data: ev})
	})

	ctrl := session.NewController(id, recorder, h.assessor, narrator, feedSink{feed: feed}, h.ctrlCfg)

	if err := ctrl.Begin(req.LearnerName, unit); err != nil {
		feed.Close()
		var vErr *session.ValidationError
		if errors.As(err, &vErr) {
			respondWithError(w, http.StatusUnprocessableEntity, vErr.Message, "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Could not start session", "Error starting session", err)
		return
	}

	token, err := security.MintSessionToken(h.secret, id, h.sessionDuration)
	if err != nil {
		feed.Close()
		respondWithError(w, http.StatusInternalServerError, "Could not start session", "Error minting session token", err)
		return
	}

	h.hub.Put(id, &LiveSession{Controller: ctrl, Feed: feed})
	http.SetCookie(w, security.CreateSessionCookie(r, token, time.Now().Add(h.sessionDuration)))

	log.Info().Str("session", id).Str("learner", req.LearnerName).Int64("unit", req.UnitID).Msg("Session started")
	respondJSON(w, http.StatusCreated, newSessionView(ctrl.Snapshot()))
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())
	respondJSON(w, http.StatusOK, newSessionView(ls.Controller.Snapshot()))
}

// NextPrompt handles POST /api/session/next
func (h *SessionHandler) NextPrompt(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())
	if err := ls.Controller.Next(); err != nil {
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(ls.Controller.Snapshot()))
}

// RetryPrompt handles POST /api/session/retry
func (h *SessionHandler) RetryPrompt(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())
	if err := ls.Controller.Retry(); err != nil {
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(ls.Controller.Snapshot()))
}

// ResetSession handles POST /api/session/reset. This is the hard "go
// home" action: the controller is discarded with its history, the feed
// closed and the cookie cleared. The browser starts over from entry.
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())

	ls.Controller.Reset()
	snap := ls.Controller.Snapshot()
	h.hub.Remove(ls.Controller.ID())

	http.SetCookie(w, security.CreateDeleteCookie(r))
	respondJSON(w, http.StatusOK, newSessionView(snap))
}
