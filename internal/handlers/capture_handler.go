package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"littletoes/internal/assess"
)

// maxChunkBytes caps one uploaded audio chunk
const maxChunkBytes = 1 << 20

// CaptureHandler manages the recording endpoints for a live session
type CaptureHandler struct{}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler() *CaptureHandler {
	return &CaptureHandler{}
}

// Start handles POST /api/capture/start
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())
	if err := ls.Controller.StartCapture(); err != nil {
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(ls.Controller.Snapshot()))
}

// Chunk handles POST /api/capture/chunk. The body is one raw encoded
// audio chunk from the browser's recorder.
func (h *CaptureHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())

	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBytes))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Audio chunk too large", "", nil)
		return
	}
	if len(chunk) == 0 {
		respondWithError(w, http.StatusBadRequest, "Empty audio chunk", "", nil)
		return
	}

	if err := ls.Controller.IngestChunk(chunk); err != nil {
		respondWithError(w, http.StatusConflict, "No recording in progress", "", nil)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Stop handles POST /api/capture/stop. It finalizes the clip and blocks
// until scoring settles, then returns the new session state. A scoring
// failure is a session outcome, not a request error: the learner gets
// the failed-state snapshot with its retry notice.
func (h *CaptureHandler) Stop(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())

	_, err := ls.Controller.FinishCapture(r.Context())
	if err != nil && !isAssessError(err) {
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
		return
	}

	respondJSON(w, http.StatusOK, newSessionView(ls.Controller.Snapshot()))
}

type captureErrorRequest struct {
	Reason string `json:"reason"`
}

// DeviceError handles POST /api/capture/error, reported by the browser
// when the microphone fails or permission is denied mid-recording.
func (h *CaptureHandler) DeviceError(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())

	var req captureErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Reason = "unknown"
	}

	ls.Controller.CaptureFailed(req.Reason)
	respondJSON(w, http.StatusOK, newSessionView(ls.Controller.Snapshot()))
}

// isAssessError reports whether err came from the scoring service rather
// than from a bad request sequence.
func isAssessError(err error) bool {
	var transport *assess.TransportError
	var service *assess.ServiceError
	var malformed *assess.MalformedResponse
	return errors.As(err, &transport) || errors.As(err, &service) || errors.As(err, &malformed)
}
