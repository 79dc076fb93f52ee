package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"littletoes/internal/capture"
	"littletoes/internal/models"

	"github.com/rs/zerolog/log"
)

// State identifies where the session is in the practice loop
type State string

const (
	// StateEntry is collecting the learner name and unit choice
	StateEntry State = "entry"
	// StateReady has a prompt selected and awaits a recording
	StateReady State = "ready"
	// StateCapturing has an open microphone recording
	StateCapturing State = "capturing"
	// StateScoring awaits the remote assessment
	StateScoring State = "scoring"
	// StateScored is displaying a completed assessment
	StateScored State = "scored"
	// StateFailed is displaying a retry-oriented failure notice
	StateFailed State = "failed"
)

// failedMessage is the uniform child-facing failure text; the underlying
// error kind is logged for diagnostics only.
const failedMessage = "Something went wrong. Let's try that again."

// workingInitial shows immediately on entering scoring; workingMessages
// rotate after that on a fixed interval.
const workingInitial = "Thinking..."

var workingMessages = []string{
	"Listening closely...",
	"Checking grammar...",
	"Preparing stickers...",
}

// ValidationError reports invalid entry input (empty name, empty unit)
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Assessor scores one finalized clip against the prompt that elicited it
type Assessor interface {
	Assess(ctx context.Context, clip models.AudioClip, promptText string) (*models.Assessment, error)
}

// Narrator speaks prompt text aloud to the learner. Fire-and-forget; a
// missing narrator degrades to silent prompts.
type Narrator interface {
	Speak(text string, rate float64)
}

// EventSink receives controller-driven UI events. Implementations must not
// call back into the controller.
type EventSink interface {
	StateChanged(state State)
	WorkingMessage(msg string)
}

// Config holds the controller's UX timing knobs
type Config struct {
	// NarrationDelay is how long after settling into ready the prompt is
	// narrated; pending narration is cancelled by any later transition.
	NarrationDelay time.Duration
	// NarrationRate is the speech rate passed to the narrator (slightly
	// slow for kids).
	NarrationRate float64
	// WorkingInterval is the rotation period of the scoring messages.
	WorkingInterval time.Duration
}

// DefaultConfig mirrors the browser app's timings
func DefaultConfig() Config {
	return Config{
		NarrationDelay:  500 * time.Millisecond,
		NarrationRate:   0.9,
		WorkingInterval: 1500 * time.Millisecond,
	}
}

// Controller is the per-session state machine orchestrating prompt
// progression, capture lifecycle, scoring, and history accumulation. It is
// the only component that mutates the session or appends to history.
//
// A mutex serializes all transitions, giving one logical timeline of
// events. At most one capture/score cycle is in flight at a time.
type Controller struct {
	mu      sync.Mutex
	id      string
	state   State
	session models.Session
	unit    *models.Unit
	result  *models.Assessment
	failure string

	history  *HistoryStore
	recorder *capture.Recorder
	assessor Assessor
	narrator Narrator
	sink     EventSink
	cfg      Config
	now      func() time.Time

	// gen invalidates in-flight scoring when the session is reset or
	// restarted underneath it.
	gen uint64

	// At most one of each live; cancelled on any superseding transition.
	narrationTimer *time.Timer
	workingDone    chan struct{}
	workingMsg     string
}

// NewController creates a controller in the entry state
func NewController(id string, recorder *capture.Recorder, assessor Assessor, narrator Narrator, sink EventSink, cfg Config) *Controller {
	return &Controller{
		id:       id,
		state:    StateEntry,
		history:  NewHistoryStore(),
		recorder: recorder,
		assessor: assessor,
		narrator: narrator,
		sink:     sink,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ID returns the session identifier
func (c *Controller) ID() string {
	return c.id
}

// History returns the session's history store
func (c *Controller) History() *HistoryStore {
	return c.history
}

// Begin starts a session for the given learner and unit: entry -> ready.
// Any prior session state and history is discarded.
func (c *Controller) Begin(learnerName string, unit *models.Unit) error {
	learnerName = strings.TrimSpace(learnerName)
	if learnerName == "" {
		return &ValidationError{Message: "Please tell us your name first!"}
	}
	if unit == nil {
		return &ValidationError{Message: "Please pick a unit to practice."}
	}
	if len(unit.Prompts) == 0 {
		return &ValidationError{Message: "This unit has no questions yet."}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.cancelNarrationLocked()
	c.stopWorkingLocked()
	c.recorder.Abort()
	c.history.Clear()

	c.session = models.Session{
		ID:          c.id,
		LearnerName: learnerName,
		UnitID:      unit.ID,
		PromptIndex: 0,
		StartedAt:   c.now(),
	}
	c.unit = unit
	c.result = nil
	c.failure = ""

	c.enterReadyLocked()
	return nil
}

// StartCapture begins a recording attempt: ready -> capturing.
// Refused while a capture/score cycle is already active.
func (c *Controller) StartCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return fmt.Errorf("cannot start recording while %s", c.state)
	}

	if err := c.recorder.Start(); err != nil {
		return err
	}

	c.cancelNarrationLocked()
	c.setStateLocked(StateCapturing)
	return nil
}

// IngestChunk buffers one encoded audio chunk of the active recording
func (c *Controller) IngestChunk(chunk []byte) error {
	c.mu.Lock()
	if c.state != StateCapturing {
		c.mu.Unlock()
		return capture.ErrNotCapturing
	}
	c.mu.Unlock()

	return c.recorder.Ingest(chunk)
}

// CaptureFailed reports a device/permission failure from the browser.
// Device errors are attempt-local: the controller returns to ready (not
// failed) and history is untouched. Never retried automatically.
func (c *Controller) CaptureFailed(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log.Warn().Str("session", c.id).Str("reason", reason).Msg("microphone unavailable")

	c.recorder.Abort()
	if c.state == StateCapturing {
		c.enterReadyLocked()
	}
}

// FinishCapture finalizes the recording and scores it:
// capturing -> scoring -> scored | failed. The call blocks until the
// remote assessment settles; the rotating working message is cancelled
// exactly once when it does.
func (c *Controller) FinishCapture(ctx context.Context) (*models.Assessment, error) {
	c.mu.Lock()

	if c.state != StateCapturing {
		c.mu.Unlock()
		return nil, fmt.Errorf("no recording to finish while %s", c.state)
	}

	clip, err := c.recorder.Stop()
	if err != nil {
		c.enterReadyLocked()
		c.mu.Unlock()
		return nil, err
	}

	prompt := c.currentPromptLocked()
	gen := c.gen
	c.setStateLocked(StateScoring)
	c.startWorkingLocked()
	c.mu.Unlock()

	// Suspend without the lock held; the session can be reset meanwhile.
	assessment, assessErr := c.assessor.Assess(ctx, clip, prompt.Text)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopWorkingLocked()

	if c.gen != gen {
		// Session was reset or restarted while scoring; the attempt is stale.
		log.Debug().Str("session", c.id).Msg("discarding stale assessment")
		return nil, fmt.Errorf("session ended during scoring")
	}

	if assessErr != nil {
		// The error kind matters for diagnostics only; the learner sees a
		// uniform retry notice.
		log.Error().Err(assessErr).Str("session", c.id).Int64("prompt", prompt.ID).Msg("assessment failed")
		c.failure = failedMessage
		c.setStateLocked(StateFailed)
		return nil, assessErr
	}

	entry := models.HistoryEntry{
		Assessment:  *assessment,
		PromptID:    prompt.ID,
		PromptText:  prompt.Text,
		LearnerName: c.session.LearnerName,
		UnitID:      c.session.UnitID,
		Timestamp:   c.now(),
	}
	c.history.Append(entry)

	c.result = assessment
	c.setStateLocked(StateScored)
	return assessment, nil
}

// Retry re-enters ready with the same prompt: scored | failed -> ready.
// History is untouched until a new assessment completes.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateScored && c.state != StateFailed {
		return fmt.Errorf("nothing to retry while %s", c.state)
	}

	c.result = nil
	c.failure = ""
	c.enterReadyLocked()
	return nil
}

// Next advances to the following prompt, wrapping past the end of the
// unit: scored -> ready. The curriculum is an endless loop of prompts.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateScored {
		return fmt.Errorf("cannot advance while %s", c.state)
	}

	c.session.PromptIndex = (c.session.PromptIndex + 1) % len(c.unit.Prompts)
	c.result = nil
	c.enterReadyLocked()
	return nil
}

// Reset is the explicit "go home" action: any state -> entry. The session
// and its entire history are discarded; this is a hard reset, not a pause.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.cancelNarrationLocked()
	c.stopWorkingLocked()
	c.recorder.Abort()
	c.history.Clear()

	c.session = models.Session{ID: c.id}
	c.unit = nil
	c.result = nil
	c.failure = ""
	c.setStateLocked(StateEntry)
}

// enterReadyLocked settles into ready and schedules the one-shot prompt
// narration. Caller holds the lock.
func (c *Controller) enterReadyLocked() {
	c.setStateLocked(StateReady)
	c.scheduleNarrationLocked()
}

// scheduleNarrationLocked arms the delayed narration for the current
// prompt, replacing any pending timer. If the state changes before the
// delay elapses the pending narration is cancelled; stale narration for an
// abandoned prompt never fires.
func (c *Controller) scheduleNarrationLocked() {
	c.cancelNarrationLocked()

	prompt := c.currentPromptLocked()
	if prompt == nil || c.narrator == nil {
		return
	}

	text := prompt.Text
	gen := c.gen
	c.narrationTimer = time.AfterFunc(c.cfg.NarrationDelay, func() {
		c.mu.Lock()
		stale := c.gen != gen || c.state != StateReady
		c.mu.Unlock()
		if stale {
			return
		}
		c.narrator.Speak(text, c.cfg.NarrationRate)
	})
}

// cancelNarrationLocked stops any pending narration timer. Idempotent.
func (c *Controller) cancelNarrationLocked() {
	if c.narrationTimer != nil {
		c.narrationTimer.Stop()
		c.narrationTimer = nil
	}
}

// startWorkingLocked begins rotating the scoring messages. Caller holds
// the lock.
func (c *Controller) startWorkingLocked() {
	c.stopWorkingLocked()

	done := make(chan struct{})
	c.workingDone = done
	c.workingMsg = workingInitial
	c.emitWorkingLocked()

	go func() {
		ticker := time.NewTicker(c.cfg.WorkingInterval)
		defer ticker.Stop()

		idx := -1
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.workingDone != done {
					c.mu.Unlock()
					return
				}
				idx = (idx + 1) % len(workingMessages)
				c.workingMsg = workingMessages[idx]
				c.emitWorkingLocked()
				c.mu.Unlock()
			}
		}
	}()
}

// stopWorkingLocked cancels the rotating scoring messages. Idempotent, so
// the ticker is released exactly once however the scoring call settles.
func (c *Controller) stopWorkingLocked() {
	if c.workingDone != nil {
		close(c.workingDone)
		c.workingDone = nil
		c.workingMsg = ""
	}
}

func (c *Controller) emitWorkingLocked() {
	if c.sink != nil {
		c.sink.WorkingMessage(c.workingMsg)
	}
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	if c.sink != nil {
		c.sink.StateChanged(s)
	}
}

func (c *Controller) currentPromptLocked() *models.Prompt {
	if c.unit == nil || len(c.unit.Prompts) == 0 {
		return nil
	}
	return &c.unit.Prompts[c.session.PromptIndex]
}
