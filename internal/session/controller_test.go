package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"littletoes/internal/assess"
	"littletoes/internal/capture"
	"littletoes/internal/models"
)

type fakeAssessor struct {
	mu      sync.Mutex
	calls   int
	result  *models.Assessment
	err     error
	release chan struct{} // when set, Assess blocks until closed
}

func (f *fakeAssessor) Assess(ctx context.Context, clip models.AudioClip, promptText string) (*models.Assessment, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	result := *f.result
	return &result, nil
}

func (f *fakeAssessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNarrator struct {
	mu     sync.Mutex
	spoken []string
	rates  []float64
	notify chan string
}

func (f *fakeNarrator) Speak(text string, rate float64) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.rates = append(f.rates, rate)
	f.mu.Unlock()
	if f.notify != nil {
		f.notify <- text
	}
}

func (f *fakeNarrator) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

type fakeSink struct {
	mu      sync.Mutex
	states  []State
	working []string
}

func (f *fakeSink) StateChanged(state State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeSink) WorkingMessage(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.working = append(f.working, msg)
}

func (f *fakeSink) workingMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.working))
	copy(out, f.working)
	return out
}

func testUnit() *models.Unit {
	return &models.Unit{
		ID:    1,
		Title: "Unit 1",
		Prompts: []models.Prompt{
			{ID: 1, UnitID: 1, Position: 1, Text: "What is your name?"},
			{ID: 2, UnitID: 1, Position: 2, Text: "How old are you?"},
			{ID: 3, UnitID: 1, Position: 3, Text: "What color is the sky?"},
			{ID: 4, UnitID: 1, Position: 4, Text: "Do you like apples?"},
		},
	}
}

func goodAssessment() *models.Assessment {
	return &models.Assessment{
		PronunciationScore: 4,
		GrammarScore:       5,
		RelevanceScore:     3,
		Transcription:      "My name is Minh",
		Feedback:           "Great job saying your name!",
		Sticker:            "🌟",
	}
}

// testConfig keeps timers effectively inert unless a test opts in
func testConfig() Config {
	return Config{
		NarrationDelay:  time.Hour,
		NarrationRate:   0.9,
		WorkingInterval: time.Hour,
	}
}

func newTestController(assessor Assessor, narrator Narrator, sink EventSink, cfg Config) *Controller {
	return NewController("test-session", capture.NewRecorder(nil), assessor, narrator, sink, cfg)
}

func TestBeginValidation(t *testing.T) {
	tests := []struct {
		name        string
		learnerName string
		unit        *models.Unit
	}{
		{"empty name", "", testUnit()},
		{"whitespace name", "   ", testUnit()},
		{"no unit", "Minh", nil},
		{"unit without prompts", "Minh", &models.Unit{ID: 9, Title: "Empty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(&fakeAssessor{result: goodAssessment()}, nil, nil, testConfig())
			err := c.Begin(tt.learnerName, tt.unit)
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, StateEntry, c.Snapshot().State)
		})
	}
}

func TestBeginEntersReady(t *testing.T) {
	c := newTestController(&fakeAssessor{result: goodAssessment()}, nil, nil, testConfig())

	require.NoError(t, c.Begin("  Minh  ", testUnit()))

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "Minh", snap.LearnerName)
	assert.Equal(t, int64(1), snap.UnitID)
	assert.Equal(t, 0, snap.PromptIndex)
	assert.Equal(t, 4, snap.PromptCount)
	require.NotNil(t, snap.Prompt)
	assert.Equal(t, "What is your name?", snap.Prompt.Text)
}

func TestFullPracticeRound(t *testing.T) {
	assessor := &fakeAssessor{result: goodAssessment()}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	assert.Equal(t, StateCapturing, c.Snapshot().State)

	require.NoError(t, c.IngestChunk([]byte{1, 2, 3, 4}))

	result, err := c.FinishCapture(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 4, result.PronunciationScore)

	snap := c.Snapshot()
	assert.Equal(t, StateScored, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Great job saying your name!", snap.Result.Feedback)
	assert.Equal(t, 1, c.History().Len())
}

func TestNextWrapsAroundUnit(t *testing.T) {
	assessor := &fakeAssessor{result: goodAssessment()}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	for i := 0; i < 4; i++ {
		assert.Equal(t, i, c.Snapshot().PromptIndex)
		require.NoError(t, c.StartCapture())
		require.NoError(t, c.IngestChunk([]byte("audio")))
		_, err := c.FinishCapture(context.Background())
		require.NoError(t, err)
		require.NoError(t, c.Next())
	}

	// Past the last prompt the unit loops back to the first
	snap := c.Snapshot()
	assert.Equal(t, 0, snap.PromptIndex)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 4, c.History().Len())
}

func TestRetryKeepsPromptAndHistory(t *testing.T) {
	assessor := &fakeAssessor{result: goodAssessment()}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	require.NoError(t, c.IngestChunk([]byte("audio")))
	_, err := c.FinishCapture(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Next())

	require.NoError(t, c.StartCapture())
	require.NoError(t, c.IngestChunk([]byte("audio")))
	_, err = c.FinishCapture(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Retry())

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 1, snap.PromptIndex)
	assert.Nil(t, snap.Result)
	assert.Equal(t, 2, c.History().Len())
}

func TestRetryOnlyFromScoredOrFailed(t *testing.T) {
	c := newTestController(&fakeAssessor{result: goodAssessment()}, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	assert.Error(t, c.Retry())
	assert.Error(t, c.Next())
}

func TestDeviceFailureReturnsToReady(t *testing.T) {
	assessor := &fakeAssessor{result: goodAssessment()}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	c.CaptureFailed("permission denied")

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 0, snap.PromptIndex)
	assert.Equal(t, 0, c.History().Len())
	assert.Equal(t, 0, assessor.callCount())
}

func TestScoringFailureEntersFailed(t *testing.T) {
	assessor := &fakeAssessor{err: &assess.MalformedResponse{Reason: "missing field feedback"}}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	require.NoError(t, c.IngestChunk([]byte("audio")))
	_, err := c.FinishCapture(context.Background())
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "Something went wrong. Let's try that again.", snap.Failure)
	assert.Equal(t, 0, c.History().Len())

	// The learner can retry the same prompt
	require.NoError(t, c.Retry())
	snap = c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Empty(t, snap.Failure)
}

func TestDoubleStartCaptureRejected(t *testing.T) {
	c := newTestController(&fakeAssessor{result: goodAssessment()}, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	assert.Error(t, c.StartCapture())
}

func TestFinishCaptureRequiresCapturing(t *testing.T) {
	c := newTestController(&fakeAssessor{result: goodAssessment()}, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	_, err := c.FinishCapture(context.Background())
	assert.Error(t, err)
}

func TestResetClearsEverything(t *testing.T) {
	assessor := &fakeAssessor{result: goodAssessment()}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	require.NoError(t, c.IngestChunk([]byte("audio")))
	_, err := c.FinishCapture(context.Background())
	require.NoError(t, err)

	c.Reset()

	snap := c.Snapshot()
	assert.Equal(t, StateEntry, snap.State)
	assert.Empty(t, snap.LearnerName)
	assert.Nil(t, snap.Prompt)
	assert.Nil(t, snap.Result)
	assert.Equal(t, 0, c.History().Len())
}

func TestStaleAssessmentDiscardedAfterReset(t *testing.T) {
	release := make(chan struct{})
	assessor := &fakeAssessor{result: goodAssessment(), release: release}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	require.NoError(t, c.IngestChunk([]byte("audio")))

	errCh := make(chan error, 1)
	go func() {
		_, err := c.FinishCapture(context.Background())
		errCh <- err
	}()

	// Wait for scoring to start, then pull the rug out
	require.Eventually(t, func() bool {
		return c.Snapshot().State == StateScoring
	}, time.Second, 5*time.Millisecond)

	c.Reset()
	close(release)

	require.Error(t, <-errCh)
	assert.Equal(t, StateEntry, c.Snapshot().State)
	assert.Equal(t, 0, c.History().Len())
}

func TestNarrationSpeaksPromptAfterDelay(t *testing.T) {
	narrator := &fakeNarrator{notify: make(chan string, 4)}
	cfg := testConfig()
	cfg.NarrationDelay = 10 * time.Millisecond

	c := newTestController(&fakeAssessor{result: goodAssessment()}, narrator, nil, cfg)
	require.NoError(t, c.Begin("Minh", testUnit()))

	select {
	case text := <-narrator.notify:
		assert.Equal(t, "What is your name?", text)
	case <-time.After(time.Second):
		t.Fatal("narration never fired")
	}

	narrator.mu.Lock()
	rate := narrator.rates[0]
	narrator.mu.Unlock()
	assert.InDelta(t, 0.9, rate, 0.001)
}

func TestNarrationCancelledByCaptureStart(t *testing.T) {
	narrator := &fakeNarrator{}
	cfg := testConfig()
	cfg.NarrationDelay = 50 * time.Millisecond

	c := newTestController(&fakeAssessor{result: goodAssessment()}, narrator, nil, cfg)
	require.NoError(t, c.Begin("Minh", testUnit()))

	// Start recording before the narration delay elapses
	require.NoError(t, c.StartCapture())
	time.Sleep(150 * time.Millisecond)

	assert.Empty(t, narrator.spokenTexts())
}

func TestWorkingMessagesRotateDuringScoring(t *testing.T) {
	release := make(chan struct{})
	assessor := &fakeAssessor{result: goodAssessment(), release: release}
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.WorkingInterval = 10 * time.Millisecond

	c := newTestController(assessor, nil, sink, cfg)
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	require.NoError(t, c.IngestChunk([]byte("audio")))

	done := make(chan struct{})
	go func() {
		_, _ = c.FinishCapture(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(sink.workingMessages()) >= 3
	}, time.Second, 5*time.Millisecond)

	close(release)
	<-done

	msgs := sink.workingMessages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Thinking...", msgs[0])
	assert.Contains(t, []string{
		"Listening closely...",
		"Checking grammar...",
		"Preparing stickers...",
	}, msgs[1])

	// Rotation stops once scoring settles
	assert.Empty(t, c.Snapshot().WorkingMessage)
}

func TestHistoryEntryDenormalizesPrompt(t *testing.T) {
	assessor := &fakeAssessor{result: goodAssessment()}
	c := newTestController(assessor, nil, nil, testConfig())
	require.NoError(t, c.Begin("Minh", testUnit()))

	require.NoError(t, c.StartCapture())
	require.NoError(t, c.IngestChunk([]byte("audio")))
	_, err := c.FinishCapture(context.Background())
	require.NoError(t, err)

	entries := c.History().Snapshot()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, int64(1), entry.PromptID)
	assert.Equal(t, "What is your name?", entry.PromptText)
	assert.Equal(t, "Minh", entry.LearnerName)
	assert.Equal(t, int64(1), entry.UnitID)
	assert.False(t, entry.Timestamp.IsZero())
}
