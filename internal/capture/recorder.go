package capture

import (
	"errors"
	"sync"
	"time"

	"littletoes/internal/models"
)

var (
	// ErrAlreadyCapturing is returned when Start is called mid-capture
	ErrAlreadyCapturing = errors.New("capture already in progress")
	// ErrNotCapturing is returned when Ingest or Stop is called while idle
	ErrNotCapturing = errors.New("no capture in progress")
)

// levelMinInterval bounds the rate of the live level feed. Snapshots
// arriving faster than this are dropped; the feed is best-effort and
// dropping never affects the final clip.
const levelMinInterval = 100 * time.Millisecond

// LevelFunc receives amplitude-per-bin snapshots while capturing
type LevelFunc func(bins []int)

// Recorder accumulates encoded audio chunks for one recording attempt and
// finalizes them into a single immutable AudioClip. Lifecycle is
// Idle -> Capturing -> Idle; a second Start while capturing is rejected.
type Recorder struct {
	mu        sync.Mutex
	capturing bool
	chunks    [][]byte
	total     int
	onLevel   LevelFunc
	lastLevel time.Time
	now       func() time.Time
}

// NewRecorder creates an idle recorder. onLevel may be nil when no live
// feedback is wanted.
func NewRecorder(onLevel LevelFunc) *Recorder {
	return &Recorder{
		onLevel: onLevel,
		now:     time.Now,
	}
}

// Start begins a new recording attempt.
// Fails with ErrAlreadyCapturing if one is in progress, leaving state unchanged.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capturing {
		return ErrAlreadyCapturing
	}

	r.capturing = true
	r.chunks = nil
	r.total = 0
	r.lastLevel = time.Time{}
	return nil
}

// Ingest buffers one encoded audio chunk and publishes a level snapshot
// for it (rate-limited). Valid only while capturing.
func (r *Recorder) Ingest(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	r.mu.Lock()
	if !r.capturing {
		r.mu.Unlock()
		return ErrNotCapturing
	}

	// Copy: the caller's buffer may be reused
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	r.chunks = append(r.chunks, buf)
	r.total += len(buf)

	var bins []int
	now := r.now()
	if r.onLevel != nil && now.Sub(r.lastLevel) >= levelMinInterval {
		r.lastLevel = now
		bins = levelBins(buf)
	}
	onLevel := r.onLevel
	r.mu.Unlock()

	if bins != nil {
		onLevel(bins)
	}
	return nil
}

// Stop finalizes all buffered chunks into a single AudioClip and returns
// the recorder to idle. Calling Stop while idle reports ErrNotCapturing.
func (r *Recorder) Stop() (models.AudioClip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.capturing {
		return models.AudioClip{}, ErrNotCapturing
	}

	data := make([]byte, 0, r.total)
	for _, chunk := range r.chunks {
		data = append(data, chunk...)
	}

	r.capturing = false
	r.chunks = nil
	r.total = 0

	return models.AudioClip{Data: data, MIMEType: models.ClipMIMEType}, nil
}

// Abort discards any buffered chunks and returns the recorder to idle.
// Used when the attempt is abandoned (device failure, session reset).
// Aborting an idle recorder is a no-op.
func (r *Recorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.capturing = false
	r.chunks = nil
	r.total = 0
}

// Capturing reports whether a recording attempt is in progress
func (r *Recorder) Capturing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capturing
}
