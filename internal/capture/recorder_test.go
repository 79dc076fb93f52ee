package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"littletoes/internal/models"
)

func TestStartWhileCapturing(t *testing.T) {
	r := NewRecorder(nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyCapturing) {
		t.Errorf("expected ErrAlreadyCapturing, got %v", err)
	}
	if !r.Capturing() {
		t.Error("expected recorder to stay capturing after rejected Start")
	}
}

func TestStopWhileIdle(t *testing.T) {
	r := NewRecorder(nil)

	if _, err := r.Stop(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("expected ErrNotCapturing, got %v", err)
	}
}

func TestIngestWhileIdle(t *testing.T) {
	r := NewRecorder(nil)

	if err := r.Ingest([]byte("chunk")); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("expected ErrNotCapturing, got %v", err)
	}
}

func TestStopConcatenatesChunksInOrder(t *testing.T) {
	r := NewRecorder(nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, chunk := range chunks {
		if err := r.Ingest(chunk); err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
	}

	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !bytes.Equal(clip.Data, []byte("onetwothree")) {
		t.Errorf("expected concatenated chunks, got %q", clip.Data)
	}
	if clip.MIMEType != models.ClipMIMEType {
		t.Errorf("expected MIME type %q, got %q", models.ClipMIMEType, clip.MIMEType)
	}
	if r.Capturing() {
		t.Error("expected recorder to be idle after Stop")
	}
}

func TestIngestCopiesCallerBuffer(t *testing.T) {
	r := NewRecorder(nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	buf := []byte("abcd")
	if err := r.Ingest(buf); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	copy(buf, "zzzz")

	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !bytes.Equal(clip.Data, []byte("abcd")) {
		t.Errorf("expected buffered copy to be unaffected, got %q", clip.Data)
	}
}

func TestEmptyChunkIgnored(t *testing.T) {
	r := NewRecorder(nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Ingest(nil); err != nil {
		t.Fatalf("Ingest of empty chunk failed: %v", err)
	}

	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !clip.Empty() {
		t.Errorf("expected empty clip, got %d bytes", len(clip.Data))
	}
}

func TestAbortDiscardsChunks(t *testing.T) {
	r := NewRecorder(nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Ingest([]byte("audio")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	r.Abort()

	if r.Capturing() {
		t.Error("expected recorder to be idle after Abort")
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("expected ErrNotCapturing after Abort, got %v", err)
	}

	// Aborting while idle is a no-op
	r.Abort()
}

func TestLevelCallbackThrottled(t *testing.T) {
	var calls int
	r := NewRecorder(func(bins []int) {
		calls++
		if len(bins) == 0 {
			t.Error("expected non-empty level bins")
		}
	})

	current := time.Unix(0, 0)
	r.now = func() time.Time { return current }

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Chunks arriving within the throttle window publish one snapshot
	for i := 0; i < 5; i++ {
		if err := r.Ingest([]byte("chunkchunkchunkchunk")); err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		current = current.Add(10 * time.Millisecond)
	}
	if calls != 1 {
		t.Errorf("expected 1 level callback within throttle window, got %d", calls)
	}

	current = current.Add(levelMinInterval)
	if err := r.Ingest([]byte("chunkchunkchunkchunk")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 level callbacks after interval elapsed, got %d", calls)
	}
}
