package session

import (
	"errors"
	"sync"
	"testing"

	"overlayserver/internal/acquisition"
	"overlayserver/internal/models"
)

type fakeTracker struct {
	mu      sync.Mutex
	runs    []Configuration
	opts    []RunOptions
	pauses  int
	failErr error
}

func (f *fakeTracker) Run(cfg Configuration, opts RunOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.runs = append(f.runs, cfg)
	f.opts = append(f.opts, opts)
	return nil
}

func (f *fakeTracker) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func snapshotOf(tags ...int) acquisition.Snapshot {
	images := make([]models.RecognizableImage, len(tags))
	for i, tag := range tags {
		images[i] = models.RecognizableImage{Tag: tag, PhysicalWidth: 0.1}
	}
	return acquisition.NewSnapshot(images...)
}

func TestManager_StateMachine(t *testing.T) {
	tracker := &fakeTracker{}
	m := NewManager(tracker)

	if m.State() != StateIdle {
		t.Fatalf("Expected idle, got %s", m.State())
	}

	m.Await()
	if m.State() != StateAwaitingImages {
		t.Fatalf("Expected awaiting_images, got %s", m.State())
	}

	if err := m.Start(snapshotOf(0, 1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if m.State() != StateRunning {
		t.Fatalf("Expected running, got %s", m.State())
	}

	m.Pause()
	if m.State() != StatePaused {
		t.Fatalf("Expected paused, got %s", m.State())
	}
	if tracker.pauses != 1 {
		t.Errorf("Expected 1 tracker pause, got %d", tracker.pauses)
	}

	if err := m.Start(m.Images()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if m.State() != StateRunning {
		t.Fatalf("Expected running after restart, got %s", m.State())
	}

	// Await does not move a running session backwards.
	m.Await()
	if m.State() != StateRunning {
		t.Errorf("Expected running, got %s", m.State())
	}
}

func TestManager_StartAlwaysDiscardsAnchors(t *testing.T) {
	tracker := &fakeTracker{}
	m := NewManager(tracker)

	for i := 0; i < 3; i++ {
		if err := m.Start(snapshotOf(0, 1, 2)); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
	}

	if m.Starts() != 3 {
		t.Errorf("Expected 3 starts, got %d", m.Starts())
	}
	for i, opts := range tracker.opts {
		if !opts.ResetTracking || !opts.RemoveExistingAnchors {
			t.Errorf("Run %d did not discard prior state: %+v", i, opts)
		}
	}
	for i, cfg := range tracker.runs {
		if cfg.Images.Len() != 3 {
			t.Errorf("Run %d: expected 3 images, got %d", i, cfg.Images.Len())
		}
	}
}

func TestManager_GenerationAdvancesPerStart(t *testing.T) {
	tracker := &fakeTracker{}
	m := NewManager(tracker)

	if m.Generation() != 0 {
		t.Fatalf("Expected generation 0 before any start, got %d", m.Generation())
	}
	for i := 1; i <= 3; i++ {
		if err := m.Start(snapshotOf(0)); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		if got := m.Generation(); got != uint64(i) {
			t.Errorf("After start %d expected generation %d, got %d", i, i, got)
		}
		if got := tracker.opts[i-1].Generation; got != uint64(i) {
			t.Errorf("Run %d received generation %d", i, got)
		}
	}

	tracker.failErr = errors.New("no camera")
	if err := m.Start(snapshotOf(0)); err == nil {
		t.Fatal("Expected start error")
	}
	if m.Generation() != 3 {
		t.Errorf("A failed start must keep generation 3, got %d", m.Generation())
	}
}

func TestManager_StartFailure(t *testing.T) {
	cause := errors.New("no camera")
	tracker := &fakeTracker{failErr: cause}
	m := NewManager(tracker)

	called := false
	m.OnStart(func(acquisition.Snapshot) { called = true })

	err := m.Start(snapshotOf(0))
	if err == nil {
		t.Fatal("Expected start error, got nil")
	}
	if !errors.Is(err, ErrTrackingStart) {
		t.Errorf("Expected ErrTrackingStart, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause in chain, got %v", err)
	}
	if m.State() != StateFailed {
		t.Errorf("Expected failed state, got %s", m.State())
	}
	if m.Starts() != 0 {
		t.Errorf("Expected 0 starts, got %d", m.Starts())
	}
	if called {
		t.Error("OnStart listener ran for a failed start")
	}
	if m.LastError() == nil {
		t.Error("Expected LastError to be set")
	}

	tracker.failErr = nil
	if err := m.Start(snapshotOf(0)); err != nil {
		t.Fatalf("Start after recovery failed: %v", err)
	}
	if m.LastError() != nil {
		t.Error("Expected LastError to clear after a successful start")
	}
}

func TestManager_OnStartReceivesImages(t *testing.T) {
	m := NewManager(&fakeTracker{})

	var got []int
	m.OnStart(func(s acquisition.Snapshot) { got = s.Tags() })

	if err := m.Start(snapshotOf(2, 0)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("Expected tags [0 2], got %v", got)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:           "idle",
		StateAwaitingImages: "awaiting_images",
		StateRunning:        "running",
		StatePaused:         "paused",
		StateFailed:         "failed",
		State(42):           "state(42)",
	}
	for state, want := range tests {
		if state.String() != want {
			t.Errorf("State(%d).String() = %q, expected %q", int(state), state.String(), want)
		}
	}
}
