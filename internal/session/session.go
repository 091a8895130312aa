// Package session owns the tracking session: which reference images the
// tracker looks for, and when it is (re)started or paused.
package session

import (
	"errors"
	"fmt"
	"sync"

	"overlayserver/internal/acquisition"
)

// ErrTrackingStart matches every failure to start the tracker.
var ErrTrackingStart = errors.New("tracking session failed to start")

// StartError wraps the tracker's reason for refusing to run. It is not retried.
type StartError struct {
	Images int
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start tracking with %d images: %v", e.Images, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

func (e *StartError) Is(target error) bool { return target == ErrTrackingStart }

// Configuration is what the tracker is asked to look for.
type Configuration struct {
	Images acquisition.Snapshot
}

// RunOptions controls what the tracker discards before running. Generation
// identifies the run; the tracker stamps it on every anchor it reports.
type RunOptions struct {
	ResetTracking         bool
	RemoveExistingAnchors bool
	Generation            uint64
}

// Tracker is the real-time tracking subsystem.
type Tracker interface {
	Run(cfg Configuration, opts RunOptions) error
	Pause()
}

// State of the session.
type State int

const (
	StateIdle State = iota
	StateAwaitingImages
	StateRunning
	StatePaused
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingImages:
		return "awaiting_images"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Manager (re)starts the tracker. Start and Pause are serialized; the
// getters are safe from any goroutine.
type Manager struct {
	tracker Tracker

	runMu     sync.Mutex
	mu        sync.RWMutex
	state     State
	images    acquisition.Snapshot
	starts    int
	gen       uint64
	lastErr   error
	listeners []func(acquisition.Snapshot)
}

// NewManager creates a manager in the idle state.
func NewManager(tracker Tracker) *Manager {
	return &Manager{tracker: tracker}
}

// OnStart registers fn to run after every successful start, on the
// goroutine that called Start.
func (m *Manager) OnStart(fn func(acquisition.Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Await marks the session as waiting for the recognition set.
func (m *Manager) Await() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		m.state = StateAwaitingImages
	}
}

// Start runs the tracker with images. Prior tracking state and every
// existing anchor are always discarded, so a restart re-arms the session
// rather than adding to it.
func (m *Manager) Start(images acquisition.Snapshot) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.mu.RLock()
	next := m.gen + 1
	m.mu.RUnlock()

	opts := RunOptions{ResetTracking: true, RemoveExistingAnchors: true, Generation: next}

	if err := m.tracker.Run(Configuration{Images: images}, opts); err != nil {
		startErr := &StartError{Images: images.Len(), Err: err}
		m.mu.Lock()
		m.state = StateFailed
		m.lastErr = startErr
		m.mu.Unlock()
		return startErr
	}

	m.mu.Lock()
	m.state = StateRunning
	m.images = images
	m.starts++
	m.gen = next
	m.lastErr = nil
	listeners := append([]func(acquisition.Snapshot){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(images)
	}
	return nil
}

// Pause stops the tracker until the next Start.
func (m *Manager) Pause() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.tracker.Pause()

	m.mu.Lock()
	if m.state == StateRunning {
		m.state = StatePaused
	}
	m.mu.Unlock()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Images returns the set the tracker was last started with.
func (m *Manager) Images() acquisition.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.images
}

// Starts returns how many times the tracker was started successfully.
func (m *Manager) Starts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.starts
}

// Generation returns the generation of the last successful start, 0 before
// the first one.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// LastError returns the most recent start failure, cleared by a successful start.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}
