package jobs

import (
	"errors"
	"fmt"
	"sync"

	"video-uploader/internal/domain"
)

// ErrRunInFlight is returned when submitting while a run is still active.
var ErrRunInFlight = errors.New("upload run already in flight")

// Manager tracks the single allowed active upload run and its transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Run
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Run{
			Status: domain.UploadStatusIdle,
		},
	}
}

// Start creates a new run and moves it to converting state. Prior run
// metadata is discarded, so re-submission after a failure starts fresh.
func (m *Manager) Start(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Status) {
		return ErrRunInFlight
	}

	m.current = domain.Run{
		ID:     runID,
		Status: domain.UploadStatusConverting,
	}
	return nil
}

// Transition validates and applies state transitions for the current run.
func (m *Manager) Transition(status domain.UploadStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.UploadStatusIdle {
		return fmt.Errorf("cannot transition without an active run")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// SetVideoID records the server-assigned video id on the current run.
func (m *Manager) SetVideoID(videoID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.VideoID = videoID
}

// Current returns a snapshot of the current run.
func (m *Manager) Current() domain.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears run metadata and returns the manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Run{Status: domain.UploadStatusIdle}
}

// IsRunning reports whether the current state is an active stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

// isRunning checks if a status represents an in-flight run.
func isRunning(status domain.UploadStatus) bool {
	switch status {
	case domain.UploadStatusConverting, domain.UploadStatusUploading, domain.UploadStatusRequesting:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed run state machine edges: strictly
// forward along the happy path, one escape edge to failed from any active
// state, and terminal states reopened only by a fresh submission.
func isValidTransition(from, to domain.UploadStatus) bool {
	switch from {
	case domain.UploadStatusIdle:
		return to == domain.UploadStatusConverting
	case domain.UploadStatusConverting:
		return to == domain.UploadStatusUploading || to == domain.UploadStatusFailed
	case domain.UploadStatusUploading:
		return to == domain.UploadStatusRequesting || to == domain.UploadStatusFailed
	case domain.UploadStatusRequesting:
		return to == domain.UploadStatusSucceeded || to == domain.UploadStatusFailed
	case domain.UploadStatusSucceeded, domain.UploadStatusFailed:
		return to == domain.UploadStatusConverting || to == domain.UploadStatusIdle
	default:
		return false
	}
}
