package jobs

import (
	"errors"
	"testing"

	"video-uploader/internal/domain"
)

// TestManagerLifecycle verifies normal progression to succeeded state.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() {
		t.Fatal("new manager should be idle")
	}

	if err := m.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("expected running after start")
	}

	for _, status := range []domain.UploadStatus{
		domain.UploadStatusUploading,
		domain.UploadStatusRequesting,
		domain.UploadStatusSucceeded,
	} {
		if err := m.Transition(status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	current := m.Current()
	if current.Status != domain.UploadStatusSucceeded {
		t.Fatalf("current status = %s, want succeeded", current.Status)
	}
	if m.IsRunning() {
		t.Fatal("succeeded is a terminal state")
	}
}

// TestManagerRejectsInvalidTransition checks forward-only constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	if err := m.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Transition(domain.UploadStatusSucceeded); err == nil {
		t.Fatal("expected invalid transition error")
	}
	if err := m.Transition(domain.UploadStatusRequesting); err == nil {
		t.Fatal("expected invalid transition error for skipped stage")
	}
}

// TestManagerFailedIsReachableFromEveryActiveState checks the escape edge.
func TestManagerFailedIsReachableFromEveryActiveState(t *testing.T) {
	paths := [][]domain.UploadStatus{
		{},
		{domain.UploadStatusUploading},
		{domain.UploadStatusUploading, domain.UploadStatusRequesting},
	}

	for _, prefix := range paths {
		m := NewManager()
		if err := m.Start("run-1"); err != nil {
			t.Fatalf("start: %v", err)
		}
		for _, status := range prefix {
			if err := m.Transition(status); err != nil {
				t.Fatalf("transition to %s: %v", status, err)
			}
		}
		if err := m.Transition(domain.UploadStatusFailed); err != nil {
			t.Fatalf("transition to failed after %v: %v", prefix, err)
		}
	}
}

// TestManagerRejectsSecondStartWhileRunning checks single-flight guard.
func TestManagerRejectsSecondStartWhileRunning(t *testing.T) {
	m := NewManager()
	if err := m.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Start("run-2"); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("second start error = %v, want %v", err, ErrRunInFlight)
	}
}

// TestManagerRestartAfterFailureDiscardsPriorRun checks fresh-run semantics.
func TestManagerRestartAfterFailureDiscardsPriorRun(t *testing.T) {
	m := NewManager()
	if err := m.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.SetVideoID("stale-id")
	if err := m.Transition(domain.UploadStatusFailed); err != nil {
		t.Fatalf("fail run: %v", err)
	}

	if err := m.Start("run-2"); err != nil {
		t.Fatalf("restart: %v", err)
	}

	current := m.Current()
	if current.ID != "run-2" {
		t.Fatalf("run id = %q, want run-2", current.ID)
	}
	if current.VideoID != "" {
		t.Fatalf("video id = %q, want empty after restart", current.VideoID)
	}
	if current.Status != domain.UploadStatusConverting {
		t.Fatalf("status = %s, want converting", current.Status)
	}
}

// TestManagerResetReturnsToIdle checks reset behavior.
func TestManagerResetReturnsToIdle(t *testing.T) {
	m := NewManager()
	if err := m.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Reset()

	if m.Current().Status != domain.UploadStatusIdle {
		t.Fatalf("status = %s, want idle", m.Current().Status)
	}
}
