package bootstrap

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"video-uploader/internal/diagnostics"
	"video-uploader/internal/domain"
	"video-uploader/internal/jobs"
)

// newFixTestChecker builds a checker whose ffmpeg lookup is controlled by the
// test and whose other checks always pass.
func newFixTestChecker(lookPath func(string) (string, error)) *diagnostics.Checker {
	return diagnostics.NewCheckerForTests(
		lookPath,
		os.CreateTemp,
		os.Remove,
		func(string) (*http.Response, error) {
			return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil
		},
	)
}

// TestInstallOrFixDiagnosticRequiresStore ensures the method guards a missing store.
func TestInstallOrFixDiagnosticRequiresStore(t *testing.T) {
	app := &App{}
	if _, err := app.InstallOrFixDiagnostic("tool_ffmpeg"); err == nil {
		t.Fatal("expected error without a settings store")
	}
}

// TestInstallOrFixDiagnosticRejectsUnsupportedID ensures unknown items fail fast.
func TestInstallOrFixDiagnosticRejectsUnsupportedID(t *testing.T) {
	app := &App{Store: &fakeStore{}}

	if _, err := app.InstallOrFixDiagnostic("backend_url"); err == nil {
		t.Fatal("expected error for unsupported item id")
	}
	if _, err := app.InstallOrFixDiagnostic("  "); err == nil {
		t.Fatal("expected error for empty item id")
	}
}

// TestInstallOrFixDiagnosticFFmpegRerunsChecks ensures a successful install is
// followed by a fresh diagnostics run reflecting the repaired tool.
func TestInstallOrFixDiagnosticFFmpegRerunsChecks(t *testing.T) {
	installed := false
	app := &App{
		Store:   &fakeStore{settings: domain.Settings{BackendURL: "http://localhost:3333"}},
		Runs:    jobs.NewManager(),
		events:  jobs.NewEventBus(100),
		checker: newFixTestChecker(func(string) (string, error) {
			if !installed {
				return "", errors.New("not found")
			}
			return "/usr/bin/ffmpeg", nil
		}),
		installFFmpeg: func() error {
			installed = true
			return nil
		},
	}

	report, err := app.InstallOrFixDiagnostic("tool_ffmpeg")
	if err != nil {
		t.Fatalf("InstallOrFixDiagnostic() error = %v", err)
	}
	if !installed {
		t.Fatal("install step did not run")
	}
	if report.HasFailures {
		t.Fatalf("report still has failures: %+v", report.Items)
	}
	if app.Diagnostics.HasFailures {
		t.Fatal("cached diagnostics were not refreshed")
	}
	if app.Settings.FFmpegPath == "" {
		t.Fatal("settings were not refreshed with defaults")
	}
}

// TestInstallOrFixDiagnosticReportsInstallFailure ensures a failed install
// still returns a refreshed report alongside the error.
func TestInstallOrFixDiagnosticReportsInstallFailure(t *testing.T) {
	app := &App{
		Store: &fakeStore{settings: domain.Settings{BackendURL: "http://localhost:3333"}},
		checker: newFixTestChecker(func(string) (string, error) {
			return "", errors.New("not found")
		}),
		installFFmpeg: func() error {
			return errors.New("no supported package manager found")
		},
	}

	report, err := app.InstallOrFixDiagnostic("tool_ffmpeg")
	if err == nil {
		t.Fatal("expected install error")
	}
	if !report.HasFailures {
		t.Fatal("report should still flag the missing tool")
	}
}

// TestFFmpegInstallOptionsPerOS checks the package-manager matrix.
func TestFFmpegInstallOptionsPerOS(t *testing.T) {
	windows := ffmpegInstallOptions("windows")
	if len(windows) != 3 || windows[0].manager != "winget" {
		t.Fatalf("windows options = %+v", windows)
	}

	darwin := ffmpegInstallOptions("darwin")
	if len(darwin) != 1 || darwin[0].manager != "brew" {
		t.Fatalf("darwin options = %+v", darwin)
	}

	linux := ffmpegInstallOptions("linux")
	if len(linux) != 5 || linux[0].manager != "apt-get" {
		t.Fatalf("linux options = %+v", linux)
	}
	if len(linux[0].commands) != 2 {
		t.Fatalf("apt-get commands = %+v, want update then install", linux[0].commands)
	}
}

// TestRequiresElevation checks only linux system managers request elevation.
func TestRequiresElevation(t *testing.T) {
	for _, manager := range []string{"apt-get", "dnf", "pacman", "zypper"} {
		if !requiresElevation(manager) {
			t.Fatalf("%s should require elevation", manager)
		}
	}
	for _, manager := range []string{"brew", "winget", "choco", "scoop"} {
		if requiresElevation(manager) {
			t.Fatalf("%s should not require elevation", manager)
		}
	}
}
