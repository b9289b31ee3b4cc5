package diagnostics

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"video-uploader/internal/domain"
)

// okResponse builds a minimal HTTP response for the reachability check.
func okResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("[]")),
	}
}

// passingChecker builds a checker where every dependency succeeds.
func passingChecker() *Checker {
	return NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		os.CreateTemp,
		os.Remove,
		func(url string) (*http.Response, error) { return okResponse(http.StatusOK), nil },
	)
}

// findItem returns the report item with the given id.
func findItem(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %q not found in report", id)
	return domain.DiagnosticItem{}
}

// TestCheckerAllPass verifies a healthy environment produces no failures.
func TestCheckerAllPass(t *testing.T) {
	report := passingChecker().Run(domain.Settings{
		BackendURL: "http://localhost:3333",
		FFmpegPath: "ffmpeg",
	})

	if report.HasFailures {
		t.Fatalf("unexpected failures: %+v", report.Items)
	}
	if len(report.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(report.Items))
	}
}

// TestCheckerMissingFFmpegFails verifies the PATH lookup failure case.
func TestCheckerMissingFFmpegFails(t *testing.T) {
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "", errors.New("not found") },
		os.CreateTemp,
		os.Remove,
		func(url string) (*http.Response, error) { return okResponse(http.StatusOK), nil },
	)

	report := checker.Run(domain.Settings{BackendURL: "http://localhost:3333", FFmpegPath: "ffmpeg"})
	if !report.HasFailures {
		t.Fatal("expected failures for missing ffmpeg")
	}

	item := findItem(t, report, "tool_ffmpeg")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("ffmpeg status = %s, want fail", item.Status)
	}
	if item.Hint == "" {
		t.Fatal("expected install hint")
	}
}

// TestCheckerInvalidBackendURLFails verifies URL validation.
func TestCheckerInvalidBackendURLFails(t *testing.T) {
	report := passingChecker().Run(domain.Settings{BackendURL: "not a url", FFmpegPath: "ffmpeg"})

	item := findItem(t, report, "backend_url")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("backend_url status = %s, want fail", item.Status)
	}
}

// TestCheckerUnreachableBackendWarnsOnly verifies connectivity is advisory.
func TestCheckerUnreachableBackendWarnsOnly(t *testing.T) {
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		os.CreateTemp,
		os.Remove,
		func(url string) (*http.Response, error) { return nil, errors.New("connection refused") },
	)

	report := checker.Run(domain.Settings{BackendURL: "http://localhost:3333", FFmpegPath: "ffmpeg"})
	if report.HasFailures {
		t.Fatal("unreachable backend must not fail the report")
	}

	item := findItem(t, report, "backend_reachable")
	if item.Status != domain.DiagnosticStatusWarn {
		t.Fatalf("backend_reachable status = %s, want warn", item.Status)
	}
}

// TestCheckerConfiguredFFmpegPath verifies explicit path checking.
func TestCheckerConfiguredFFmpegPath(t *testing.T) {
	path := os.Args[0] // any file that exists
	report := passingChecker().Run(domain.Settings{BackendURL: "http://localhost:3333", FFmpegPath: path})

	item := findItem(t, report, "tool_ffmpeg")
	if item.Status != domain.DiagnosticStatusPass {
		t.Fatalf("ffmpeg status = %s, want pass", item.Status)
	}
}

// TestCheckerWorkspaceFailure verifies the temp-dir write check.
func TestCheckerWorkspaceFailure(t *testing.T) {
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		func(dir, pattern string) (*os.File, error) { return nil, errors.New("read-only filesystem") },
		os.Remove,
		func(url string) (*http.Response, error) { return okResponse(http.StatusOK), nil },
	)

	report := checker.Run(domain.Settings{BackendURL: "http://localhost:3333", FFmpegPath: "ffmpeg"})
	if !report.HasFailures {
		t.Fatal("expected failures for unwritable workspace")
	}

	item := findItem(t, report, "workspace")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("workspace status = %s, want fail", item.Status)
	}
}
