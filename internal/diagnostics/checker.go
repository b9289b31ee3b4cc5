package diagnostics

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"video-uploader/internal/domain"
)

// Checker validates external tools, backend connectivity, and workspace access.
type Checker struct {
	lookPath   func(string) (string, error)
	createTemp func(dir, pattern string) (*os.File, error)
	remove     func(string) error
	httpGet    func(url string) (*http.Response, error)
}

// NewChecker builds a checker using real OS and network dependencies.
func NewChecker() *Checker {
	client := &http.Client{Timeout: 5 * time.Second}
	return &Checker{
		lookPath:   exec.LookPath,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		httpGet:    client.Get,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkFFmpeg(settings.FFmpegPath),
		c.checkBackendURL(settings.BackendURL),
		c.checkBackendReachable(settings.BackendURL),
		c.checkWorkspace(),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkFFmpeg verifies the configured ffmpeg binary is resolvable.
func (c *Checker) checkFFmpeg(configured string) domain.DiagnosticItem {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = "ffmpeg"
	}

	if strings.ContainsRune(name, os.PathSeparator) {
		if _, err := os.Stat(name); err != nil {
			return domain.DiagnosticItem{
				ID:      "tool_ffmpeg",
				Name:    "ffmpeg",
				Status:  domain.DiagnosticStatusFail,
				Message: fmt.Sprintf("Configured ffmpeg path is not accessible: %s", name),
				Hint:    "Fix the ffmpeg path in settings or clear it to use PATH lookup.",
			}
		}
		return domain.DiagnosticItem{
			ID:      "tool_ffmpeg",
			Name:    "ffmpeg",
			Status:  domain.DiagnosticStatusPass,
			Message: fmt.Sprintf("Found at %s", name),
		}
	}

	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_ffmpeg",
			Name:    "ffmpeg",
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install ffmpeg and ensure the binary is available on PATH before uploading a video.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_ffmpeg",
		Name:    "ffmpeg",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkBackendURL verifies the configured backend URL is well-formed.
func (c *Checker) checkBackendURL(raw string) domain.DiagnosticItem {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if trimmed == "" || err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return domain.DiagnosticItem{
			ID:      "backend_url",
			Name:    "Backend URL",
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Backend URL is not a valid http(s) address: %q", raw),
			Hint:    "Set the backend URL in settings, e.g. http://localhost:3333.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "backend_url",
		Name:    "Backend URL",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Configured as %s", trimmed),
	}
}

// checkBackendReachable pings the prompts endpoint. An unreachable backend
// is a warning, not a failure: the app still starts and uploads fail later
// with a normal network error.
func (c *Checker) checkBackendReachable(raw string) domain.DiagnosticItem {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return domain.DiagnosticItem{
			ID:      "backend_reachable",
			Name:    "Backend connectivity",
			Status:  domain.DiagnosticStatusWarn,
			Message: "Skipped: backend URL is not configured",
		}
	}

	resp, err := c.httpGet(base + "/prompts")
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "backend_reachable",
			Name:    "Backend connectivity",
			Status:  domain.DiagnosticStatusWarn,
			Message: fmt.Sprintf("Backend did not respond: %v", err),
			Hint:    "Start the backend or check the URL; uploads will fail until it is reachable.",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.DiagnosticItem{
			ID:      "backend_reachable",
			Name:    "Backend connectivity",
			Status:  domain.DiagnosticStatusWarn,
			Message: fmt.Sprintf("Backend answered with status %d", resp.StatusCode),
		}
	}

	return domain.DiagnosticItem{
		ID:      "backend_reachable",
		Name:    "Backend connectivity",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Backend answered with status %d", resp.StatusCode),
	}
}

// checkWorkspace verifies the extraction workspace is writable.
func (c *Checker) checkWorkspace() domain.DiagnosticItem {
	file, err := c.createTemp("", "video-uploader-check-*")
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "workspace",
			Name:    "Extraction workspace",
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Cannot write to the temporary directory: %v", err),
			Hint:    "Check free disk space and permissions on the system temp directory.",
		}
	}

	name := file.Name()
	_ = file.Close()
	_ = c.remove(name)

	return domain.DiagnosticItem{
		ID:      "workspace",
		Name:    "Extraction workspace",
		Status:  domain.DiagnosticStatusPass,
		Message: "Temporary directory is writable",
	}
}

// NewCheckerForTests constructs a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	createTemp func(dir, pattern string) (*os.File, error),
	remove func(string) error,
	httpGet func(url string) (*http.Response, error),
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		createTemp: createTemp,
		remove:     remove,
		httpGet:    httpGet,
	}
}
