package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"video-uploader/internal/backend"
	"video-uploader/internal/config"
	"video-uploader/internal/convert"
	"video-uploader/internal/diagnostics"
	"video-uploader/internal/domain"
	"video-uploader/internal/jobs"
	"video-uploader/internal/prompts"
	"video-uploader/internal/upload"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ErrNoMediaSelected is returned when submitting without a selected video.
var ErrNoMediaSelected = errors.New("no video file selected")

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Video files",
		Pattern:     "*.mp4",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the upload run, prompts, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Runs        *jobs.Manager
	Pipeline    pipelineRunner
	Prompts     promptSource
	Engines     *convert.Handle
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker

	// installFFmpeg overrides the OS package-manager remediation in tests.
	installFFmpeg func() error

	mu         sync.Mutex
	selected   *domain.SelectedMedia
	events     *jobs.EventBus
	runtimeCtx context.Context
}

// pipelineRunner isolates the upload pipeline behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, req upload.Request) (upload.Result, error)
}

// promptSource isolates the prompt provider behind an interface.
type promptSource interface {
	Load(ctx context.Context) ([]domain.TranscriptionPrompt, error)
	ResolveTemplate(id string) (string, bool)
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".video-uploader", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	app := &App{
		Settings:    settings,
		Store:       store,
		Runs:        jobs.NewManager(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		events:      jobs.NewEventBus(1000),
	}
	app.wire(settings)
	return app, nil
}

// wire builds the engine handle, backend client, pipeline, and prompt
// provider from the given settings.
func (a *App) wire(settings domain.Settings) {
	timeout := time.Duration(settings.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := backend.New(settings.BackendURL, timeout)
	a.Engines = convert.NewHandle(settings.FFmpegPath)
	a.Pipeline = upload.NewPipeline(a.Engines, client)
	a.Prompts = prompts.NewProvider(client)
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Video Uploader",
		Width:       960,
		Height:      700,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns environment checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	return a.refreshDiagnosticsFromSettings(settings), nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, rewires the backend client
// and engine handle, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	a.wire(normalized)
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// StatusLabels returns the display string for each upload status.
func (a *App) StatusLabels() map[domain.UploadStatus]string {
	return domain.StatusLabels
}

// SelectVideoFile opens a native file dialog and stores the selection.
// Selecting a file replaces any previous selection and never changes the
// run status.
func (a *App) SelectVideoFile() (*domain.SelectedMedia, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select video file",
		Filters: videoDialogFilter,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return a.SelectedVideo(), nil
	}

	return a.SetVideoFile(path)
}

// SetVideoFile stores a selection from a known path (drag-drop support).
func (a *App) SetVideoFile(path string) (*domain.SelectedMedia, error) {
	trimmed := strings.TrimSpace(path)
	info, err := os.Stat(trimmed)
	if err != nil {
		return nil, fmt.Errorf("access selected video: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("selected path is a directory: %s", trimmed)
	}

	media := &domain.SelectedMedia{
		Path: trimmed,
		Name: filepath.Base(trimmed),
		Size: info.Size(),
	}

	a.mu.Lock()
	a.selected = media
	a.mu.Unlock()

	return media, nil
}

// SelectedVideo returns the current selection, nil when none.
func (a *App) SelectedVideo() *domain.SelectedMedia {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

// ListPrompts returns prompt templates, fetched once and cached. An empty
// list is a normal state for the UI.
func (a *App) ListPrompts() ([]domain.TranscriptionPrompt, error) {
	a.mu.Lock()
	provider := a.Prompts
	a.mu.Unlock()
	return provider.Load(context.Background())
}

// ResolvePromptTemplate returns the template text for a prompt id, or an
// empty string when the id is unknown or prompts have not loaded.
func (a *App) ResolvePromptTemplate(id string) string {
	a.mu.Lock()
	provider := a.Prompts
	a.mu.Unlock()

	template, ok := provider.ResolveTemplate(id)
	if !ok {
		return ""
	}
	return template
}

// SubmitUpload starts one upload run for the selected video. The prompt
// template is optional; an empty string is treated as absent. Submission is
// rejected while a run is in flight and when no video is selected.
func (a *App) SubmitUpload(promptTemplate string) (domain.Run, error) {
	a.mu.Lock()
	selected := a.selected
	pipeline := a.Pipeline
	a.mu.Unlock()

	if selected == nil {
		return domain.Run{}, ErrNoMediaSelected
	}

	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	if err := a.Runs.Start(runID); err != nil {
		return domain.Run{}, err
	}

	// The template text is sent exactly as provided; trimming applies only
	// to the absence check.
	var prompt *string
	if strings.TrimSpace(promptTemplate) != "" {
		prompt = &promptTemplate
	}

	a.publishStatus(runID, domain.UploadStatusConverting, "Run started")
	go a.runUpload(pipeline, runID, selected.Path, prompt)

	return a.Runs.Current(), nil
}

// CurrentRun returns current run metadata and status.
func (a *App) CurrentRun() domain.Run {
	return a.Runs.Current()
}

// RunEvents returns all events with sequence greater than sinceSeq.
func (a *App) RunEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runUpload executes the pipeline and maps outcomes to run events. Errors
// never escape to the host: it only observes status, events, and the
// video:uploaded notification.
func (a *App) runUpload(pipeline pipelineRunner, runID, mediaPath string, prompt *string) {
	req := upload.Request{
		MediaPath: mediaPath,
		Prompt:    prompt,
		OnStage: func(stage string) {
			status, ok := mapStageToStatus(stage)
			if !ok {
				return
			}
			if err := a.Runs.Transition(status); err == nil {
				a.publishStatus(runID, status, "Running "+stage+" stage")
			}
		},
	}

	result, err := pipeline.Run(context.Background(), req)
	if err != nil {
		_ = a.Runs.Transition(domain.UploadStatusFailed)
		a.publishStatus(runID, domain.UploadStatusFailed, "Upload failed, try again")
		a.publishEvent(jobs.Event{
			RunID:   runID,
			Type:    jobs.EventTypeError,
			Status:  domain.UploadStatusFailed,
			Message: err.Error(),
		})

		var convErr *convert.ConversionError
		if errors.As(err, &convErr) && convErr.CommandLog.Command != "" {
			a.publishEvent(jobs.Event{
				RunID:    runID,
				Type:     jobs.EventTypeLog,
				Message:  "Failed command",
				Command:  convErr.CommandLog.Command,
				Args:     convErr.CommandLog.Args,
				ExitCode: convErr.CommandLog.ExitCode,
				Stdout:   convErr.CommandLog.Stdout,
				Stderr:   convErr.CommandLog.Stderr,
			})
		}
		return
	}

	a.Runs.SetVideoID(result.VideoID)
	if err := a.Runs.Transition(domain.UploadStatusSucceeded); err == nil {
		a.publishStatus(runID, domain.UploadStatusSucceeded, "Upload completed")
	}
	a.publishEvent(jobs.Event{
		RunID:   runID,
		Type:    jobs.EventTypeResult,
		Status:  domain.UploadStatusSucceeded,
		Message: "Transcription requested",
		VideoID: result.VideoID,
	})
	a.notifyVideoUploaded(result.VideoID)
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(runID string, status domain.UploadStatus, message string) {
	a.publishEvent(jobs.Event{
		RunID:   runID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "upload:event", published)
	}
}

// notifyVideoUploaded pushes the one-shot host callback after success.
func (a *App) notifyVideoUploaded(videoID string) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "video:uploaded", videoID)
	}
}

// mapStageToStatus maps pipeline stage names to run statuses.
func mapStageToStatus(stage string) (domain.UploadStatus, bool) {
	switch stage {
	case upload.StageConverting:
		return domain.UploadStatusConverting, true
	case upload.StageUploading:
		return domain.UploadStatusUploading, true
	case upload.StageRequesting:
		return domain.UploadStatusRequesting, true
	default:
		return "", false
	}
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.BackendURL = strings.TrimSpace(settings.BackendURL)
	settings.FFmpegPath = strings.TrimSpace(settings.FFmpegPath)
	defaults := config.DefaultSettings()
	if settings.BackendURL == "" {
		settings.BackendURL = defaults.BackendURL
	}
	if settings.FFmpegPath == "" {
		settings.FFmpegPath = defaults.FFmpegPath
	}
	if settings.RequestTimeoutSeconds <= 0 {
		settings.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	return settings
}
