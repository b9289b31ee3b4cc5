package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"video-uploader/internal/domain"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// ConversionError is a stage-aware extraction error with optional command context.
type ConversionError struct {
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats conversion failures for logs and UI.
func (e *ConversionError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Engine extracts the audio track from video bytes via ffmpeg.
// One extraction runs at a time; the engine is shared across runs.
type Engine struct {
	ffmpegPath string
	runner     commandRunner

	mu          sync.Mutex
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	writeFile   func(name string, data []byte, perm os.FileMode) error
	readFile    func(name string) ([]byte, error)
	workspaceID func() string
}

// newEngine wires an engine around a resolved ffmpeg binary.
func newEngine(ffmpegPath string, runner commandRunner) *Engine {
	return &Engine{
		ffmpegPath:  ffmpegPath,
		runner:      runner,
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		writeFile:   os.WriteFile,
		readFile:    os.ReadFile,
		workspaceID: func() string { return uuid.New().String() },
	}
}

// ExtractAudio writes video bytes into a per-call workspace, runs the fixed
// extraction command, and reads back the MP3 artifact.
func (e *Engine) ExtractAudio(ctx context.Context, video []byte) (domain.ConvertedAudio, error) {
	if len(video) == 0 {
		return domain.ConvertedAudio{}, &ConversionError{
			Stage:   "extracting",
			Message: "input video is empty",
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	workspace, err := e.mkdirTemp("", "video-uploader-*")
	if err != nil {
		return domain.ConvertedAudio{}, &ConversionError{
			Stage:   "extracting",
			Message: "failed to create extraction workspace",
			Err:     err,
		}
	}
	defer func() { _ = e.removeAll(workspace) }()

	id := e.workspaceID()
	inputPath := filepath.Join(workspace, "input-"+id+".mp4")
	outputPath := filepath.Join(workspace, "output-"+id+".mp3")

	if err := e.writeFile(inputPath, video, 0o644); err != nil {
		return domain.ConvertedAudio{}, &ConversionError{
			Stage:   "extracting",
			Message: "failed to write video into workspace",
			Err:     err,
		}
	}

	args := buildExtractArgs(inputPath, outputPath)
	cmdResult, runErr := e.runner.Run(ctx, e.ffmpegPath, args...)
	log := CommandLog{
		Command:  e.ffmpegPath,
		Args:     args,
		ExitCode: cmdResult.ExitCode,
		Stdout:   cmdResult.Stdout,
		Stderr:   cmdResult.Stderr,
	}
	if runErr != nil {
		return domain.ConvertedAudio{}, &ConversionError{
			Stage:      "extracting",
			Message:    "ffmpeg audio extraction failed",
			CommandLog: log,
			Err:        runErr,
		}
	}

	data, err := e.readFile(outputPath)
	if err != nil {
		return domain.ConvertedAudio{}, &ConversionError{
			Stage:      "extracting",
			Message:    "ffmpeg completed but output artifact is missing",
			CommandLog: log,
			Err:        err,
		}
	}

	return domain.ConvertedAudio{
		Data:     data,
		MIMEType: "audio/mpeg",
	}, nil
}

// buildExtractArgs builds the fixed audio-passthrough extraction command:
// audio stream only, 20 kbps, MP3 encoder.
func buildExtractArgs(inputPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-map", "0:a",
		"-b:a", "20k",
		"-acodec", "libmp3lame",
		outputPath,
	}
}

// Handle is the process-wide lazy engine holder. Concurrent first callers
// share one initialization; the outcome is cached for the handle's lifetime.
type Handle struct {
	once   sync.Once
	init   func(ctx context.Context) (*Engine, error)
	engine *Engine
	err    error
}

// NewHandle builds a handle that initializes ffmpeg on first use.
func NewHandle(ffmpegPath string) *Handle {
	return &Handle{
		init: func(ctx context.Context) (*Engine, error) {
			return initEngine(ctx, ffmpegPath, &execRunner{})
		},
	}
}

// Get returns the shared engine, initializing it exactly once.
func (h *Handle) Get(ctx context.Context) (*Engine, error) {
	h.once.Do(func() {
		h.engine, h.err = h.init(ctx)
	})
	return h.engine, h.err
}

// initEngine resolves the ffmpeg binary and verifies it executes.
func initEngine(ctx context.Context, ffmpegPath string, runner commandRunner) (*Engine, error) {
	path := strings.TrimSpace(ffmpegPath)
	if path == "" {
		path = "ffmpeg"
	}

	if !strings.ContainsRune(path, os.PathSeparator) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return nil, &ConversionError{
				Stage:   "initializing",
				Message: fmt.Sprintf("ffmpeg not found in PATH: %s", path),
				Err:     err,
			}
		}
		path = resolved
	}

	result, err := runner.Run(ctx, path, "-version")
	if err != nil {
		return nil, &ConversionError{
			Stage:   "initializing",
			Message: "ffmpeg binary failed to execute",
			CommandLog: CommandLog{
				Command:  path,
				Args:     []string{"-version"},
				ExitCode: result.ExitCode,
				Stdout:   result.Stdout,
				Stderr:   result.Stderr,
			},
			Err: err,
		}
	}

	return newEngine(path, runner), nil
}

// NewHandleForTests builds a handle with an injected initializer.
func NewHandleForTests(init func(ctx context.Context) (*Engine, error)) *Handle {
	return &Handle{init: init}
}

// NewEngineForTests constructs an engine with injectable dependencies.
func NewEngineForTests(
	ffmpegPath string,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
) *Engine {
	return &Engine{
		ffmpegPath:  ffmpegPath,
		runner:      runner,
		mkdirTemp:   mkdirTemp,
		removeAll:   removeAll,
		writeFile:   os.WriteFile,
		readFile:    os.ReadFile,
		workspaceID: func() string { return uuid.New().String() },
	}
}
