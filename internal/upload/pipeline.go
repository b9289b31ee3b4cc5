package upload

import (
	"context"
	"fmt"
	"os"
	"strings"

	"video-uploader/internal/convert"
	"video-uploader/internal/domain"
)

// Stage names emitted while a run progresses.
const (
	StageConverting = "converting"
	StageUploading  = "uploading"
	StageRequesting = "requesting_transcription"
)

// Request contains input media and execution callbacks for one run.
type Request struct {
	MediaPath string
	Prompt    *string
	OnStage   func(stage string)
}

// Result contains the server-assigned identifier of the uploaded video.
type Result struct {
	VideoID string
}

// audioExtractor is the conversion engine surface used by the pipeline.
type audioExtractor interface {
	ExtractAudio(ctx context.Context, video []byte) (domain.ConvertedAudio, error)
}

// uploader is the backend surface used by the pipeline.
type uploader interface {
	CreateVideo(ctx context.Context, audio domain.ConvertedAudio) (domain.VideoRecord, error)
	RequestTranscription(ctx context.Context, videoID string, prompt *string) error
}

// Pipeline sequences one upload run: extract audio, upload it, request
// transcription. It adds no retry and supports no mid-run cancellation;
// every run ends in a terminal outcome.
type Pipeline struct {
	getEngine func(ctx context.Context) (audioExtractor, error)
	backend   uploader
	readFile  func(name string) ([]byte, error)
}

// NewPipeline constructs the production pipeline over the shared engine
// handle and backend client.
func NewPipeline(engines *convert.Handle, backend uploader) *Pipeline {
	return &Pipeline{
		getEngine: func(ctx context.Context) (audioExtractor, error) {
			engine, err := engines.Get(ctx)
			if err != nil {
				return nil, err
			}
			return engine, nil
		},
		backend:  backend,
		readFile: os.ReadFile,
	}
}

// Run performs conversion, upload, and the transcription request in order.
// The optional prompt is passed through verbatim, never transformed.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.MediaPath) == "" {
		return Result{}, fmt.Errorf("input media path is required")
	}

	emitStage(req.OnStage, StageConverting)

	video, err := p.readFile(req.MediaPath)
	if err != nil {
		return Result{}, fmt.Errorf("read input media %s: %w", req.MediaPath, err)
	}

	engine, err := p.getEngine(ctx)
	if err != nil {
		return Result{}, err
	}

	audio, err := engine.ExtractAudio(ctx, video)
	if err != nil {
		return Result{}, err
	}

	emitStage(req.OnStage, StageUploading)

	record, err := p.backend.CreateVideo(ctx, audio)
	if err != nil {
		return Result{}, err
	}

	emitStage(req.OnStage, StageRequesting)

	if err := p.backend.RequestTranscription(ctx, record.ID, req.Prompt); err != nil {
		return Result{}, err
	}

	return Result{VideoID: record.ID}, nil
}

// emitStage forwards stage updates when a callback is configured.
func emitStage(cb func(stage string), stage string) {
	if cb != nil {
		cb(stage)
	}
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	getEngine func(ctx context.Context) (audioExtractor, error),
	backend uploader,
	readFile func(name string) ([]byte, error),
) *Pipeline {
	return &Pipeline{
		getEngine: getEngine,
		backend:   backend,
		readFile:  readFile,
	}
}
