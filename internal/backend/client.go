package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"video-uploader/internal/domain"
)

// NetworkError wraps a failed backend call with transport or status context.
type NetworkError struct {
	Op         string `json:"op"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error formats backend failures for logs and UI.
func (e *NetworkError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Client talks to the video backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a backend client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// createVideoResponse mirrors the upload endpoint response envelope.
type createVideoResponse struct {
	Video domain.VideoRecord `json:"video"`
}

// transcriptionRequest is the request-transcription body. Prompt stays a
// pointer so an absent prompt is omitted rather than sent as "".
type transcriptionRequest struct {
	Prompt *string `json:"prompt,omitempty"`
}

// CreateVideo uploads converted audio as a single multipart request and
// returns the server-assigned video record.
func (c *Client) CreateVideo(ctx context.Context, audio domain.ConvertedAudio) (domain.VideoRecord, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.mp3"`)
	header.Set("Content-Type", audio.MIMEType)
	fw, err := mw.CreatePart(header)
	if err != nil {
		return domain.VideoRecord{}, &NetworkError{Op: "create video", Message: "build multipart payload", Err: err}
	}
	if _, err := fw.Write(audio.Data); err != nil {
		return domain.VideoRecord{}, &NetworkError{Op: "create video", Message: "build multipart payload", Err: err}
	}
	if err := mw.Close(); err != nil {
		return domain.VideoRecord{}, &NetworkError{Op: "create video", Message: "build multipart payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", &body)
	if err != nil {
		return domain.VideoRecord{}, &NetworkError{Op: "create video", Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.VideoRecord{}, &NetworkError{Op: "create video", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.VideoRecord{}, statusError("create video", resp)
	}

	var decoded createVideoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.VideoRecord{}, &NetworkError{Op: "create video", Message: "decode response", Err: err}
	}
	if decoded.Video.ID == "" {
		return domain.VideoRecord{}, &NetworkError{Op: "create video", Message: "response is missing video id"}
	}

	return decoded.Video, nil
}

// RequestTranscription asks the backend to transcribe an uploaded video.
// A nil prompt lets the backend apply its own default.
func (c *Client) RequestTranscription(ctx context.Context, videoID string, prompt *string) error {
	payload, err := json.Marshal(transcriptionRequest{Prompt: prompt})
	if err != nil {
		return &NetworkError{Op: "request transcription", Message: "encode request body", Err: err}
	}

	url := fmt.Sprintf("%s/videos/%s/transcription", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &NetworkError{Op: "request transcription", Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "request transcription", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("request transcription", resp)
	}

	return nil
}

// FetchPrompts returns the reusable transcription prompt templates.
func (c *Client) FetchPrompts(ctx context.Context) ([]domain.TranscriptionPrompt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prompts", nil)
	if err != nil {
		return nil, &NetworkError{Op: "fetch prompts", Message: "build request", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "fetch prompts", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("fetch prompts", resp)
	}

	var prompts []domain.TranscriptionPrompt
	if err := json.NewDecoder(resp.Body).Decode(&prompts); err != nil {
		return nil, &NetworkError{Op: "fetch prompts", Message: "decode response", Err: err}
	}

	return prompts, nil
}

// statusError captures a non-2xx response with a bounded body excerpt.
func statusError(op string, resp *http.Response) *NetworkError {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &NetworkError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(excerpt)),
	}
}
