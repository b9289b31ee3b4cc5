package domain

// UploadStatus tracks each stage of a single upload run.
type UploadStatus string

const (
	UploadStatusIdle       UploadStatus = "idle"
	UploadStatusConverting UploadStatus = "converting"
	UploadStatusUploading  UploadStatus = "uploading"
	UploadStatusRequesting UploadStatus = "requesting_transcription"
	UploadStatusSucceeded  UploadStatus = "succeeded"
	UploadStatusFailed     UploadStatus = "failed"
)

// StatusLabels maps each upload status to its display string.
var StatusLabels = map[UploadStatus]string{
	UploadStatusIdle:       "Load video",
	UploadStatusConverting: "Converting...",
	UploadStatusUploading:  "Uploading...",
	UploadStatusRequesting: "Generating...",
	UploadStatusSucceeded:  "Success!",
	UploadStatusFailed:     "Error, try uploading again!",
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	BackendURL            string `json:"backendUrl"`
	FFmpegPath            string `json:"ffmpegPath"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
}

// Run stores the current upload run identity, status, and outcome.
type Run struct {
	ID      string       `json:"id"`
	Status  UploadStatus `json:"status"`
	VideoID string       `json:"videoId,omitempty"`
}

// SelectedMedia is the user's chosen input file, replaced wholesale on re-selection.
type SelectedMedia struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ConvertedAudio is the extracted audio artifact for one run.
type ConvertedAudio struct {
	Data     []byte
	MIMEType string
}

// VideoRecord is the server-side representation of an uploaded audio asset.
type VideoRecord struct {
	ID string `json:"id"`
}

// TranscriptionPrompt is a reusable prompt template, immutable once fetched.
type TranscriptionPrompt struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Template string `json:"template"`
}
