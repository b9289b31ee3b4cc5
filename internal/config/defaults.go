package config

import "video-uploader/internal/domain"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		BackendURL:            "http://localhost:3333",
		FFmpegPath:            "ffmpeg",
		RequestTimeoutSeconds: 120,
	}
}
