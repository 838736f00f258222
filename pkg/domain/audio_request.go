package domain

import (
	"path/filepath"
	"strings"
)

type AudioKind string

const (
	AudioKindVoice     AudioKind = "voice"
	AudioKindAudio     AudioKind = "audio"
	AudioKindDocument  AudioKind = "document"
	AudioKindVideoNote AudioKind = "video_note"
)

// AudioRequest is the per-message unit of work of the transcription pipeline.
type AudioRequest struct {
	UpdateID  int
	ChatID    int64
	UserID    int64
	MessageID int
	Kind      AudioKind
	FileID    string
	FileName  string
	MimeType  string
	FileSize  int64
	Duration  int
	Language  string
}

// Extension guesses a file extension for the downloaded payload. ffmpeg
// probes the content, so this only has to be a hint.
func (r AudioRequest) Extension() string {
	if ext := filepath.Ext(r.FileName); ext != "" {
		return strings.ToLower(ext)
	}

	switch {
	case r.Kind == AudioKindVoice:
		return ".ogg"
	case r.Kind == AudioKindVideoNote:
		return ".mp4"
	case strings.Contains(r.MimeType, "mpeg"):
		return ".mp3"
	case strings.Contains(r.MimeType, "ogg"):
		return ".ogg"
	case strings.Contains(r.MimeType, "wav"):
		return ".wav"
	case strings.Contains(r.MimeType, "mp4"), strings.Contains(r.MimeType, "m4a"):
		return ".m4a"
	default:
		return ".audio"
	}
}
