package domain

import "time"

type Transcription struct {
	Text     string
	Language string
	Model    string
	Duration time.Duration
}

// TranscriptionParams is what an engine receives for one call. An empty
// Language means auto-detect.
type TranscriptionParams struct {
	Language  string
	Threads   uint
	Translate bool
}
