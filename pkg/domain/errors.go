package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrDownload         = errors.New("download failed")
	ErrFileTooLarge     = fmt.Errorf("%w: file too large", ErrDownload)
	ErrConversion       = errors.New("conversion failed")
	ErrTranscription    = errors.New("transcription failed")
	ErrReply            = errors.New("reply failed")
)

const (
	PermissionDeniedMessage = "❌ Sorry, you don't have permission to use this bot."
	FileTooLargeMessage     = "❌ File too large. Maximum size is %d MB."
	DownloadFailedMessage   = "❌ Could not download the audio file. Please send it again."
	ConversionFailedMessage = "❌ Could not convert the audio. The file format may be unsupported."
	TranscriptionMessage    = "❌ Failed to transcribe audio. Please try again later."
	UnexpectedErrorMessage  = "❌ Something went wrong while processing your message."
	NoSpeechMessage         = "🤷 No speech detected in this recording."
)

// UserMessage maps a pipeline error to the single text shown to the user.
func UserMessage(err error, maxFileSize int64) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return PermissionDeniedMessage
	case errors.Is(err, ErrFileTooLarge):
		return fmt.Sprintf(FileTooLargeMessage, maxFileSize/(1024*1024))
	case errors.Is(err, ErrDownload):
		return DownloadFailedMessage
	case errors.Is(err, ErrConversion):
		return ConversionFailedMessage
	case errors.Is(err, ErrTranscription):
		return TranscriptionMessage
	default:
		return UnexpectedErrorMessage
	}
}
