package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dskvich/whisper-telegram-bot/pkg/converter"
	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

type FileDownloader interface {
	DownloadFile(ctx context.Context, fileID, dst string) (int64, error)
}

type AudioConverter interface {
	Convert(ctx context.Context, inputPath, outputPath string, format converter.Format) error
}

type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (domain.Transcription, error)
}

type TempFiles interface {
	NewFilePath(ext string) string
	Remove(paths ...string)
}

type transcriptionService struct {
	downloader   FileDownloader
	converter    AudioConverter
	format       converter.Format
	transcriber  SpeechTranscriber
	tempFiles    TempFiles
	maxFileSize  int64
	showMetadata bool
	responseCh   chan<- domain.Response
}

func NewTranscriptionService(
	downloader FileDownloader,
	audioConverter AudioConverter,
	format converter.Format,
	transcriber SpeechTranscriber,
	tempFiles TempFiles,
	maxFileSize int64,
	showMetadata bool,
	responseCh chan<- domain.Response,
) *transcriptionService {
	return &transcriptionService{
		downloader:   downloader,
		converter:    audioConverter,
		format:       format,
		transcriber:  transcriber,
		tempFiles:    tempFiles,
		maxFileSize:  maxFileSize,
		showMetadata: showMetadata,
		responseCh:   responseCh,
	}
}

// Transcribe runs download, conversion and recognition for one message and
// queues exactly one reply. Temp files never outlive the call.
func (s *transcriptionService) Transcribe(ctx context.Context, req domain.AudioRequest) {
	slog.InfoContext(ctx, "Processing audio", "kind", req.Kind, "size", req.FileSize, "duration", req.Duration)

	result, err := s.process(ctx, req)
	if err != nil {
		respond(ctx, s.responseCh, domain.Response{ChatID: req.ChatID, ReplyToMessageID: req.MessageID, Err: err})
		return
	}

	respond(ctx, s.responseCh, domain.Response{
		ChatID:           req.ChatID,
		ReplyToMessageID: req.MessageID,
		Text:             s.formatText(result),
	})
}

func (s *transcriptionService) process(ctx context.Context, req domain.AudioRequest) (domain.Transcription, error) {
	if req.FileSize > s.maxFileSize {
		return domain.Transcription{}, fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, req.FileSize)
	}

	inputPath := s.tempFiles.NewFilePath(req.Extension())
	convertedPath := s.tempFiles.NewFilePath(s.format.Extension())
	defer s.tempFiles.Remove(inputPath, convertedPath)

	n, err := s.downloader.DownloadFile(ctx, req.FileID, inputPath)
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("downloading audio file: %w", err)
	}
	slog.InfoContext(ctx, "Audio downloaded", "bytes", n)

	if err := s.converter.Convert(ctx, inputPath, convertedPath, s.format); err != nil {
		return domain.Transcription{}, fmt.Errorf("converting audio file: %w", err)
	}

	result, err := s.transcriber.Transcribe(ctx, convertedPath, req.Language)
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("transcribing audio file: %w", err)
	}

	return result, nil
}

func (s *transcriptionService) formatText(result domain.Transcription) string {
	text := strings.TrimSpace(result.Text)
	if text == "" {
		text = domain.NoSpeechMessage
	}
	if !s.showMetadata {
		return text
	}

	lang := result.Language
	if lang == "" {
		lang = "auto"
	}
	return fmt.Sprintf("%s\n\n🌐 %s · 🧠 %s · ⏱ %.1fs", text, lang, result.Model, result.Duration.Round(100*time.Millisecond).Seconds())
}

// respond hands a response to the sender unless the bot is shutting down.
func respond(ctx context.Context, ch chan<- domain.Response, response domain.Response) {
	select {
	case ch <- response:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Dropping response on shutdown", "chatID", response.ChatID)
	}
}
