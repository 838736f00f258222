package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dskvich/whisper-telegram-bot/pkg/converter"
	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
	"github.com/dskvich/whisper-telegram-bot/pkg/storage"
)

type fakeDownloader struct {
	err  error
	seen []string
}

func (d *fakeDownloader) DownloadFile(_ context.Context, _ string, dst string) (int64, error) {
	d.seen = append(d.seen, dst)
	if d.err != nil {
		return 0, d.err
	}
	if err := os.WriteFile(dst, []byte("OggS"), 0o600); err != nil {
		return 0, err
	}
	return 4, nil
}

type fakeConverter struct {
	err     error
	formats []converter.Format
	outputs []string
}

func (c *fakeConverter) Convert(_ context.Context, _, out string, format converter.Format) error {
	c.formats = append(c.formats, format)
	c.outputs = append(c.outputs, out)
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(out, []byte("RIFF"), 0o600)
}

type fakeTranscriber struct {
	result    domain.Transcription
	err       error
	calls     int
	languages []string
	paths     []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string, language string) (domain.Transcription, error) {
	f.calls++
	f.languages = append(f.languages, language)
	f.paths = append(f.paths, path)
	return f.result, f.err
}

func voiceRequest() domain.AudioRequest {
	return domain.AudioRequest{
		UpdateID:  7,
		ChatID:    111,
		UserID:    42,
		MessageID: 5,
		Kind:      domain.AudioKindVoice,
		FileID:    "voice-file",
		FileSize:  1024,
		Duration:  3,
	}
}

func newTempDir(t *testing.T) *storage.TempDir {
	t.Helper()
	dir, err := storage.NewTempDir(t.TempDir())
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	return dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected temp dir to be empty, found %v", names)
	}
}

func TestTranscribeRepliesWithText(t *testing.T) {
	tmp := newTempDir(t)
	stt := &fakeTranscriber{result: domain.Transcription{Text: "hello world", Model: "base"}}
	responses := make(chan domain.Response, 1)

	svc := NewTranscriptionService(&fakeDownloader{}, &fakeConverter{}, converter.PCM, stt, tmp, 20<<20, false, responses)
	svc.Transcribe(context.Background(), voiceRequest())

	got := <-responses
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if got.Text != "hello world" {
		t.Errorf("expected text %q, got %q", "hello world", got.Text)
	}
	if got.ChatID != 111 || got.ReplyToMessageID != 5 {
		t.Errorf("reply addressed to chat %d message %d", got.ChatID, got.ReplyToMessageID)
	}
	if got.ParseMode != domain.PlainText {
		t.Errorf("transcripts must be sent as plain text, got %q", got.ParseMode)
	}
	assertEmptyDir(t, tmp.Path())
}

func TestTranscribeForwardsCaptionLanguage(t *testing.T) {
	stt := &fakeTranscriber{result: domain.Transcription{Text: "hallo"}}
	responses := make(chan domain.Response, 1)
	req := voiceRequest()
	req.Language = "de"

	NewTranscriptionService(&fakeDownloader{}, &fakeConverter{}, converter.PCM, stt, newTempDir(t), 20<<20, false, responses).
		Transcribe(context.Background(), req)
	<-responses

	if len(stt.languages) != 1 || stt.languages[0] != "de" {
		t.Errorf("expected language [de], got %v", stt.languages)
	}
}

func TestTranscribeMissingConverter(t *testing.T) {
	tmp := newTempDir(t)
	dl := &fakeDownloader{}
	stt := &fakeTranscriber{}
	responses := make(chan domain.Response, 2)
	ffmpeg := converter.NewFFmpeg(filepath.Join(t.TempDir(), "no-such-ffmpeg"))

	NewTranscriptionService(dl, ffmpeg, converter.PCM, stt, tmp, 20<<20, false, responses).
		Transcribe(context.Background(), voiceRequest())

	if len(responses) != 1 {
		t.Fatalf("expected exactly one response, got %d", len(responses))
	}
	got := <-responses
	if !errors.Is(got.Err, domain.ErrConversion) {
		t.Errorf("expected conversion error, got %v", got.Err)
	}
	if stt.calls != 0 {
		t.Errorf("transcriber must not run after a failed conversion")
	}
	if len(dl.seen) != 1 {
		t.Fatalf("expected one download, got %d", len(dl.seen))
	}
	if _, err := os.Stat(dl.seen[0]); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("downloaded file %s was not removed", dl.seen[0])
	}
	assertEmptyDir(t, tmp.Path())
}

func TestTranscribeCleansUpOnEveryFailure(t *testing.T) {
	tests := []struct {
		name        string
		downloader  *fakeDownloader
		converter   *fakeConverter
		transcriber *fakeTranscriber
		expected    error
	}{
		{
			name:        "download",
			downloader:  &fakeDownloader{err: domain.ErrDownload},
			converter:   &fakeConverter{},
			transcriber: &fakeTranscriber{},
			expected:    domain.ErrDownload,
		},
		{
			name:        "conversion",
			downloader:  &fakeDownloader{},
			converter:   &fakeConverter{err: domain.ErrConversion},
			transcriber: &fakeTranscriber{},
			expected:    domain.ErrConversion,
		},
		{
			name:        "transcription",
			downloader:  &fakeDownloader{},
			converter:   &fakeConverter{},
			transcriber: &fakeTranscriber{err: domain.ErrTranscription},
			expected:    domain.ErrTranscription,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tmp := newTempDir(t)
			responses := make(chan domain.Response, 1)

			NewTranscriptionService(test.downloader, test.converter, converter.PCM, test.transcriber, tmp, 20<<20, false, responses).
				Transcribe(context.Background(), voiceRequest())

			got := <-responses
			if !errors.Is(got.Err, test.expected) {
				t.Errorf("expected %v, got %v", test.expected, got.Err)
			}
			assertEmptyDir(t, tmp.Path())
		})
	}
}

func TestTranscribeRejectsOversizedFile(t *testing.T) {
	dl := &fakeDownloader{}
	responses := make(chan domain.Response, 1)
	req := voiceRequest()
	req.FileSize = 30 << 20

	NewTranscriptionService(dl, &fakeConverter{}, converter.PCM, &fakeTranscriber{}, newTempDir(t), 20<<20, false, responses).
		Transcribe(context.Background(), req)

	got := <-responses
	if !errors.Is(got.Err, domain.ErrFileTooLarge) {
		t.Errorf("expected file too large, got %v", got.Err)
	}
	if len(dl.seen) != 0 {
		t.Errorf("oversized files must not be downloaded")
	}
}

func TestTranscribeEmptyResult(t *testing.T) {
	responses := make(chan domain.Response, 1)
	stt := &fakeTranscriber{result: domain.Transcription{Text: "  "}}

	NewTranscriptionService(&fakeDownloader{}, &fakeConverter{}, converter.PCM, stt, newTempDir(t), 20<<20, false, responses).
		Transcribe(context.Background(), voiceRequest())

	if got := <-responses; got.Text != domain.NoSpeechMessage {
		t.Errorf("expected no speech notice, got %q", got.Text)
	}
}

func TestTranscribeMetadataFooter(t *testing.T) {
	responses := make(chan domain.Response, 1)
	stt := &fakeTranscriber{result: domain.Transcription{
		Text:     "bonjour",
		Language: "fr",
		Model:    "small",
		Duration: 1500 * time.Millisecond,
	}}

	NewTranscriptionService(&fakeDownloader{}, &fakeConverter{}, converter.PCM, stt, newTempDir(t), 20<<20, true, responses).
		Transcribe(context.Background(), voiceRequest())

	got := <-responses
	if !strings.HasPrefix(got.Text, "bonjour\n\n") {
		t.Errorf("expected transcript first, got %q", got.Text)
	}
	for _, want := range []string{"fr", "small", "1.5s"} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("expected footer to contain %q, got %q", want, got.Text)
		}
	}
}

func TestTranscribeDropsResponseOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewTranscriptionService(&fakeDownloader{}, &fakeConverter{}, converter.PCM, &fakeTranscriber{}, newTempDir(t), 20<<20, false, make(chan domain.Response))

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Transcribe(ctx, voiceRequest())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Transcribe blocked on a cancelled context")
	}
}

func TestTranscribeUsesConfiguredFormat(t *testing.T) {
	conv := &fakeConverter{}
	stt := &fakeTranscriber{result: domain.Transcription{Text: "hi"}}
	responses := make(chan domain.Response, 1)

	NewTranscriptionService(&fakeDownloader{}, conv, converter.Opus, stt, newTempDir(t), 20<<20, false, responses).
		Transcribe(context.Background(), voiceRequest())
	<-responses

	if len(conv.formats) != 1 || conv.formats[0] != converter.Opus {
		t.Fatalf("expected one opus conversion, got %v", conv.formats)
	}
	if filepath.Ext(conv.outputs[0]) != ".ogg" {
		t.Errorf("expected .ogg output, got %s", conv.outputs[0])
	}
	if len(stt.paths) != 1 || stt.paths[0] != conv.outputs[0] {
		t.Errorf("transcriber must receive the converted file, got %v", stt.paths)
	}
}
