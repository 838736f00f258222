// Package whisper runs whisper.cpp models through the official Go binding.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/dskvich/whisper-telegram-bot/pkg/converter"
	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

const autoLanguage = "auto"

type engine struct {
	model whisper.Model
}

// Load reads ggml weights from modelPath. The returned engine must not be
// used from several goroutines at once.
func Load(modelPath string) (*engine, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading whisper model %s: %w", modelPath, err)
	}

	slog.Info("whisper model ready", "path", modelPath, "multilingual", model.IsMultilingual())

	return &engine{model: model}, nil
}

func (e *engine) Transcribe(ctx context.Context, audioPath string, params domain.TranscriptionParams) (domain.Transcription, error) {
	samples, err := converter.DecodeWAV(audioPath)
	if err != nil {
		return domain.Transcription{}, err
	}
	if len(samples) == 0 {
		return domain.Transcription{}, nil
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("creating context: %w", err)
	}

	if params.Threads > 0 {
		wctx.SetThreads(params.Threads)
	}
	wctx.SetTranslate(params.Translate)

	if e.model.IsMultilingual() {
		lang := params.Language
		if lang == "" {
			lang = autoLanguage
		}
		if err := wctx.SetLanguage(lang); err != nil {
			return domain.Transcription{}, fmt.Errorf("setting language %q: %w", lang, err)
		}
	} else if params.Language != "" && params.Language != "en" {
		return domain.Transcription{}, fmt.Errorf("model is English-only, cannot transcribe %q", params.Language)
	}

	keepGoing := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(samples, keepGoing, nil, nil); err != nil {
		return domain.Transcription{}, fmt.Errorf("processing audio: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Transcription{}, err
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Transcription{}, fmt.Errorf("reading segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}
	if lang == autoLanguage {
		lang = ""
	}

	return domain.Transcription{
		Text:     strings.Join(parts, " "),
		Language: lang,
	}, nil
}

func (e *engine) Close() error {
	return e.model.Close()
}
