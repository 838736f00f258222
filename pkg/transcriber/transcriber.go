package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

// Engine is one loaded speech recognition backend. Implementations are not
// required to be reentrant.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, params domain.TranscriptionParams) (domain.Transcription, error)
	Close() error
}

// Loader builds the engine on first use.
type Loader func(ctx context.Context) (Engine, error)

type Options struct {
	Model     string
	Threads   uint
	Language  string
	Translate bool
}

type Transcriber struct {
	load Loader
	opts Options

	mu     sync.Mutex
	engine Engine
	loaded atomic.Bool
}

func New(load Loader, opts Options) *Transcriber {
	return &Transcriber{
		load: load,
		opts: opts,
	}
}

// Transcribe runs the engine over a normalized audio file. A non-empty
// language is forwarded unchanged; otherwise the configured default is used,
// and an empty result lets the engine detect the language.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, language string) (domain.Transcription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	engine, err := t.ensureLoaded(ctx)
	if err != nil {
		return domain.Transcription{}, err
	}

	params := domain.TranscriptionParams{
		Language:  t.opts.Language,
		Threads:   t.opts.Threads,
		Translate: t.opts.Translate,
	}
	if language != "" {
		params.Language = language
	}

	slog.InfoContext(ctx, "Transcribing audio", "model", t.opts.Model, "language", params.Language, "threads", params.Threads)

	start := time.Now()
	result, err := engine.Transcribe(ctx, audioPath, params)
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("%w: %w", domain.ErrTranscription, err)
	}

	result.Text = strings.TrimSpace(result.Text)
	result.Model = t.opts.Model
	result.Duration = time.Since(start)
	if result.Language == "" {
		result.Language = params.Language
	}

	slog.InfoContext(ctx, "Transcription finished", "chars", len(result.Text), "language", result.Language, "took", result.Duration)

	return result, nil
}

func (t *Transcriber) ensureLoaded(ctx context.Context) (Engine, error) {
	if t.engine != nil {
		return t.engine, nil
	}

	slog.InfoContext(ctx, "Loading speech recognition model", "model", t.opts.Model)

	engine, err := t.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading model %s: %w", domain.ErrTranscription, t.opts.Model, err)
	}
	t.engine = engine
	t.loaded.Store(true)

	slog.InfoContext(ctx, "Model loaded", "model", t.opts.Model)

	return engine, nil
}

// Preload loads the model ahead of the first message.
func (t *Transcriber) Preload(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.ensureLoaded(ctx)
	return err
}

// Loaded reports whether the model is in memory without waiting for a running inference.
func (t *Transcriber) Loaded() bool {
	return t.loaded.Load()
}

func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.engine == nil {
		return nil
	}
	err := t.engine.Close()
	t.engine = nil
	t.loaded.Store(false)
	return err
}
