package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

type audioAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateTranslation(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type audioClient struct {
	api audioAPI
}

// NewAudioClient transcribes through the hosted whisper-1 model.
func NewAudioClient(token string) (*audioClient, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}
	return &audioClient{
		api: openai.NewClient(token),
	}, nil
}

func (c *audioClient) Transcribe(ctx context.Context, audioPath string, params domain.TranscriptionParams) (domain.Transcription, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	if params.Translate {
		resp, err = c.api.CreateTranslation(ctx, req)
	} else {
		req.Language = params.Language
		resp, err = c.api.CreateTranscription(ctx, req)
	}
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("creating transcription: %w", err)
	}

	return domain.Transcription{
		Text:     resp.Text,
		Language: languageCode(resp.Language),
	}, nil
}

func (c *audioClient) Close() error { return nil }

// whisper-1 reports languages by English name in verbose output.
var languageCodes = map[string]string{
	"english":    "en",
	"russian":    "ru",
	"german":     "de",
	"spanish":    "es",
	"french":     "fr",
	"italian":    "it",
	"portuguese": "pt",
	"ukrainian":  "uk",
	"polish":     "pl",
	"dutch":      "nl",
	"turkish":    "tr",
	"japanese":   "ja",
	"chinese":    "zh",
	"korean":     "ko",
	"arabic":     "ar",
	"hindi":      "hi",
}

func languageCode(name string) string {
	if code, ok := languageCodes[name]; ok {
		return code
	}
	return name
}
