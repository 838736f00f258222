package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/dskvich/whisper-telegram-bot/pkg/converter"
	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

const (
	EngineWhisper = "whisper"
	EngineOpenAI  = "openai"

	maxDefaultThreads = 4
)

type Config struct {
	TelegramBotToken               string        `env:"TELEGRAM_BOT_TOKEN,required"`
	AllowedChatIDsRaw              string        `env:"ALLOWED_CHAT_IDS"`
	TelegramUpdateListenerPoolSize int           `env:"TELEGRAM_UPDATE_LISTENER_POOL_SIZE" envDefault:"4"`
	TelegramDropPendingUpdates     bool          `env:"TELEGRAM_DROP_PENDING_UPDATES" envDefault:"true"`
	TmpPath                        string        `env:"TMP_PATH" envDefault:"/tmp/telegram_whisper_bot"`
	TempSweepInterval              time.Duration `env:"TEMP_SWEEP_INTERVAL" envDefault:"30m"`
	TempMaxAge                     time.Duration `env:"TEMP_MAX_AGE" envDefault:"1h"`
	MaxFileSize                    int64         `env:"MAX_FILE_SIZE" envDefault:"20971520"`
	FFmpegPath                     string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	Engine              string `env:"TRANSCRIPTION_ENGINE" envDefault:"whisper"`
	WhisperModel        string `env:"WHISPER_MODEL" envDefault:"base"`
	WhisperThreads      uint   `env:"WHISPER_THREADS" envDefault:"0"`
	WhisperModelsDir    string `env:"WHISPER_MODELS_DIR" envDefault:"models"`
	WhisperAutoDownload bool   `env:"WHISPER_MODEL_AUTO_DOWNLOAD" envDefault:"true"`
	WhisperTranslate    bool   `env:"WHISPER_TRANSLATE" envDefault:"false"`
	AudioLanguage       string `env:"AUDIO_LANGUAGE"`
	OpenAIToken         string `env:"OPEN_AI_TOKEN"`

	ShowMetadata bool `env:"TRANSCRIPT_SHOW_METADATA" envDefault:"false"`

	LogLevel   slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogNoColor bool       `env:"LOG_NO_COLOR" envDefault:"false"`

	AllowedChatIDs []int64 `env:"-"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	return Parse(env.Options{})
}

// Parse builds a validated Config. Tests pass Environment explicitly.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	ids, err := parseChatIDs(c.AllowedChatIDsRaw)
	if err != nil {
		return err
	}
	c.AllowedChatIDs = ids

	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	switch c.Engine {
	case EngineWhisper:
	case EngineOpenAI:
		if c.OpenAIToken == "" {
			return errors.New("OPEN_AI_TOKEN is required for the openai engine")
		}
	default:
		return fmt.Errorf("unknown transcription engine %q", c.Engine)
	}

	if c.WhisperThreads == 0 {
		c.WhisperThreads = uint(min(maxDefaultThreads, runtime.NumCPU()))
	}

	lang := strings.ToLower(strings.TrimSpace(c.AudioLanguage))
	if lang == "auto" {
		lang = ""
	}
	if lang != "" && !domain.IsSupportedLanguage(lang) {
		return fmt.Errorf("unsupported AUDIO_LANGUAGE %q", c.AudioLanguage)
	}
	c.AudioLanguage = lang

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}
	if c.TelegramUpdateListenerPoolSize <= 0 {
		return fmt.Errorf("TELEGRAM_UPDATE_LISTENER_POOL_SIZE must be positive, got %d", c.TelegramUpdateListenerPoolSize)
	}

	return nil
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LanguageLabel renders the default language the way the bot reports it.
func (c *Config) LanguageLabel() string {
	if c.AudioLanguage == "" {
		return "auto"
	}
	return c.AudioLanguage
}

// ConvertFormat is what downloads are normalized to for the configured engine.
// The hosted API caps uploads at 25 MB, which 16 kHz WAV reaches after about
// 13 minutes, so it gets Opus instead.
func (c *Config) ConvertFormat() converter.Format {
	if c.Engine == EngineOpenAI {
		return converter.Opus
	}
	return converter.PCM
}
