package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dskvich/whisper-telegram-bot/pkg/auth"
	"github.com/dskvich/whisper-telegram-bot/pkg/config"
	"github.com/dskvich/whisper-telegram-bot/pkg/converter"
	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
	"github.com/dskvich/whisper-telegram-bot/pkg/models"
	"github.com/dskvich/whisper-telegram-bot/pkg/openai"
	"github.com/dskvich/whisper-telegram-bot/pkg/services"
	"github.com/dskvich/whisper-telegram-bot/pkg/storage"
	"github.com/dskvich/whisper-telegram-bot/pkg/telegram"
	"github.com/dskvich/whisper-telegram-bot/pkg/transcriber"
	"github.com/dskvich/whisper-telegram-bot/pkg/whisper"
	"github.com/dskvich/whisper-telegram-bot/pkg/workers"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.NewOptions(cfg.LogLevel, cfg.LogNoColor))))

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	workerGroup, stt, err := setupWorkers(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stt.Close(); err != nil {
			slog.Error("closing model", logger.Err(err))
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func setupWorkers(ctx context.Context, cfg *config.Config) (workers.Group, *transcriber.Transcriber, error) {
	var workerGroup workers.Group

	telegramClient, err := telegram.NewClient(cfg.TelegramBotToken, cfg.MaxFileSize)
	if err != nil {
		return nil, nil, fmt.Errorf("creating telegram client: %w", err)
	}
	if err := telegramClient.RegisterCommands(); err != nil {
		slog.Warn("registering bot commands", logger.Err(err))
	}
	if cfg.TelegramDropPendingUpdates {
		if err := telegramClient.DropPendingUpdates(); err != nil {
			slog.Warn("dropping pending updates", logger.Err(err))
		}
	}

	authenticator := auth.NewAuthenticator(cfg.AllowedChatIDs)

	tempDir, err := storage.NewTempDir(cfg.TmpPath)
	if err != nil {
		return nil, nil, err
	}
	if removed, err := tempDir.Sweep(0); err != nil {
		slog.Warn("cleaning temp dir", logger.Err(err))
	} else if removed > 0 {
		slog.Info("removed leftover temp files", "count", removed)
	}

	ffmpeg := converter.NewFFmpeg(cfg.FFmpegPath)
	if err := ffmpeg.Available(ctx); err != nil {
		slog.Warn("ffmpeg is not available, audio conversion will fail", logger.Err(err))
	}

	stt := transcriber.New(engineLoader(cfg), transcriber.Options{
		Model:     cfg.WhisperModel,
		Threads:   cfg.WhisperThreads,
		Language:  cfg.AudioLanguage,
		Translate: cfg.WhisperTranslate,
	})
	go func() {
		if err := stt.Preload(ctx); err != nil {
			slog.Error("preloading model", "model", cfg.WhisperModel, logger.Err(err))
		}
	}()

	responseCh := make(chan domain.Response)

	transcriptionService := services.NewTranscriptionService(
		telegramClient,
		ffmpeg,
		cfg.ConvertFormat(),
		stt,
		tempDir,
		cfg.MaxFileSize,
		cfg.ShowMetadata,
		responseCh,
	)

	commandService := services.NewCommandService(
		services.BotSettings{
			Engine:      cfg.Engine,
			Model:       cfg.WhisperModel,
			Threads:     cfg.WhisperThreads,
			Language:    cfg.AudioLanguage,
			Translate:   cfg.WhisperTranslate,
			MaxFileSize: cfg.MaxFileSize,
		},
		stt,
		tempDir,
		authenticator,
		responseCh,
	)

	handler := telegram.NewHandler(
		telegramClient.Username(),
		transcriptionService,
		commandService,
	)

	if worker, err := workers.
		NewTelegramUpdateListener(
			telegramClient,
			authenticator,
			handler,
			responseCh,
			cfg.TelegramUpdateListenerPoolSize,
		); err == nil {
		workerGroup = append(workerGroup, worker)
	} else {
		return nil, nil, err
	}

	workerGroup = append(workerGroup, workers.NewTempSweeper(tempDir, cfg.TempSweepInterval, cfg.TempMaxAge))

	slog.Info("bot configured",
		"engine", cfg.Engine,
		"model", cfg.WhisperModel,
		"threads", cfg.WhisperThreads,
		"language", cfg.LanguageLabel(),
		"format", cfg.ConvertFormat(),
		"tmpPath", tempDir.Path(),
	)

	return workerGroup, stt, nil
}

// engineLoader picks the speech backend. The local model is resolved, and
// downloaded if needed, only when the loader first runs.
func engineLoader(cfg *config.Config) transcriber.Loader {
	if cfg.Engine == config.EngineOpenAI {
		return func(context.Context) (transcriber.Engine, error) {
			client, err := openai.NewAudioClient(cfg.OpenAIToken)
			if err != nil {
				return nil, fmt.Errorf("creating open ai client: %w", err)
			}
			return client, nil
		}
	}

	store := models.NewStore(cfg.WhisperModelsDir, cfg.WhisperAutoDownload)
	return func(ctx context.Context) (transcriber.Engine, error) {
		path, err := store.Resolve(ctx, cfg.WhisperModel)
		if err != nil {
			return nil, err
		}
		engine, err := whisper.Load(path)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}
