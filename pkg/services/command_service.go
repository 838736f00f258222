package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
	"github.com/dskvich/whisper-telegram-bot/pkg/models"
)

type ModelState interface {
	Loaded() bool
}

type DiskInfo interface {
	Path() string
	FreeBytes() (uint64, error)
}

type AccessPolicy interface {
	AllowedCount() int
}

// BotSettings is the subset of the configuration the commands report.
type BotSettings struct {
	Engine      string
	Model       string
	Threads     uint
	Language    string
	Translate   bool
	MaxFileSize int64
}

type commandService struct {
	settings   BotSettings
	model      ModelState
	disk       DiskInfo
	access     AccessPolicy
	startedAt  time.Time
	responseCh chan<- domain.Response
}

func NewCommandService(
	settings BotSettings,
	model ModelState,
	disk DiskInfo,
	access AccessPolicy,
	responseCh chan<- domain.Response,
) *commandService {
	return &commandService{
		settings:   settings,
		model:      model,
		disk:       disk,
		access:     access,
		startedAt:  time.Now(),
		responseCh: responseCh,
	}
}

func (s *commandService) SendGreeting(ctx context.Context, chatID int64, messageID int) {
	text := fmt.Sprintf(`👋 <b>Welcome to the Whisper transcription bot!</b>

Send me a voice message or an audio file and I will reply with its text.

⚙️ <b>Current settings</b>
• Model: <code>%s</code>
• Language: %s
• Translate to English: %s

Use /help for details.`,
		html.EscapeString(s.settings.Model),
		html.EscapeString(s.languageLabel()),
		yesNo(s.settings.Translate),
	)

	s.reply(ctx, chatID, messageID, text)
}

func (s *commandService) SendHelp(ctx context.Context, chatID int64, messageID int) {
	text := fmt.Sprintf(`📖 <b>How to use</b>

1. Record a voice message or send an audio file.
2. Wait a moment while it is transcribed.
3. Get the text back as a reply.

🎧 <b>Supported input</b>
Voice notes, audio files (MP3, M4A, OGG, WAV, FLAC and more), audio documents and video notes.

🌐 <b>Language</b>
Add a caption with a language code such as <code>de</code> or <code>lang:fr</code> to skip detection.

📏 <b>Limits</b>
Files up to %d MB.

<b>Commands</b>
/start - welcome message
/help - this help
/status - bot status
/model - model information`,
		s.settings.MaxFileSize/(1024*1024),
	)

	s.reply(ctx, chatID, messageID, text)
}

func (s *commandService) SendStatus(ctx context.Context, chatID int64, messageID int) {
	loaded := "not loaded yet"
	if s.model.Loaded() {
		loaded = "loaded"
	}

	free := "unknown"
	if bytes, err := s.disk.FreeBytes(); err != nil {
		slog.WarnContext(ctx, "Checking free disk space", logger.Err(err))
	} else {
		free = formatBytes(bytes)
	}

	allowed := "everyone"
	if n := s.access.AllowedCount(); n > 0 {
		allowed = fmt.Sprintf("%d chat(s)", n)
	}

	text := fmt.Sprintf(`📊 <b>Bot status</b>

• Status: ✅ online
• Engine: %s
• Model: <code>%s</code> (%s)
• Language: %s
• Temp folder: <code>%s</code>
• Free disk: %s
• Allowed: %s
• Uptime: %s`,
		html.EscapeString(s.settings.Engine),
		html.EscapeString(s.settings.Model),
		loaded,
		html.EscapeString(s.languageLabel()),
		html.EscapeString(s.disk.Path()),
		free,
		allowed,
		time.Since(s.startedAt).Round(time.Second),
	)

	s.reply(ctx, chatID, messageID, text)
}

func (s *commandService) SendModelInfo(ctx context.Context, chatID int64, messageID int) {
	available := lo.Map(models.Known, func(m models.Info, _ int) string {
		return fmt.Sprintf("• <code>%s</code> (%s)", m.Name, m.Size)
	})

	text := fmt.Sprintf(`🧠 <b>Model information</b>

• Model: <code>%s</code>
• Threads: %d
• Language: %s
• Translate to English: %s
• Engine: %s

<b>Available models</b>
%s

Change the model with the WHISPER_MODEL setting.`,
		html.EscapeString(s.settings.Model),
		s.settings.Threads,
		html.EscapeString(s.languageLabel()),
		yesNo(s.settings.Translate),
		html.EscapeString(s.settings.Engine),
		strings.Join(available, "\n"),
	)

	s.reply(ctx, chatID, messageID, text)
}

func (s *commandService) reply(ctx context.Context, chatID int64, messageID int, text string) {
	respond(ctx, s.responseCh, domain.Response{
		ChatID:           chatID,
		ReplyToMessageID: messageID,
		Text:             text,
		ParseMode:        domain.HTML,
	})
}

func (s *commandService) languageLabel() string {
	if s.settings.Language == "" {
		return "auto-detect"
	}
	return s.settings.Language
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
