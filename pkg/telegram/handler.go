package telegram

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

type TranscriptionService interface {
	Transcribe(ctx context.Context, req domain.AudioRequest)
}

type CommandService interface {
	SendGreeting(ctx context.Context, chatID int64, messageID int)
	SendHelp(ctx context.Context, chatID int64, messageID int)
	SendStatus(ctx context.Context, chatID int64, messageID int)
	SendModelInfo(ctx context.Context, chatID int64, messageID int)
}

type handler struct {
	botUsername          string
	transcriptionService TranscriptionService
	commandService       CommandService
}

func NewHandler(
	botUsername string,
	transcriptionService TranscriptionService,
	commandService CommandService,
) *handler {
	return &handler{
		botUsername:          botUsername,
		transcriptionService: transcriptionService,
		commandService:       commandService,
	}
}

// Accepts reports whether the bot answers the update at all: audio, or one of
// its own commands that is not addressed to another bot. Everything else is
// dropped without a reply, also in chats outside the allow-list.
func (h *handler) Accepts(update *tgbotapi.Update) bool {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return false
	}
	if msg.IsCommand() {
		_, ok := h.command(msg)
		return ok
	}
	return IsAudio(update)
}

func (h *handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	if req, ok := AudioRequestFromUpdate(update); ok {
		h.transcriptionService.Transcribe(ctx, req)
		return
	}

	slog.DebugContext(ctx, "Ignoring message without audio")
}

func (h *handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID, messageID := msg.Chat.ID, msg.MessageID

	cmd, ok := h.command(msg)
	if !ok {
		slog.DebugContext(ctx, "Ignoring command", "cmd", msg.CommandWithAt())
		return
	}

	switch cmd {
	case "start":
		h.commandService.SendGreeting(ctx, chatID, messageID)
	case "help":
		h.commandService.SendHelp(ctx, chatID, messageID)
	case "status":
		h.commandService.SendStatus(ctx, chatID, messageID)
	case "model":
		h.commandService.SendModelInfo(ctx, chatID, messageID)
	}
}

// command returns the lower-cased command name when it is one of ours and is
// either unaddressed or addressed to this bot.
func (h *handler) command(msg *tgbotapi.Message) (string, bool) {
	name, target, _ := strings.Cut(msg.CommandWithAt(), "@")
	if target != "" && h.botUsername != "" && !strings.EqualFold(target, h.botUsername) {
		return "", false
	}

	name = strings.ToLower(name)
	return name, lo.ContainsBy(Commands, func(c tgbotapi.BotCommand) bool { return c.Command == name })
}

// IsAudio reports whether the update carries something the pipeline can transcribe.
func IsAudio(update *tgbotapi.Update) bool {
	_, ok := AudioRequestFromUpdate(update)
	return ok
}

// AudioRequestFromUpdate extracts the transcription unit of work from a voice
// note, audio file, video note or audio document.
func AudioRequestFromUpdate(update *tgbotapi.Update) (domain.AudioRequest, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return domain.AudioRequest{}, false
	}

	req := domain.AudioRequest{
		UpdateID:  update.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Language:  captionLanguage(msg.Caption),
	}
	if msg.From != nil {
		req.UserID = msg.From.ID
	}

	switch {
	case msg.Voice != nil:
		req.Kind = domain.AudioKindVoice
		req.FileID = msg.Voice.FileID
		req.MimeType = msg.Voice.MimeType
		req.FileSize = int64(msg.Voice.FileSize)
		req.Duration = msg.Voice.Duration
	case msg.Audio != nil:
		req.Kind = domain.AudioKindAudio
		req.FileID = msg.Audio.FileID
		req.FileName = msg.Audio.FileName
		req.MimeType = msg.Audio.MimeType
		req.FileSize = int64(msg.Audio.FileSize)
		req.Duration = msg.Audio.Duration
	case msg.VideoNote != nil:
		req.Kind = domain.AudioKindVideoNote
		req.FileID = msg.VideoNote.FileID
		req.FileSize = int64(msg.VideoNote.FileSize)
		req.Duration = msg.VideoNote.Duration
	case msg.Document != nil && strings.HasPrefix(strings.ToLower(msg.Document.MimeType), "audio/"):
		req.Kind = domain.AudioKindDocument
		req.FileID = msg.Document.FileID
		req.FileName = msg.Document.FileName
		req.MimeType = msg.Document.MimeType
		req.FileSize = int64(msg.Document.FileSize)
	default:
		return domain.AudioRequest{}, false
	}

	return req, true
}

var languageCaption = regexp.MustCompile(`^(?:lang[:=]\s*)?([a-z]{2,3})$`)

// captionLanguage lets users force a language by captioning the audio with a
// bare code such as "de" or "lang:de".
func captionLanguage(caption string) string {
	m := languageCaption.FindStringSubmatch(strings.ToLower(strings.TrimSpace(caption)))
	if m == nil || !domain.IsSupportedLanguage(m[1]) {
		return ""
	}
	return m[1]
}
