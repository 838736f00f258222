package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
)

const maxMessageLength = 4000

// Commands are advertised to Telegram clients at startup.
var Commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Show welcome message"},
	{Command: "help", Description: "How to use the bot"},
	{Command: "status", Description: "Check bot status"},
	{Command: "model", Description: "Show current model info"},
}

type client struct {
	token        string
	bot          *tgbotapi.BotAPI
	updatesCh    tgbotapi.UpdatesChannel
	fileEndpoint string
	maxFileSize  int64
}

func NewClient(token string, maxFileSize int64) (*client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	return newClient(bot, token, tgbotapi.FileEndpoint, maxFileSize), nil
}

func newClient(bot *tgbotapi.BotAPI, token, fileEndpoint string, maxFileSize int64) *client {
	slog.Info("authorized on telegram", "account", bot.Self.UserName)

	return &client{
		token:        token,
		bot:          bot,
		fileEndpoint: fileEndpoint,
		maxFileSize:  maxFileSize,
	}
}

func (c *client) Username() string {
	return c.bot.Self.UserName
}

// DropPendingUpdates discards updates queued while the bot was offline so a
// restart does not replay a backlog of recordings.
func (c *client) DropPendingUpdates() error {
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("dropping pending updates: %w", err)
	}
	slog.Info("pending updates dropped")
	return nil
}

// GetUpdates starts long polling on first call.
func (c *client) GetUpdates() tgbotapi.UpdatesChannel {
	if c.updatesCh == nil {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		c.updatesCh = c.bot.GetUpdatesChan(u)
	}
	return c.updatesCh
}

func (c *client) Stop() {
	c.bot.StopReceivingUpdates()
}

func (c *client) RegisterCommands() error {
	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(Commands...)); err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	slog.Info("bot commands registered", "commands", lo.Map(Commands, func(c tgbotapi.BotCommand, _ int) string {
		return "/" + c.Command
	}))
	return nil
}

func (c *client) StartTyping(ctx context.Context, chatID int64) {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.WarnContext(ctx, "sending typing action", logger.Err(err))
	}
}

// SendResponse delivers text or, for a failed pipeline, the matching user
// message. Failures are logged: there is nobody left to tell.
func (c *client) SendResponse(ctx context.Context, response *domain.Response) {
	text, mode := response.Text, response.ParseMode
	if response.Err != nil {
		slog.ErrorContext(ctx, "reporting failure to user", logger.Err(response.Err))
		text, mode = domain.UserMessage(response.Err, c.maxFileSize), domain.PlainText
	}

	for i, chunk := range SplitText(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(response.ChatID, chunk)
		msg.ParseMode = string(mode)
		if i == 0 && response.ReplyToMessageID != 0 {
			msg.ReplyToMessageID = response.ReplyToMessageID
			msg.AllowSendingWithoutReply = true
		}

		if _, err := c.bot.Send(msg); err != nil {
			slog.ErrorContext(ctx, "sending message", "chunk", i, logger.Err(fmt.Errorf("%w: %w", domain.ErrReply, err)))
			return
		}
	}
}

// DownloadFile streams a Telegram file to dst and returns the number of bytes written.
func (c *client) DownloadFile(ctx context.Context, fileID, dst string) (int64, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "file is too big") {
			return 0, fmt.Errorf("%w: %w", domain.ErrFileTooLarge, err)
		}
		return 0, fmt.Errorf("%w: getting file: %w", domain.ErrDownload, err)
	}

	if int64(file.FileSize) > c.maxFileSize {
		return 0, fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, file.FileSize)
	}

	link := fmt.Sprintf(c.fileEndpoint, c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: creating request: %w", domain.ErrDownload, err)
	}

	resp, err := c.bot.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: executing request: %w", domain.ErrDownload, err)
	}
	defer func(Body io.ReadCloser) {
		if closeErr := Body.Close(); closeErr != nil {
			slog.ErrorContext(ctx, "closing body", logger.Err(closeErr))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: unexpected status %s", domain.ErrDownload, resp.Status)
	}

	return writeLimited(dst, resp.Body, c.maxFileSize)
}

func writeLimited(dst string, r io.Reader, limit int64) (int64, error) {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("%w: creating %s: %w", domain.ErrDownload, dst, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("%w: saving file: %w", domain.ErrDownload, err)
	}
	if n > limit {
		return n, fmt.Errorf("%w: more than %d bytes", domain.ErrFileTooLarge, limit)
	}

	return n, nil
}
