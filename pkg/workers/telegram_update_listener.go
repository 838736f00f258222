package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
	"github.com/dskvich/whisper-telegram-bot/pkg/telegram"
)

type Handler interface {
	Accepts(update *tgbotapi.Update) bool
	HandleUpdate(ctx context.Context, update *tgbotapi.Update)
}

type Authenticator interface {
	IsAuthorized(chatID int64) bool
}

type TelegramClient interface {
	GetUpdates() tgbotapi.UpdatesChannel
	SendResponse(ctx context.Context, response *domain.Response)
	StartTyping(ctx context.Context, chatID int64)
	Stop()
}

type telegramUpdateListener struct {
	client        TelegramClient
	authenticator Authenticator
	handler       Handler
	responseCh    <-chan domain.Response
	pool          chan struct{}
	wg            sync.WaitGroup
}

func NewTelegramUpdateListener(
	client TelegramClient,
	authenticator Authenticator,
	handler Handler,
	responseCh <-chan domain.Response,
	poolSize int,
) (*telegramUpdateListener, error) {
	if poolSize <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", poolSize)
	}

	return &telegramUpdateListener{
		client:        client,
		authenticator: authenticator,
		handler:       handler,
		responseCh:    responseCh,
		pool:          make(chan struct{}, poolSize),
	}, nil
}

func (t *telegramUpdateListener) Name() string { return "telegram_listener_worker" }

func (t *telegramUpdateListener) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", t.Name())
	defer slog.Info("Worker stopped", "name", t.Name())

	updates := t.client.GetUpdates()

	for {
		select {
		case <-ctx.Done():
			t.client.Stop()
			t.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				t.wg.Wait()
				return errors.New("updates channel closed")
			}
			t.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer t.wg.Done()
				t.processUpdate(ctx, &update)
			}(update)
		case response := <-t.responseCh:
			t.client.SendResponse(ctx, &response)
		}
	}
}

func (t *telegramUpdateListener) processUpdate(ctx context.Context, update *tgbotapi.Update) {
	ctx = logger.ContextWithUpdateID(ctx, update.UpdateID)

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		slog.DebugContext(ctx, "Skipping update without message")
		return
	}
	chatID := msg.Chat.ID
	ctx = logger.ContextWithChatID(ctx, chatID)

	if !t.handler.Accepts(update) {
		slog.DebugContext(ctx, "Skipping update the bot does not answer")
		return
	}

	select {
	case t.pool <- struct{}{}:
		defer func() { <-t.pool }()
	case <-ctx.Done():
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Panic while processing update", "panic", r, "stack", string(debug.Stack()))
			t.client.SendResponse(ctx, &domain.Response{
				ChatID:           chatID,
				ReplyToMessageID: msg.MessageID,
				Err:              fmt.Errorf("panic: %v", r),
			})
		}
	}()

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	slog.InfoContext(ctx, "Processing update", "chatID", chatID, "userID", userID)

	if !t.authenticator.IsAuthorized(chatID) {
		slog.WarnContext(ctx, "Unauthorized access attempt", "chatID", chatID, "userID", userID)
		t.client.SendResponse(ctx, &domain.Response{
			ChatID:           chatID,
			ReplyToMessageID: msg.MessageID,
			Err:              fmt.Errorf("%w: chat %d", domain.ErrPermissionDenied, chatID),
		})
		return
	}

	if telegram.IsAudio(update) {
		t.client.StartTyping(ctx, chatID)
	}

	t.handler.HandleUpdate(ctx, update)
}
