package auth

import (
	"log/slog"

	"github.com/samber/lo"
)

type authenticator struct {
	allowedChatIDs []int64
}

// NewAuthenticator builds the chat allow-list filter. An empty list lets every chat through.
func NewAuthenticator(allowedChatIDs []int64) *authenticator {
	if len(allowedChatIDs) == 0 {
		slog.Warn("no allowed chats configured, every chat may use the bot")
	} else {
		slog.Info("telegram allowed chat IDs", "chat_ids", allowedChatIDs)
	}

	return &authenticator{
		allowedChatIDs: lo.Uniq(allowedChatIDs),
	}
}

func (a *authenticator) IsAuthorized(chatID int64) bool {
	if len(a.allowedChatIDs) == 0 {
		return true
	}
	return lo.Contains(a.allowedChatIDs, chatID)
}

func (a *authenticator) AllowedCount() int {
	return len(a.allowedChatIDs)
}
