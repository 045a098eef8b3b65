package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/studyassist/studyassist-backend/pkg/config"
)

// Notifier pushes operational messages to the staff Telegram chat.
type Notifier struct {
	bot    *bot.Bot
	chatID string
}

// NewNotifier builds the Telegram notifier from configuration.
func NewNotifier(cfg config.TelegramConfig) (*Notifier, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("telegram bot token and chat id are required")
	}
	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Notifier{bot: b, chatID: strings.TrimSpace(cfg.ChatID)}, nil
}

// Send delivers a Markdown message to the configured chat. Callers must
// escape user-supplied fragments with bot.EscapeMarkdown.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("telegram notifier not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is required")
	}
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
