package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"boss_alert_bot/internal/domain/chat"

	"gopkg.in/telebot.v3"
)

// NewBot builds a send-only bot. It never polls for updates.
func NewBot(token string) (*telebot.Bot, error) {
	return telebot.NewBot(telebot.Settings{
		Token:  token,
		Client: newHTTPClient(),
	})
}

// TelebotAdapter implements chat.Publisher using the gopkg.in/telebot.v3 library.
// Channel ids are Telegram chat ids in decimal form.
type TelebotAdapter struct {
	bot *telebot.Bot
}

var _ chat.Publisher = (*TelebotAdapter)(nil)

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

func parseChatID(channelID string) (int64, error) {
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", channelID, err)
	}
	return id, nil
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	chatID, err := parseChatID(channelID)
	if err != nil {
		return "", err
	}
	msg, err := tba.bot.Send(&telebot.Chat{ID: chatID}, text, &telebot.SendOptions{DisableWebPagePreview: true})
	if err != nil {
		return "", err
	}
	return strconv.Itoa(msg.ID), nil
}

func (tba *TelebotAdapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseChatID(channelID)
	if err != nil {
		return err
	}
	err = tba.bot.Delete(&telebot.StoredMessage{MessageID: messageID, ChatID: chatID})
	if errors.Is(err, telebot.ErrNotFoundToDelete) {
		return fmt.Errorf("%w: %v", chat.ErrNotFound, err)
	}
	return err
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
