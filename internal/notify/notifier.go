package notify

import (
	"context"
	"fmt"

	"heat_engine/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Send(ctx context.Context, msg string)
	SendF(ctx context.Context, format string, args ...any)
}

// Telegram — пассивный нотифайер: открытия/закрытия сделок и смена
// состояния движка. Nil-safe: без токена движок живёт молча.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil // нотификации выключены
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(ctx context.Context, msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[NOTIFY] telegram send: %v", err)
	}
	_ = ctx
}

func (t *Telegram) SendF(ctx context.Context, format string, args ...any) {
	if t == nil {
		return
	}
	t.Send(ctx, fmt.Sprintf(format, args...))
}
