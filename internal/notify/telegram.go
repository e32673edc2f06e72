// internal/notify/telegram.go
package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/activity"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram pushes activity entries to one chat. Sends happen on a
// background goroutine so a slow Telegram API never stalls trading.
type Telegram struct {
	api    sender
	chatID int64
	queue  chan activity.Entry
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// NewTelegram connects to the bot API and starts the send loop.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	logger.Info("🤖 Telegram bot connected", zap.String("username", api.Self.UserName))
	return newTelegram(api, chatID, logger), nil
}

func newTelegram(api sender, chatID int64, logger *zap.Logger) *Telegram {
	t := &Telegram{
		api:    api,
		chatID: chatID,
		queue:  make(chan activity.Entry, 64),
		done:   make(chan struct{}),
		logger: logger.Named("telegram"),
	}
	go t.loop()
	return t
}

// Notify queues e; entries are dropped when the queue is full.
func (t *Telegram) Notify(e activity.Entry) {
	select {
	case t.queue <- e:
	default:
		t.logger.Warn("Notification queue full, dropping entry", zap.String("type", string(e.Type)))
	}
}

func (t *Telegram) loop() {
	defer close(t.done)
	for e := range t.queue {
		msg := tgbotapi.NewMessage(t.chatID, Format(e))
		if _, err := t.api.Send(msg); err != nil {
			t.logger.Error("Failed to send Telegram message", zap.Error(err))
		}
	}
}

// Close drains queued messages and stops the send loop.
func (t *Telegram) Close() error {
	t.once.Do(func() { close(t.queue) })
	<-t.done
	return nil
}

var icons = map[activity.Kind]string{
	activity.KindBuy:   "🟢",
	activity.KindSell:  "🔴",
	activity.KindInfo:  "ℹ️",
	activity.KindError: "⚠️",
}

// Format renders an entry as a plain text message.
func Format(e activity.Entry) string {
	var b strings.Builder
	if icon, ok := icons[e.Type]; ok {
		b.WriteString(icon)
		b.WriteString(" ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, e.Data[k])
	}
	return b.String()
}
