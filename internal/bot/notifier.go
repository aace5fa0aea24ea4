package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/flashstack/internal/logger"
	"github.com/example/flashstack/pkg/models"
)

// sender is the part of *tgbotapi.BotAPI the bot uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends streak notifications to users with a linked Telegram chat
type Notifier struct {
	api sender
	log *logger.Logger
}

// NewNotifier creates a notifier over an authorized bot API
func NewNotifier(api *tgbotapi.BotAPI, log *logger.Logger) *Notifier {
	return newNotifier(api, log)
}

func newNotifier(api sender, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{api: api, log: log}
}

// StreakReset implements sweep.Notifier
func (n *Notifier) StreakReset(ctx context.Context, user models.User, lost int) error {
	text := fmt.Sprintf("💔 Серия прервана: %d %s подряд. Лучший результат: %d. Начните новую серию сегодня!",
		lost, pluralDays(lost), max(user.LongestStreak, lost))
	return n.send(user, text)
}

// StreakFrozen implements sweep.Notifier
func (n *Notifier) StreakFrozen(ctx context.Context, user models.User) error {
	text := fmt.Sprintf("🧊 Серия %d %s заморожена: срок теста по освоенной колоде истёк. "+
		"Пройдите тест, чтобы разморозить её.", user.CurrentStreak, pluralDays(user.CurrentStreak))
	return n.send(user, text)
}

func (n *Notifier) send(user models.User, text string) error {
	if user.TelegramChatID == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(*user.TelegramChatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send to user %d: %w", user.ID, err)
	}
	n.log.Debug("notification sent", "user_id", user.ID)
	return nil
}

// pluralDays picks the Russian plural form of "день"
func pluralDays(n int) string {
	n = abs(n) % 100
	switch {
	case n%10 == 1 && n != 11:
		return "день"
	case n%10 >= 2 && n%10 <= 4 && (n < 12 || n > 14):
		return "дня"
	default:
		return "дней"
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
