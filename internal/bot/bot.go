package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/internal/logger"
)

// Bot answers chat commands that link a Telegram chat to a learner account
type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	repos     *database.Repositories
	threshold int
	log       *logger.Logger
}

// New authorizes against the Telegram API
func New(token string, repos *database.Repositories, masteryThreshold int, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	log.Info("telegram bot authorized", "account", api.Self.UserName)
	return &Bot{api: api, out: api, repos: repos, threshold: masteryThreshold, log: log}, nil
}

// Notifier returns a streak notifier sharing the bot's connection
func (b *Bot) Notifier() *Notifier {
	return newNotifier(b.out, b.log)
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if err := b.HandleCommand(ctx, update.Message.Chat.ID, update.Message.Command(), update.Message.CommandArguments()); err != nil {
				b.log.Warn("command failed", "command", update.Message.Command(), "error", err)
			}
		}
	}
}

// HandleCommand processes a single chat command
func (b *Bot) HandleCommand(ctx context.Context, chatID int64, command, args string) error {
	switch command {
	case "start", "help":
		return b.reply(chatID, "Привет! Отправьте /link <id>, чтобы получать уведомления о серии, "+
			"/streak: текущая серия, /stats: статистика.")
	case "link":
		return b.handleLink(ctx, chatID, strings.TrimSpace(args))
	case "streak", "stats":
		return b.handleStats(ctx, chatID)
	default:
		return b.reply(chatID, "Неизвестная команда. Отправьте /help.")
	}
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, args string) error {
	var userID int64
	if _, err := fmt.Sscan(args, &userID); err != nil || userID <= 0 {
		return b.reply(chatID, "Использование: /link <id пользователя>")
	}
	if err := b.repos.Users.SetTelegramChatID(ctx, userID, &chatID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return b.reply(chatID, "Пользователь не найден.")
		}
		return err
	}
	return b.reply(chatID, "✅ Чат привязан. Уведомления о серии включены.")
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	user, err := b.repos.Users.GetByTelegramChatID(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) {
		return b.reply(chatID, "Чат не привязан. Отправьте /link <id>.")
	}
	if err != nil {
		return err
	}
	stats, err := b.repos.Stats.GetUserStats(ctx, user.ID, time.Now(), b.threshold)
	if err != nil {
		return err
	}

	var text strings.Builder
	text.WriteString("📊 Ваша статистика\n\n")
	fmt.Fprintf(&text, "Серия: %d %s", stats.CurrentStreak, pluralDays(stats.CurrentStreak))
	if stats.StreakFrozen {
		text.WriteString(" (заморожена)")
	}
	fmt.Fprintf(&text, "\nЛучшая серия: %d\n", stats.LongestStreak)
	fmt.Fprintf(&text, "Карточек: %d, освоено: %d, к повторению: %d\n", stats.CardsTotal, stats.Mastered, stats.DueToday)
	fmt.Fprintf(&text, "Средний фактор лёгкости: %.2f", stats.AvgEaseFactor)
	return b.reply(chatID, text.String())
}

func (b *Bot) reply(chatID int64, text string) error {
	_, err := b.out.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
