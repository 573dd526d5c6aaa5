package notifier

import (
	"context"
	"fmt"

	"duetmenu/internal/config"
	"duetmenu/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegramAPI is the slice of tgbotapi.BotAPI the sender needs; tests
// substitute a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender is the alternative push backend: the order digest lands in
// a private chat instead of WeChat.
type TelegramSender struct {
	bot    telegramAPI
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramSender(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	return &TelegramSender{bot: bot, chatID: cfg.ChatID, logger: logger}, nil
}

func (s *TelegramSender) Send(ctx context.Context, record *models.OrderRecord) error {
	text := fmt.Sprintf("*%s*\n\n%s", Title(record), Summary(record))
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = models.ParseModeMarkdown

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	s.logger.Info().Str("order_id", record.ID).Int64("chat_id", s.chatID).Msg("order pushed to telegram")
	return nil
}
