package publisher

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/pkg/errors"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/logger"
)

// TelegramPublisher 推送到一个或多个 Telegram 会话
type TelegramPublisher struct {
	bot     *bot.Bot
	chatIDs []string
}

// NewTelegramPublisher 创建 Telegram 发布器，不在启动时调用 getMe
func NewTelegramPublisher(token string, chatIDs []string, opts ...bot.Option) (*TelegramPublisher, error) {
	if token == "" {
		return nil, errors.New("telegram bot token 为空")
	}
	ids := make([]string, 0, len(chatIDs))
	for _, id := range chatIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("telegram chat id 为空")
	}

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "创建 telegram bot 失败")
	}
	return &TelegramPublisher{bot: b, chatIDs: ids}, nil
}

func (p *TelegramPublisher) GetType() string {
	return "telegram"
}

// Publish 至少一个会话发送成功即视为成功
func (p *TelegramPublisher) Publish(ctx context.Context, events []model.ChangeEvent) error {
	text := FormatEvents(events)
	if text == "" {
		return nil
	}

	var lastErr error
	sent := 0
	for _, chatID := range p.chatIDs {
		_, err := p.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err != nil {
			logger.Warn("⚠️ 发送 telegram 消息失败", logger.String("chat_id", chatID), logger.FieldErr(err))
			lastErr = err
			continue
		}
		sent++
	}

	if sent == 0 && lastErr != nil {
		return fmt.Errorf("发送 telegram 消息到所有会话均失败: %w", lastErr)
	}
	return nil
}

func (p *TelegramPublisher) Close() error {
	return nil
}
