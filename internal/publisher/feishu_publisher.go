package publisher

import (
	"context"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/internal/notifier"
)

// FeishuPublisher 飞书发布器
type FeishuPublisher struct {
	webhookURL string
}

// NewFeishuPublisher 创建飞书发布器
func NewFeishuPublisher(webhookURL string) *FeishuPublisher {
	return &FeishuPublisher{webhookURL: webhookURL}
}

func (p *FeishuPublisher) GetType() string {
	return "feishu"
}

func (p *FeishuPublisher) Publish(ctx context.Context, events []model.ChangeEvent) error {
	return notifier.SendToLark(ctx, FormatEvents(events), p.webhookURL)
}

func (p *FeishuPublisher) Close() error {
	return nil
}
