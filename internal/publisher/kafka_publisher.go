package publisher

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/mq/kafka"
)

// KafkaPublisher 每个事件一条 JSON 消息，按钱包地址分区
type KafkaPublisher struct {
	producer *kafka.KafkaProducer
	topic    string
}

// NewKafkaPublisher 创建 kafka 发布器，Close 时关闭 producer
func NewKafkaPublisher(producer *kafka.KafkaProducer, topic string) (*KafkaPublisher, error) {
	if producer == nil {
		return nil, errors.New("kafka producer 为空")
	}
	if topic == "" {
		return nil, errors.New("kafka topic 为空")
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaPublisher) GetType() string {
	return "kafka"
}

func (p *KafkaPublisher) Publish(_ context.Context, events []model.ChangeEvent) error {
	keys := make([]string, 0, len(events))
	values := make([][]byte, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return errors.Wrapf(err, "序列化变化事件失败, id=%s", e.ID)
		}
		keys = append(keys, e.Wallet)
		values = append(values, payload)
	}
	if err := p.producer.SendMessages(p.topic, keys, values); err != nil {
		return errors.Wrapf(err, "发送 kafka 消息失败, topic=%s", p.topic)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
