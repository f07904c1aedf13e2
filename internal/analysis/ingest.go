package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/logger"
	"github.com/ninja0404/token-tracker/pkg/mq/kafka"
)

// Recorder 接收外部分析结果
type Recorder interface {
	RecordAnalysis(rec model.AnalysisRecord) error
}

// KafkaIngest 从 kafka topic 消费外部分析结果
type KafkaIngest struct {
	consumer *kafka.KafkaConsumer
	topic    string
	recorder Recorder
	now      func() time.Time
}

// NewKafkaIngest consumer 可以为空，仅用于直接调用 HandleMessage
func NewKafkaIngest(consumer *kafka.KafkaConsumer, topic string, recorder Recorder) *KafkaIngest {
	return &KafkaIngest{
		consumer: consumer,
		topic:    topic,
		recorder: recorder,
		now:      time.Now,
	}
}

// Start 注册 handler 并开始消费
func (k *KafkaIngest) Start() error {
	if k.consumer == nil {
		return errors.New("kafka consumer 为空")
	}
	if err := k.consumer.RegisterTopicHandler(k.topic, k.HandleMessage); err != nil {
		return errors.Wrapf(err, "注册分析结果 handler 失败, topic=%s", k.topic)
	}
	if err := k.consumer.Start(); err != nil {
		return errors.Wrap(err, "启动分析结果消费失败")
	}
	logger.Info("📥 分析结果消费已启动", logger.String("topic", k.topic))
	return nil
}

// HandleMessage 无法解析的消息直接丢弃，写入失败返回错误以便重试
func (k *KafkaIngest) HandleMessage(_ context.Context, message []byte) error {
	rec, err := DecodeRecord(message)
	if err != nil {
		logger.Warn("⚠️ 丢弃无法解析的分析结果", logger.FieldErr(err), logger.Int("bytes", len(message)))
		return nil
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = k.now()
	}
	return k.recorder.RecordAnalysis(rec)
}

// Close 关闭 consumer
func (k *KafkaIngest) Close() error {
	if k.consumer == nil {
		return nil
	}
	return k.consumer.Close()
}

// DecodeRecord 解析 JSON 分析结果并规范化 action 与 confidence
func DecodeRecord(message []byte) (model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	if err := json.Unmarshal(message, &rec); err != nil {
		return rec, errors.Wrap(err, "解析分析结果失败")
	}
	if strings.TrimSpace(rec.TokenMint) == "" && strings.TrimSpace(rec.Token) == "" {
		return rec, errors.New("分析结果缺少 token")
	}
	rec.Action = model.ParseAnalysisAction(string(rec.Action))
	if rec.Confidence != nil {
		v := model.ClampConfidence(*rec.Confidence)
		rec.Confidence = &v
	}
	return rec, nil
}
