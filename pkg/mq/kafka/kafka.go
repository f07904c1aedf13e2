package kafka

import (
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zapcore"

	"github.com/ninja0404/token-tracker/pkg/logger"
)

var startOnce sync.Once

// initKafka sarama 日志接入 zap
func initKafka() {
	startOnce.Do(func() {
		sarama.Logger = newSaramaLogger(logger.Named("kafka-core"), zapcore.InfoLevel)
		sarama.DebugLogger = newSaramaLogger(logger.Named("kafka-core-debug"), zapcore.DebugLevel)
	})
}
