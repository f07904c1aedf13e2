package kafka

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/ninja0404/token-tracker/pkg/logger"
)

type MessageHandler func(ctx context.Context, message []byte) error
type wrapperMessageHandler func(ctx context.Context, message *kafka.Message) error

const defaultHandlerRetries = 3

type KafkaConsumer struct {
	consumer    *kafka.Consumer
	config      *kafka.ConfigMap
	srcConfig   *KafkaConsumerConfig
	brokers     []string
	topics      []string
	groupId     string
	readTimeout time.Duration

	handlers map[string]wrapperMessageHandler

	wg         sync.WaitGroup
	closeOnce  sync.Once
	cancelCtx  context.Context
	cancelFunc context.CancelFunc
}

func NewKafkaConsumer(brokers []string, cfg KafkaConsumerConfig) (*KafkaConsumer, error) {
	config, err := newConsumerConfig(brokers, cfg)
	if err != nil {
		return nil, err
	}
	consumer, err := kafka.NewConsumer(config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Millisecond
	if readTimeout <= 0 {
		readTimeout = time.Second
	}

	instance := &KafkaConsumer{
		consumer:    consumer,
		config:      config,
		srcConfig:   &cfg,
		brokers:     brokers,
		topics:      cfg.Topics,
		groupId:     cfg.GroupId,
		readTimeout: readTimeout,
		handlers:    make(map[string]wrapperMessageHandler, 0),
		cancelCtx:   ctx,
		cancelFunc:  cancel,
	}
	return instance, nil
}

func (kc *KafkaConsumer) RegisterTopicHandler(t string, h MessageHandler) error {
	wrapperHandler := func(ctx context.Context, msg *kafka.Message) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("recovery from kafka message handler",
					logger.String("topic", *msg.TopicPartition.Topic),
					logger.Int32("partition", msg.TopicPartition.Partition),
					logger.String("offset", msg.TopicPartition.Offset.String()),
					logger.String("stack", string(debug.Stack())),
				)

				err = fmt.Errorf("panic in message handler: %v", r)
			}
		}()

		err = h(ctx, msg.Value)
		if err != nil {
			logger.Error("kafka message handler error",
				logger.FieldErr(err),
				logger.String("topic", *msg.TopicPartition.Topic))
			return err
		}
		return nil
	}
	for _, topic := range kc.topics {
		if topic == t {
			kc.handlers[t] = wrapperHandler
			return nil
		}
	}
	return errors.New("topic not in consumer list")
}

func (kc *KafkaConsumer) Close() error {
	var err error
	kc.closeOnce.Do(func() {
		kc.cancelFunc()
		kc.wg.Wait()
		// 关闭消费者
		if cErr := kc.consumer.Close(); cErr != nil {
			err = fmt.Errorf("close consumer error: %w", cErr)
			return
		}
		logger.Info("consumer closed successfully", logger.String("group", kc.groupId))
	})
	return err
}

func (kc *KafkaConsumer) Start() error {
	subErr := kc.consumer.SubscribeTopics(kc.topics, nil)
	if subErr != nil {
		return subErr
	}

	// 开始消费
	kc.wg.Add(1)
	go func() {
		defer kc.wg.Done()
		for {
			select {
			case <-kc.cancelCtx.Done():
				return
			default:
			}

			msg, err := kc.consumer.ReadMessage(kc.readTimeout)
			if err != nil {
				var kErr kafka.Error
				if errors.As(err, &kErr) && kErr.Code() == kafka.ErrTimedOut {
					continue
				}
				logger.Error("kafka consumer read message error", logger.FieldErr(err), logger.Duration("read_timeout", kc.readTimeout))
				continue
			}

			topic := *msg.TopicPartition.Topic

			h, ok := kc.handlers[topic]
			if !ok {
				logger.Warn("kafka consumer no handler for topic", logger.String("topic", topic))
				continue
			}

			kc.handle(h, msg)
		}
	}()
	return nil
}

// handle 处理失败最多重试 defaultHandlerRetries 次，之后跳过该消息
func (kc *KafkaConsumer) handle(h wrapperMessageHandler, msg *kafka.Message) {
	var err error
	for attempt := 1; attempt <= defaultHandlerRetries; attempt++ {
		if err = h(kc.cancelCtx, msg); err == nil {
			break
		}
		if kc.cancelCtx.Err() != nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	if err != nil {
		logger.Warn("⚠️ kafka 消息处理失败，已跳过",
			logger.String("topic", *msg.TopicPartition.Topic),
			logger.String("offset", msg.TopicPartition.Offset.String()),
			logger.FieldErr(err))
	}
	if kc.srcConfig.EnableAutoCommit {
		return
	}
	if _, cErr := kc.consumer.CommitMessage(msg); cErr != nil {
		logger.Error("commit offset err", logger.FieldErr(cErr))
	}
}
