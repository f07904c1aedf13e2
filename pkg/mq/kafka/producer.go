package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/ninja0404/token-tracker/pkg/logger"
)

func newProducerConfig(cfg KafkaProducerConfig) (*sarama.Config, error) {
	conf := sarama.NewConfig()

	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}
	v, err := sarama.ParseKafkaVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid kafka version %q: %w", version, err)
	}
	conf.Version = v

	conf.Producer.Return.Successes = true // SyncProducer 必须开启
	conf.Producer.Return.Errors = true
	conf.Producer.MaxMessageBytes = DefaultMessageMaxBytes
	conf.Producer.Retry.Max = 3
	conf.Producer.Retry.Backoff = time.Second
	conf.Producer.RequiredAcks = sarama.WaitForLocal
	conf.Producer.Compression = sarama.CompressionSnappy
	conf.Producer.Partitioner = sarama.NewHashPartitioner // 同一个 key 落在同一分区

	if cfg.MessageMaxBytes != 0 {
		conf.Producer.MaxMessageBytes = cfg.MessageMaxBytes
	}
	if cfg.RetryMax != 0 {
		conf.Producer.Retry.Max = cfg.RetryMax
	}
	if cfg.RetryBackoffMs != 0 {
		conf.Producer.Retry.Backoff = time.Duration(cfg.RetryBackoffMs) * time.Millisecond
	}
	if cfg.RequiredAcks != 0 {
		conf.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	}
	if cfg.TimeoutMs != 0 {
		conf.Producer.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	switch strings.ToLower(cfg.Compression) {
	case "", "snappy":
	case "none":
		conf.Producer.Compression = sarama.CompressionNone
	case "gzip":
		conf.Producer.Compression = sarama.CompressionGZIP
	case "lz4":
		conf.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		conf.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("unknown compression: %s", cfg.Compression)
	}

	conf.ClientID = "token-tracker"
	if cfg.ClientID != "" {
		conf.ClientID = instanceClientID(cfg.ClientID)
	}

	switch cfg.SecurityProtocol {
	case "PLAINTEXT", "":
	case "SASL_SSL":
		setSasl(conf, cfg)
		tlsConf, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		conf.Net.TLS.Enable = true
		conf.Net.TLS.Config = tlsConf
	case "SSL":
		tlsConf, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		conf.Net.TLS.Enable = true
		conf.Net.TLS.Config = tlsConf
	case "SASL_PLAINTEXT":
		setSasl(conf, cfg)
	default:
		return nil, fmt.Errorf("unknown protocol: %s", cfg.SecurityProtocol)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setSasl(conf *sarama.Config, cfg KafkaProducerConfig) {
	conf.Net.SASL.Enable = true
	conf.Net.SASL.User = cfg.SaslUsername
	conf.Net.SASL.Password = cfg.SaslPassword
	if cfg.SaslMechanism != "" {
		conf.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.SaslMechanism)
	}
}

// newTLSConfig 证书校验关闭，与消费端保持一致
func newTLSConfig(cfg KafkaProducerConfig) (*tls.Config, error) {
	tlsConf := &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	if cfg.SslCaLocation != "" {
		ca, err := os.ReadFile(cfg.SslCaLocation)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(ca)
		tlsConf.RootCAs = pool
	}
	if cfg.SslCertificateLocation != "" && cfg.SslKeyLocation != "" {
		cert, err := tls.LoadX509KeyPair(cfg.SslCertificateLocation, cfg.SslKeyLocation)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	return tlsConf, nil
}

// KafkaProducer 同步发送，返回时消息已被 broker 确认
type KafkaProducer struct {
	producer sarama.SyncProducer
}

func NewKafkaProducer(brokers []string, cfg KafkaProducerConfig) (*KafkaProducer, error) {
	initKafka()
	conf, err := newProducerConfig(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(brokers, conf)
	if err != nil {
		return nil, err
	}
	return &KafkaProducer{producer: producer}, nil
}

// NewKafkaProducerWith 使用已有的 SyncProducer
func NewKafkaProducerWith(producer sarama.SyncProducer) *KafkaProducer {
	return &KafkaProducer{producer: producer}
}

func (p *KafkaProducer) SendMessage(topic string, value []byte) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *KafkaProducer) SendMessageWithKey(topic string, key string, value []byte) error {
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return err
	}
	logger.Debug("kafka message sent",
		logger.String("topic", topic),
		logger.Int32("partition", partition),
		logger.Int64("offset", offset))
	return nil
}

// SendMessages 批量发送，任意一条失败返回错误
func (p *KafkaProducer) SendMessages(topic string, keys []string, values [][]byte) error {
	if len(keys) != len(values) {
		return fmt.Errorf("keys and values length mismatch: %d != %d", len(keys), len(values))
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(values))
	for i := range values {
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(keys[i]),
			Value: sarama.ByteEncoder(values[i]),
		})
	}
	return p.producer.SendMessages(msgs)
}

func (p *KafkaProducer) Close() error {
	logger.Info("closing producer...")
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	logger.Info("producer closed successfully")
	return nil
}
