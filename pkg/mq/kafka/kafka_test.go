package kafka

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewProducerConfigDefaults(t *testing.T) {
	conf, err := newProducerConfig(KafkaProducerConfig{})
	require.NoError(t, err)
	assert.True(t, conf.Producer.Return.Successes)
	assert.Equal(t, DefaultMessageMaxBytes, conf.Producer.MaxMessageBytes)
	assert.Equal(t, sarama.WaitForLocal, conf.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionSnappy, conf.Producer.Compression)
	assert.Equal(t, "token-tracker", conf.ClientID)
	assert.False(t, conf.Net.SASL.Enable)
}

func TestNewProducerConfigOverrides(t *testing.T) {
	conf, err := newProducerConfig(KafkaProducerConfig{
		RequiredAcks:     -1,
		RetryMax:         7,
		RetryBackoffMs:   250,
		Compression:      "gzip",
		ClientID:         "tracker",
		SecurityProtocol: "SASL_PLAINTEXT",
		SaslUsername:     "u",
		SaslPassword:     "p",
		SaslMechanism:    "PLAIN",
	})
	require.NoError(t, err)
	assert.Equal(t, sarama.WaitForAll, conf.Producer.RequiredAcks)
	assert.Equal(t, 7, conf.Producer.Retry.Max)
	assert.Equal(t, 250*time.Millisecond, conf.Producer.Retry.Backoff)
	assert.Equal(t, sarama.CompressionGZIP, conf.Producer.Compression)
	assert.Contains(t, conf.ClientID, "tracker_")
	assert.True(t, conf.Net.SASL.Enable)
	assert.Equal(t, "u", conf.Net.SASL.User)
}

func TestNewProducerConfigRejectsUnknown(t *testing.T) {
	_, err := newProducerConfig(KafkaProducerConfig{SecurityProtocol: "CARRIER_PIGEON"})
	assert.Error(t, err)
	_, err = newProducerConfig(KafkaProducerConfig{Compression: "brotli"})
	assert.Error(t, err)
	_, err = newProducerConfig(KafkaProducerConfig{Version: "not-a-version"})
	assert.Error(t, err)
}

func TestNewConsumerConfig(t *testing.T) {
	conf, err := newConsumerConfig([]string{"b1:9092", "b2:9092"}, KafkaConsumerConfig{
		GroupId:        "tracker",
		OffsetIntial:   "earliest",
		SessionTimeout: 30000,
	})
	require.NoError(t, err)

	servers, err := conf.Get("bootstrap.servers", "")
	require.NoError(t, err)
	assert.Equal(t, "b1:9092,b2:9092", servers)
	reset, _ := conf.Get("auto.offset.reset", "")
	assert.Equal(t, "earliest", reset)
	session, _ := conf.Get("session.timeout.ms", 0)
	assert.Equal(t, 30000, session)

	_, err = newConsumerConfig(nil, KafkaConsumerConfig{SecurityProtocol: "BOGUS"})
	assert.Error(t, err)
}

func TestKafkaProducerWithMock(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"a":1}` {
			return errors.New("unexpected payload")
		}
		return nil
	})
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaProducerWith(mock)
	assert.NoError(t, p.SendMessageWithKey("changes", "W1", []byte(`{"a":1}`)))
	assert.ErrorIs(t, p.SendMessage("changes", []byte("x")), sarama.ErrOutOfBrokers)
	assert.Error(t, p.SendMessages("changes", []string{"a"}, nil))
	assert.NoError(t, p.Close())
}

func TestSaramaLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	newSaramaLogger(l, zapcore.InfoLevel).Printf("client/metadata fetching %s", "topic")
	newSaramaLogger(l, zapcore.InfoLevel).Println("connected", 1)
	newSaramaLogger(l, zapcore.DebugLevel).Print("heartbeat")
	newSaramaLogger(l, zapcore.InfoLevel).Println()

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "client/metadata fetching topic", entries[0].Message)
	assert.Equal(t, "connected 1", entries[1].Message)
}

func TestInstanceClientID(t *testing.T) {
	id := instanceClientID("tracker")
	assert.True(t, strings.HasPrefix(id, "tracker_"))
	assert.NotContains(t, id, ".")
}
