package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/go-telegram/bot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/token-tracker/internal/detector/condition"
	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/mq/kafka"
)

type recordingPublisher struct {
	name    string
	err     error
	mu      sync.Mutex
	batches [][]model.ChangeEvent
	closed  bool
}

func (p *recordingPublisher) GetType() string { return p.name }

func (p *recordingPublisher) Publish(_ context.Context, events []model.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, events)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func sampleEvents() []model.ChangeEvent {
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []model.ChangeEvent{
		{
			ID: "1", Timestamp: ts, EventType: model.EventNew, Wallet: "WalletAAAAAAAAAAAA1",
			Token: "Bonk (BONK)", TokenSymbol: "BONK", TokenMint: "MintBonk",
			Amount: decimal.NewFromInt(1000), Price: decimal.RequireFromString("0.00002"),
		},
		{
			ID: "2", Timestamp: ts, EventType: model.EventModified, Wallet: "WalletAAAAAAAAAAAA1",
			Token: "Wrapped SOL (SOL)", TokenSymbol: "SOL", TokenMint: "MintSol",
			Amount: decimal.NewFromInt(15), Change: decimal.NewFromInt(5),
			PercentChange: decimal.NewFromInt(50), Price: decimal.NewFromInt(150),
			USDChange: decimal.NewFromInt(750),
		},
	}
}

func TestManagerFanOutAndCooldown(t *testing.T) {
	m := NewManager(time.Hour, nil)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	a := &recordingPublisher{name: "a"}
	b := &recordingPublisher{name: "b"}
	m.AddPublisher(a)
	m.AddPublisher(b)
	assert.Equal(t, []string{"a", "b"}, m.Publishers())

	events := sampleEvents()
	require.NoError(t, m.Publish(context.Background(), events))
	require.Len(t, a.batches, 1)
	assert.Len(t, a.batches[0], 2)
	assert.Len(t, b.batches, 1)

	// 冷却期内重复事件不再发送
	require.NoError(t, m.Publish(context.Background(), events))
	assert.Len(t, a.batches, 1)

	now = now.Add(2 * time.Hour)
	require.NoError(t, m.Publish(context.Background(), events))
	assert.Len(t, a.batches, 2)

	assert.Equal(t, 2, m.cleanupExpired())
	now = now.Add(3 * time.Hour)
	assert.Equal(t, 0, m.cleanupExpired())
}

func TestManagerSkipsEmptyAndDuplicatesInBatch(t *testing.T) {
	m := NewManager(0, nil)
	p := &recordingPublisher{name: "p"}
	m.AddPublisher(p)

	require.NoError(t, m.Publish(context.Background(), nil))
	assert.Empty(t, p.batches)

	e := sampleEvents()[0]
	require.NoError(t, m.Publish(context.Background(), []model.ChangeEvent{e, e}))
	require.Len(t, p.batches, 1)
	assert.Len(t, p.batches[0], 1)
}

func TestManagerFilter(t *testing.T) {
	filter := condition.FromConfig(condition.FilterConfig{EventTypes: []string{"new"}})
	m := NewManager(time.Hour, filter)
	p := &recordingPublisher{name: "p"}
	m.AddPublisher(p)

	require.NoError(t, m.Publish(context.Background(), sampleEvents()))
	require.Len(t, p.batches, 1)
	require.Len(t, p.batches[0], 1)
	assert.Equal(t, model.EventNew, p.batches[0][0].EventType)
}

func TestManagerAggregatesErrors(t *testing.T) {
	m := NewManager(time.Hour, nil)
	bad := &recordingPublisher{name: "bad", err: errors.New("boom")}
	good := &recordingPublisher{name: "good"}
	m.AddPublisher(bad)
	m.AddPublisher(good)

	err := m.Publish(context.Background(), sampleEvents())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, good.batches, 1)

	// good 已送达，冷却生效
	require.NoError(t, m.Publish(context.Background(), sampleEvents()))
	assert.Len(t, bad.batches, 1)

	require.NoError(t, m.Stop())
	assert.True(t, bad.closed)
	assert.True(t, good.closed)
}

func TestManagerAllFailedDoesNotRecord(t *testing.T) {
	m := NewManager(time.Hour, nil)
	bad := &recordingPublisher{name: "bad", err: errors.New("down")}
	m.AddPublisher(bad)

	assert.Error(t, m.Publish(context.Background(), sampleEvents()))
	assert.Error(t, m.Publish(context.Background(), sampleEvents()))
	assert.Len(t, bad.batches, 2)
}

func TestManagerLogPublisherDoesNotCountAsDelivered(t *testing.T) {
	m := NewManager(time.Hour, nil)
	m.AddPublisher(&LogPublisher{})
	feishu := &recordingPublisher{name: "feishu", err: errors.New("webhook 502")}
	m.AddPublisher(feishu)

	assert.Error(t, m.Publish(context.Background(), sampleEvents()))
	assert.Equal(t, 0, m.cleanupExpired())

	// 外部发布器恢复后同样的事件仍会发送
	feishu.err = nil
	require.NoError(t, m.Publish(context.Background(), sampleEvents()))
	assert.Len(t, feishu.batches, 2)
	assert.Equal(t, 2, m.cleanupExpired())
}

func TestManagerLogOnlyRecordsCooldown(t *testing.T) {
	m := NewManager(time.Hour, nil)
	m.AddPublisher(&LogPublisher{})

	require.NoError(t, m.Publish(context.Background(), sampleEvents()))
	assert.Equal(t, 2, m.cleanupExpired())
}

func TestFormatEvents(t *testing.T) {
	assert.Empty(t, FormatEvents(nil))

	msg := FormatEvents(sampleEvents())
	assert.Contains(t, msg, "钱包持仓变化 (2)")
	assert.Contains(t, msg, "🆕 新建仓: Bonk (BONK)")
	assert.Contains(t, msg, "📈 持仓变化: Wrapped SOL (SOL)")
	assert.Contains(t, msg, "Wallet...AAA1")
	assert.Contains(t, msg, "+50.00%")
	assert.Contains(t, msg, "$750.00")
	assert.Contains(t, msg, "💵 持仓价值: ")
	assert.Contains(t, msg, "2026-03-01 16:00:00")

	sold := sampleEvents()[1]
	sold.Change = decimal.NewFromInt(-5)
	assert.True(t, strings.HasPrefix(FormatEvent(sold), "📉"))
}

func TestFeishuPublisher(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		text = body.Content.Text
		_, _ = w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	p := NewFeishuPublisher(srv.URL)
	assert.Equal(t, "feishu", p.GetType())
	require.NoError(t, p.Publish(context.Background(), sampleEvents()))
	assert.Contains(t, text, "Bonk (BONK)")
}

func TestTelegramPublisher(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}))
	defer srv.Close()

	_, err := NewTelegramPublisher("", []string{"1"})
	assert.Error(t, err)
	_, err = NewTelegramPublisher("token", []string{""})
	assert.Error(t, err)

	p, err := NewTelegramPublisher("123:abc", []string{"100", "200"}, bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "telegram", p.GetType())
	require.NoError(t, p.Publish(context.Background(), sampleEvents()))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestTelegramPublisherAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	p, err := NewTelegramPublisher("123:abc", []string{"100"}, bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	assert.Error(t, p.Publish(context.Background(), sampleEvents()))
}

func TestKafkaPublisher(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	for i := 0; i < 2; i++ {
		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var e model.ChangeEvent
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			if e.Wallet != "WalletAAAAAAAAAAAA1" {
				return errors.New("unexpected wallet")
			}
			return nil
		})
	}
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	_, err := NewKafkaPublisher(nil, "changes")
	assert.Error(t, err)

	p, err := NewKafkaPublisher(kafka.NewKafkaProducerWith(mock), "changes")
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), sampleEvents()))
	assert.Error(t, p.Publish(context.Background(), sampleEvents()[:1]))
	require.NoError(t, p.Close())
}
