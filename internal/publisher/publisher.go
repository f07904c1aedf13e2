package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ninja0404/token-tracker/internal/detector/condition"
	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/logger"
)

// DefaultCooldown 同一变化在冷却期内只推送一次
const DefaultCooldown = time.Hour

// Publisher 变化事件发布器接口
type Publisher interface {
	// Publish 发布一批变化事件
	Publish(ctx context.Context, events []model.ChangeEvent) error

	// GetType 获取发布器类型
	GetType() string

	// Close 关闭发布器
	Close() error
}

// Manager 变化事件发布管理器
type Manager struct {
	publishers []Publisher
	filter     condition.Condition
	ctx        context.Context
	cancel     context.CancelFunc

	// 事件去重管理
	sentEvents map[string]time.Time // key: ChangeEvent.DedupKey, value: 发送时间
	cooldown   time.Duration
	now        func() time.Time

	mutex sync.RWMutex
}

// NewManager 创建发布管理器，cooldown<=0 使用默认值，filter 为空时不过滤
func NewManager(cooldown time.Duration, filter condition.Condition) *Manager {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if filter == nil {
		filter = condition.Always{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		publishers: make([]Publisher, 0),
		filter:     filter,
		ctx:        ctx,
		cancel:     cancel,
		sentEvents: make(map[string]time.Time),
		cooldown:   cooldown,
		now:        time.Now,
	}
}

// AddPublisher 添加发布器
func (m *Manager) AddPublisher(publisher Publisher) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.publishers = append(m.publishers, publisher)
}

// Publishers 已注册的发布器类型
func (m *Manager) Publishers() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	types := make([]string, 0, len(m.publishers))
	for _, p := range m.publishers {
		types = append(types, p.GetType())
	}
	return types
}

// selectEvents 过滤掉不满足条件或仍在冷却期内的事件
func (m *Manager) selectEvents(events []model.ChangeEvent) []model.ChangeEvent {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := m.now()
	selected := make([]model.ChangeEvent, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for i := range events {
		e := events[i]
		if !condition.Match(m.filter, &e) {
			continue
		}
		key := e.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		if sentAt, ok := m.sentEvents[key]; ok && now.Sub(sentAt) < m.cooldown {
			continue
		}
		seen[key] = struct{}{}
		selected = append(selected, e)
	}
	return selected
}

// recordSent 记录已发送的事件
func (m *Manager) recordSent(events []model.ChangeEvent) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	for _, e := range events {
		m.sentEvents[e.DedupKey()] = now
	}
}

// cleanupExpired 清理过期的发送记录
func (m *Manager) cleanupExpired() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	for key, sentAt := range m.sentEvents {
		if now.Sub(sentAt) > m.cooldown {
			delete(m.sentEvents, key)
		}
	}
	return len(m.sentEvents)
}

// Publish 发布事件到所有发布器，任一外部发布器成功才记录冷却
// 只有日志发布器时以日志输出为准
func (m *Manager) Publish(ctx context.Context, events []model.ChangeEvent) error {
	selected := m.selectEvents(events)
	if len(selected) == 0 {
		if len(events) > 0 {
			logger.Debug("⏭️ 变化事件被过滤或在冷却期内，跳过发送", logger.Int("events", len(events)))
		}
		return nil
	}

	m.mutex.RLock()
	publishers := append([]Publisher(nil), m.publishers...)
	m.mutex.RUnlock()

	var result *multierror.Error
	delivered, external := false, false
	for _, publisher := range publishers {
		_, logOnly := publisher.(*LogPublisher)
		external = external || !logOnly
		if err := publisher.Publish(ctx, selected); err != nil {
			logger.Error("❌ 发布变化事件失败",
				logger.String("publisher", publisher.GetType()),
				logger.Int("events", len(selected)),
				logger.FieldErr(err))
			result = multierror.Append(result, err)
			continue
		}
		if !logOnly {
			delivered = true
		}
		logger.Info("✅ 变化事件发布成功",
			logger.String("publisher", publisher.GetType()),
			logger.Int("events", len(selected)))
	}

	if delivered || (!external && result == nil) {
		m.recordSent(selected)
	}
	return result.ErrorOrNil()
}

// Start 启动发布管理器
func (m *Manager) Start() error {
	for _, t := range m.Publishers() {
		logger.Info("✅ 已加载变化发布器", logger.String("type", t))
	}
	logger.Info("📡 变化发布管理器已启动",
		logger.String("cooldown", m.cooldown.String()),
		logger.String("filter", m.filter.GetName()))

	go m.startCleanupTask()
	return nil
}

// startCleanupTask 定期清理过期的发送记录
func (m *Manager) startCleanupTask() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if n := m.cleanupExpired(); n > 0 {
				logger.Debug("🧹 清理过期发送记录完成", logger.Int("sent_events", n))
			}
		}
	}
}

// Stop 停止发布管理器并关闭所有发布器
func (m *Manager) Stop() error {
	m.cancel()

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result *multierror.Error
	for _, publisher := range m.publishers {
		if err := publisher.Close(); err != nil {
			logger.Error("关闭发布器失败",
				logger.String("type", publisher.GetType()),
				logger.FieldErr(err))
			result = multierror.Append(result, err)
		}
	}

	logger.Info("变化发布管理器已停止")
	return result.ErrorOrNil()
}

// LogPublisher 日志发布器 - 将变化输出到日志
type LogPublisher struct{}

func (p *LogPublisher) GetType() string {
	return "log"
}

func (p *LogPublisher) Publish(_ context.Context, events []model.ChangeEvent) error {
	for _, e := range events {
		logger.Info("🚨 发现持仓变化",
			logger.String("type", string(e.EventType)),
			logger.FieldWallet(e.Wallet),
			logger.FieldMint(e.TokenMint),
			logger.String("symbol", e.TokenSymbol),
			logger.String("amount", e.Amount.String()),
			logger.String("change", e.Change.String()),
			logger.String("usd_change", e.USDChange.StringFixed(2)))
	}
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
