package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ninja0404/token-tracker/internal/analysis"
	"github.com/ninja0404/token-tracker/internal/common"
	"github.com/ninja0404/token-tracker/internal/detector"
	"github.com/ninja0404/token-tracker/internal/history"
	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/internal/scanner"
	"github.com/ninja0404/token-tracker/internal/snapshot"
	"github.com/ninja0404/token-tracker/pkg/logger"
)

const (
	DefaultInterval = 10 * time.Minute
	// DefaultMaxAnalyses 每轮最多请求分析的事件数
	DefaultMaxAnalyses = 5

	sideEffectTimeout = time.Minute
)

// Notifier 变化事件推送
type Notifier interface {
	Publish(ctx context.Context, events []model.ChangeEvent) error
}

// Archive 变化事件的无上限归档
type Archive interface {
	SaveBatch(ctx context.Context, events []model.ChangeEvent) error
}

// Options 构造参数，Store/Scanner/Changes/Analyses 必填
type Options struct {
	Store     snapshot.Store
	Scanner   scanner.Scanner
	Changes   *history.Log[model.ChangeEvent]
	Analyses  *history.Log[model.AnalysisRecord]
	Wallets   []string
	Interval  time.Duration
	Detector  *detector.Detector
	Publisher Notifier
	Archive   Archive
	Analyzer  analysis.Analyzer
	// MaxAnalyses<=0 使用 DefaultMaxAnalyses
	MaxAnalyses int
	Clock       func() time.Time
}

// Stats 运行统计
type Stats struct {
	Cycles        int64     `json:"cycles"`
	Events        int64     `json:"events"`
	FailedScans   int64     `json:"failed_scans"`
	FailedCycles  int64     `json:"failed_cycles"`
	LastCycleAt   time.Time `json:"last_cycle_at"`
	LastCycleCost string    `json:"last_cycle_cost"`
	LastError     string    `json:"last_error,omitempty"`
}

// ChangeTracker 周期扫描钱包持仓，检测变化并写入历史
type ChangeTracker struct {
	store       snapshot.Store
	scanner     scanner.Scanner
	changes     *history.Log[model.ChangeEvent]
	analyses    *history.Log[model.AnalysisRecord]
	detector    *detector.Detector
	publisher   Notifier
	archive     Archive
	analyzer    analysis.Analyzer
	maxAnalyses int
	interval    time.Duration
	clock       func() time.Time
	log         *logger.Logger

	// cycleMu 保证同一时间只有一轮扫描
	cycleMu sync.Mutex

	mu      sync.RWMutex
	wallets []string
	stats   Stats

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New 创建 ChangeTracker
func New(opts Options) (*ChangeTracker, error) {
	if opts.Store == nil {
		return nil, common.ConfigError("snapshot store is required")
	}
	if opts.Scanner == nil {
		return nil, common.ConfigError("scanner is required")
	}
	if opts.Changes == nil || opts.Analyses == nil {
		return nil, common.ConfigError("change and analysis logs are required")
	}
	t := &ChangeTracker{
		store:       opts.Store,
		scanner:     opts.Scanner,
		changes:     opts.Changes,
		analyses:    opts.Analyses,
		detector:    opts.Detector,
		publisher:   opts.Publisher,
		archive:     opts.Archive,
		analyzer:    opts.Analyzer,
		maxAnalyses: opts.MaxAnalyses,
		interval:    opts.Interval,
		clock:       opts.Clock,
		wallets:     normalizeWallets(opts.Wallets),
		log:         logger.Named("tracker"),
	}
	if t.detector == nil {
		t.detector = detector.New(detector.Epsilon)
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if t.maxAnalyses <= 0 {
		t.maxAnalyses = DefaultMaxAnalyses
	}
	if t.clock == nil {
		t.clock = time.Now
	}
	return t, nil
}

// RunCycle 执行一轮：加载快照 -> 扫描 -> 检测 -> 写历史 -> 保存快照 -> 推送/归档/分析
// 历史写入失败时不保存快照，下一轮会重新检测到同样的变化
func (t *ChangeTracker) RunCycle(ctx context.Context) ([]model.ChangeEvent, error) {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()

	t.mu.Lock()
	cycle := t.stats.Cycles + 1
	t.mu.Unlock()
	ctx = logger.ContextWithLog(ctx, t.log.With(logger.Int64("cycle", cycle)))

	start := time.Now()
	events, failed, err := t.runCycle(ctx)
	t.recordStats(start, len(events), failed, err)
	return events, err
}

// TriggerManualRefresh 立即执行一轮，与定时任务串行
func (t *ChangeTracker) TriggerManualRefresh(ctx context.Context) ([]model.ChangeEvent, error) {
	t.log.Info("🔄 手动刷新")
	return t.RunCycle(ctx)
}

func (t *ChangeTracker) runCycle(ctx context.Context) ([]model.ChangeEvent, int, error) {
	log := logger.LogFromContext(ctx)
	wallets := t.Wallets()
	previous := t.store.Load().Clone()

	result := t.scanner.ScanAllWallets(ctx, wallets)
	current := result.Snapshot
	if current == nil {
		current = model.EmptySnapshot()
	}
	current.LastUpdate = t.clock()

	failed := result.FailedWallets()
	for _, w := range failed {
		log.Warn("⚠️ 钱包扫描失败，沿用上一轮持仓",
			logger.FieldWallet(w),
			logger.FieldErr(result.Failed[w]))
		if previous.Has(w) {
			current.Set(w, previous.Holdings(w))
		}
	}
	if len(wallets) > 0 && len(failed) == len(wallets) {
		return nil, len(failed), common.Wrap(common.ErrTransientScan, result.Err(), "all wallets failed")
	}

	// 不再跟踪的钱包不参与比较
	tracked := model.EmptySnapshot()
	for _, w := range wallets {
		if previous.Has(w) {
			tracked.Set(w, previous.Holdings(w))
		}
	}

	diff := t.detector.DetectChanges(tracked, current)
	events := diff.Events(current.LastUpdate)

	if len(events) > 0 {
		if err := t.changes.Append(events...); err != nil {
			log.Error("❌ 写入变化历史失败，本轮快照不保存", logger.FieldErr(err))
			return nil, len(failed), err
		}
	}
	if err := t.store.Save(current); err != nil {
		log.Error("❌ 保存快照失败", logger.FieldErr(err), logger.FieldPath(t.store.Path()))
		return events, len(failed), err
	}

	log.Info("✅ 扫描完成",
		logger.Int("wallets", len(wallets)),
		logger.Int("failed", len(failed)),
		logger.Int("holdings", current.HoldingCount()),
		logger.Int("events", len(events)))

	if len(events) > 0 {
		t.afterCycle(ctx, events)
	}
	return events, len(failed), nil
}

// afterCycle 推送、归档、分析，失败只记录日志
func (t *ChangeTracker) afterCycle(ctx context.Context, events []model.ChangeEvent) {
	log := logger.LogFromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	if t.publisher != nil {
		if err := t.publisher.Publish(ctx, events); err != nil {
			log.Warn("⚠️ 推送变化事件失败", logger.FieldErr(err))
		}
	}
	if t.archive != nil {
		if err := t.archive.SaveBatch(ctx, events); err != nil {
			log.Warn("⚠️ 归档变化事件失败", logger.FieldErr(err))
		}
	}
	if t.analyzer != nil {
		t.analyze(ctx, events)
	}
}

func (t *ChangeTracker) analyze(ctx context.Context, events []model.ChangeEvent) {
	log := logger.LogFromContext(ctx)
	records := make([]model.AnalysisRecord, 0, t.maxAnalyses)
	for _, e := range events {
		if len(records) >= t.maxAnalyses {
			log.Debug("分析数量达到上限，剩余事件跳过",
				logger.Int("max", t.maxAnalyses),
				logger.Int("events", len(events)))
			break
		}
		if e.EventType == model.EventRemoved {
			continue
		}
		rec, err := t.analyzer.Analyze(ctx, e)
		if err != nil {
			log.Warn("⚠️ 分析变化事件失败", logger.FieldMint(e.TokenMint), logger.FieldErr(err))
			continue
		}
		records = append(records, *rec)
	}
	if len(records) == 0 {
		return
	}
	if err := t.analyses.Append(records...); err != nil {
		log.Warn("⚠️ 写入分析历史失败", logger.FieldErr(err))
	}
}

func (t *ChangeTracker) recordStats(start time.Time, events, failed int, err error) {
	cost := time.Since(start)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Cycles++
	t.stats.Events += int64(events)
	t.stats.FailedScans += int64(failed)
	t.stats.LastCycleAt = t.clock()
	t.stats.LastCycleCost = cost.String()
	if err != nil {
		t.stats.FailedCycles++
		t.stats.LastError = err.Error()
	} else {
		t.stats.LastError = ""
	}
}

// Start 启动定时扫描，立即执行第一轮
func (t *ChangeTracker) Start(ctx context.Context) {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			if _, err := t.RunCycle(ctx); err != nil && ctx.Err() == nil {
				t.log.Warn("⚠️ 本轮扫描失败", logger.FieldErr(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}(t.done)

	t.log.Info("🚀 持仓跟踪已启动",
		logger.String("interval", t.interval.String()),
		logger.Int("wallets", len(t.Wallets())))
}

// Stop 停止定时扫描并等待当前一轮结束
func (t *ChangeTracker) Stop() {
	t.runMu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.log.Info("持仓跟踪已停止")
}

// GetLatestChanges 最新在前
func (t *ChangeTracker) GetLatestChanges() ([]model.ChangeEvent, error) {
	return t.changes.LoadAll()
}

// GetLatestAnalyses 最新在前
func (t *ChangeTracker) GetLatestAnalyses() ([]model.AnalysisRecord, error) {
	return t.analyses.LoadAll()
}

func (t *ChangeTracker) ClearChangeHistory() error {
	return t.changes.Clear()
}

func (t *ChangeTracker) ClearAnalysisHistory() error {
	return t.analyses.Clear()
}

// RecordAnalysis 外部分析结果插入分析历史最前面
func (t *ChangeTracker) RecordAnalysis(rec model.AnalysisRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.clock()
	}
	if !rec.Action.Valid() {
		rec.Action = model.ParseAnalysisAction(string(rec.Action))
	}
	return t.analyses.Append(rec)
}

// SetWallets 替换跟踪的钱包列表，去重并保持顺序
func (t *ChangeTracker) SetWallets(wallets []string) {
	normalized := normalizeWallets(wallets)
	t.mu.Lock()
	t.wallets = normalized
	t.mu.Unlock()
	t.log.Info("👛 跟踪钱包已更新", logger.Int("wallets", len(normalized)))
}

// Wallets 当前跟踪的钱包
func (t *ChangeTracker) Wallets() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.wallets...)
}

// Stats 运行统计快照
func (t *ChangeTracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// ExportHistory 两份历史导出为一个 xlsx 文件
func (t *ChangeTracker) ExportHistory(path string) error {
	changes, err := history.SheetOf("changes", t.changes)
	if err != nil {
		return err
	}
	analyses, err := history.SheetOf("analyses", t.analyses)
	if err != nil {
		return err
	}
	return history.ExportXLSX(path, changes, analyses)
}

func normalizeWallets(wallets []string) []string {
	seen := make(map[string]struct{}, len(wallets))
	out := make([]string, 0, len(wallets))
	for _, w := range wallets {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

var _ analysis.Recorder = (*ChangeTracker)(nil)
