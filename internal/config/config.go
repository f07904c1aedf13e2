package config

import (
	"strings"
	"sync"
	"time"

	"github.com/ninja0404/token-tracker/internal/analysis"
	"github.com/ninja0404/token-tracker/internal/common"
	"github.com/ninja0404/token-tracker/internal/detector/condition"
	"github.com/ninja0404/token-tracker/internal/history"
	"github.com/ninja0404/token-tracker/internal/scanner"
	"github.com/ninja0404/token-tracker/pkg/config"
	"github.com/ninja0404/token-tracker/pkg/config/source"
	"github.com/ninja0404/token-tracker/pkg/config/source/file"
	"github.com/ninja0404/token-tracker/pkg/config/source/mse"
	"github.com/ninja0404/token-tracker/pkg/database/polardbx"
	"github.com/ninja0404/token-tracker/pkg/logger"
	"github.com/ninja0404/token-tracker/pkg/mq/kafka"
	"github.com/ninja0404/token-tracker/pkg/utils"
)

// AppConfig 应用配置结构
type AppConfig struct {
	Logger    logger.Config        `yaml:"logger" json:"logger"`
	Tracker   TrackerConfig        `yaml:"tracker" json:"tracker"`
	Solana    SolanaConfig         `yaml:"solana" json:"solana"`
	Redis     RedisConfig          `yaml:"redis" json:"redis"`
	PolarX    polardbx.MysqlConfig `yaml:"polarx" json:"polarx"`
	Publisher PublisherConfig      `yaml:"publisher" json:"publisher"`
	Analysis  AnalysisConfig       `yaml:"analysis" json:"analysis"`
}

// TrackerConfig 跟踪的钱包与本地存储
type TrackerConfig struct {
	Wallets         []string `yaml:"wallets" json:"wallets"`
	IntervalSeconds int      `yaml:"interval_seconds" json:"interval_seconds"`
	SnapshotPath    string   `yaml:"snapshot_path" json:"snapshot_path"`
	ChangeLogPath   string   `yaml:"change_log_path" json:"change_log_path"`
	AnalysisLogPath string   `yaml:"analysis_log_path" json:"analysis_log_path"`
	HistoryCap      int      `yaml:"history_cap" json:"history_cap"`
	MaxAnalyses     int      `yaml:"max_analyses" json:"max_analyses"`
	// ExportPath 非空时退出前导出 xlsx
	ExportPath string `yaml:"export_path" json:"export_path"`
}

// Interval 扫描间隔
func (c TrackerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// SolanaConfig RPC 扫描配置
type SolanaConfig struct {
	Endpoint          string  `yaml:"endpoint" json:"endpoint"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxAttempts       int     `yaml:"max_attempts" json:"max_attempts"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Concurrency       int     `yaml:"concurrency" json:"concurrency"`
	DisableToken2022  bool    `yaml:"disable_token_2022" json:"disable_token_2022"`
}

// ScannerConfig 转换为扫描器参数
func (c SolanaConfig) ScannerConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = c.RequestsPerSecond
	}
	if c.Concurrency > 0 {
		cfg.Concurrency = c.Concurrency
	}
	cfg.IncludeToken2022 = !c.DisableToken2022
	return cfg
}

// RedisConfig 代币信息缓存，addrs 为空时不启用
type RedisConfig struct {
	Addrs           []string `yaml:"addrs" json:"addrs"`
	Password        string   `yaml:"password" json:"password"`
	DB              int      `yaml:"db" json:"db"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
}

func (c RedisConfig) Enabled() bool {
	return len(c.Addrs) > 0
}

// PublisherConfig 发布器配置
type PublisherConfig struct {
	CooldownSeconds int                    `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	Filter          condition.FilterConfig `yaml:"filter" json:"filter"`
	Feishu          FeishuConfig           `yaml:"feishu" json:"feishu"`
	Telegram        TelegramConfig         `yaml:"telegram" json:"telegram"`
	Kafka           KafkaPublisherConfig   `yaml:"kafka" json:"kafka"`
}

// FeishuConfig 飞书发布器配置
type FeishuConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// TelegramConfig bot token 与会话列表
type TelegramConfig struct {
	BotToken string   `yaml:"bot_token" json:"bot_token"`
	ChatIDs  []string `yaml:"chat_ids" json:"chat_ids"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && len(c.ChatIDs) > 0
}

// KafkaPublisherConfig 变化事件写入 kafka
type KafkaPublisherConfig struct {
	Brokers  []string                  `yaml:"brokers" json:"brokers"`
	Topic    string                    `yaml:"topic" json:"topic"`
	Producer kafka.KafkaProducerConfig `yaml:"producer" json:"producer"`
}

func (c KafkaPublisherConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// AnalysisConfig 分析模型与外部分析结果消费
type AnalysisConfig struct {
	OpenAI analysis.Config   `yaml:"openai" json:"openai"`
	Ingest KafkaIngestConfig `yaml:"ingest" json:"ingest"`
}

// KafkaIngestConfig 外部分析结果 topic
type KafkaIngestConfig struct {
	Brokers  []string                  `yaml:"brokers" json:"brokers"`
	Topic    string                    `yaml:"topic" json:"topic"`
	Consumer kafka.KafkaConsumerConfig `yaml:"consumer" json:"consumer"`
}

func (c KafkaIngestConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// DefaultAppConfig 默认配置
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Logger: *logger.DefaultConfig(),
		Tracker: TrackerConfig{
			IntervalSeconds: 600,
			SnapshotPath:    "./data/token_snapshot.json",
			ChangeLogPath:   "./data/token_changes.csv",
			AnalysisLogPath: "./data/ai_analysis.csv",
			HistoryCap:      history.DefaultCap,
			MaxAnalyses:     5,
		},
		Publisher: PublisherConfig{CooldownSeconds: 3600},
	}
}

// applyDefaults 补全未配置或非法的字段，返回的是副本
func applyDefaults(c AppConfig) AppConfig {
	d := DefaultAppConfig()
	if c.Logger.Name == "" {
		c.Logger.Name = d.Logger.Name
	}
	if c.Logger.Level == "" {
		c.Logger.Level = d.Logger.Level
	}
	if c.Logger.Output == "" {
		c.Logger.Output = d.Logger.Output
	}
	if c.Tracker.IntervalSeconds <= 0 {
		c.Tracker.IntervalSeconds = d.Tracker.IntervalSeconds
	}
	if c.Tracker.SnapshotPath == "" {
		c.Tracker.SnapshotPath = d.Tracker.SnapshotPath
	}
	if c.Tracker.ChangeLogPath == "" {
		c.Tracker.ChangeLogPath = d.Tracker.ChangeLogPath
	}
	if c.Tracker.AnalysisLogPath == "" {
		c.Tracker.AnalysisLogPath = d.Tracker.AnalysisLogPath
	}
	if c.Tracker.HistoryCap <= 0 {
		c.Tracker.HistoryCap = d.Tracker.HistoryCap
	}
	if c.Tracker.MaxAnalyses <= 0 {
		c.Tracker.MaxAnalyses = d.Tracker.MaxAnalyses
	}
	if c.Publisher.CooldownSeconds <= 0 {
		c.Publisher.CooldownSeconds = d.Publisher.CooldownSeconds
	}
	wallets := make([]string, 0, len(c.Tracker.Wallets))
	for _, w := range c.Tracker.Wallets {
		if w = strings.TrimSpace(w); w != "" {
			wallets = append(wallets, w)
		}
	}
	c.Tracker.Wallets = wallets
	return c
}

// Validate 检查必须的配置项
func (c *AppConfig) Validate() error {
	t := c.Tracker
	if t.SnapshotPath == t.ChangeLogPath || t.ChangeLogPath == t.AnalysisLogPath || t.SnapshotPath == t.AnalysisLogPath {
		return common.ConfigError("tracker paths must be distinct")
	}
	if c.Solana.MaxAttempts > 5 {
		return common.ConfigError("solana.max_attempts must be <= 5, got %d", c.Solana.MaxAttempts)
	}
	if c.Solana.RequestsPerSecond < 0 {
		return common.ConfigError("solana.requests_per_second must be >= 0")
	}
	if len(c.Publisher.Telegram.ChatIDs) > 0 && c.Publisher.Telegram.BotToken == "" {
		return common.ConfigError("publisher.telegram.bot_token is required when chat_ids are set")
	}
	if len(c.Publisher.Kafka.Brokers) > 0 && c.Publisher.Kafka.Topic == "" {
		return common.ConfigError("publisher.kafka.topic is required when brokers are set")
	}
	if len(c.Analysis.Ingest.Brokers) > 0 && c.Analysis.Ingest.Topic == "" {
		return common.ConfigError("analysis.ingest.topic is required when brokers are set")
	}
	return nil
}

// Manager 配置管理器
type Manager struct {
	source *config.Config

	mu     sync.RWMutex
	config *AppConfig
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	return &Manager{source: config.New()}
}

// Load 加载配置，CONFIG_TYPE=MSE 时从 Nacos 读取，否则读取本地文件
func (m *Manager) Load(configPath string) error {
	src, err := newSource(configPath)
	if err != nil {
		return err
	}
	if err := m.source.Load(src); err != nil {
		return common.Wrap(common.ErrConfiguration, err, "load config")
	}

	appConfig, err := m.scan()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = appConfig
	m.mu.Unlock()
	return nil
}

func newSource(configPath string) (source.Source, error) {
	if utils.GetConfigType() == utils.CONFIG_MSE {
		conf, err := mse.ConfigFromEnv(utils.EnvPrefix())
		if err != nil {
			return nil, common.Wrap(common.ErrConfiguration, err, "mse config")
		}
		return mse.NewSource(mse.WithMseConfig(conf), source.WithFormat("yaml"))
	}
	return file.NewSource(file.WithPath(utils.GetConfigFilePath(configPath))), nil
}

func (m *Manager) scan() (*AppConfig, error) {
	raw := *DefaultAppConfig()
	if err := m.source.Scan(&raw); err != nil {
		return nil, common.Wrap(common.ErrConfiguration, err, "scan config")
	}
	appConfig := applyDefaults(raw)
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	return &appConfig, nil
}

// OnChange 配置变更且校验通过后回调，校验失败保留旧配置
func (m *Manager) OnChange(fn func(cfg *AppConfig)) {
	m.source.OnChange(func() {
		appConfig, err := m.scan()
		if err != nil {
			logger.Warn("⚠️ 新配置无效，继续使用旧配置", logger.FieldErr(err))
			return
		}
		m.mu.Lock()
		m.config = appConfig
		m.mu.Unlock()
		fn(appConfig)
	})
}

// GetAppConfig 获取应用配置
func (m *Manager) GetAppConfig() *AppConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetLoggerConfig 获取日志配置
func (m *Manager) GetLoggerConfig() logger.Config {
	return m.GetAppConfig().Logger
}

// GetDatabaseConfig 获取数据库配置
func (m *Manager) GetDatabaseConfig() polardbx.MysqlConfig {
	return m.GetAppConfig().PolarX
}

// GetPublisherConfig 获取发布器配置
func (m *Manager) GetPublisherConfig() PublisherConfig {
	return m.GetAppConfig().Publisher
}

// InitLogger 初始化日志系统
func (m *Manager) InitLogger() error {
	loggerConfig := m.GetLoggerConfig()
	loggerInstance, err := loggerConfig.Build()
	if err != nil {
		return common.Wrap(common.ErrConfiguration, err, "build logger")
	}
	logger.SetDefault(loggerInstance)
	return nil
}

// Close 停止配置监听
func (m *Manager) Close() error {
	return m.source.Close()
}
