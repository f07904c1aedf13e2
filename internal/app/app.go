package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ninja0404/token-tracker/internal/analysis"
	"github.com/ninja0404/token-tracker/internal/config"
	"github.com/ninja0404/token-tracker/internal/detector/condition"
	"github.com/ninja0404/token-tracker/internal/history"
	"github.com/ninja0404/token-tracker/internal/publisher"
	"github.com/ninja0404/token-tracker/internal/repo"
	"github.com/ninja0404/token-tracker/internal/scanner"
	"github.com/ninja0404/token-tracker/internal/snapshot"
	"github.com/ninja0404/token-tracker/internal/tracker"
	"github.com/ninja0404/token-tracker/pkg/database/polardbx"
	"github.com/ninja0404/token-tracker/pkg/logger"
	"github.com/ninja0404/token-tracker/pkg/mq/kafka"
)

// Application 钱包持仓变化跟踪应用
type Application struct {
	configManager *config.Manager
	publishers    *publisher.Manager
	tracker       *tracker.ChangeTracker
	ingest        *analysis.KafkaIngest
	db            *gorm.DB
	redis         redis.UniversalClient

	archive tracker.Archive
	cancel  context.CancelFunc
}

// New 创建应用实例
func New() *Application {
	return &Application{
		configManager: config.NewManager(),
	}
}

// Initialize 初始化应用
func (app *Application) Initialize(configPath string) error {
	// 1. 读取 .env
	loadDotEnv(".env")

	// 2. 加载配置
	if err := app.configManager.Load(configPath); err != nil {
		return err
	}

	// 3. 初始化日志系统
	if err := app.configManager.InitLogger(); err != nil {
		return err
	}
	cfg := app.configManager.GetAppConfig()
	logger.Info("🚀 持仓跟踪服务初始化开始", logger.String("config_path", configPath))

	// 4. 初始化数据库和缓存
	if err := app.initDatabase(cfg); err != nil {
		return err
	}
	app.initRedis(cfg)

	// 5. 发布器
	if err := app.initPublishers(cfg); err != nil {
		return err
	}

	// 6. 跟踪器
	if err := app.initTracker(cfg); err != nil {
		return err
	}

	// 7. 外部分析结果
	if err := app.initIngest(cfg); err != nil {
		return err
	}

	app.configManager.OnChange(func(c *config.AppConfig) {
		app.tracker.SetWallets(c.Tracker.Wallets)
	})

	logger.Info("✅ 持仓跟踪服务初始化完成", logger.Int("wallets", len(cfg.Tracker.Wallets)))
	return nil
}

func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		logger.Warn("⚠️ 读取 .env 失败", logger.FieldErr(err))
	}
}

// initDatabase 未配置 host 时跳过
func (app *Application) initDatabase(cfg *config.AppConfig) error {
	if !cfg.PolarX.Enabled() {
		logger.Info("🗄️ 未配置数据库，跳过归档与代币信息查询")
		return nil
	}
	db, err := polardbx.SetupDefaultDatabase(&cfg.PolarX)
	if err != nil {
		return err
	}
	app.db = db

	changeRepo := repo.NewChangeEventRepo(db)
	if err := changeRepo.AutoMigrate(); err != nil {
		return err
	}
	app.archive = changeRepo

	logger.Info("📊 数据库连接已建立", logger.String("host", cfg.PolarX.Host))
	return nil
}

func (app *Application) initRedis(cfg *config.AppConfig) {
	if !cfg.Redis.Enabled() {
		return
	}
	app.redis = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("🧊 已启用代币信息缓存", logger.Strings("addrs", cfg.Redis.Addrs))
}

// resolver 数据库 -> 缓存，两者都未配置时使用默认名称
func (app *Application) resolver(cfg *config.AppConfig) scanner.Resolver {
	var r scanner.Resolver = scanner.StaticResolver{}
	if app.db != nil {
		r = scanner.NewRepoResolver(repo.NewTokenInfoRepo(app.db))
	}
	if app.redis != nil {
		ttl := time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
		r = scanner.NewCachedResolver(app.redis, r, ttl)
	}
	return r
}

func (app *Application) initPublishers(cfg *config.AppConfig) error {
	pc := cfg.Publisher
	app.publishers = publisher.NewManager(
		time.Duration(pc.CooldownSeconds)*time.Second,
		condition.FromConfig(pc.Filter),
	)
	app.publishers.AddPublisher(&publisher.LogPublisher{})

	if pc.Feishu.WebhookURL != "" {
		app.publishers.AddPublisher(publisher.NewFeishuPublisher(pc.Feishu.WebhookURL))
	} else {
		logger.Warn("⚠️ 飞书发布器缺少webhook URL配置")
	}

	if pc.Telegram.Enabled() {
		p, err := publisher.NewTelegramPublisher(pc.Telegram.BotToken, pc.Telegram.ChatIDs)
		if err != nil {
			return err
		}
		app.publishers.AddPublisher(p)
	}

	if pc.Kafka.Enabled() {
		producer, err := kafka.NewKafkaProducer(pc.Kafka.Brokers, pc.Kafka.Producer)
		if err != nil {
			return err
		}
		p, err := publisher.NewKafkaPublisher(producer, pc.Kafka.Topic)
		if err != nil {
			return err
		}
		app.publishers.AddPublisher(p)
	}
	return nil
}

func (app *Application) initTracker(cfg *config.AppConfig) error {
	tc := cfg.Tracker
	store, err := snapshot.NewFileStore(tc.SnapshotPath)
	if err != nil {
		return err
	}
	changes, err := history.NewChangeLog(tc.ChangeLogPath, tc.HistoryCap)
	if err != nil {
		return err
	}
	analyses, err := history.NewAnalysisLog(tc.AnalysisLogPath, tc.HistoryCap)
	if err != nil {
		return err
	}

	var analyzer analysis.Analyzer
	if cfg.Analysis.OpenAI.APIKey != "" {
		a, err := analysis.NewOpenAIAnalyzer(cfg.Analysis.OpenAI)
		if err != nil {
			return err
		}
		analyzer = a
	}

	app.tracker, err = tracker.New(tracker.Options{
		Store:       store,
		Scanner:     scanner.NewRPCScanner(cfg.Solana.ScannerConfig(), nil, app.resolver(cfg)),
		Changes:     changes,
		Analyses:    analyses,
		Wallets:     tc.Wallets,
		Interval:    tc.Interval(),
		Publisher:   app.publishers,
		Archive:     app.archive,
		Analyzer:    analyzer,
		MaxAnalyses: tc.MaxAnalyses,
	})
	return err
}

func (app *Application) initIngest(cfg *config.AppConfig) error {
	ic := cfg.Analysis.Ingest
	if !ic.Enabled() {
		return nil
	}
	consumerCfg := ic.Consumer
	if len(consumerCfg.Topics) == 0 {
		consumerCfg.Topics = []string{ic.Topic}
	}
	consumer, err := kafka.NewKafkaConsumer(ic.Brokers, consumerCfg)
	if err != nil {
		return err
	}
	app.ingest = analysis.NewKafkaIngest(consumer, ic.Topic, app.tracker)
	return nil
}

// Run 运行应用，阻塞到收到终止信号
func (app *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	if err := app.publishers.Start(); err != nil {
		return err
	}
	if app.ingest != nil {
		if err := app.ingest.Start(); err != nil {
			return err
		}
	}
	app.tracker.Start(ctx)

	logger.Info("🔥 持仓跟踪服务已启动",
		logger.Strings("wallets", app.tracker.Wallets()),
		logger.Strings("publishers", app.publishers.Publishers()))

	app.waitForShutdown()
	return nil
}

// waitForShutdown 等待关闭信号
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("📤 收到终止信号，开始优雅关闭应用...", logger.String("signal", sig.String()))

	app.Shutdown()
}

// Shutdown 优雅关闭应用
func (app *Application) Shutdown() {
	logger.Info("🛑 开始关闭持仓跟踪服务...")

	if app.cancel != nil {
		app.cancel()
	}
	if app.tracker != nil {
		app.tracker.Stop()
	}
	if app.ingest != nil {
		if err := app.ingest.Close(); err != nil {
			logger.Error("关闭分析结果消费失败", logger.FieldErr(err))
		}
	}
	if app.publishers != nil {
		if err := app.publishers.Stop(); err != nil {
			logger.Error("关闭发布器失败", logger.FieldErr(err))
		}
	}

	cfg := app.configManager.GetAppConfig()
	if app.tracker != nil && cfg != nil && cfg.Tracker.ExportPath != "" {
		if err := app.tracker.ExportHistory(cfg.Tracker.ExportPath); err != nil {
			logger.Error("导出历史失败", logger.FieldErr(err))
		} else {
			logger.Info("📑 历史已导出", logger.FieldPath(cfg.Tracker.ExportPath))
		}
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			logger.Error("关闭redis失败", logger.FieldErr(err))
		}
	}
	if app.db != nil {
		if err := polardbx.Stop(); err != nil {
			logger.Error("关闭数据库连接失败", logger.FieldErr(err))
		}
	}
	if err := app.configManager.Close(); err != nil {
		logger.Error("关闭配置监听失败", logger.FieldErr(err))
	}

	if app.tracker != nil {
		stats := app.tracker.Stats()
		logger.Info("📈 服务运行统计",
			logger.Int64("cycles", stats.Cycles),
			logger.Int64("events", stats.Events),
			logger.Int64("failed_scans", stats.FailedScans),
			logger.Int64("failed_cycles", stats.FailedCycles))
	}

	logger.Info("✨ 持仓跟踪服务已成功关闭")
	logger.Close()
}

// Start 初始化并运行
func (app *Application) Start(configPath string) error {
	if err := app.Initialize(configPath); err != nil {
		logger.Error("❌ 持仓跟踪服务初始化失败", logger.FieldErr(err))
		return err
	}

	if err := app.Run(); err != nil {
		logger.Error("❌ 持仓跟踪服务运行失败", logger.FieldErr(err))
		return err
	}
	return nil
}

// GetConfigManager 获取配置管理器
func (app *Application) GetConfigManager() *config.Manager {
	return app.configManager
}

// GetTracker 获取跟踪器
func (app *Application) GetTracker() *tracker.ChangeTracker {
	return app.tracker
}
