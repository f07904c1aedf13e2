package polardbx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	gormUtils "gorm.io/gorm/utils"

	"github.com/ninja0404/token-tracker/pkg/logger"
)

var _ gormLogger.Interface = &MysqlLogger{}

// MysqlLogger gorm 日志转 zap，SQL/行数/耗时作为字段输出
type MysqlLogger struct {
	logger        *logger.Logger
	level         gormLogger.LogLevel
	slowThreshold time.Duration
}

func NewMysqlLogger(l *logger.Logger, level gormLogger.LogLevel, slowThreshold time.Duration) *MysqlLogger {
	return &MysqlLogger{logger: l, level: level, slowThreshold: slowThreshold}
}

func (l *MysqlLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *MysqlLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *MysqlLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *MysqlLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *MysqlLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	fields := func() []logger.Field {
		sql, rows := fc()
		return []logger.Field{
			logger.String("sql", strings.TrimSpace(sql)),
			logger.Int64("rows", rows),
			logger.FieldCost(elapsed),
			logger.String("caller", gormUtils.FileWithLineNum()),
		}
	}

	switch {
	// 记录不存在属于正常查询结果
	case err != nil && l.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.Error("❌ SQL执行失败: "+err.Error(), fields()...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormLogger.Warn:
		l.logger.Warn(fmt.Sprintf("🐢 SLOW SQL >= %v", l.slowThreshold), fields()...)
	case l.level == gormLogger.Info:
		l.logger.Debug("SQL", fields()...)
	}
}

// mappingLoggerLevel 配置的日志等级映射为 gorm 等级，info 及以下只输出慢查询
func mappingLoggerLevel(level string, openDebug bool) gormLogger.LogLevel {
	if openDebug {
		return gormLogger.Info
	}
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "":
		return gormLogger.Warn
	case "error", "dpanic", "panic", "fatal":
		return gormLogger.Error
	default:
		return gormLogger.Silent
	}
}
