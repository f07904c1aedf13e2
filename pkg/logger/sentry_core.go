package logger

import (
	"fmt"
	"math"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

const sentryFlushTimeout = 5 * time.Second

var sentryEnabled bool

// InitSentry 初始化 sentry 客户端
func InitSentry(dsn, serverName string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		ServerName:       serverName,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("初始化sentry失败: %w", err)
	}
	sentryEnabled = true
	return nil
}

func FlushSentry() {
	if sentryEnabled {
		sentry.Flush(sentryFlushTimeout)
	}
}

// SentryCore 把达到等级的日志转发到 sentry
type SentryCore struct {
	level  zapcore.Level
	fields []zapcore.Field
}

func NewSentryCore(level zapcore.Level) zapcore.Core {
	return &SentryCore{level: level}
}

func (c *SentryCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

func (c *SentryCore) With(f []zapcore.Field) zapcore.Core {
	fields := make([]zapcore.Field, 0, len(c.fields)+len(f))
	fields = append(fields, c.fields...)
	fields = append(fields, f...)
	return &SentryCore{level: c.level, fields: fields}
}

func (c *SentryCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *SentryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	sentry.WithScope(func(scope *sentry.Scope) {
		if len(all) > 0 {
			scope.SetExtras(fieldsToExtras(all))
		}
		scope.SetTag("logger", ent.LoggerName)
		scope.SetLevel(sentryLevel(ent.Level))
		sentry.CaptureMessage(ent.Message)
	})

	if ent.Level > zapcore.ErrorLevel {
		return c.Sync()
	}
	return nil
}

func (c *SentryCore) Sync() error {
	sentry.Flush(sentryFlushTimeout)
	return nil
}

func fieldsToExtras(fields []zapcore.Field) map[string]interface{} {
	extras := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch f.Type {
		case zapcore.BoolType:
			extras[f.Key] = f.Integer == 1
		case zapcore.DurationType:
			extras[f.Key] = time.Duration(f.Integer).String()
		case zapcore.Float64Type:
			extras[f.Key] = math.Float64frombits(uint64(f.Integer))
		case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
			extras[f.Key] = f.Integer
		case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
			extras[f.Key] = uint64(f.Integer)
		case zapcore.StringType:
			extras[f.Key] = f.String
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok {
				extras[f.Key] = err.Error()
			}
		case zapcore.TimeFullType:
			extras[f.Key] = f.Interface
		case zapcore.ReflectType, zapcore.StringerType:
			extras[f.Key] = fmt.Sprintf("%v", f.Interface)
		case zapcore.NamespaceType, zapcore.SkipType:
			continue
		default:
			extras[f.Key] = fmt.Sprintf("%v", f.Interface)
		}
	}
	return extras
}

func sentryLevel(lvl zapcore.Level) sentry.Level {
	switch lvl {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}
