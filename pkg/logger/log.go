package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Field  = zap.Field
	Logger = zap.Logger
	Option = zap.Option
)

var (
	String   = zap.String
	Strings  = zap.Strings
	Any      = zap.Any
	Int64    = zap.Int64
	Int      = zap.Int
	Int32    = zap.Int32
	Uint64   = zap.Uint64
	Bool     = zap.Bool
	Time     = zap.Time
	Duration = zap.Duration
	Float64  = zap.Float64
	Reflect  = zap.Reflect
	Skip     = zap.Skip()
)

func newLogger(c *Config) (*zap.Logger, error) {
	if c.Debug {
		color.NoColor = false
	}

	zapOptions := []zap.Option{zap.AddStacktrace(zap.DPanicLevel)}
	if c.AddCaller {
		zapOptions = append(zapOptions, zap.AddCaller(), zap.AddCallerSkip(c.CallerSkip))
	}

	var ws zapcore.WriteSyncer
	switch {
	case c.Discard || c.Output == "discard":
		ws = zapcore.AddSync(discardWriter{})
	case c.Output == "file":
		ws = zapcore.AddSync(newRotate(c))
	default:
		ws = zapcore.Lock(os.Stdout)
	}

	if c.Async {
		ws = &zapcore.BufferedWriteSyncer{
			WS:            ws,
			FlushInterval: c.FlushInterval,
			Size:          c.FlushBufferSize,
		}
	}

	lv := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := lv.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("日志等级无效 %q: %w", c.Level, err)
	}

	if c.SentryDSN != "" && !c.DisableSentry {
		sentryLevel := zapcore.ErrorLevel
		if err := sentryLevel.UnmarshalText([]byte(c.SentryLevel)); err != nil {
			return nil, fmt.Errorf("sentry 等级无效 %q: %w", c.SentryLevel, err)
		}
		if err := InitSentry(c.SentryDSN, c.Name); err != nil {
			return nil, err
		}
		sentryCore := NewSentryCore(sentryLevel)
		zapOptions = append(zapOptions, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, sentryCore)
		}))
	}

	encoderConfig := defaultEncoderConfig()
	var encoder zapcore.Encoder
	if c.Debug {
		encoderConfig.EncodeLevel = debugEncodeLevel
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, ws, lv)
	return zap.New(core, zapOptions...).Named(c.Name), nil
}

func defaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func debugEncodeLevel(lv zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	colorize := color.RedString
	switch lv {
	case zapcore.DebugLevel:
		colorize = color.BlueString
	case zapcore.InfoLevel:
		colorize = color.GreenString
	case zapcore.WarnLevel:
		colorize = color.YellowString
	}
	enc.AppendString(colorize(fmt.Sprintf("[%s]", lv.CapitalString())))
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
