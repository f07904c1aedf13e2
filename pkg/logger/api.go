package logger

import "go.uber.org/zap"

// 未初始化时使用 nop logger，避免包级函数在测试中 panic
var defaultLogger = zap.NewNop()

func Default() *Logger {
	return defaultLogger
}

func SetDefault(l *Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger = l
}

func Debug(msg string, fields ...Field) {
	defaultLogger.Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	defaultLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	defaultLogger.Warn(msg, fields...)
}

func Error(msg string, fields ...Field) {
	defaultLogger.Error(msg, fields...)
}

// Fatal logs a message at FatalLevel and then calls os.Exit(1).
func Fatal(msg string, fields ...Field) {
	defaultLogger.Fatal(msg, fields...)
}

// With creates a child logger and adds structured context to it.
func With(fields ...Field) *Logger {
	return defaultLogger.With(fields...)
}

// Named adds a new path segment to the logger's name.
func Named(s string) *Logger {
	return defaultLogger.Named(s)
}

func Level() string {
	return defaultLogger.Level().String()
}

func Close() {
	_ = defaultLogger.Sync()
	FlushSentry()
}
