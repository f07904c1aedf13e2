package logger

import "context"

type ctxLoggerKey struct{}

// ContextWithLog 把带字段的logger放进上下文，下游按轮次输出日志
func ContextWithLog(ctx context.Context, l *Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

// LogFromContext 取出上下文中的logger，没有时使用默认logger
func LogFromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLoggerKey{}).(*Logger); ok {
			return l
		}
	}
	return defaultLogger
}
