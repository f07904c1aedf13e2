package logger

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newRotate 按大小切割日志文件
func newRotate(c *Config) io.Writer {
	return &lumberjack.Logger{
		Filename:   c.Filename(),
		MaxSize:    c.MaxSize, // MB
		MaxAge:     c.MaxAge,  // days
		MaxBackups: c.MaxBackup,
		LocalTime:  true,
		Compress:   c.Compress,
	}
}
