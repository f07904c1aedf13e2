package logger

import (
	"path/filepath"
	"time"
)

type Config struct {
	// Output 输出方式：stdout、file、discard
	Output string `yaml:"output" json:"output" toml:"output"`
	// Dir 日志目录
	Dir string `yaml:"dir" json:"dir" toml:"dir"`
	// Name 日志文件名，同时作为logger名称
	Name string `yaml:"name" json:"name" toml:"name"`
	// Level 日志等级
	Level string `yaml:"level" json:"level" toml:"level"`
	// AddCaller 是否添加调用者信息
	AddCaller bool `yaml:"add_caller" json:"add_caller" toml:"add_caller"`
	// CallerSkip 日志调用者层级
	CallerSkip int `yaml:"caller_skip" json:"caller_skip" toml:"caller_skip"`
	// MaxSize 单文件最大长度(单位: mb)
	MaxSize int `yaml:"max_size" json:"max_size" toml:"max_size"`
	// MaxAge 日志文件最大保留时间(单位: 天)
	MaxAge int `yaml:"max_age" json:"max_age" toml:"max_age"`
	// MaxBackup 日志副本数
	MaxBackup int  `yaml:"max_backup" json:"max_backup" toml:"max_backup"`
	Compress  bool `yaml:"compress" json:"compress" toml:"compress"`
	// Async 缓冲写入
	Async           bool          `yaml:"async" json:"async" toml:"async"`
	FlushBufferSize int           `yaml:"flush_buffer_size" json:"flush_buffer_size" toml:"flush_buffer_size"`
	FlushInterval   time.Duration `yaml:"flush_interval" json:"flush_interval" toml:"flush_interval"`
	// Debug 调试模式使用彩色控制台输出
	Debug   bool `yaml:"debug" json:"debug" toml:"debug"`
	Discard bool `yaml:"discard" json:"discard" toml:"discard"`
	// Sentry 上报，DSN 为空时不开启
	SentryDSN     string `yaml:"sentry_dsn" json:"sentry_dsn" toml:"sentry_dsn"`
	DisableSentry bool   `yaml:"disable_sentry" json:"disable_sentry" toml:"disable_sentry"`
	SentryLevel   string `yaml:"sentry_level" json:"sentry_level" toml:"sentry_level"`
}

func (c *Config) Filename() string {
	return filepath.Join(c.Dir, c.Name+".log")
}

// Build 根据配置构建logger
func (c *Config) Build() (*Logger, error) {
	return newLogger(c)
}

// DefaultConfig 默认日志配置
func DefaultConfig() *Config {
	return &Config{
		Name:            "token-tracker",
		Output:          "stdout",
		Dir:             "./logs/",
		Level:           "info",
		MaxSize:         500,
		MaxAge:          7,
		MaxBackup:       10,
		AddCaller:       true,
		FlushBufferSize: 256 * 1024,
		FlushInterval:   5 * time.Second,
		SentryLevel:     "error",
	}
}
