// Package source 配置数据来源：本地文件、Nacos(MSE) 等
package source

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"time"
)

var ErrWatcherStopped = errors.New("watcher stopped")

// Source 配置源
type Source interface {
	Read() (*ChangeSet, error)
	Watch() (Watcher, error)
	String() string
}

// Watcher 监听配置源变更
type Watcher interface {
	Next() (*ChangeSet, error)
	Stop() error
}

// ChangeSet 一次读取到的配置内容
type ChangeSet struct {
	Data      []byte
	Checksum  string
	Format    string
	Source    string
	Timestamp time.Time
}

// Sum 计算内容校验和
func (c *ChangeSet) Sum() string {
	h := md5.Sum(c.Data)
	return hex.EncodeToString(h[:])
}

type Options struct {
	// 数据格式 json/yaml/toml
	Format string

	// 各个源自定义的选项
	Context context.Context
}

type Option func(o *Options)

func NewOptions(opts ...Option) Options {
	options := Options{
		Context: context.Background(),
	}
	for _, o := range opts {
		o(&options)
	}
	return options
}

// WithFormat 指定数据格式，兼容带点的扩展名
func WithFormat(f string) Option {
	return func(o *Options) {
		if len(f) > 0 && f[0] == '.' {
			f = f[1:]
		}
		o.Format = f
	}
}
