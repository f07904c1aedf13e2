// Package config 多源配置加载：读取、合并、按路径取值，并支持热更新
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ninja0404/token-tracker/pkg/config/reader"
	"github.com/ninja0404/token-tracker/pkg/config/reader/json"
	"github.com/ninja0404/token-tracker/pkg/config/source"
	"github.com/ninja0404/token-tracker/pkg/logger"
)

type Options struct {
	Reader reader.Reader
	// Watch 为 true 时监听配置源变化
	Watch bool
}

type Option func(o *Options)

// WithReader sets the config reader
func WithReader(r reader.Reader) Option {
	return func(o *Options) {
		o.Reader = r
	}
}

// WithWatch 开启或关闭配置监听
func WithWatch(watch bool) Option {
	return func(o *Options) {
		o.Watch = watch
	}
}

type Config struct {
	opts Options

	mu       sync.RWMutex
	sources  []source.Source
	sets     []*source.ChangeSet
	merged   *source.ChangeSet
	values   reader.Values
	watchers []source.Watcher
	onChange []func()

	exit chan struct{}
	once sync.Once
}

// New 创建配置实例
func New(opts ...Option) *Config {
	options := Options{Reader: json.NewReader(), Watch: true}
	for _, o := range opts {
		o(&options)
	}
	return &Config{opts: options, exit: make(chan struct{})}
}

// Load 读取并合并配置源，后加载的源优先
func (c *Config) Load(sources ...source.Source) error {
	sets := make([]*source.ChangeSet, 0, len(sources))
	for _, s := range sources {
		cs, err := s.Read()
		if err != nil {
			return fmt.Errorf("读取配置源 %s 失败: %w", s.String(), err)
		}
		sets = append(sets, cs)
	}

	c.mu.Lock()
	c.sources = append(c.sources, sources...)
	c.sets = append(c.sets, sets...)
	err := c.rebuildLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if c.opts.Watch {
		for _, s := range sources {
			c.watch(s)
		}
	}
	return nil
}

func (c *Config) rebuildLocked() error {
	merged, err := c.opts.Reader.Merge(c.sets...)
	if err != nil {
		return err
	}
	values, err := c.opts.Reader.Values(merged)
	if err != nil {
		return err
	}
	c.merged = merged
	c.values = values
	return nil
}

func (c *Config) watch(s source.Source) {
	w, err := s.Watch()
	if err != nil {
		logger.Warn("⚠️ 配置源不支持监听", logger.String("source", s.String()), logger.FieldErr(err))
		return
	}

	c.mu.Lock()
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	go func() {
		for {
			cs, err := w.Next()
			if errors.Is(err, source.ErrWatcherStopped) {
				return
			}
			if err != nil {
				logger.Warn("⚠️ 配置监听出错", logger.String("source", s.String()), logger.FieldErr(err))
				select {
				case <-c.exit:
					return
				case <-time.After(time.Second):
				}
				continue
			}
			c.update(s, cs)
		}
	}()
}

func (c *Config) update(s source.Source, cs *source.ChangeSet) {
	// 文件被截断重写的瞬间会读到空内容
	if cs == nil || len(cs.Data) == 0 {
		return
	}
	c.mu.Lock()
	idx := -1
	for i, src := range c.sources {
		if src == s {
			idx = i
			break
		}
	}
	if idx < 0 || c.sets[idx].Checksum == cs.Checksum {
		c.mu.Unlock()
		return
	}

	prev := c.sets[idx]
	c.sets[idx] = cs
	if err := c.rebuildLocked(); err != nil {
		c.sets[idx] = prev
		c.mu.Unlock()
		logger.Error("❌ 配置更新解析失败，保留旧配置", logger.String("source", s.String()), logger.FieldErr(err))
		return
	}
	callbacks := append([]func(){}, c.onChange...)
	c.mu.Unlock()

	logger.Info("🔄 配置已更新", logger.String("source", s.String()))
	for _, fn := range callbacks {
		fn()
	}
}

// Get 按路径取值，例如 Get("tracker", "wallets")
func (c *Config) Get(path ...string) reader.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.values == nil {
		return emptyValue(c.opts.Reader)
	}
	return c.values.Get(path...)
}

// Scan 把整份配置解析到结构体
func (c *Config) Scan(v interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.values == nil {
		return fmt.Errorf("config not loaded")
	}
	return c.values.Scan(v)
}

// Bytes 合并后的 json 内容
func (c *Config) Bytes() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.merged == nil {
		return nil
	}
	return c.merged.Data
}

// OnChange 注册配置变更回调
func (c *Config) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Close 停止所有监听
func (c *Config) Close() error {
	var err error
	c.once.Do(func() {
		close(c.exit)
		c.mu.RLock()
		watchers := append([]source.Watcher{}, c.watchers...)
		c.mu.RUnlock()
		for _, w := range watchers {
			if stopErr := w.Stop(); stopErr != nil {
				err = stopErr
			}
		}
	})
	return err
}

func emptyValue(r reader.Reader) reader.Value {
	cs := &source.ChangeSet{Data: []byte("{}"), Format: "json"}
	values, err := r.Values(cs)
	if err != nil {
		return nil
	}
	return values.Get()
}

// DefaultConfig 进程级默认配置
var DefaultConfig = New()

func Load(sources ...source.Source) error {
	return DefaultConfig.Load(sources...)
}

func Get(path ...string) reader.Value {
	return DefaultConfig.Get(path...)
}

func Scan(v interface{}) error {
	return DefaultConfig.Scan(v)
}

func OnChange(fn func()) {
	DefaultConfig.OnChange(fn)
}

func Close() error {
	return DefaultConfig.Close()
}
