// Package mse 阿里云 MSE(Nacos) 配置源
package mse

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nacos-group/nacos-sdk-go/clients"
	"github.com/nacos-group/nacos-sdk-go/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/common/constant"
	"github.com/nacos-group/nacos-sdk-go/vo"

	"github.com/ninja0404/token-tracker/pkg/config/source"
)

const (
	DefaultGroup = "DEFAULT_GROUP"
	DefaultPort  = 8848
)

type mseConfigKey struct{}

type MseConfig struct {
	ServerAddr  string
	Port        uint64
	NamespaceID string
	AccessKey   string
	SecretKey   string
	Group       string
	DataID      string
}

// ConfigFromEnv 从环境变量读取 MSE 连接信息
func ConfigFromEnv(prefix string) (*MseConfig, error) {
	conf := &MseConfig{
		ServerAddr:  os.Getenv(prefix + "MSE_SERVER_ADDR"),
		Port:        DefaultPort,
		NamespaceID: os.Getenv(prefix + "MSE_NAMESPACE"),
		AccessKey:   os.Getenv(prefix + "MSE_ACCESSKEY"),
		SecretKey:   os.Getenv(prefix + "MSE_SECRETKEY"),
		Group:       os.Getenv(prefix + "MSE_GROUP"),
		DataID:      os.Getenv(prefix + "MSE_DATAID"),
	}
	if conf.Group == "" {
		conf.Group = DefaultGroup
	}
	if conf.ServerAddr == "" || conf.DataID == "" {
		return nil, fmt.Errorf("缺少MSE配置: %sMSE_SERVER_ADDR 和 %sMSE_DATAID 必填", prefix, prefix)
	}
	return conf, nil
}

func WithMseConfig(conf *MseConfig) source.Option {
	return func(o *source.Options) {
		if o.Context == nil {
			o.Context = context.Background()
		}
		o.Context = context.WithValue(o.Context, mseConfigKey{}, conf)
	}
}

type mse struct {
	client config_client.IConfigClient
	config *MseConfig
	opts   source.Options
}

// NewSource 创建 MSE 配置源
func NewSource(opts ...source.Option) (source.Source, error) {
	options := source.NewOptions(opts...)
	if options.Format == "" {
		options.Format = "yaml"
	}
	conf, ok := options.Context.Value(mseConfigKey{}).(*MseConfig)
	if !ok || conf == nil {
		return nil, fmt.Errorf("mse config not provided")
	}

	client, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig: &constant.ClientConfig{
			NamespaceId:         conf.NamespaceID,
			AccessKey:           conf.AccessKey,
			SecretKey:           conf.SecretKey,
			TimeoutMs:           5 * 1000,
			NotLoadCacheAtStart: true,
		},
		ServerConfigs: []constant.ServerConfig{{IpAddr: conf.ServerAddr, Port: conf.Port}},
	})
	if err != nil {
		return nil, fmt.Errorf("创建nacos客户端失败: %w", err)
	}

	return &mse{opts: options, client: client, config: conf}, nil
}

func (s *mse) param() vo.ConfigParam {
	return vo.ConfigParam{Group: s.config.Group, DataId: s.config.DataID}
}

func (s *mse) Read() (*source.ChangeSet, error) {
	content, err := s.client.GetConfig(s.param())
	if err != nil {
		return nil, err
	}
	return s.changeSet(content), nil
}

func (s *mse) changeSet(content string) *source.ChangeSet {
	cs := &source.ChangeSet{
		Format:    s.opts.Format,
		Source:    s.String(),
		Timestamp: time.Now(),
		Data:      []byte(content),
	}
	cs.Checksum = cs.Sum()
	return cs
}

func (s *mse) String() string {
	return "mse:" + s.config.DataID
}

func (s *mse) Watch() (source.Watcher, error) {
	w := &watcher{
		mse:     s,
		content: make(chan string, 1),
		exit:    make(chan struct{}),
	}
	param := s.param()
	param.OnChange = func(namespace, group, dataId, data string) {
		select {
		case w.content <- data:
		case <-w.exit:
		}
	}
	if err := s.client.ListenConfig(param); err != nil {
		return nil, err
	}
	return w, nil
}

type watcher struct {
	mse     *mse
	content chan string
	exit    chan struct{}
}

func (w *watcher) Next() (*source.ChangeSet, error) {
	select {
	case data := <-w.content:
		return w.mse.changeSet(data), nil
	case <-w.exit:
		return nil, source.ErrWatcherStopped
	}
}

func (w *watcher) Stop() error {
	select {
	case <-w.exit:
		return nil
	default:
		close(w.exit)
	}
	return w.mse.client.CancelListenConfig(w.mse.param())
}
