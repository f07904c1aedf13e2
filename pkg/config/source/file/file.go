package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ninja0404/token-tracker/pkg/config/source"
)

const (
	DefaultFileName   = "config"
	DefaultFileFormat = "yaml"
)

type filePathKey struct{}

// WithPath 指定配置文件路径
func WithPath(p string) source.Option {
	return func(o *source.Options) {
		if o.Context == nil {
			o.Context = context.Background()
		}
		o.Context = context.WithValue(o.Context, filePathKey{}, p)
	}
}

type file struct {
	path string
	opts source.Options
}

func (f *file) Read() (*source.ChangeSet, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	cs := &source.ChangeSet{
		Format:    f.opts.Format,
		Source:    f.String(),
		Timestamp: info.ModTime(),
		Data:      b,
	}
	cs.Checksum = cs.Sum()
	return cs, nil
}

func (f *file) String() string {
	return "file:" + f.path
}

func (f *file) Watch() (source.Watcher, error) {
	if _, err := os.Stat(f.path); err != nil {
		return nil, err
	}
	return newWatcher(f)
}

// NewSource 文件配置源，未指定格式时按扩展名推断
func NewSource(opts ...source.Option) source.Source {
	options := source.NewOptions(opts...)

	path, ok := options.Context.Value(filePathKey{}).(string)
	if !ok || path == "" {
		format := options.Format
		if format == "" {
			format = DefaultFileFormat
		}
		path = DefaultFileName + "." + format
	}
	if options.Format == "" {
		options.Format = strings.TrimPrefix(filepath.Ext(path), ".")
		if options.Format == "yml" {
			options.Format = "yaml"
		}
	}

	return &file{opts: options, path: path}
}

type watcher struct {
	f    *file
	fw   *fsnotify.Watcher
	exit chan struct{}
}

func newWatcher(f *file) (source.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(f.path); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &watcher{f: f, fw: fw, exit: make(chan struct{})}, nil
}

func (w *watcher) Next() (*source.ChangeSet, error) {
	for {
		select {
		case <-w.exit:
			return nil, source.ErrWatcherStopped
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil, source.ErrWatcherStopped
			}
			return nil, err
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil, source.ErrWatcherStopped
			}
			// 编辑器保存时常见 rename/remove，重新挂载监听
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				_ = w.fw.Add(w.f.path)
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			cs, err := w.f.Read()
			if err != nil {
				continue
			}
			return cs, nil
		}
	}
}

func (w *watcher) Stop() error {
	select {
	case <-w.exit:
		return nil
	default:
		close(w.exit)
	}
	return w.fw.Close()
}
