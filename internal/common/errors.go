package common

import "github.com/pkg/errors"

// 错误分类，使用 errors.Is 判断
var (
	// ErrTransientScan 单个钱包扫描的网络/超时错误，重试后跳过本轮
	ErrTransientScan = errors.New("transient scan error")
	// ErrCorruptStore 快照或历史文件无法解析，回落为空数据
	ErrCorruptStore = errors.New("corrupt store")
	// ErrWriteFailure 持久化失败，调用方下一轮重试
	ErrWriteFailure = errors.New("write failure")
	// ErrConfiguration 构造参数非法
	ErrConfiguration = errors.New("configuration error")
)

// wrapped 同时保留分类和底层原因
type wrapped struct {
	kind  error
	cause error
	msg   string
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.msg + ": " + w.kind.Error()
	}
	return w.msg + ": " + w.kind.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Is(target error) bool { return target == w.kind }

func (w *wrapped) Unwrap() error { return w.cause }

func (w *wrapped) Cause() error { return w.cause }

// Wrap 把底层错误归类，cause 可以为 nil
func Wrap(kind, cause error, msg string) error {
	return errors.WithStack(&wrapped{kind: kind, cause: cause, msg: msg})
}

// Wrapf 同 Wrap，支持格式化信息
func Wrapf(kind, cause error, format string, args ...interface{}) error {
	return Wrap(kind, cause, errors.Errorf(format, args...).Error())
}

// ConfigError 构造期参数错误
func ConfigError(format string, args ...interface{}) error {
	return Wrapf(ErrConfiguration, nil, format, args...)
}
