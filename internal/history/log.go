package history

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/ninja0404/token-tracker/internal/common"
	"github.com/ninja0404/token-tracker/pkg/logger"
	"github.com/ninja0404/token-tracker/pkg/utils"
)

// DefaultCap 默认保留条数
const DefaultCap = 25

// Codec 记录与 CSV 行之间的转换
type Codec[T any] interface {
	// Header 表头
	Header() []string
	// Encode 记录 -> 行
	Encode(record T) []string
	// Decode 行 -> 记录，格式错误返回 error，该行会被跳过
	Decode(row []string) (T, error)
}

// Log 有上限、最新在前的 CSV 历史记录
// 一个文件对应一个 Log，Append 的读-插入-截断-写整体在锁内完成
type Log[T any] struct {
	path  string
	cap   int
	codec Codec[T]
	mu    sync.Mutex
	log   *logger.Logger
}

// New 创建历史记录，cap <= 0 或 path 为空返回 ErrConfiguration
func New[T any](path string, cap int, codec Codec[T]) (*Log[T], error) {
	if path == "" {
		return nil, common.ConfigError("history path is empty")
	}
	if cap <= 0 {
		return nil, common.ConfigError("history cap must be positive, got %d", cap)
	}
	if codec == nil {
		return nil, common.ConfigError("history codec is nil")
	}
	return &Log[T]{
		path:  path,
		cap:   cap,
		codec: codec,
		log:   logger.Named("history").With(logger.FieldPath(path)),
	}, nil
}

func (l *Log[T]) Path() string { return l.path }

func (l *Log[T]) Cap() int { return l.cap }

// Append 把一批记录插入到最前面
// 批内最后一个元素视为最新，落在下标 0
func (l *Log[T]) Append(records ...T) error {
	if len(records) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.load()
	merged := make([]T, 0, len(records)+len(existing))
	for i := len(records) - 1; i >= 0; i-- {
		merged = append(merged, records[i])
	}
	merged = append(merged, existing...)
	if len(merged) > l.cap {
		merged = merged[:l.cap]
	}

	data, err := l.encode(merged)
	if err != nil {
		return common.Wrap(common.ErrWriteFailure, err, "encode history")
	}
	if err := utils.WriteFileAtomic(l.path, data, 0o644); err != nil {
		return common.Wrapf(common.ErrWriteFailure, err, "write history %s", l.path)
	}
	return nil
}

// LoadAll 按存储顺序(最新在前)返回全部记录
// 文件不存在返回空；格式错误的行被跳过；文件无法读取返回空并记录警告
func (l *Log[T]) LoadAll() ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(), nil
}

// Len 当前记录数
func (l *Log[T]) Len() int {
	records, _ := l.LoadAll()
	return len(records)
}

// Clear 删除文件，已不存在不报错
func (l *Log[T]) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return common.Wrapf(common.ErrWriteFailure, err, "remove history %s", l.path)
	}
	return nil
}

// load 调用方持有锁
func (l *Log[T]) load() []T {
	f, err := os.Open(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.Warn("⚠️ 历史文件无法读取，按空记录处理",
				logger.FieldErr(common.Wrap(common.ErrCorruptStore, err, "open history")))
		}
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		if err != io.EOF {
			l.log.Warn("⚠️ 历史文件表头损坏，按空记录处理",
				logger.FieldErr(common.Wrap(common.ErrCorruptStore, err, "read header")))
		}
		return nil
	}
	index := columnIndex(header)

	records := make([]T, 0, l.cap)
	line := 1
	for {
		row, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				l.log.Warn("⚠️ 跳过无法解析的历史行", logger.Int("line", line), logger.FieldErr(err))
				continue
			}
			l.log.Warn("⚠️ 读取历史文件中断", logger.FieldErr(err))
			break
		}
		rec, err := l.codec.Decode(reorder(row, header, index, l.codec.Header()))
		if err != nil {
			l.log.Warn("⚠️ 跳过格式错误的历史行", logger.Int("line", line), logger.FieldErr(err))
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (l *Log[T]) encode(records []T) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(l.codec.Header()); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := w.Write(l.codec.Encode(rec)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	return index
}

// reorder 按 codec 的列顺序重排，兼容文件中列顺序不同或缺列的情况
func reorder(row, fileHeader []string, index map[string]int, want []string) []string {
	if equalStrings(fileHeader, want) && len(row) == len(want) {
		return row
	}
	out := make([]string, len(want))
	for i, name := range want {
		if j, ok := index[name]; ok && j < len(row) {
			out[i] = row[j]
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
