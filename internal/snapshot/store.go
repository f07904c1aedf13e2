package snapshot

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/token-tracker/internal/common"
	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/logger"
	"github.com/ninja0404/token-tracker/pkg/utils"
)

// Store 最近一次已知持仓的持久化
type Store interface {
	// Load 读取快照，文件缺失或损坏时返回空快照，不会返回错误
	Load() *model.Snapshot
	// Save 整体替换快照
	Save(snap *model.Snapshot) error
	// Path 存储位置
	Path() string
}

// FileStore JSON 文件实现
type FileStore struct {
	path string
	mu   sync.RWMutex
	log  *logger.Logger
}

// NewFileStore 创建文件快照存储
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, common.ConfigError("snapshot path is empty")
	}
	return &FileStore{
		path: path,
		log:  logger.Named("snapshot"),
	}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load 读取快照
func (s *FileStore) Load() *model.Snapshot {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("📭 快照文件不存在，使用空快照", logger.FieldPath(s.path))
		} else {
			s.log.Warn("⚠️ 读取快照文件失败，使用空快照", logger.FieldPath(s.path),
				logger.FieldErr(common.Wrap(common.ErrCorruptStore, err, "read snapshot")))
		}
		return model.EmptySnapshot()
	}

	snap, err := Decode(data)
	if err != nil {
		s.log.Warn("⚠️ 快照文件损坏，重新建立基线", logger.FieldPath(s.path), logger.FieldErr(err))
		return model.EmptySnapshot()
	}
	return snap
}

// Save 原子写入快照
func (s *FileStore) Save(snap *model.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return common.Wrap(common.ErrWriteFailure, err, "encode snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return common.Wrapf(common.ErrWriteFailure, err, "save snapshot %s", s.path)
	}
	return nil
}

type fileHolding struct {
	Mint      string      `json:"mint"`
	Name      string      `json:"name"`
	Symbol    string      `json:"symbol"`
	Decimals  int32       `json:"decimals"`
	Amount    json.Number `json:"amount"`
	Price     json.Number `json:"price"`
	Timestamp string      `json:"timestamp"`
}

type fileSnapshot struct {
	LastUpdate int64                    `json:"last_update"`
	Data       map[string][]fileHolding `json:"data"`
}

// Encode 快照 -> JSON，数量和价格编码为 JSON 数字
func Encode(snap *model.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = model.EmptySnapshot()
	}
	out := fileSnapshot{
		LastUpdate: snap.LastUpdate.Unix(),
		Data:       make(map[string][]fileHolding, len(snap.Data)),
	}
	if snap.LastUpdate.IsZero() {
		out.LastUpdate = 0
	}
	for wallet, holdings := range snap.Data {
		rows := make([]fileHolding, 0, len(holdings))
		for _, h := range holdings {
			row := fileHolding{
				Mint:     h.Mint,
				Name:     h.Name,
				Symbol:   h.Symbol,
				Decimals: h.Decimals,
				Amount:   json.Number(h.Amount.String()),
				Price:    json.Number(h.Price.String()),
			}
			if !h.Timestamp.IsZero() {
				row.Timestamp = h.Timestamp.Format(time.RFC3339Nano)
			}
			rows = append(rows, row)
		}
		out.Data[wallet] = rows
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode JSON -> 快照
// 顶层无法解析返回 ErrCorruptStore；钱包值不是列表视为空，条目不是对象或缺少 mint 则跳过
func Decode(data []byte) (*model.Snapshot, error) {
	js, err := simplejson.NewJson(data)
	if err != nil {
		return nil, common.Wrap(common.ErrCorruptStore, err, "parse snapshot")
	}
	if _, err := js.Map(); err != nil {
		return nil, common.Wrap(common.ErrCorruptStore, err, "snapshot root is not an object")
	}

	snap := model.EmptySnapshot()
	if ts, err := js.Get("last_update").Int64(); err == nil && ts > 0 {
		snap.LastUpdate = time.Unix(ts, 0)
	}

	wallets, err := js.Get("data").Map()
	if err != nil {
		return snap, nil
	}
	for wallet := range wallets {
		entries, err := js.Get("data").Get(wallet).Array()
		if err != nil {
			snap.Set(wallet, nil)
			continue
		}
		holdings := make([]model.TokenHolding, 0, len(entries))
		for i := range entries {
			h, ok := decodeHolding(js.Get("data").Get(wallet).GetIndex(i))
			if !ok {
				continue
			}
			h.Wallet = wallet
			holdings = append(holdings, h)
		}
		snap.Set(wallet, holdings)
	}
	return snap, nil
}

func decodeHolding(entry *simplejson.Json) (model.TokenHolding, bool) {
	if _, err := entry.Map(); err != nil {
		return model.TokenHolding{}, false
	}
	mint := entry.Get("mint").MustString()
	if mint == "" {
		return model.TokenHolding{}, false
	}
	h := model.TokenHolding{
		Mint:     mint,
		Name:     entry.Get("name").MustString(),
		Symbol:   entry.Get("symbol").MustString(),
		Decimals: int32(entry.Get("decimals").MustInt()),
		Amount:   toDecimal(entry.Get("amount").Interface()),
		Price:    toDecimal(entry.Get("price").Interface()),
	}
	if ts := entry.Get("timestamp").MustString(); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			h.Timestamp = t
		}
	}
	return h.WithDefaults(), true
}

// toDecimal 兼容 JSON 数字和数字字符串，无法解析为 0
func toDecimal(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(n.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	}
	return decimal.Zero
}

var _ Store = (*FileStore)(nil)

// MemoryStore 内存实现，用于测试和无持久化场景
type MemoryStore struct {
	mu   sync.RWMutex
	snap *model.Snapshot
	err  error
}

// NewMemoryStore 创建内存快照存储
func NewMemoryStore(initial *model.Snapshot) *MemoryStore {
	return &MemoryStore{snap: initial.Clone()}
}

func (m *MemoryStore) Load() *model.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone()
}

func (m *MemoryStore) Save(snap *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return common.Wrap(common.ErrWriteFailure, m.err, "save snapshot")
	}
	m.snap = snap.Clone()
	return nil
}

// FailSaves 之后的 Save 返回该错误，传 nil 恢复
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MemoryStore) Path() string {
	return "memory"
}

var _ Store = (*MemoryStore)(nil)

// IsCorrupt 是否为存储损坏错误
func IsCorrupt(err error) bool {
	return errors.Is(err, common.ErrCorruptStore)
}
