package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// UnknownTokenName 元数据解析失败时的默认名称
	UnknownTokenName = "Unknown"
	// UnknownTokenSymbol 元数据解析失败时的默认符号
	UnknownTokenSymbol = "UNK"
)

// TokenHolding 某个钱包在某一时刻持有的一种代币
type TokenHolding struct {
	Wallet    string          `json:"wallet"`
	Mint      string          `json:"mint"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`   // 已按精度换算后的数量
	Decimals  int32           `json:"decimals"` // 代币精度
	Price     decimal.Decimal `json:"price"`    // 单价(USD)，未知为 0
	Timestamp time.Time       `json:"timestamp"`
}

// USDValue 持仓价值
func (h TokenHolding) USDValue() decimal.Decimal {
	return h.Amount.Mul(h.Price)
}

// DisplayName 优先返回名称，缺失时回落到符号
func (h TokenHolding) DisplayName() string {
	if h.Name != "" && h.Name != UnknownTokenName {
		return h.Name
	}
	if h.Symbol != "" {
		return h.Symbol
	}
	return UnknownTokenName
}

// WithDefaults 补齐缺失的名称和符号
func (h TokenHolding) WithDefaults() TokenHolding {
	if h.Name == "" {
		h.Name = UnknownTokenName
	}
	if h.Symbol == "" {
		h.Symbol = UnknownTokenSymbol
	}
	return h
}

// Snapshot 所有被跟踪钱包的持仓快照，wallet -> holdings
// 同一钱包内 mint 唯一
type Snapshot struct {
	LastUpdate time.Time
	Data       map[string][]TokenHolding
}

// NewSnapshot 创建快照，同一钱包重复的 mint 以最后一条为准
func NewSnapshot(lastUpdate time.Time, data map[string][]TokenHolding) *Snapshot {
	s := &Snapshot{
		LastUpdate: lastUpdate,
		Data:       make(map[string][]TokenHolding, len(data)),
	}
	for wallet, holdings := range data {
		s.Set(wallet, holdings)
	}
	return s
}

// EmptySnapshot 空快照
func EmptySnapshot() *Snapshot {
	return &Snapshot{Data: make(map[string][]TokenHolding)}
}

// Set 替换某个钱包的持仓，按 mint 去重(后者覆盖前者)，保留首次出现的顺序
// 缺失的名称和符号在此补齐，存储前后保持一致
func (s *Snapshot) Set(wallet string, holdings []TokenHolding) {
	if s.Data == nil {
		s.Data = make(map[string][]TokenHolding)
	}
	index := make(map[string]int, len(holdings))
	deduped := make([]TokenHolding, 0, len(holdings))
	for _, h := range holdings {
		h = h.WithDefaults()
		h.Wallet = wallet
		if i, ok := index[h.Mint]; ok {
			deduped[i] = h
			continue
		}
		index[h.Mint] = len(deduped)
		deduped = append(deduped, h)
	}
	s.Data[wallet] = deduped
}

// Holdings 某个钱包的持仓，不存在返回 nil
func (s *Snapshot) Holdings(wallet string) []TokenHolding {
	if s == nil {
		return nil
	}
	return s.Data[wallet]
}

// Has 快照中是否包含该钱包
func (s *Snapshot) Has(wallet string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Data[wallet]
	return ok
}

// Wallets 排序后的钱包列表
func (s *Snapshot) Wallets() []string {
	if s == nil {
		return nil
	}
	wallets := make([]string, 0, len(s.Data))
	for w := range s.Data {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets
}

// IsEmpty 没有任何钱包
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Data) == 0
}

// HoldingCount 持仓总数
func (s *Snapshot) HoldingCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, holdings := range s.Data {
		n += len(holdings)
	}
	return n
}

// Clone 深拷贝
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return EmptySnapshot()
	}
	c := &Snapshot{
		LastUpdate: s.LastUpdate,
		Data:       make(map[string][]TokenHolding, len(s.Data)),
	}
	for wallet, holdings := range s.Data {
		c.Data[wallet] = append([]TokenHolding(nil), holdings...)
	}
	return c
}

// Equal 比较两份快照的持仓内容，忽略 LastUpdate 与持仓顺序
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return s.IsEmpty() == o.IsEmpty()
	}
	if len(s.Data) != len(o.Data) {
		return false
	}
	for wallet, holdings := range s.Data {
		other, ok := o.Data[wallet]
		if !ok || len(other) != len(holdings) {
			return false
		}
		byMint := make(map[string]TokenHolding, len(other))
		for _, h := range other {
			byMint[h.Mint] = h
		}
		for _, h := range holdings {
			oh, ok := byMint[h.Mint]
			if !ok || !holdingEqual(h, oh) {
				return false
			}
		}
	}
	return true
}

func holdingEqual(a, b TokenHolding) bool {
	return a.Wallet == b.Wallet &&
		a.Mint == b.Mint &&
		a.Name == b.Name &&
		a.Symbol == b.Symbol &&
		a.Decimals == b.Decimals &&
		a.Amount.Equal(b.Amount) &&
		a.Price.Equal(b.Price) &&
		a.Timestamp.Equal(b.Timestamp)
}
