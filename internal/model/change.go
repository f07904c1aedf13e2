package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType 持仓变化类型
type EventType string

const (
	EventNew      EventType = "NEW"
	EventRemoved  EventType = "REMOVED"
	EventModified EventType = "MODIFIED"
)

// Valid 是否为已知类型
func (t EventType) Valid() bool {
	switch t {
	case EventNew, EventRemoved, EventModified:
		return true
	}
	return false
}

// ChangeEvent 两次快照之间某个持仓的出现、消失或变化
type ChangeEvent struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	EventType     EventType       `json:"event_type"`
	Wallet        string          `json:"wallet"`
	Token         string          `json:"token"` // 展示名称
	TokenSymbol   string          `json:"token_symbol"`
	TokenMint     string          `json:"token_mint"`
	TokenName     string          `json:"token_name"`
	Amount        decimal.Decimal `json:"amount"` // 当前数量，REMOVED 为最后已知数量
	Change        decimal.Decimal `json:"change"`
	PercentChange decimal.Decimal `json:"percent_change"`
	Price         decimal.Decimal `json:"price"`
	PriceChange   decimal.Decimal `json:"price_change"`
	USDChange     decimal.Decimal `json:"usd_change"`
}

// Value 当前持仓价值 amount * price
func (e ChangeEvent) Value() decimal.Decimal {
	return e.Amount.Mul(e.Price)
}

// DedupKey 同一钱包同一代币的同类变化
func (e ChangeEvent) DedupKey() string {
	return e.Wallet + "|" + e.TokenMint + "|" + string(e.EventType) + "|" + e.Amount.String()
}

// Modification 同时存在于两次快照且数量或价格发生变化的持仓
type Modification struct {
	Previous      TokenHolding
	Current       TokenHolding
	CurrentAmount decimal.Decimal
	Change        decimal.Decimal
	PctChange     decimal.Decimal
	CurrentPrice  decimal.Decimal
	PriceChange   decimal.Decimal
	USDChange     decimal.Decimal
}

// WalletDiff 单个钱包的三个分类，mint -> 记录
type WalletDiff struct {
	New      map[string]TokenHolding
	Removed  map[string]TokenHolding
	Modified map[string]Modification
}

// NewWalletDiff 创建空分类
func NewWalletDiff() *WalletDiff {
	return &WalletDiff{
		New:      make(map[string]TokenHolding),
		Removed:  make(map[string]TokenHolding),
		Modified: make(map[string]Modification),
	}
}

// IsEmpty 三个分类都为空
func (d *WalletDiff) IsEmpty() bool {
	return d == nil || len(d.New)+len(d.Removed)+len(d.Modified) == 0
}

// Count 变化总数
func (d *WalletDiff) Count() int {
	if d == nil {
		return 0
	}
	return len(d.New) + len(d.Removed) + len(d.Modified)
}

// Diff wallet -> 分类结果
type Diff map[string]*WalletDiff

// IsEmpty 所有钱包都没有变化
func (d Diff) IsEmpty() bool {
	return d.Count() == 0
}

// Count 变化总数
func (d Diff) Count() int {
	n := 0
	for _, wd := range d {
		n += wd.Count()
	}
	return n
}

// Events 展开为变化事件
// 顺序: 钱包升序，同一钱包内 NEW、MODIFIED、REMOVED，同类按 mint 升序
func (d Diff) Events(ts time.Time) []ChangeEvent {
	wallets := make([]string, 0, len(d))
	for w := range d {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)

	events := make([]ChangeEvent, 0, d.Count())
	for _, wallet := range wallets {
		wd := d[wallet]
		if wd.IsEmpty() {
			continue
		}
		for _, mint := range sortedKeys(wd.New) {
			events = append(events, NewTokenEvent(ts, wallet, wd.New[mint]))
		}
		for _, mint := range sortedKeys(wd.Modified) {
			events = append(events, ModifiedTokenEvent(ts, wallet, wd.Modified[mint]))
		}
		for _, mint := range sortedKeys(wd.Removed) {
			events = append(events, RemovedTokenEvent(ts, wallet, wd.Removed[mint]))
		}
	}
	return events
}

// NewTokenEvent 新出现的持仓，只带 amount/price，变化量约定为 0
func NewTokenEvent(ts time.Time, wallet string, h TokenHolding) ChangeEvent {
	e := baseEvent(ts, EventNew, wallet, h)
	e.Amount = h.Amount
	e.Price = h.Price
	return e
}

// RemovedTokenEvent 消失的持仓，usd_change = -(amount * price)
func RemovedTokenEvent(ts time.Time, wallet string, h TokenHolding) ChangeEvent {
	e := baseEvent(ts, EventRemoved, wallet, h)
	e.Amount = h.Amount
	e.Change = h.Amount.Neg()
	e.PercentChange = decimal.NewFromInt(-100)
	e.Price = h.Price
	e.USDChange = h.USDValue().Neg()
	return e
}

// ModifiedTokenEvent 数量或价格变化的持仓
func ModifiedTokenEvent(ts time.Time, wallet string, m Modification) ChangeEvent {
	e := baseEvent(ts, EventModified, wallet, m.Current)
	e.Amount = m.CurrentAmount
	e.Change = m.Change
	e.PercentChange = m.PctChange
	e.Price = m.CurrentPrice
	e.PriceChange = m.PriceChange
	e.USDChange = m.USDChange
	return e
}

func baseEvent(ts time.Time, typ EventType, wallet string, h TokenHolding) ChangeEvent {
	h = h.WithDefaults()
	return ChangeEvent{
		ID:          uuid.NewString(),
		Timestamp:   ts,
		EventType:   typ,
		Wallet:      wallet,
		Token:       h.DisplayName(),
		TokenSymbol: h.Symbol,
		TokenMint:   h.Mint,
		TokenName:   h.Name,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
