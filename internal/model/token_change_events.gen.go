package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const TableNameTokenChangeEvents = "token_change_events"

// TokenChangeEvents 持仓变化归档表，不受历史文件条数限制
type TokenChangeEvents struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	EventID       string          `gorm:"column:event_id;not null;uniqueIndex:uk_event_id;size:36;comment:事件ID" json:"event_id"`      // 事件ID
	EventType     string          `gorm:"column:event_type;not null;size:16;comment:变化类型" json:"event_type"`                          // 变化类型
	Wallet        string          `gorm:"column:wallet;not null;size:64;index:idx_wallet_time,priority:1;comment:钱包地址" json:"wallet"` // 钱包地址
	TokenMint     string          `gorm:"column:token_mint;not null;size:64;comment:代币地址" json:"token_mint"`                          // 代币地址
	TokenName     string          `gorm:"column:token_name;not null;comment:代币名称" json:"token_name"`                                  // 代币名称
	TokenSymbol   string          `gorm:"column:token_symbol;not null;comment:代币符号" json:"token_symbol"`                              // 代币符号
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(65,18);not null;comment:当前数量" json:"amount"`                      // 当前数量
	Change        decimal.Decimal `gorm:"column:change_amount;type:decimal(65,18);not null;comment:数量变化" json:"change"`               // 数量变化
	PercentChange decimal.Decimal `gorm:"column:percent_change;type:decimal(30,8);not null;comment:数量变化百分比" json:"percent_change"`    // 数量变化百分比
	Price         decimal.Decimal `gorm:"column:price;type:decimal(65,18);not null;comment:当前价格" json:"price"`                        // 当前价格
	PriceChange   decimal.Decimal `gorm:"column:price_change;type:decimal(65,18);not null;comment:价格变化" json:"price_change"`          // 价格变化
	USDChange     decimal.Decimal `gorm:"column:usd_change;type:decimal(65,18);not null;comment:价值变化" json:"usd_change"`              // 价值变化
	EventTime     time.Time       `gorm:"column:event_time;not null;index:idx_wallet_time,priority:2;comment:事件时间" json:"event_time"` // 事件时间
	CreatedAt     *time.Time      `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
}

// TableName TokenChangeEvents's table name
func (*TokenChangeEvents) TableName() string {
	return TableNameTokenChangeEvents
}

// NewTokenChangeEvents ChangeEvent -> 归档行
func NewTokenChangeEvents(e ChangeEvent) *TokenChangeEvents {
	return &TokenChangeEvents{
		EventID:       e.ID,
		EventType:     string(e.EventType),
		Wallet:        e.Wallet,
		TokenMint:     e.TokenMint,
		TokenName:     e.TokenName,
		TokenSymbol:   e.TokenSymbol,
		Amount:        e.Amount,
		Change:        e.Change,
		PercentChange: e.PercentChange,
		Price:         e.Price,
		PriceChange:   e.PriceChange,
		USDChange:     e.USDChange,
		EventTime:     e.Timestamp,
	}
}

// ToChangeEvent 归档行 -> ChangeEvent
func (r *TokenChangeEvents) ToChangeEvent() ChangeEvent {
	h := TokenHolding{Mint: r.TokenMint, Name: r.TokenName, Symbol: r.TokenSymbol}
	return ChangeEvent{
		ID:            r.EventID,
		Timestamp:     r.EventTime,
		EventType:     EventType(r.EventType),
		Wallet:        r.Wallet,
		Token:         h.DisplayName(),
		TokenSymbol:   r.TokenSymbol,
		TokenMint:     r.TokenMint,
		TokenName:     r.TokenName,
		Amount:        r.Amount,
		Change:        r.Change,
		PercentChange: r.PercentChange,
		Price:         r.Price,
		PriceChange:   r.PriceChange,
		USDChange:     r.USDChange,
	}
}
