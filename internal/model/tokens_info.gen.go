package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const TableNameTokensInfo = "tokens_info"

// TokensInfo 代币信息表，只映射元数据解析需要的列
type TokensInfo struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Name            string          `gorm:"column:name;not null;comment:代币名称" json:"name"`                                                // 代币名称
	Symbol          string          `gorm:"column:symbol;not null;comment:代币符号" json:"symbol"`                                            // 代币符号
	TokenAddress    string          `gorm:"column:token_address;not null;comment:代币地址" json:"token_address"`                              // 代币地址
	Decimals        int32           `gorm:"column:decimals;not null;comment:代币精度" json:"decimals"`                                        // 代币精度
	CurrentPrice    decimal.Decimal `gorm:"column:current_price;not null;default:0.000000000000000000;comment:当前价格" json:"current_price"` // 当前价格
	PriceUpdateTime *time.Time      `gorm:"column:price_update_time;comment:价格更新时间" json:"price_update_time"`                             // 价格更新时间
	UpdatedAt       *time.Time      `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

// TableName TokensInfo's table name
func (*TokensInfo) TableName() string {
	return TableNameTokensInfo
}
