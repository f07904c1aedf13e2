package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AnalysisAction 分析结论
type AnalysisAction string

const (
	ActionBuy     AnalysisAction = "BUY"
	ActionSell    AnalysisAction = "SELL"
	ActionNothing AnalysisAction = "NOTHING"
)

// Valid 是否为已知结论
func (a AnalysisAction) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionNothing:
		return true
	}
	return false
}

// ParseAnalysisAction 不区分大小写，未知文本视为 NOTHING
func ParseAnalysisAction(s string) AnalysisAction {
	switch AnalysisAction(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionBuy:
		return ActionBuy
	case ActionSell:
		return ActionSell
	default:
		return ActionNothing
	}
}

// AnalysisRecord 一次 AI 分析结果
type AnalysisRecord struct {
	Timestamp     time.Time        `json:"timestamp"`
	Action        AnalysisAction   `json:"action"`
	Token         string           `json:"token"`
	TokenSymbol   string           `json:"token_symbol"`
	TokenMint     string           `json:"token_mint"`
	TokenName     string           `json:"token_name"`
	Analysis      string           `json:"analysis"`
	Confidence    *int             `json:"confidence,omitempty"` // 0-100，缺失为 nil
	Price         decimal.Decimal  `json:"price"`
	ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
}

// ClampConfidence 把置信度限制在 0-100
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
