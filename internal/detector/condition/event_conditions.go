package condition

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/token-tracker/internal/model"
)

// EventTypeCondition 事件类型在允许列表中
type EventTypeCondition struct {
	BaseCondition
	Types map[model.EventType]struct{}
}

func NewEventTypeCondition(types ...model.EventType) *EventTypeCondition {
	set := make(map[model.EventType]struct{}, len(types))
	names := make([]string, 0, len(types))
	for _, t := range types {
		set[t] = struct{}{}
		names = append(names, string(t))
	}
	return &EventTypeCondition{
		BaseCondition: BaseCondition{
			Name:        "event_type",
			Description: "事件类型属于 " + strings.Join(names, "/"),
		},
		Types: set,
	}
}

func (c *EventTypeCondition) Evaluate(context *EvaluationContext) bool {
	if context == nil || context.Event == nil {
		return false
	}
	_, ok := c.Types[context.Event.EventType]
	return ok
}

// USDChangeCondition |usd_change| 与阈值比较
type USDChangeCondition struct {
	BaseCondition
	Threshold decimal.Decimal
}

func NewUSDChangeCondition(operator string, threshold decimal.Decimal) *USDChangeCondition {
	return &USDChangeCondition{
		BaseCondition: BaseCondition{
			Name:        "usd_change",
			Description: fmt.Sprintf("|价值变化| %s $%s", operator, threshold.String()),
			Operator:    operator,
		},
		Threshold: threshold,
	}
}

func (c *USDChangeCondition) Evaluate(context *EvaluationContext) bool {
	if context == nil || context.Event == nil {
		return false
	}
	// NEW 没有价值变化，按建仓价值比较
	if context.Event.EventType == model.EventNew {
		return c.CompareDecimal(context.Event.Value(), c.Threshold)
	}
	return c.CompareDecimal(context.Event.USDChange.Abs(), c.Threshold)
}

// PercentChangeCondition |percent_change| 与阈值比较，NEW/REMOVED 视为满足
type PercentChangeCondition struct {
	BaseCondition
	Threshold decimal.Decimal
}

func NewPercentChangeCondition(operator string, threshold decimal.Decimal) *PercentChangeCondition {
	return &PercentChangeCondition{
		BaseCondition: BaseCondition{
			Name:        "percent_change",
			Description: fmt.Sprintf("|数量变化| %s %s%%", operator, threshold.String()),
			Operator:    operator,
		},
		Threshold: threshold,
	}
}

func (c *PercentChangeCondition) Evaluate(context *EvaluationContext) bool {
	if context == nil || context.Event == nil {
		return false
	}
	if context.Event.EventType != model.EventModified {
		return true
	}
	return c.CompareDecimal(context.Event.PercentChange.Abs(), c.Threshold)
}

// FilterConfig 通知过滤配置
type FilterConfig struct {
	EventTypes       []string `json:"event_types"`
	MinUSDChange     float64  `json:"min_usd_change"`
	MinPercentChange float64  `json:"min_percent_change"`
}

// FromConfig 根据配置组装条件，空配置不过滤
func FromConfig(cfg FilterConfig) Condition {
	b := NewBuilder().Name("notify_filter").Description("通知过滤")
	if len(cfg.EventTypes) > 0 {
		types := make([]model.EventType, 0, len(cfg.EventTypes))
		for _, t := range cfg.EventTypes {
			types = append(types, model.EventType(strings.ToUpper(strings.TrimSpace(t))))
		}
		b.And(NewEventTypeCondition(types...))
	}
	if cfg.MinUSDChange > 0 {
		b.And(NewUSDChangeCondition(">=", decimal.NewFromFloat(cfg.MinUSDChange)))
	}
	if cfg.MinPercentChange > 0 {
		b.And(NewPercentChangeCondition(">=", decimal.NewFromFloat(cfg.MinPercentChange)))
	}
	return b.Build()
}
