package condition

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ninja0404/token-tracker/internal/model"
)

func event(typ model.EventType, usd, pct float64) *model.ChangeEvent {
	return &model.ChangeEvent{
		EventType:     typ,
		USDChange:     decimal.NewFromFloat(usd),
		PercentChange: decimal.NewFromFloat(pct),
	}
}

func TestUSDChangeUsesPositionValueForNew(t *testing.T) {
	c := NewUSDChangeCondition(">=", decimal.NewFromInt(100))
	opened := &model.ChangeEvent{
		EventType: model.EventNew,
		Amount:    decimal.NewFromInt(20),
		Price:     decimal.NewFromInt(10),
	}
	assert.True(t, Match(c, opened))

	opened.Price = decimal.NewFromInt(1)
	assert.False(t, Match(c, opened))
}

func TestFromConfigEmptyAcceptsAll(t *testing.T) {
	c := FromConfig(FilterConfig{})
	assert.IsType(t, Always{}, c)
	assert.True(t, Match(c, event(model.EventRemoved, 0, 0)))
	assert.True(t, Match(nil, event(model.EventNew, 0, 0)))
}

func TestFromConfigCombinesWithAnd(t *testing.T) {
	c := FromConfig(FilterConfig{
		EventTypes:       []string{"modified", "removed"},
		MinUSDChange:     100,
		MinPercentChange: 10,
	})

	assert.True(t, Match(c, event(model.EventModified, -150, 20)))
	assert.False(t, Match(c, event(model.EventModified, -150, 5)), "百分比不足")
	assert.False(t, Match(c, event(model.EventModified, 50, 50)), "价值变化不足")
	assert.False(t, Match(c, event(model.EventNew, 1000, 0)), "类型不在列表")
	assert.True(t, Match(c, event(model.EventRemoved, -1000, -100)))
}

func TestCompositeOperators(t *testing.T) {
	big := NewUSDChangeCondition(">", decimal.NewFromInt(10))
	isNew := NewEventTypeCondition(model.EventNew)

	or := NewBuilder().Or(big).Or(isNew).Build()
	assert.True(t, Match(or, event(model.EventNew, 0, 0)))
	assert.True(t, Match(or, event(model.EventModified, 11, 0)))
	assert.False(t, Match(or, event(model.EventModified, 10, 0)))

	not := NewBuilder().Not(isNew).Build()
	assert.False(t, Match(not, event(model.EventNew, 0, 0)))
	assert.True(t, Match(not, event(model.EventRemoved, 0, 0)))

	assert.False(t, (&CompositeCondition{Operator: AND}).Evaluate(&EvaluationContext{}))
}
