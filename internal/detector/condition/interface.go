package condition

import (
	"github.com/ninja0404/token-tracker/internal/model"
)

// Condition 变化事件过滤条件
type Condition interface {
	// Evaluate 评估条件是否满足
	Evaluate(context *EvaluationContext) bool

	// GetName 获取条件名称
	GetName() string

	// GetDescription 获取条件描述
	GetDescription() string
}

// EvaluationContext 评估上下文
type EvaluationContext struct {
	Event *model.ChangeEvent
}

// LogicalOperator 逻辑操作符
type LogicalOperator string

const (
	AND LogicalOperator = "AND"
	OR  LogicalOperator = "OR"
	NOT LogicalOperator = "NOT"
)

// CompositeCondition 复合条件，支持AND/OR/NOT逻辑组合
type CompositeCondition struct {
	Name        string
	Description string
	Operator    LogicalOperator
	Conditions  []Condition
}

func (c *CompositeCondition) Evaluate(context *EvaluationContext) bool {
	switch c.Operator {
	case AND:
		for _, condition := range c.Conditions {
			if !condition.Evaluate(context) {
				return false
			}
		}
		return len(c.Conditions) > 0

	case OR:
		for _, condition := range c.Conditions {
			if condition.Evaluate(context) {
				return true
			}
		}
		return false

	case NOT:
		if len(c.Conditions) != 1 {
			return false // NOT操作符只能有一个条件
		}
		return !c.Conditions[0].Evaluate(context)

	default:
		return false
	}
}

func (c *CompositeCondition) GetName() string {
	return c.Name
}

func (c *CompositeCondition) GetDescription() string {
	return c.Description
}

// Always 总是满足，未配置过滤规则时使用
type Always struct{}

func (Always) Evaluate(*EvaluationContext) bool { return true }

func (Always) GetName() string { return "always" }

func (Always) GetDescription() string { return "不过滤" }

// Builder 条件建造者，支持链式调用
type Builder struct {
	conditions []Condition
	operator   LogicalOperator
	name       string
	desc       string
}

func NewBuilder() *Builder {
	return &Builder{
		conditions: make([]Condition, 0),
		operator:   AND, // 默认AND操作
	}
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) Description(desc string) *Builder {
	b.desc = desc
	return b
}

func (b *Builder) And(condition Condition) *Builder {
	b.operator = AND
	b.conditions = append(b.conditions, condition)
	return b
}

func (b *Builder) Or(condition Condition) *Builder {
	b.operator = OR
	b.conditions = append(b.conditions, condition)
	return b
}

func (b *Builder) Not(condition Condition) *Builder {
	b.operator = NOT
	b.conditions = []Condition{condition} // NOT只能有一个条件
	return b
}

func (b *Builder) Build() Condition {
	if len(b.conditions) == 0 {
		return Always{}
	}
	if len(b.conditions) == 1 && b.operator == AND {
		// 如果只有一个条件，直接返回该条件
		return b.conditions[0]
	}

	return &CompositeCondition{
		Name:        b.name,
		Description: b.desc,
		Operator:    b.operator,
		Conditions:  b.conditions,
	}
}

// Match 便捷方法
func Match(c Condition, event *model.ChangeEvent) bool {
	if c == nil {
		return true
	}
	return c.Evaluate(&EvaluationContext{Event: event})
}
