package publisher

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/utils"
)

var displayLocation = loadLocation("Asia/Shanghai")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEventTypeName 变化类型的中文名称
func getEventTypeName(t model.EventType) string {
	switch t {
	case model.EventNew:
		return "新建仓"
	case model.EventRemoved:
		return "清仓"
	case model.EventModified:
		return "持仓变化"
	default:
		return "未知变化"
	}
}

// getEventTypeEmoji 变化类型对应的emoji
func getEventTypeEmoji(e model.ChangeEvent) string {
	switch e.EventType {
	case model.EventNew:
		return "🆕"
	case model.EventRemoved:
		return "🚪"
	case model.EventModified:
		if e.Change.IsNegative() {
			return "📉"
		}
		return "📈"
	default:
		return "❓"
	}
}

// FormatEvent 单条变化的展示文本
func FormatEvent(e model.ChangeEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s\n", getEventTypeEmoji(e), getEventTypeName(e.EventType), e.Token)
	fmt.Fprintf(&b, "👛 钱包: %s\n", utils.GetDisplayWalletAddress(e.Wallet))
	fmt.Fprintf(&b, "📍 代币地址: %s\n", e.TokenMint)
	fmt.Fprintf(&b, "🪙 数量: %s", utils.FormatAmount(e.Amount))
	if e.EventType == model.EventModified {
		fmt.Fprintf(&b, " (%s, %s)", utils.FormatAmount(e.Change), utils.FormatPercent(e.PercentChange))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "💰 价格: %s", utils.FormatPrice(e.Price))
	if !e.PriceChange.IsZero() {
		fmt.Fprintf(&b, " (%s)", utils.FormatPrice(e.PriceChange))
	}
	b.WriteString("\n")
	if e.EventType == model.EventNew {
		fmt.Fprintf(&b, "💵 持仓价值: %s", utils.FormatUSD(e.Value()))
	} else {
		fmt.Fprintf(&b, "💵 价值变化: %s", utils.FormatUSD(e.USDChange))
	}
	return b.String()
}

// FormatEvents 一批变化合并为一条消息
func FormatEvents(events []model.ChangeEvent) string {
	if len(events) == 0 {
		return ""
	}
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, FormatEvent(e))
	}
	return fmt.Sprintf("🚨 钱包持仓变化 (%d)\n\n%s\n\n⏰ 检测时间: %s",
		len(events),
		strings.Join(parts, "\n\n"),
		events[0].Timestamp.In(displayLocation).Format("2006-01-02 15:04:05"))
}
