package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// GetDisplayWalletAddress 缩短钱包地址用于展示
func GetDisplayWalletAddress(walletAddress string) string {
	if len(walletAddress) > 9 {
		return fmt.Sprintf("%s...%s", walletAddress[:6], walletAddress[len(walletAddress)-4:])
	}
	return walletAddress
}

// FormatUSD 带符号的美元金额，支持 k/M 缩写
func FormatUSD(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}
	f := v.InexactFloat64()
	switch {
	case f >= 1_000_000:
		return fmt.Sprintf("%s$%.2fM", sign, f/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("%s$%.2fk", sign, f/1_000)
	default:
		return fmt.Sprintf("%s$%s", sign, v.StringFixed(2))
	}
}

// FormatAmount 代币数量，大数缩写，小数保留有效位
func FormatAmount(amount decimal.Decimal) string {
	if amount.IsZero() {
		return "0"
	}
	f := amount.Abs().InexactFloat64()
	switch {
	case f >= 1_000_000:
		return fmt.Sprintf("%.2fM", amount.InexactFloat64()/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("%.2fK", amount.InexactFloat64()/1_000)
	case f < 0.0001:
		return amount.Truncate(8).String()
	case f < 0.01:
		return amount.Truncate(6).String()
	case f < 1:
		return amount.Truncate(4).String()
	}
	return amount.Truncate(2).String()
}

// FormatPrice 格式化价格，连续多个前导0时压缩为 0{n}
func FormatPrice(price decimal.Decimal) string {
	if price.IsZero() {
		return "$0"
	}

	s := price.Abs().StringFixed(20)
	intPart, decPart := splitOnce(s, ".")
	sign := ""
	if price.IsNegative() {
		sign = "-"
	}

	if strings.TrimRight(decPart, "0") == "" {
		return fmt.Sprintf("%s$%s", sign, intPart)
	}

	zeroPrefix := 0
	for zeroPrefix < len(decPart) && decPart[zeroPrefix] == '0' {
		zeroPrefix++
	}

	end := zeroPrefix + 4
	if end > len(decPart) {
		end = len(decPart)
	}
	digits := strings.TrimRight(decPart[zeroPrefix:end], "0")

	var frac string
	if zeroPrefix > 3 {
		frac = fmt.Sprintf("0{%d}%s", zeroPrefix, digits)
	} else {
		frac = strings.Repeat("0", zeroPrefix) + digits
	}
	return fmt.Sprintf("%s$%s.%s", sign, intPart, frac)
}

// FormatPercent 百分比，带正负号
func FormatPercent(p decimal.Decimal) string {
	if p.IsPositive() {
		return "+" + p.StringFixed(2) + "%"
	}
	return p.StringFixed(2) + "%"
}

// splitOnce 把 s 按第一个 sep 切成两段，若不存在 sep，则 decPart 为空串
func splitOnce(s, sep string) (intPart, decPart string) {
	if idx := strings.Index(s, sep); idx != -1 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}
