package detector

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/logger"
)

// Epsilon 数量和价格的可忽略差值
const Epsilon = 1e-9

// Detector 快照比较器，无 I/O 副作用
type Detector struct {
	epsilon decimal.Decimal
}

// New 创建比较器，epsilon <= 0 时使用默认值
func New(epsilon float64) *Detector {
	if epsilon <= 0 {
		epsilon = Epsilon
	}
	return &Detector{epsilon: decimal.NewFromFloat(epsilon)}
}

var defaultDetector = New(Epsilon)

// DetectChanges 使用默认 epsilon 比较两次快照
func DetectChanges(previous, current *model.Snapshot) model.Diff {
	return defaultDetector.DetectChanges(previous, current)
}

// DetectChanges 对两次快照中出现过的每个钱包给出 new/removed/modified 三个分类
// 数量归零按 removed 处理；数量和价格都没变的持仓不出现在结果中
func (d *Detector) DetectChanges(previous, current *model.Snapshot) model.Diff {
	wallets := make(map[string]struct{})
	if previous != nil {
		for w := range previous.Data {
			wallets[w] = struct{}{}
		}
	}
	if current != nil {
		for w := range current.Data {
			wallets[w] = struct{}{}
		}
	}

	diff := make(model.Diff, len(wallets))
	for wallet := range wallets {
		diff[wallet] = d.detectWallet(wallet, previous.Holdings(wallet), current.Holdings(wallet))
	}
	return diff
}

// detectWallet 单个钱包出错只影响自己，结果为空分类
func (d *Detector) detectWallet(wallet string, prev, curr []model.TokenHolding) (wd *model.WalletDiff) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("⚠️ 钱包持仓比较失败，本轮视为无变化",
				logger.FieldWallet(wallet),
				logger.String("panic", fmt.Sprint(r)))
			wd = model.NewWalletDiff()
		}
	}()

	wd = model.NewWalletDiff()
	prevByMint := indexByMint(prev)
	currByMint := indexByMint(curr)

	for mint, c := range currByMint {
		p, existed := prevByMint[mint]
		switch {
		case !existed:
			if d.isZero(c.Amount) {
				continue
			}
			wd.New[mint] = c
		case d.isZero(c.Amount):
			if d.isZero(p.Amount) {
				continue
			}
			wd.Removed[mint] = p
		default:
			amountDelta := c.Amount.Sub(p.Amount)
			priceDelta := c.Price.Sub(p.Price)
			if d.isZero(amountDelta) && d.isZero(priceDelta) {
				continue
			}
			wd.Modified[mint] = modification(p, c, amountDelta, priceDelta)
		}
	}

	for mint, p := range prevByMint {
		if _, ok := currByMint[mint]; ok {
			continue
		}
		if d.isZero(p.Amount) {
			continue
		}
		wd.Removed[mint] = p
	}
	return wd
}

func modification(p, c model.TokenHolding, amountDelta, priceDelta decimal.Decimal) model.Modification {
	pct := decimal.Zero
	if !p.Amount.IsZero() {
		pct = amountDelta.Div(p.Amount).Mul(decimal.NewFromInt(100))
	}
	return model.Modification{
		Previous:      p,
		Current:       c,
		CurrentAmount: c.Amount,
		Change:        amountDelta,
		PctChange:     pct,
		CurrentPrice:  c.Price,
		PriceChange:   priceDelta,
		USDChange:     c.USDValue().Sub(p.USDValue()),
	}
}

func (d *Detector) isZero(v decimal.Decimal) bool {
	return v.Abs().LessThanOrEqual(d.epsilon)
}

func indexByMint(holdings []model.TokenHolding) map[string]model.TokenHolding {
	m := make(map[string]model.TokenHolding, len(holdings))
	for _, h := range holdings {
		m[h.Mint] = h
	}
	return m
}
