package detector

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/token-tracker/internal/model"
)

func h(mint string, amount, price string) model.TokenHolding {
	return model.TokenHolding{
		Mint:   mint,
		Name:   mint,
		Symbol: mint,
		Amount: decimal.RequireFromString(amount),
		Price:  decimal.RequireFromString(price),
	}
}

func snap(data map[string][]model.TokenHolding) *model.Snapshot {
	return model.NewSnapshot(time.Unix(1700000000, 0), data)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestModifiedAndNew(t *testing.T) {
	prev := snap(map[string][]model.TokenHolding{"W1": {h("M1", "100", "2.0")}})
	curr := snap(map[string][]model.TokenHolding{"W1": {h("M1", "150", "2.5"), h("M2", "10", "1.0")}})

	diff := DetectChanges(prev, curr)
	require.Contains(t, diff, "W1")
	wd := diff["W1"]

	require.Contains(t, wd.Modified, "M1")
	m := wd.Modified["M1"]
	assert.True(t, m.CurrentAmount.Equal(dec("150")))
	assert.True(t, m.Change.Equal(dec("50")))
	assert.True(t, m.PctChange.Equal(dec("50")))
	assert.True(t, m.CurrentPrice.Equal(dec("2.5")))
	assert.True(t, m.PriceChange.Equal(dec("0.5")))
	assert.True(t, m.USDChange.Equal(dec("175")))

	require.Contains(t, wd.New, "M2")
	assert.True(t, wd.New["M2"].Amount.Equal(dec("10")))
	assert.True(t, wd.New["M2"].Price.Equal(dec("1")))
	assert.Empty(t, wd.Removed)
}

func TestRemovedWalletEmptied(t *testing.T) {
	prev := snap(map[string][]model.TokenHolding{"W2": {h("M3", "5", "3.0")}})
	curr := snap(map[string][]model.TokenHolding{"W2": nil})

	diff := DetectChanges(prev, curr)
	wd := diff["W2"]
	require.Contains(t, wd.Removed, "M3")
	assert.True(t, wd.Removed["M3"].Amount.Equal(dec("5")))
	assert.True(t, wd.Removed["M3"].Price.Equal(dec("3")))

	events := diff.Events(time.Now())
	require.Len(t, events, 1)
	assert.True(t, events[0].USDChange.Equal(dec("-15")))
}

func TestZeroAmountIsRemoved(t *testing.T) {
	prev := snap(map[string][]model.TokenHolding{"W1": {h("M1", "42", "1")}})
	curr := snap(map[string][]model.TokenHolding{"W1": {h("M1", "0", "1.5")}})

	wd := DetectChanges(prev, curr)["W1"]
	assert.Empty(t, wd.Modified)
	require.Contains(t, wd.Removed, "M1")
	assert.True(t, wd.Removed["M1"].Amount.Equal(dec("42")), "记录最后已知持仓")
}

func TestPriceOnlyChangeIsModified(t *testing.T) {
	prev := snap(map[string][]model.TokenHolding{"W1": {h("M1", "10", "1")}})
	curr := snap(map[string][]model.TokenHolding{"W1": {h("M1", "10", "1.1")}})

	m := DetectChanges(prev, curr)["W1"].Modified["M1"]
	assert.True(t, m.Change.IsZero())
	assert.True(t, m.PctChange.IsZero())
	assert.True(t, m.PriceChange.Equal(dec("0.1")))
	assert.True(t, m.USDChange.Equal(dec("1")))
}

func TestBelowEpsilonIgnored(t *testing.T) {
	prev := snap(map[string][]model.TokenHolding{"W1": {h("M1", "10", "1")}})
	curr := snap(map[string][]model.TokenHolding{"W1": {h("M1", "10.0000000001", "1")}})
	assert.True(t, DetectChanges(prev, curr).IsEmpty())

	strict := New(1e-12)
	assert.False(t, strict.DetectChanges(prev, curr).IsEmpty())
}

func TestPreviousZeroAmountPercentGuard(t *testing.T) {
	prev := snap(map[string][]model.TokenHolding{"W1": {h("M1", "0", "1")}})
	curr := snap(map[string][]model.TokenHolding{"W1": {h("M1", "3", "1")}})

	m := DetectChanges(prev, curr)["W1"].Modified["M1"]
	assert.True(t, m.PctChange.IsZero())
	assert.True(t, m.Change.Equal(dec("3")))
}

func TestWalletUnionKeepsEmptyBuckets(t *testing.T) {
	prev := snap(map[string][]model.TokenHolding{"W1": {h("M1", "1", "1")}})
	curr := snap(map[string][]model.TokenHolding{"W1": {h("M1", "1", "1")}, "W9": nil})

	diff := DetectChanges(prev, curr)
	assert.Len(t, diff, 2)
	assert.True(t, diff["W1"].IsEmpty())
	assert.True(t, diff["W9"].IsEmpty())
	assert.True(t, DetectChanges(nil, nil).IsEmpty())
}

func genWalletHoldings() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(
		gen.IntRange(0, 8),
		gen.Int64Range(0, 5),
		gen.Int64Range(0, 3),
	).Map(func(v []interface{}) model.TokenHolding {
		return model.TokenHolding{
			Mint:   fmt.Sprintf("M%d", v[0].(int)),
			Amount: decimal.NewFromInt(v[1].(int64)),
			Price:  decimal.NewFromInt(v[2].(int64)),
		}
	}))
}

func TestDetectorProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("detect(S, S) is empty", prop.ForAll(
		func(holdings []model.TokenHolding) bool {
			s := snap(map[string][]model.TokenHolding{"W": holdings})
			return DetectChanges(s, s.Clone()).IsEmpty()
		},
		genWalletHoldings(),
	))

	properties.Property("every mint lands in at most one bucket", prop.ForAll(
		func(prev, curr []model.TokenHolding) bool {
			wd := DetectChanges(
				snap(map[string][]model.TokenHolding{"W": prev}),
				snap(map[string][]model.TokenHolding{"W": curr}),
			)["W"]
			seen := make(map[string]int)
			for m := range wd.New {
				seen[m]++
			}
			for m := range wd.Removed {
				seen[m]++
			}
			for m := range wd.Modified {
				seen[m]++
			}
			for _, n := range seen {
				if n > 1 {
					return false
				}
			}
			return true
		},
		genWalletHoldings(),
		genWalletHoldings(),
	))

	properties.Property("removed usd_change is -(amount*price)", prop.ForAll(
		func(prev []model.TokenHolding) bool {
			diff := DetectChanges(
				snap(map[string][]model.TokenHolding{"W": prev}),
				snap(map[string][]model.TokenHolding{"W": nil}),
			)
			for _, e := range diff.Events(time.Now()) {
				if e.EventType != model.EventRemoved {
					return false
				}
				if !e.USDChange.Equal(e.Amount.Mul(e.Price).Neg()) {
					return false
				}
			}
			return true
		},
		genWalletHoldings(),
	))

	properties.TestingRun(t)
}
