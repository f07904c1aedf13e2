package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/ninja0404/token-tracker/internal/model"
)

// StaticScanner 返回预设持仓，可注入钱包级失败
type StaticScanner struct {
	mu       sync.Mutex
	holdings map[string][]model.TokenHolding
	failures map[string]error
	calls    int
	now      func() time.Time
}

func NewStaticScanner() *StaticScanner {
	return &StaticScanner{
		holdings: make(map[string][]model.TokenHolding),
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// SetHoldings 替换钱包的持仓
func (s *StaticScanner) SetHoldings(wallet string, holdings ...model.TokenHolding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings[wallet] = append([]model.TokenHolding(nil), holdings...)
}

// Fail 该钱包之后的扫描返回 err，传 nil 恢复
func (s *StaticScanner) Fail(wallet string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, wallet)
		return
	}
	s.failures[wallet] = err
}

// Calls 扫描次数
func (s *StaticScanner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StaticScanner) ScanAllWallets(ctx context.Context, wallets []string) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	ts := s.now()
	result := NewResult(ts)
	for _, w := range wallets {
		if err := ctx.Err(); err != nil {
			result.Failed[w] = err
			continue
		}
		if err, ok := s.failures[w]; ok {
			result.Failed[w] = err
			continue
		}
		holdings := make([]model.TokenHolding, 0, len(s.holdings[w]))
		for _, h := range s.holdings[w] {
			if h.Timestamp.IsZero() {
				h.Timestamp = ts
			}
			holdings = append(holdings, h.WithDefaults())
		}
		result.Snapshot.Set(w, holdings)
	}
	return result
}

var _ Scanner = (*StaticScanner)(nil)
