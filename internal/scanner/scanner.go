package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ninja0404/token-tracker/internal/model"
)

// Scanner 读取钱包当前持仓
type Scanner interface {
	// ScanAllWallets 扫描所有钱包，单个钱包失败记录在 Result.Failed 中，不影响其他钱包
	ScanAllWallets(ctx context.Context, wallets []string) *Result
}

// Result 一轮扫描结果
type Result struct {
	Snapshot *model.Snapshot  // 扫描成功的钱包
	Failed   map[string]error // 扫描失败的钱包
}

// NewResult 创建空结果
func NewResult(ts time.Time) *Result {
	return &Result{
		Snapshot: &model.Snapshot{LastUpdate: ts, Data: make(map[string][]model.TokenHolding)},
		Failed:   make(map[string]error),
	}
}

// FailedWallets 排序后的失败钱包
func (r *Result) FailedWallets() []string {
	wallets := make([]string, 0, len(r.Failed))
	for w := range r.Failed {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets
}

// Err 聚合所有失败原因，没有失败返回 nil
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, w := range r.FailedWallets() {
		merr = multierror.Append(merr, &WalletError{Wallet: w, Err: r.Failed[w]})
	}
	return merr.ErrorOrNil()
}

// WalletError 单个钱包的扫描错误
type WalletError struct {
	Wallet string
	Err    error
}

func (e *WalletError) Error() string {
	return "wallet " + e.Wallet + ": " + e.Err.Error()
}

func (e *WalletError) Unwrap() error { return e.Err }

// Config 扫描参数
type Config struct {
	Endpoint          string        `json:"endpoint"`
	Timeout           time.Duration `json:"-"` // 单次 RPC 超时
	MaxAttempts       int           `json:"max_attempts"`
	InitialBackoff    time.Duration `json:"-"`
	MaxBackoff        time.Duration `json:"-"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	Concurrency       int           `json:"concurrency"`
	IncludeToken2022  bool          `json:"include_token_2022"`
}

// DefaultConfig 默认扫描参数
func DefaultConfig() Config {
	return Config{
		Endpoint:          "https://api.mainnet-beta.solana.com",
		Timeout:           15 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		RequestsPerSecond: 5,
		Concurrency:       4,
		IncludeToken2022:  true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MaxAttempts > 5 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	return c
}
