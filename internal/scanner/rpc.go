package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ninja0404/token-tracker/internal/common"
	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/internal/retry"
	"github.com/ninja0404/token-tracker/pkg/logger"
)

// Token2022ProgramID SPL Token-2022 程序地址
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// TokenAccountsClient RPC 客户端中扫描需要的部分，*rpc.Client 满足该接口
type TokenAccountsClient interface {
	GetTokenAccountsByOwner(
		ctx context.Context,
		account solana.PublicKey,
		conf *rpc.GetTokenAccountsConfig,
		opts *rpc.GetTokenAccountsOpts,
	) (*rpc.GetTokenAccountsResult, error)
}

// RPCScanner 通过 Solana JSON-RPC 读取钱包的 SPL 代币账户
type RPCScanner struct {
	cfg      Config
	client   TokenAccountsClient
	resolver Resolver
	limiter  *rate.Limiter
	programs []solana.PublicKey
	now      func() time.Time
}

// NewRPCScanner 创建扫描器，resolver 为 nil 时只使用默认名称
func NewRPCScanner(cfg Config, client TokenAccountsClient, resolver Resolver) *RPCScanner {
	cfg = cfg.withDefaults()
	if client == nil {
		client = rpc.New(cfg.Endpoint)
	}
	if resolver == nil {
		resolver = StaticResolver{}
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = cfg.Concurrency
	}

	programs := []solana.PublicKey{solana.TokenProgramID}
	if cfg.IncludeToken2022 {
		programs = append(programs, Token2022ProgramID)
	}

	return &RPCScanner{
		cfg:      cfg,
		client:   client,
		resolver: resolver,
		limiter:  rate.NewLimiter(limit, burst),
		programs: programs,
		now:      time.Now,
	}
}

// ScanAllWallets 并发扫描，单个钱包重试用尽后记入 Failed
func (s *RPCScanner) ScanAllWallets(ctx context.Context, wallets []string) *Result {
	start := s.now()
	result := NewResult(start)
	log := logger.LogFromContext(ctx)

	var mu sync.Mutex
	raw := make(map[string][]model.TokenHolding, len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			holdings, err := s.scanWallet(gctx, wallet, start)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[wallet] = err
				log.Warn("⚠️ 钱包扫描失败，本轮跳过", logger.FieldWallet(wallet), logger.FieldErr(err))
				return nil
			}
			raw[wallet] = holdings
			return nil
		})
	}
	_ = g.Wait()

	mints := uniqueMints(raw)
	infos := s.resolver.Resolve(ctx, mints)
	for wallet, holdings := range raw {
		enriched := make([]model.TokenHolding, 0, len(holdings))
		for _, h := range holdings {
			enriched = append(enriched, Apply(h, infos))
		}
		result.Snapshot.Set(wallet, enriched)
	}

	log.Info("🔍 钱包扫描完成",
		logger.Int("wallets", len(wallets)),
		logger.Int("failed", len(result.Failed)),
		logger.Int("holdings", result.Snapshot.HoldingCount()),
		logger.FieldCost(time.Since(start)))
	return result
}

func (s *RPCScanner) scanWallet(ctx context.Context, wallet string, ts time.Time) ([]model.TokenHolding, error) {
	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}

	byMint := make(map[string]model.TokenHolding)
	order := make([]string, 0)
	for _, program := range s.programs {
		program := program
		var accounts []*rpc.TokenAccount
		res := retry.Do(ctx, retry.Config{
			MaxAttempts:  s.cfg.MaxAttempts,
			InitialDelay: s.cfg.InitialBackoff,
			MaxDelay:     s.cfg.MaxBackoff,
			Multiplier:   2,
		}, func(ctx context.Context, attempt int) error {
			if err := s.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
			out, err := s.client.GetTokenAccountsByOwner(callCtx, owner,
				&rpc.GetTokenAccountsConfig{ProgramId: &program},
				&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
			)
			if err != nil {
				return err
			}
			if out != nil {
				accounts = out.Value
			}
			return nil
		})
		if !res.Success {
			return nil, common.Wrapf(common.ErrTransientScan, res.Err(), "get token accounts (%s)", program)
		}

		for _, acc := range accounts {
			h, ok := parseTokenAccount(acc)
			if !ok {
				continue
			}
			h.Wallet = wallet
			h.Timestamp = ts
			if prev, exists := byMint[h.Mint]; exists {
				prev.Amount = prev.Amount.Add(h.Amount)
				byMint[h.Mint] = prev
				continue
			}
			byMint[h.Mint] = h
			order = append(order, h.Mint)
		}
	}

	holdings := make([]model.TokenHolding, 0, len(order))
	for _, mint := range order {
		h := byMint[mint]
		if h.Amount.IsZero() {
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

// parseTokenAccount 解析 jsonParsed 编码的代币账户
func parseTokenAccount(acc *rpc.TokenAccount) (model.TokenHolding, bool) {
	if acc == nil || acc.Account.Data == nil {
		return model.TokenHolding{}, false
	}
	raw := acc.Account.Data.GetRawJSON()
	if len(raw) == 0 {
		return model.TokenHolding{}, false
	}
	js, err := simplejson.NewJson(raw)
	if err != nil {
		return model.TokenHolding{}, false
	}
	info := js.GetPath("parsed", "info")
	mint := info.Get("mint").MustString()
	if mint == "" {
		return model.TokenHolding{}, false
	}
	tokenAmount := info.Get("tokenAmount")
	decimals := int32(tokenAmount.Get("decimals").MustInt())

	amount, err := decimal.NewFromString(tokenAmount.Get("uiAmountString").MustString())
	if err != nil {
		base, berr := decimal.NewFromString(tokenAmount.Get("amount").MustString())
		if berr != nil {
			return model.TokenHolding{}, false
		}
		amount = base.Shift(-decimals)
	}
	return model.TokenHolding{
		Mint:     mint,
		Decimals: decimals,
		Amount:   amount,
	}, true
}

func uniqueMints(raw map[string][]model.TokenHolding) []string {
	seen := make(map[string]struct{})
	mints := make([]string, 0)
	for _, holdings := range raw {
		for _, h := range holdings {
			if _, ok := seen[h.Mint]; ok {
				continue
			}
			seen[h.Mint] = struct{}{}
			mints = append(mints, h.Mint)
		}
	}
	return mints
}

var _ Scanner = (*RPCScanner)(nil)
