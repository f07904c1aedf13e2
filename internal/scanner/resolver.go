package scanner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/logger"
)

// TokenInfo 代币元数据和价格
type TokenInfo struct {
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	Decimals int32           `json:"decimals"`
	Price    decimal.Decimal `json:"price"`
}

// Resolver 批量解析代币信息，未知的 mint 不出现在结果中
type Resolver interface {
	Resolve(ctx context.Context, mints []string) map[string]TokenInfo
}

// Apply 用解析结果补全持仓，缺失的名称和符号使用默认值
func Apply(h model.TokenHolding, infos map[string]TokenInfo) model.TokenHolding {
	if info, ok := infos[h.Mint]; ok {
		if info.Name != "" {
			h.Name = info.Name
		}
		if info.Symbol != "" {
			h.Symbol = info.Symbol
		}
		if h.Decimals == 0 && info.Decimals > 0 {
			h.Decimals = info.Decimals
		}
		h.Price = info.Price
	}
	return h.WithDefaults()
}

// StaticResolver 固定映射
type StaticResolver map[string]TokenInfo

func (s StaticResolver) Resolve(_ context.Context, mints []string) map[string]TokenInfo {
	out := make(map[string]TokenInfo, len(mints))
	for _, m := range mints {
		if info, ok := s[m]; ok {
			out[m] = info
		}
	}
	return out
}

// ChainResolver 依次查询，前一个没解析到的 mint 交给下一个
type ChainResolver []Resolver

func (c ChainResolver) Resolve(ctx context.Context, mints []string) map[string]TokenInfo {
	out := make(map[string]TokenInfo, len(mints))
	pending := mints
	for _, r := range c {
		if len(pending) == 0 {
			break
		}
		for m, info := range r.Resolve(ctx, pending) {
			out[m] = info
		}
		next := pending[:0:0]
		for _, m := range pending {
			if _, ok := out[m]; !ok {
				next = append(next, m)
			}
		}
		pending = next
	}
	return out
}

// TokenInfoSource 代币信息表查询，由 internal/repo 实现
type TokenInfoSource interface {
	GetTokenInfos(ctx context.Context, mints []string) ([]*model.TokensInfo, error)
}

// RepoResolver 从数据库 tokens_info 表解析
type RepoResolver struct {
	source TokenInfoSource
}

func NewRepoResolver(source TokenInfoSource) *RepoResolver {
	return &RepoResolver{source: source}
}

func (r *RepoResolver) Resolve(ctx context.Context, mints []string) map[string]TokenInfo {
	out := make(map[string]TokenInfo, len(mints))
	if len(mints) == 0 {
		return out
	}
	rows, err := r.source.GetTokenInfos(ctx, mints)
	if err != nil {
		logger.Warn("⚠️ 查询代币信息失败", logger.Int("mints", len(mints)), logger.FieldErr(err))
		return out
	}
	for _, row := range rows {
		out[row.TokenAddress] = TokenInfo{
			Name:     row.Name,
			Symbol:   row.Symbol,
			Decimals: row.Decimals,
			Price:    row.CurrentPrice,
		}
	}
	return out
}

const defaultCachePrefix = "token-tracker:token-info:"

// CachedResolver Redis 缓存，未命中的 mint 交给下游并回写
type CachedResolver struct {
	client redis.UniversalClient
	next   Resolver
	ttl    time.Duration
	prefix string
}

// NewCachedResolver ttl <= 0 时为 5 分钟
func NewCachedResolver(client redis.UniversalClient, next Resolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{client: client, next: next, ttl: ttl, prefix: defaultCachePrefix}
}

func (c *CachedResolver) key(mint string) string {
	return c.prefix + mint
}

func (c *CachedResolver) Resolve(ctx context.Context, mints []string) map[string]TokenInfo {
	out := make(map[string]TokenInfo, len(mints))
	if len(mints) == 0 {
		return out
	}

	keys := make([]string, len(mints))
	for i, m := range mints {
		keys[i] = c.key(m)
	}

	missing := mints
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warn("⚠️ 读取代币信息缓存失败", logger.FieldErr(err))
	} else {
		missing = make([]string, 0, len(mints))
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, mints[i])
				continue
			}
			var info TokenInfo
			if err := json.Unmarshal([]byte(s), &info); err != nil {
				missing = append(missing, mints[i])
				continue
			}
			out[mints[i]] = info
		}
	}

	if len(missing) == 0 || c.next == nil {
		return out
	}

	resolved := c.next.Resolve(ctx, missing)
	if len(resolved) == 0 {
		return out
	}
	pipe := c.client.Pipeline()
	for m, info := range resolved {
		out[m] = info
		data, err := json.Marshal(info)
		if err != nil {
			continue
		}
		pipe.Set(ctx, c.key(m), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("⚠️ 写入代币信息缓存失败", logger.FieldErr(err))
	}
	return out
}
