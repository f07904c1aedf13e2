package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/token-tracker/internal/model"
	"github.com/ninja0404/token-tracker/pkg/logger"
	"github.com/ninja0404/token-tracker/pkg/utils"
)

const (
	DefaultModel     = openai.GPT4oMini
	DefaultMaxTokens = 400
	DefaultTimeout   = 30 * time.Second
)

const systemPrompt = `You analyze token position changes of tracked Solana wallets.
Answer with the first line exactly "ACTION|CONFIDENCE" where ACTION is BUY, SELL or NOTHING
and CONFIDENCE is an integer from 0 to 100. Put a short rationale on the following lines.`

// Analyzer 对单个持仓变化给出结论
type Analyzer interface {
	Analyze(ctx context.Context, event model.ChangeEvent) (*model.AnalysisRecord, error)
}

// Config OpenAI 兼容接口配置
type Config struct {
	APIKey      string  `json:"api_key" yaml:"api_key"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	TimeoutSec  int     `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// OpenAIAnalyzer 基于 chat completion 的分析器
type OpenAIAnalyzer struct {
	client    *openai.Client
	model     string
	temp      float32
	maxTokens int
	timeout   time.Duration
	now       func() time.Time
}

// NewOpenAIAnalyzer 创建分析器，BaseURL 为空时使用官方地址
func NewOpenAIAnalyzer(cfg Config) (*OpenAIAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key 为空")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	a := &OpenAIAnalyzer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
		timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
		now:       time.Now,
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	if a.maxTokens <= 0 {
		a.maxTokens = DefaultMaxTokens
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	return a, nil
}

// Analyze 请求模型并把结果转换为分析记录
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, event model.ChangeEvent) (*model.AnalysisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temp,
		MaxTokens:   a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(event)},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "请求分析模型失败, mint=%s", event.TokenMint)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Errorf("分析模型未返回结果, mint=%s", event.TokenMint)
	}

	action, confidence, text := ParseResponse(resp.Choices[0].Message.Content)
	logger.Debug("🤖 分析完成",
		logger.FieldMint(event.TokenMint),
		logger.String("action", string(action)),
		logger.FieldCost(time.Since(start)))

	rec := &model.AnalysisRecord{
		Timestamp:   a.now(),
		Action:      action,
		Token:       event.Token,
		TokenSymbol: event.TokenSymbol,
		TokenMint:   event.TokenMint,
		TokenName:   event.TokenName,
		Analysis:    text,
		Confidence:  confidence,
		Price:       event.Price,
	}
	if event.EventType == model.EventModified {
		pct := event.PercentChange
		rec.ChangePercent = &pct
	}
	return rec, nil
}

// BuildPrompt 变化事件的描述文本
func BuildPrompt(e model.ChangeEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Wallet: %s\n", e.Wallet)
	fmt.Fprintf(&b, "Token: %s\nMint: %s\n", e.Token, e.TokenMint)
	fmt.Fprintf(&b, "Change type: %s\n", e.EventType)
	fmt.Fprintf(&b, "Amount: %s\n", e.Amount.String())
	if e.EventType == model.EventModified {
		fmt.Fprintf(&b, "Amount change: %s (%s)\n", e.Change.String(), utils.FormatPercent(e.PercentChange))
	}
	fmt.Fprintf(&b, "Price: %s\n", e.Price.String())
	if !e.PriceChange.Equal(decimal.Zero) {
		fmt.Fprintf(&b, "Price change: %s\n", e.PriceChange.String())
	}
	if e.EventType == model.EventNew {
		fmt.Fprintf(&b, "Position value: %s", e.Value().StringFixed(2))
	} else {
		fmt.Fprintf(&b, "USD value change: %s", e.USDChange.StringFixed(2))
	}
	return b.String()
}
