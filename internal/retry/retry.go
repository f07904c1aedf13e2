package retry

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/ninja0404/token-tracker/pkg/logger"
)

// Config 重试参数
type Config struct {
	MaxAttempts  int           // 最大尝试次数(含第一次)
	InitialDelay time.Duration // 第一次重试前的等待
	MaxDelay     time.Duration // 单次等待上限
	Multiplier   float64       // 指数退避倍数
}

// DefaultConfig 3 次尝试，500ms 起步，最多等待 5s
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Result 重试结果
type Result struct {
	Attempts      int
	Success       bool
	TotalDuration time.Duration
	LastError     error
}

// Func 可重试的操作，attempt 从 1 开始
type Func func(ctx context.Context, attempt int) error

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// Permanent 标记为不可重试的错误，Do 遇到后立即返回
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent 是否被 Permanent 标记
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func (c Config) normalize() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.InitialDelay
	}
	return c
}

// Do 按指数退避执行 fn，直到成功、次数用尽、遇到 Permanent 错误或 ctx 结束
func Do(ctx context.Context, cfg Config, fn Func) Result {
	cfg = cfg.normalize()
	start := time.Now()
	result := Result{}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			result.TotalDuration = time.Since(start)
			if attempt > 1 {
				logger.Debug("✅ 重试成功",
					logger.Int("attempts", attempt),
					logger.FieldCost(result.TotalDuration))
			}
			return result
		}
		result.LastError = err

		if IsPermanent(err) {
			var p *permanentError
			errors.As(err, &p)
			result.LastError = p.err
			break
		}
		if attempt >= cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			break
		}

		delay := Backoff(cfg, attempt)
		logger.Debug("🔁 操作失败，等待重试",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", cfg.MaxAttempts),
			logger.Duration("delay", delay),
			logger.FieldErr(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// Backoff 第 attempt 次失败后的等待: InitialDelay * Multiplier^(attempt-1)，不超过 MaxDelay
func Backoff(cfg Config, attempt int) time.Duration {
	cfg = cfg.normalize()
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Err 失败时返回带尝试次数的错误
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.LastError == nil {
		return errors.New("operation failed")
	}
	return errors.Wrapf(r.LastError, "failed after %d attempts", r.Attempts)
}
