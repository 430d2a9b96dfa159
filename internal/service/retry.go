package service

import (
	"context"
	"study_companion_backend/internal/ai"
	"study_companion_backend/internal/config"
	"study_companion_backend/pkg/logger"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// RetryPolicy 外部内容生成调用的重试策略，由调用方持有
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	Timeout  time.Duration
}

func NewRetryPolicy(cfg config.AIConfig) RetryPolicy {
	return RetryPolicy{
		Attempts: cfg.MaxRetries + 1,
		Delay:    500 * time.Millisecond,
		Timeout:  cfg.Timeout,
	}
}

// Do 每次尝试使用独立的超时，不可重试的错误立即返回
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			callCtx, cancel := p.callContext(ctx)
			defer cancel()
			err := fn(callCtx)
			if err != nil && !ai.IsRetryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Log.Warn("Retrying content generation", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (p RetryPolicy) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.Timeout)
}
