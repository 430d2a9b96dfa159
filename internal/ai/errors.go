package ai

import (
	"errors"
	"fmt"
)

// ErrDisabled 未配置内容生成服务
var ErrDisabled = errors.New("content generation is disabled")

// ErrRateLimit 服务端返回 429
type ErrRateLimit struct {
	Err error
}

func (e *ErrRateLimit) Error() string { return fmt.Sprintf("rate limited: %v", e.Err) }

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable 服务不可达或返回 5xx
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider unavailable: %v", e.Err)
	}
	return "provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrInvalidResponse 返回内容无法解析
type ErrInvalidResponse struct {
	Content string
	Err     error
}

func (e *ErrInvalidResponse) Error() string { return fmt.Sprintf("invalid response: %v", e.Err) }

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// IsRetryable 限流、服务不可用和格式错误可以重试
func IsRetryable(err error) bool {
	var rateLimit *ErrRateLimit
	var unavailable *ErrProviderUnavailable
	var invalid *ErrInvalidResponse
	return errors.As(err, &rateLimit) || errors.As(err, &unavailable) || errors.As(err, &invalid)
}
