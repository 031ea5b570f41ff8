package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// TokenBucket 令牌桶限流器，用于约束对外部推理服务的调用频率
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	mutex          sync.Mutex
	retryWaitTime  time.Duration
	maxRetries     int
}

// NewTokenBucket 按每分钟请求数创建限流器；capacity<=0 时取 qpm 的一半（至少为 1）
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if qpm <= 0 {
		qpm = 30
	}
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	return &TokenBucket{
		rate:           float64(qpm) / 60.0,
		capacity:       float64(capacity),
		tokens:         float64(capacity),
		lastRefillTime: time.Now(),
		retryWaitTime:  time.Second,
		maxRetries:     3,
	}
}

// WithRetryPolicy 设置重试策略
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	if waitTime > 0 {
		tb.retryWaitTime = waitTime
	}
	if maxRetries >= 0 {
		tb.maxRetries = maxRetries
	}
	return tb
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 非阻塞地尝试取一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到取得令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}
		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithBackoff 每次尝试前先取令牌，遇到可重试错误时按指数退避重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	var err error
	for retry := 0; retry <= tb.maxRetries; retry++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if !IsRetryable(err) || retry >= tb.maxRetries {
			return err
		}

		timer := time.NewTimer(tb.retryWaitTime * time.Duration(1<<uint(retry)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// RetryableError 由调用方显式标记可重试的错误，例如模型仍在加载时返回的 503
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable 把 err 标记为可重试
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

var retryableFragments = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"EOF",
	"429 Too Many Requests",
	"rate limit",
	"no such host",
	"服务器繁忙",
	"请求超过限额",
}

// IsRetryable 判断错误是否值得重试；ctx 取消或超时不重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	msg := err.Error()
	for _, frag := range retryableFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
