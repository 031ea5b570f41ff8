package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RateLimitedChatModel 对聊天模型调用做限流与重试的代理
type RateLimitedChatModel struct {
	original    model.BaseChatModel
	rateLimiter *TokenBucket
}

var _ model.BaseChatModel = (*RateLimitedChatModel)(nil)

// NewRateLimitedChatModel 创建限流代理，容量为 qpm 的一半以允许少量突发
func NewRateLimitedChatModel(original model.BaseChatModel, qpm int) *RateLimitedChatModel {
	return &RateLimitedChatModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2),
	}
}

// WithRetryPolicy 设置重试策略
func (rl *RateLimitedChatModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedChatModel {
	rl.rateLimiter.WithRetryPolicy(waitTime, maxRetries)
	return rl
}

func (rl *RateLimitedChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	var response *schema.Message
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var genErr error
		response, genErr = rl.original.Generate(ctx, messages, options...)
		return genErr
	})
	return response, err
}

func (rl *RateLimitedChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var stream *schema.StreamReader[*schema.Message]
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var streamErr error
		stream, streamErr = rl.original.Stream(ctx, messages, options...)
		return streamErr
	})
	return stream, err
}

// NewChatModelWithRateLimit 按配置包装模型；qpm<=0 时使用默认值 30
func NewChatModelWithRateLimit(original model.BaseChatModel, qpm int, maxRetries int, retryWaitTime time.Duration) model.BaseChatModel {
	if qpm <= 0 {
		qpm = 30
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return NewRateLimitedChatModel(original, qpm).WithRetryPolicy(retryWaitTime, maxRetries)
}
