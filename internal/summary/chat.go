package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-extractor/internal/types"
)

// ChatSummarizer 使用 eino 聊天模型生成摘要，限流由传入的模型代理负责
type ChatSummarizer struct {
	model       model.BaseChatModel
	maxTokens   int
	temperature float32
}

var _ Summarizer = (*ChatSummarizer)(nil)

// NewChatSummarizer 创建摘要器
func NewChatSummarizer(m model.BaseChatModel, maxTokens int, temperature float32) (*ChatSummarizer, error) {
	if m == nil {
		return nil, fmt.Errorf("chat summarizer: %w", ErrMissingAPIKey)
	}
	if maxTokens <= 0 {
		maxTokens = 250
	}
	return &ChatSummarizer{model: m, maxTokens: maxTokens, temperature: temperature}, nil
}

func (c *ChatSummarizer) Summarize(ctx context.Context, rec *types.ResumeRecord) (string, error) {
	prompt, err := BuildPrompt(rec)
	if err != nil {
		return "", err
	}
	resp, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)},
		model.WithMaxTokens(c.maxTokens),
		model.WithTemperature(c.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("生成摘要失败: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
