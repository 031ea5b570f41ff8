package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-extractor/pkg/ratelimit"
)

const (
	// DashScope 的 OpenAI 兼容接口
	defaultChatAPIURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultChatModelName = "qwen-plus"
)

// OpenAICompatibleChatModel 通过 OpenAI 兼容的 chat/completions 接口实现 eino 的 BaseChatModel
type OpenAICompatibleChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ model.BaseChatModel = (*OpenAICompatibleChatModel)(nil)

// ChatModelOption 配置聊天模型
type ChatModelOption func(*OpenAICompatibleChatModel)

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) ChatModelOption {
	return func(m *OpenAICompatibleChatModel) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithChatLogger 设置日志
func WithChatLogger(l zerolog.Logger) ChatModelOption {
	return func(m *OpenAICompatibleChatModel) {
		m.logger = l
	}
}

// NewOpenAICompatibleChatModel 创建聊天模型；modelName、apiURL 为空时使用默认值
func NewOpenAICompatibleChatModel(apiKey, modelName, apiURL string, opts ...ChatModelOption) (*OpenAICompatibleChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultChatModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultChatAPIURL
	}

	m := &OpenAICompatibleChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ModelName 返回模型名
func (m *OpenAICompatibleChatModel) ModelName() string {
	return m.modelName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Generate 实现 model.BaseChatModel
func (m *OpenAICompatibleChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	opts := model.GetCommonOptions(&model.Options{}, options...)

	req := chatCompletionRequest{
		Model:       m.modelName,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
	}
	if opts.Model != nil && *opts.Model != "" {
		req.Model = *opts.Model
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	m.logger.Debug().Str("url", m.apiURL).Str("model", req.Model).Int("messages", len(req.Messages)).Msg("发送聊天请求")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			return nil, ratelimit.Retryable(apiErr)
		}
		return nil, apiErr
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", string(bodyBytes))
	}

	choice := resp.Choices[0].Message
	result := &schema.Message{Role: schema.RoleType(choice.Role)}
	if choice.Content != nil {
		result.Content = *choice.Content
	}
	if result.Role == "" {
		result.Role = schema.Assistant
	}
	if resp.Usage != nil {
		result.ResponseMeta = &schema.ResponseMeta{
			FinishReason: resp.Choices[0].FinishReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
	}
	return result, nil
}

// Stream 以单条消息的流返回 Generate 的结果
func (m *OpenAICompatibleChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, options...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
