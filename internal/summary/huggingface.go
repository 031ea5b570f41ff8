package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"resume-extractor/internal/types"
	"resume-extractor/pkg/ratelimit"
)

// DefaultHFModelURL 默认使用的推理模型
const DefaultHFModelURL = "https://api-inference.huggingface.co/models/google/flan-t5-base"

// HFConfig Hugging Face 推理接口配置
type HFConfig struct {
	APIKey       string
	ModelURL     string
	MaxNewTokens int
	Temperature  float64
	QPM          int
	MaxRetries   int
	RetryWait    time.Duration
	Timeout      time.Duration
}

// HuggingFaceSummarizer 调用 Hugging Face Inference API 生成摘要
type HuggingFaceSummarizer struct {
	cfg     HFConfig
	client  *http.Client
	limiter *ratelimit.TokenBucket
	logger  zerolog.Logger
}

var _ Summarizer = (*HuggingFaceSummarizer)(nil)

// HFOption 配置 HuggingFaceSummarizer
type HFOption func(*HuggingFaceSummarizer)

// WithHFHTTPClient 替换 HTTP 客户端
func WithHFHTTPClient(c *http.Client) HFOption {
	return func(s *HuggingFaceSummarizer) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHFLogger 设置日志
func WithHFLogger(l zerolog.Logger) HFOption {
	return func(s *HuggingFaceSummarizer) {
		s.logger = l
	}
}

// NewHuggingFaceSummarizer 创建摘要器；APIKey 为空时立即返回 ErrMissingAPIKey
func NewHuggingFaceSummarizer(cfg HFConfig, opts ...HFOption) (*HuggingFaceSummarizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("huggingface: %w", ErrMissingAPIKey)
	}
	if cfg.ModelURL == "" {
		cfg.ModelURL = DefaultHFModelURL
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 250
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	s := &HuggingFaceSummarizer{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.NewTokenBucket(cfg.QPM, 0).WithRetryPolicy(cfg.RetryWait, cfg.MaxRetries),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Summarize 生成摘要，503（模型加载中）和 429 会按限流器策略重试
func (s *HuggingFaceSummarizer) Summarize(ctx context.Context, rec *types.ResumeRecord) (string, error) {
	prompt, err := BuildPrompt(rec)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens:   s.cfg.MaxNewTokens,
			Temperature:    s.cfg.Temperature,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	var text string
	err = s.limiter.RetryWithBackoff(ctx, func() error {
		var callErr error
		text, callErr = s.call(ctx, payload)
		return callErr
	})
	if err != nil {
		s.logger.Error().Err(err).Str("model_url", s.cfg.ModelURL).Msg("Hugging Face 摘要生成失败")
		return "", err
	}
	return text, nil
}

func (s *HuggingFaceSummarizer) call(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ModelURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求 Hugging Face 失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("hugging face API error: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			return "", ratelimit.Retryable(apiErr)
		}
		return "", apiErr
	}

	var generations []hfGeneration
	if err := json.Unmarshal(body, &generations); err != nil {
		return "", fmt.Errorf("解析 Hugging Face 响应失败: %w", err)
	}
	if len(generations) == 0 {
		return "", fmt.Errorf("hugging face 返回了空结果")
	}
	return strings.TrimSpace(generations[0].GeneratedText), nil
}
