package processor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"resume-extractor/internal/agent"
	"resume-extractor/internal/config"
	"resume-extractor/internal/parser"
	"resume-extractor/internal/summary"
	"resume-extractor/internal/types"
	"resume-extractor/pkg/ratelimit"
)

// NewFromConfig 按配置组装处理器；启用了外部服务却缺少凭据时立即失败
func NewFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*ResumeProcessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ingester, err := NewIngester(ctx, cfg.Ingest, logger)
	if err != nil {
		return nil, err
	}

	extractorOpts := []parser.ExtractorOption{
		parser.WithCategoryRules(CategoryRulesFromConfig(cfg.Extractor.ExtraSections)),
		parser.WithPhoneRegion(cfg.Extractor.PhoneRegion),
		parser.WithExtractorLogger(logger.With().Str("component", "extractor").Logger()),
	}
	if cfg.Extractor.ContactWindow > 0 {
		extractorOpts = append(extractorOpts, parser.WithContactWindow(cfg.Extractor.ContactWindow))
	}
	if cfg.NER.Enabled {
		nerModel, err := newChatModel(cfg, cfg.NERModel(), logger)
		if err != nil {
			return nil, fmt.Errorf("创建人名识别模型失败: %w", err)
		}
		extractorOpts = append(extractorOpts, parser.WithEntityRecognizer(agent.NewLLMPersonRecognizer(nerModel)))
		logger.Info().Str("model", cfg.NERModel()).Msg("已启用 LLM 人名识别")
	}

	summarizer, err := NewSummarizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewResumeProcessor(
		WithIngester(ingester),
		WithExtractor(parser.NewExtractor(extractorOpts...)),
		WithSummarizer(summarizer),
		WithNormalize(cfg.Ingest.Normalize),
		WithLogger(logger.With().Str("component", "processor").Logger()),
	), nil
}

// NewIngester 组装按扩展名分发的解码器。tika 后端同时负责 PDF 与 DOCX。
func NewIngester(ctx context.Context, cfg config.IngestConfig, logger zerolog.Logger) (*parser.FormatRouter, error) {
	ingestLogger := logger.With().Str("component", "ingest").Logger()
	timeout := time.Duration(cfg.Tika.Timeout) * time.Second

	if cfg.PDFBackend == "tika" {
		tika := parser.NewTikaExtractor(cfg.Tika.ServerURL,
			parser.WithTimeout(timeout),
			parser.WithTikaMetadata(cfg.Tika.Metadata),
			parser.WithTikaLogger(ingestLogger),
		)
		return parser.NewFormatRouter(map[parser.DocumentFormat]parser.DocumentExtractor{
			parser.FormatPDF:  tika,
			parser.FormatDOCX: tika,
		}), nil
	}

	pdf, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(ingestLogger), parser.WithEinoTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("创建 PDF 解码器失败: %w", err)
	}
	return parser.NewFormatRouter(map[parser.DocumentFormat]parser.DocumentExtractor{
		parser.FormatPDF:  pdf,
		parser.FormatDOCX: parser.NewDocxExtractor(&ingestLogger),
	}), nil
}

// NewSummarizer 按 summary.provider 创建摘要器；provider 为 none 时返回 nil
func NewSummarizer(cfg *config.Config, logger zerolog.Logger) (summary.Summarizer, error) {
	sumLogger := logger.With().Str("component", "summary").Logger()
	switch cfg.Summary.Provider {
	case config.SummaryProviderHuggingFace:
		s, err := summary.NewHuggingFaceSummarizer(summary.HFConfig{
			APIKey:       cfg.Summary.APIKey,
			ModelURL:     cfg.Summary.ModelURL,
			MaxNewTokens: cfg.Summary.MaxTokens,
			Temperature:  cfg.Summary.Temperature,
			QPM:          cfg.Summary.QPM,
			MaxRetries:   cfg.Summary.MaxRetries,
			RetryWait:    config.GetDuration(cfg.Summary.RetryWait, 2*time.Second),
			Timeout:      config.GetDuration(cfg.Summary.Timeout, 60*time.Second),
		}, summary.WithHFLogger(sumLogger))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
		}
		return s, nil
	case config.SummaryProviderLLM:
		m, err := newChatModel(cfg, cfg.LLM.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("创建摘要模型失败: %w", err)
		}
		s, err := summary.NewChatSummarizer(m, cfg.Summary.MaxTokens, float32(cfg.Summary.Temperature))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}

func newChatModel(cfg *config.Config, modelName string, logger zerolog.Logger) (model.BaseChatModel, error) {
	m, err := agent.NewOpenAICompatibleChatModel(cfg.LLM.APIKey, modelName, cfg.LLM.APIURL,
		agent.WithChatLogger(logger.With().Str("component", "llm").Str("model", modelName).Logger()))
	if err != nil {
		return nil, err
	}
	qpm := cfg.GetQPMForModel(modelName, cfg.LLM.QPM)
	return ratelimit.NewChatModelWithRateLimit(m, qpm, cfg.Summary.MaxRetries,
		config.GetDuration(cfg.Summary.RetryWait, 2*time.Second)), nil
}

// CategoryRulesFromConfig 把配置中的 类别 -> 别名 映射转成规则，按类别名排序保证匹配顺序稳定
func CategoryRulesFromConfig(extra map[string][]string) []parser.CategoryRule {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := make([]parser.CategoryRule, 0, len(keys))
	for _, k := range keys {
		rules = append(rules, parser.CategoryRule{
			Category: types.SectionCategory(k),
			Aliases:  extra[k],
		})
	}
	return rules
}
