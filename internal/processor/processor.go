package processor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-extractor/internal/parser"
	"resume-extractor/internal/summary"
	"resume-extractor/internal/tracing"
	"resume-extractor/internal/types"
)

// Result 一份简历的处理结果
type Result struct {
	Source   string              `json:"source"`
	Record   *types.ResumeRecord `json:"record"`
	Summary  string              `json:"summary,omitempty"`
	Metadata map[string]any      `json:"metadata,omitempty"`
	// SummaryError 摘要失败不影响结构化结果，只记录原因
	SummaryError string `json:"summary_error,omitempty"`
}

// ResumeProcessor 串联 解码 -> 规范化 -> 规则提取 -> 可选摘要
type ResumeProcessor struct {
	ingester   parser.DocumentExtractor
	extractor  *parser.Extractor
	summarizer summary.Summarizer
	normalize  bool
	logger     zerolog.Logger
}

// NewResumeProcessor 创建处理器，未指定提取器时使用内置别名表
func NewResumeProcessor(opts ...Option) *ResumeProcessor {
	p := &ResumeProcessor{
		extractor: parser.NewExtractor(),
		normalize: true,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HasSummarizer 是否配置了摘要服务
func (p *ResumeProcessor) HasSummarizer() bool {
	return p.summarizer != nil
}

// Supports 文件名是否为可解码的格式
func (p *ResumeProcessor) Supports(filename string) bool {
	if r, ok := p.ingester.(*parser.FormatRouter); ok {
		return r.Supports(filename)
	}
	return p.ingester != nil && parser.DetectFormat(filename) != parser.FormatUnknown
}

// ProcessFile 读取并处理本地文件
func (p *ResumeProcessor) ProcessFile(ctx context.Context, path string, withSummary bool) (*Result, error) {
	ctx, span := tracing.Tracer().Start(ctx, "ResumeProcessor.ProcessFile",
		trace.WithAttributes(attribute.String("resume.source", tracing.SafeAttributeValue("filename", path, tracing.MaxFilenameLength))))
	defer span.End()

	if err := p.checkIngest(path); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	text, meta, err := p.ingester.ExtractFromFile(ctx, path)
	if err != nil {
		err = p.wrapIngestErr(path, err)
		tracing.RecordError(span, err, tracing.ErrorTypeIngest)
		return nil, err
	}
	return p.finish(ctx, span, path, text, meta, withSummary)
}

// ProcessBytes 处理上传的文档内容，filename 决定解码格式
func (p *ResumeProcessor) ProcessBytes(ctx context.Context, data []byte, filename string, withSummary bool) (*Result, error) {
	ctx, span := tracing.Tracer().Start(ctx, "ResumeProcessor.ProcessBytes",
		trace.WithAttributes(
			attribute.String("resume.source", tracing.SafeAttributeValue("filename", filename, tracing.MaxFilenameLength)),
			attribute.Int("resume.bytes", len(data)),
		))
	defer span.End()

	if err := p.checkIngest(filename); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	text, meta, err := p.ingester.ExtractTextFromBytes(ctx, data, filename)
	if err != nil {
		err = p.wrapIngestErr(filename, err)
		tracing.RecordError(span, err, tracing.ErrorTypeIngest)
		return nil, err
	}
	return p.finish(ctx, span, filename, text, meta, withSummary)
}

// ProcessText 处理已经是纯文本的简历。空文本得到全部缺失的记录而不是错误。
func (p *ResumeProcessor) ProcessText(ctx context.Context, text, source string, withSummary bool) (*Result, error) {
	ctx, span := tracing.Tracer().Start(ctx, "ResumeProcessor.ProcessText")
	defer span.End()

	if p.normalize {
		text = parser.NormalizeText(text)
	}
	return p.build(ctx, span, source, text, nil, withSummary), nil
}

// Summarize 对已有记录生成摘要
func (p *ResumeProcessor) Summarize(ctx context.Context, source string, rec *types.ResumeRecord) (string, error) {
	if p.summarizer == nil {
		return "", NewSummaryError(source, "未配置摘要服务")
	}
	text, err := p.summarizer.Summarize(ctx, rec)
	if err != nil {
		return "", NewSummaryError(source, err.Error())
	}
	return text, nil
}

func (p *ResumeProcessor) checkIngest(source string) error {
	if p.ingester == nil {
		return NewIngestError(source, "未配置文档解码器")
	}
	if !p.Supports(source) {
		return NewUnsupportedFormatError(source)
	}
	return nil
}

func (p *ResumeProcessor) wrapIngestErr(source string, err error) error {
	if errors.Is(err, parser.ErrUnsupportedFormat) {
		return NewUnsupportedFormatError(source)
	}
	return NewIngestError(source, err.Error())
}

func (p *ResumeProcessor) finish(ctx context.Context, span trace.Span, source, text string, meta map[string]any, withSummary bool) (*Result, error) {
	if p.normalize {
		text = parser.NormalizeText(text)
	}
	if strings.TrimSpace(text) == "" {
		err := NewEmptyDocumentError(source)
		tracing.RecordError(span, err, tracing.ErrorTypeIngest)
		p.logger.Warn().Str("source", source).Msg("文档解码后没有文本，可能是扫描件")
		return nil, err
	}
	return p.build(ctx, span, source, text, meta, withSummary), nil
}

func (p *ResumeProcessor) build(ctx context.Context, span trace.Span, source, text string, meta map[string]any, withSummary bool) *Result {
	start := time.Now()
	rec := p.extractor.Extract(ctx, text)
	res := &Result{Source: source, Record: rec, Metadata: meta}

	span.SetAttributes(
		attribute.Int("resume.text_length", len(text)),
		attribute.Bool("resume.name_found", rec.Name.IsFound()),
	)

	if withSummary {
		s, err := p.Summarize(ctx, source, rec)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeSummary)
			p.logger.Warn().Err(err).Str("source", source).Msg("摘要生成失败，仅返回结构化结果")
			res.SummaryError = err.Error()
		} else {
			res.Summary = s
		}
	}

	p.logger.Info().
		Str("source", source).
		Int("text_length", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("简历处理完成")
	return res
}
