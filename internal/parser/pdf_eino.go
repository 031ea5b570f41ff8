package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
)

const defaultEinoTimeout = 30 * time.Second

// EinoPDFTextExtractor 使用 Eino PDF Parser 提取文本
type EinoPDFTextExtractor struct {
	parser  einoParser.Parser
	logger  zerolog.Logger
	timeout time.Duration
}

var _ DocumentExtractor = (*EinoPDFTextExtractor)(nil)

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置日志
func WithEinoLogger(logger zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		e.logger = logger
	}
}

// WithEinoTimeout 配置单次解析超时
func WithEinoTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEinoParser 替换底层解析器，主要用于测试
func WithEinoParser(p einoParser.Parser) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if p != nil {
			e.parser = p
		}
	}
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器。
// 不按页面分割，整份文档作为一段连续文本返回。
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("创建 Eino PDF 解析器失败: %w", err)
	}

	extractor := &EinoPDFTextExtractor{
		parser:  p,
		logger:  zerolog.Nop(),
		timeout: defaultEinoTimeout,
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractFromFile 从PDF文件提取文本
func (e *EinoPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]any, error) {
	return readFile(filePath, func(f *os.File) (string, map[string]any, error) {
		if info, err := f.Stat(); err == nil {
			e.logger.Debug().Str("file", filePath).Float64("size_mb", float64(info.Size())/1024/1024).Msg("开始处理PDF文件")
		}
		return e.ExtractTextFromReader(ctx, f, filePath)
	})
}

// ExtractTextFromReader 从 io.Reader 中提取文本
func (e *EinoPDFTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]any, error) {
	startTime := time.Now()
	extraMeta := map[string]any{
		"source_file_path": uri,
		"extraction_time":  startTime.Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(extraMeta),
	)
	duration := time.Since(startTime)
	if err != nil {
		e.logger.Error().Err(err).Str("uri", uri).Dur("elapsed", duration).Msg("Eino PDF 解析失败")
		return "", extraMeta, fmt.Errorf("eino PDF parser failed for URI %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", extraMeta, fmt.Errorf("eino PDF parser returned no documents for URI %s", uri)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	fullContent := strings.Join(parts, "\n\n")

	finalMetadata := make(map[string]any)
	for k, v := range docs[0].MetaData {
		finalMetadata[k] = v
	}
	for k, v := range extraMeta {
		finalMetadata[k] = v
	}
	finalMetadata["processing_duration_ms"] = duration.Milliseconds()
	finalMetadata["document_count"] = len(docs)
	finalMetadata["text_length"] = len(fullContent)

	e.logger.Debug().Str("uri", uri).Int("chars", len(fullContent)).Dur("elapsed", duration).Msg("PDF提取完成")
	return fullContent, finalMetadata, nil
}

// ExtractTextFromBytes 从字节数组提取文本内容
func (e *EinoPDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]any, error) {
	return e.ExtractTextFromReader(ctx, bytes.NewReader(data), uri)
}
