package processor

import (
	"github.com/rs/zerolog"

	"resume-extractor/internal/parser"
	"resume-extractor/internal/summary"
)

// Option 处理器选项
type Option func(*ResumeProcessor)

// WithIngester 设置文档解码器，通常是按扩展名分发的 parser.FormatRouter
func WithIngester(ingester parser.DocumentExtractor) Option {
	return func(p *ResumeProcessor) {
		p.ingester = ingester
	}
}

// WithExtractor 设置规则提取器
func WithExtractor(extractor *parser.Extractor) Option {
	return func(p *ResumeProcessor) {
		if extractor != nil {
			p.extractor = extractor
		}
	}
}

// WithSummarizer 设置摘要器；nil 表示不支持摘要
func WithSummarizer(s summary.Summarizer) Option {
	return func(p *ResumeProcessor) {
		p.summarizer = s
	}
}

// WithNormalize 是否对解码出的文本做 NFKC 规范化
func WithNormalize(normalize bool) Option {
	return func(p *ResumeProcessor) {
		p.normalize = normalize
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger zerolog.Logger) Option {
	return func(p *ResumeProcessor) {
		p.logger = logger
	}
}
