package processor

import (
	"errors"
	"fmt"

	"resume-extractor/internal/config"
	"resume-extractor/internal/parser"
)

// 定义基础错误类型
var (
	ErrUnsupportedFormat  = parser.ErrUnsupportedFormat
	ErrIngestionFailed    = errors.New("提取简历文本失败")
	ErrEmptyDocument      = errors.New("文档中没有可提取的文本")
	ErrSummaryFailed      = errors.New("生成简历摘要失败")
	ErrMissingCredentials = config.ErrMissingCredentials
)

// ExtractError 包含详细错误信息的自定义错误
type ExtractError struct {
	Source  string // 文件名或来源标识
	Op      string
	BaseErr error
	Detail  string
}

func (e *ExtractError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 来源:%s): %s", e.BaseErr, e.Op, e.Source, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 来源:%s)", e.BaseErr, e.Op, e.Source)
}

func (e *ExtractError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewUnsupportedFormatError(source string) error {
	return &ExtractError{Source: source, Op: "detect", BaseErr: ErrUnsupportedFormat, Detail: "仅支持 .pdf 与 .docx"}
}

func NewIngestError(source, detail string) error {
	return &ExtractError{Source: source, Op: "ingest", BaseErr: ErrIngestionFailed, Detail: detail}
}

func NewEmptyDocumentError(source string) error {
	return &ExtractError{Source: source, Op: "ingest", BaseErr: ErrEmptyDocument}
}

func NewSummaryError(source, detail string) error {
	return &ExtractError{Source: source, Op: "summarize", BaseErr: ErrSummaryFailed, Detail: detail}
}
