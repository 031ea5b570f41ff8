package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DocumentFormat 支持的文档格式
type DocumentFormat string

const (
	FormatPDF     DocumentFormat = "pdf"
	FormatDOCX    DocumentFormat = "docx"
	FormatUnknown DocumentFormat = ""
)

// ErrUnsupportedFormat 文件扩展名不受支持
var ErrUnsupportedFormat = errors.New("不支持的文档格式")

// DocumentExtractor 文档解码器：二进制文档 -> 以换行分隔的纯文本及元数据
type DocumentExtractor interface {
	// ExtractFromFile 从文件提取文本和元数据
	ExtractFromFile(ctx context.Context, filePath string) (string, map[string]any, error)

	// ExtractTextFromReader 从 io.Reader 提取文本和元数据
	ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]any, error)

	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]any, error)
}

// DetectFormat 按扩展名判断格式
func DetectFormat(filename string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnknown
	}
}

// ContentType 返回格式对应的 MIME 类型
func (f DocumentFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// NormalizeText 统一换行（含 PDF 分页产生的换页符）并做 NFKC 规范化，全角字符与连字会被展开
func NormalizeText(text string) string {
	return norm.NFKC.String(lineBreaks.Replace(text))
}

// FormatRouter 按扩展名把请求分发给对应格式的解码器
type FormatRouter struct {
	extractors map[DocumentFormat]DocumentExtractor
}

var _ DocumentExtractor = (*FormatRouter)(nil)

// NewFormatRouter 创建分发器，nil 解码器会被忽略
func NewFormatRouter(extractors map[DocumentFormat]DocumentExtractor) *FormatRouter {
	r := &FormatRouter{extractors: make(map[DocumentFormat]DocumentExtractor)}
	for f, ex := range extractors {
		if ex != nil {
			r.extractors[f] = ex
		}
	}
	return r
}

// Supports 是否能处理该文件名
func (r *FormatRouter) Supports(filename string) bool {
	_, err := r.pick(filename)
	return err == nil
}

func (r *FormatRouter) pick(uri string) (DocumentExtractor, error) {
	f := DetectFormat(uri)
	ex, ok := r.extractors[f]
	if f == FormatUnknown || !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(uri))
	}
	return ex, nil
}

func (r *FormatRouter) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]any, error) {
	ex, err := r.pick(filePath)
	if err != nil {
		return "", nil, err
	}
	return ex.ExtractFromFile(ctx, filePath)
}

func (r *FormatRouter) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]any, error) {
	ex, err := r.pick(uri)
	if err != nil {
		return "", nil, err
	}
	return ex.ExtractTextFromReader(ctx, reader, uri)
}

func (r *FormatRouter) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]any, error) {
	ex, err := r.pick(uri)
	if err != nil {
		return "", nil, err
	}
	return ex.ExtractTextFromBytes(ctx, data, uri)
}

// readFile 打开文件并交给 fn 处理，供各解码器的 ExtractFromFile 复用
func readFile(filePath string, fn func(f *os.File) (string, map[string]any, error)) (string, map[string]any, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("打开文件 %s 失败: %w", filePath, err)
	}
	defer f.Close()
	return fn(f)
}
