package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TikaExtractor 基于 Apache Tika 服务的解码器，PDF 与 DOCX 均可处理
type TikaExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	Client    *http.Client

	extractMetadata bool
	logger          zerolog.Logger
}

var _ DocumentExtractor = (*TikaExtractor)(nil)

// TikaOption 定义配置选项函数
type TikaOption func(*TikaExtractor)

// WithTikaMetadata 是否额外请求 /meta 获取关键元数据
func WithTikaMetadata(extract bool) TikaOption {
	return func(e *TikaExtractor) {
		e.extractMetadata = extract
	}
}

// WithTikaLogger 配置日志
func WithTikaLogger(logger zerolog.Logger) TikaOption {
	return func(e *TikaExtractor) {
		e.logger = logger
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaExtractor) {
		if timeout > 0 {
			e.Client.Timeout = timeout
		}
	}
}

// NewTikaExtractor 创建 Tika 解码器
func NewTikaExtractor(serverURL string, options ...TikaOption) *TikaExtractor {
	extractor := &TikaExtractor{
		ServerURL:       strings.TrimRight(serverURL, "/"),
		Client:          &http.Client{Timeout: 60 * time.Second},
		extractMetadata: true,
		logger:          zerolog.Nop(),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

// ExtractFromFile 从文件提取文本内容
func (e *TikaExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]any, error) {
	return readFile(filePath, func(f *os.File) (string, map[string]any, error) {
		return e.ExtractTextFromReader(ctx, f, filePath)
	})
}

// ExtractTextFromReader 读取全部内容后交给 ExtractTextFromBytes
func (e *TikaExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]any, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取文档内容失败: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, data, uri)
}

// ExtractTextFromBytes 调用 /tika 获取纯文本
func (e *TikaExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]any, error) {
	startTime := time.Now()
	metadata := map[string]any{
		"extraction_time":  startTime.Format(time.RFC3339),
		"source_file_path": uri,
	}

	body, err := e.put(ctx, "/tika", "text/plain", data, uri)
	if err != nil {
		e.logger.Error().Err(err).Str("uri", uri).Msg("Tika 文本提取失败")
		return "", metadata, err
	}
	text := string(body)
	metadata["text_length"] = len(text)
	metadata["processing_duration_ms"] = time.Since(startTime).Milliseconds()

	if e.extractMetadata {
		raw, err := e.fetchMetadata(ctx, data, uri)
		if err != nil {
			e.logger.Warn().Err(err).Str("uri", uri).Msg("元数据提取失败，继续使用基本元数据")
		}
		for k, v := range raw {
			if isImportantMetadata(k) {
				metadata[k] = v
			}
		}
	}

	e.logger.Debug().Str("uri", uri).Int("chars", len(text)).Msg("Tika 文本提取完成")
	return text, metadata, nil
}

func (e *TikaExtractor) fetchMetadata(ctx context.Context, data []byte, uri string) (map[string]any, error) {
	body, err := e.put(ctx, "/meta", "application/json", data, uri)
	if err != nil {
		return nil, err
	}
	var metadata map[string]any
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("解析元数据JSON失败: %w", err)
	}
	return metadata, nil
}

func (e *TikaExtractor) put(ctx context.Context, path, accept string, data []byte, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.ServerURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", DetectFormat(uri).ContentType())
	req.Header.Set("Accept", accept)
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取Tika响应失败: %w", err)
	}
	return body, nil
}

var importantMetadataKeys = map[string]bool{
	"Content-Type":      true,
	"dc:title":          true,
	"dc:creator":        true,
	"dcterms:created":   true,
	"dcterms:modified":  true,
	"language":          true,
	"xmpTPg:NPages":     true,
	"meta:page-count":   true,
	"pdf:PDFVersion":    true,
	"pdf:docinfo:title": true,
}

func isImportantMetadata(key string) bool {
	return importantMetadataKeys[key]
}
