package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidDocx 压缩包中缺少 word/document.xml
var ErrInvalidDocx = errors.New("无效的DOCX文档")

// DocxExtractor 直接读取 word/document.xml，每个段落输出一行，空段落保留为空行
type DocxExtractor struct {
	logger zerolog.Logger
}

var _ DocumentExtractor = (*DocxExtractor)(nil)

// NewDocxExtractor 创建 DOCX 解码器
func NewDocxExtractor(logger *zerolog.Logger) *DocxExtractor {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &DocxExtractor{logger: l}
}

func (d *DocxExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]any, error) {
	return readFile(filePath, func(f *os.File) (string, map[string]any, error) {
		return d.ExtractTextFromReader(ctx, f, filePath)
	})
}

func (d *DocxExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]any, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取DOCX内容失败: %w", err)
	}
	return d.ExtractTextFromBytes(ctx, data, uri)
}

func (d *DocxExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]any, error) {
	startTime := time.Now()
	metadata := map[string]any{
		"extraction_time":  startTime.Format(time.RFC3339),
		"source_file_path": uri,
	}
	if err := ctx.Err(); err != nil {
		return "", metadata, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", metadata, fmt.Errorf("%w: %v", ErrInvalidDocx, err)
	}
	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", metadata, fmt.Errorf("%w: word/document.xml not found", ErrInvalidDocx)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", metadata, fmt.Errorf("打开 document.xml 失败: %w", err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return "", metadata, err
	}
	text := strings.Join(paragraphs, "\n")

	metadata["paragraph_count"] = len(paragraphs)
	metadata["text_length"] = len(text)
	metadata["processing_duration_ms"] = time.Since(startTime).Milliseconds()
	d.logger.Debug().Str("uri", uri).Int("paragraphs", len(paragraphs)).Msg("DOCX文本提取完成")
	return text, metadata, nil
}

// docxParagraphs 按 <w:p> 收集文本；<w:tab/> 转为制表符，<w:br/> 转为换行
func docxParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var paragraphs []string
	var current strings.Builder
	inParagraph, inRun, inText := false, false, false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析 document.xml 失败: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "r":
				inRun = inParagraph
			case "t":
				inText = inRun
			case "tab":
				// 段落属性里的制表位定义同名，只处理文本串中的
				if inRun {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					current.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				inRun = false
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, current.String())
					inParagraph = false
				}
			}
		}
	}
	return paragraphs, nil
}
