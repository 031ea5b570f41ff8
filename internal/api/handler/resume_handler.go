package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"resume-extractor/internal/config"
	"resume-extractor/internal/processor"
	"resume-extractor/internal/types"
)

// ResumeHandler 负责简历抽取相关的 HTTP 请求
type ResumeHandler struct {
	cfg       *config.Config
	processor *processor.ResumeProcessor
	logger    zerolog.Logger
	newID     func() (string, error)
}

// NewResumeHandler 创建一个新的简历处理器
func NewResumeHandler(cfg *config.Config, p *processor.ResumeProcessor, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{
		cfg:       cfg,
		processor: p,
		logger:    logger,
		newID:     newSubmissionID,
	}
}

// newSubmissionID 生成按时间排序的 UUIDv7
func newSubmissionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	return id.String(), nil
}

// ExtractResponse 抽取响应
type ExtractResponse struct {
	SubmissionID string              `json:"submission_id"`
	Source       string              `json:"source,omitempty"`
	Record       *types.ResumeRecord `json:"record"`
	Summary      string              `json:"summary,omitempty"`
	SummaryError string              `json:"summary_error,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// TextRequest 纯文本抽取请求
type TextRequest struct {
	Text    string `json:"text"`
	Source  string `json:"source,omitempty"`
	Summary bool   `json:"summary,omitempty"`
}

// HandleExtract 处理上传文件的抽取请求。
// POST /api/v1/resume/extract  multipart 字段 file，可选查询参数 summary=true
func (h *ResumeHandler) HandleExtract(ctx context.Context, c *app.RequestContext) {
	withSummary, err := parseBoolQuery(c, "summary")
	if err != nil {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: "文件未找到"})
		return
	}
	if limit := h.maxUploadBytes(); limit > 0 && fileHeader.Size > limit {
		c.JSON(consts.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("文件大小超过限制 %dMB", h.cfg.Server.MaxUploadMB),
		})
		return
	}
	if !h.processor.Supports(fileHeader.Filename) {
		c.JSON(consts.StatusUnsupportedMediaType, ErrorResponse{Error: "仅支持 .pdf 与 .docx 文件"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, ErrorResponse{Error: "打开文件失败"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, ErrorResponse{Error: "读取上传文件内容失败"})
		return
	}

	submissionID, err := h.newID()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	log := h.logger.With().Str("submission_id", submissionID).Str("filename", fileHeader.Filename).Logger()
	log.Info().Int("bytes", len(data)).Bool("summary", withSummary).Msg("收到简历抽取请求")

	res, err := h.processor.ProcessBytes(ctx, data, fileHeader.Filename, withSummary)
	if err != nil {
		status := statusForError(err)
		log.Warn().Err(err).Int("status", status).Msg("简历抽取失败")
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	renderJSON(c, consts.StatusOK, newExtractResponse(submissionID, res))
}

// HandleExtractText 处理纯文本抽取请求。
// POST /api/v1/resume/extract/text
func (h *ResumeHandler) HandleExtractText(ctx context.Context, c *app.RequestContext) {
	var req TextRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: "请求体不是有效的 JSON"})
		return
	}
	if limit := h.maxUploadBytes(); limit > 0 && int64(len(req.Text)) > limit {
		c.JSON(consts.StatusRequestEntityTooLarge, ErrorResponse{Error: "文本长度超过限制"})
		return
	}

	submissionID, err := h.newID()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	source := req.Source
	if source == "" {
		source = submissionID
	}

	res, err := h.processor.ProcessText(ctx, req.Text, source, req.Summary)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: err.Error()})
		return
	}
	renderJSON(c, consts.StatusOK, newExtractResponse(submissionID, res))
}

// HandleHealth 健康检查
func (h *ResumeHandler) HandleHealth(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]any{
		"status":  "ok",
		"summary": h.processor.HasSummarizer(),
	})
}

func (h *ResumeHandler) maxUploadBytes() int64 {
	if h.cfg == nil {
		return 0
	}
	return int64(h.cfg.Server.MaxUploadMB) << 20
}

func newExtractResponse(submissionID string, res *processor.Result) ExtractResponse {
	return ExtractResponse{
		SubmissionID: submissionID,
		Source:       res.Source,
		Record:       res.Record,
		Summary:      res.Summary,
		SummaryError: res.SummaryError,
		Metadata:     res.Metadata,
	}
}

// renderJSON 记录类型的 omitzero 标签需要 encoding/json 处理
func renderJSON(c *app.RequestContext, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, ErrorResponse{Error: "序列化响应失败"})
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// statusForError 把处理错误映射为 HTTP 状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, processor.ErrUnsupportedFormat):
		return consts.StatusUnsupportedMediaType
	case errors.Is(err, processor.ErrEmptyDocument), errors.Is(err, processor.ErrIngestionFailed):
		return consts.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return consts.StatusGatewayTimeout
	default:
		return consts.StatusInternalServerError
	}
}

func parseBoolQuery(c *app.RequestContext, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("参数 %s 不是有效的布尔值: %q", key, raw)
	}
	return v, nil
}
