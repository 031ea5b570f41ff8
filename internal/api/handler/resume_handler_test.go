package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-extractor/internal/agent"
	"resume-extractor/internal/api/handler"
	"resume-extractor/internal/api/router"
	"resume-extractor/internal/config"
	"resume-extractor/internal/processor"
	"resume-extractor/internal/summary"
)

const resumeText = `Jane Doe
jane.doe@example.com | (201) 555-0123

Education
MIT
B.S. Computer Science

Skills
Python, Go, SQL
`

// stubIngester 按文件名返回预设文本
type stubIngester struct {
	texts map[string]string
}

func (s *stubIngester) lookup(uri string) (string, map[string]any, error) {
	text, ok := s.texts[uri]
	if !ok {
		return "", nil, fmt.Errorf("corrupt document: %s", uri)
	}
	return text, map[string]any{"pages": 1}, nil
}

func (s *stubIngester) ExtractFromFile(_ context.Context, path string) (string, map[string]any, error) {
	return s.lookup(path)
}

func (s *stubIngester) ExtractTextFromReader(_ context.Context, r io.Reader, uri string) (string, map[string]any, error) {
	_, _ = io.ReadAll(r)
	return s.lookup(uri)
}

func (s *stubIngester) ExtractTextFromBytes(_ context.Context, _ []byte, uri string) (string, map[string]any, error) {
	return s.lookup(uri)
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...processor.Option) *server.Hertz {
	t.Helper()
	ingester := &stubIngester{texts: map[string]string{
		"cv.pdf":    resumeText,
		"blank.pdf": "   \n\n",
	}}
	opts = append([]processor.Option{processor.WithIngester(ingester)}, opts...)
	p := processor.NewResumeProcessor(opts...)

	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	router.RegisterRoutes(h, handler.NewResumeHandler(cfg, p, zerolog.Nop()), cfg.Auth.Keys)
	return h
}

func createMultipartForm(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postFile(h *server.Hertz, t *testing.T, url, filename string, content []byte, headers ...ut.Header) *ut.ResponseRecorder {
	body, contentType := createMultipartForm(t, filename, content)
	headers = append(headers, ut.Header{Key: "Content-Type", Value: contentType})
	return ut.PerformRequest(h.Engine, http.MethodPost, url, &ut.Body{Body: body, Len: body.Len()}, headers...)
}

func decodeExtract(t *testing.T, w *ut.ResponseRecorder) handler.ExtractResponse {
	t.Helper()
	var resp handler.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "响应应为有效 JSON: %s", w.Body.String())
	return resp
}

func TestHandleExtract_Success(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig())

	w := postFile(h, t, "/api/v1/resume/extract", "cv.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeExtract(t, w)
	id, err := uuid.FromString(resp.SubmissionID)
	require.NoError(t, err, "submission_id 应为 UUID")
	assert.Equal(t, uuid.V7, id.Version(), "submission_id 应为 UUIDv7")

	assert.Equal(t, "cv.pdf", resp.Source)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "Jane Doe", resp.Record.Name.String())
	assert.Equal(t, "jane.doe@example.com", resp.Record.Email.String())
	assert.Equal(t, []string{"Python", "Go", "SQL"}, resp.Record.Skills.Items())
	assert.Empty(t, resp.Summary)
	assert.Empty(t, resp.SummaryError)
}

func TestHandleExtract_Errors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxUploadMB = 1
	h := newTestServer(t, cfg)

	tests := []struct {
		name     string
		url      string
		filename string
		content  []byte
		want     int
	}{
		{name: "unsupported", url: "/api/v1/resume/extract", filename: "cv.txt", content: []byte("hello"), want: http.StatusUnsupportedMediaType},
		{name: "empty_document", url: "/api/v1/resume/extract", filename: "blank.pdf", content: []byte("%PDF"), want: http.StatusUnprocessableEntity},
		{name: "corrupt", url: "/api/v1/resume/extract", filename: "broken.docx", content: []byte("PK"), want: http.StatusUnprocessableEntity},
		{name: "too_large", url: "/api/v1/resume/extract", filename: "cv.pdf", content: bytes.Repeat([]byte("a"), 1<<20+1), want: http.StatusRequestEntityTooLarge},
		{name: "bad_summary_flag", url: "/api/v1/resume/extract?summary=maybe", filename: "cv.pdf", content: []byte("%PDF"), want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postFile(h, t, tt.url, tt.filename, tt.content)
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			var errResp handler.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestHandleExtract_MissingFile(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig())
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/resume/extract", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleExtract_WithSummary(t *testing.T) {
	mock := agent.NewMockChatClient("Jane studied CS at MIT.", nil)
	s, err := summary.NewChatSummarizer(mock, 0, 0.7)
	require.NoError(t, err)
	h := newTestServer(t, config.DefaultConfig(), processor.WithSummarizer(s))

	w := postFile(h, t, "/api/v1/resume/extract?summary=true", "cv.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeExtract(t, w)
	assert.Equal(t, "Jane studied CS at MIT.", resp.Summary)
	assert.Equal(t, 1, mock.Calls())
}

func TestHandleExtract_SummaryNotConfigured(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig())

	w := postFile(h, t, "/api/v1/resume/extract?summary=1", "cv.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusOK, w.Code, "摘要失败不应影响结构化结果")

	resp := decodeExtract(t, w)
	assert.Empty(t, resp.Summary)
	assert.Contains(t, resp.SummaryError, "未配置摘要服务")
	assert.Equal(t, "Jane Doe", resp.Record.Name.String())
}

func TestHandleExtractText(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig())

	payload, err := json.Marshal(handler.TextRequest{Text: resumeText, Source: "pasted"})
	require.NoError(t, err)
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/resume/extract/text",
		&ut.Body{Body: bytes.NewReader(payload), Len: len(payload)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeExtract(t, w)
	assert.Equal(t, "pasted", resp.Source)
	assert.Equal(t, "Jane Doe", resp.Record.Name.String())
	assert.Equal(t, []string{"MIT", "B.S. Computer Science"}, resp.Record.Education.Items())
}

func TestHandleExtractText_EmptyAndInvalid(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig())

	empty := []byte(`{"text":""}`)
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/resume/extract/text",
		&ut.Body{Body: bytes.NewReader(empty), Len: len(empty)})
	require.Equal(t, http.StatusOK, w.Code, "空文本返回全部缺失的记录")
	resp := decodeExtract(t, w)
	assert.False(t, resp.Record.Name.IsFound())
	assert.Equal(t, resp.SubmissionID, resp.Source, "未指定来源时使用 submission_id")

	bad := []byte(`{"text":`)
	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/resume/extract/text",
		&ut.Body{Body: bytes.NewReader(bad), Len: len(bad)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.Keys = []string{"secret-key"}
	h := newTestServer(t, cfg)

	w := postFile(h, t, "/api/v1/resume/extract", "cv.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "缺少 API Key 应返回 401")

	w = postFile(h, t, "/api/v1/resume/extract", "cv.pdf", []byte("%PDF"),
		ut.Header{Key: "Authorization", Value: "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postFile(h, t, "/api/v1/resume/extract", "cv.pdf", []byte("%PDF"),
		ut.Header{Key: "Authorization", Value: "Bearer secret-key"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "健康检查不需要认证")
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig())

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"status":"ok"`))
	assert.Contains(t, w.Body.String(), `"summary":false`)
}
