package queue

import (
	"time"

	"resume-extractor/internal/types"
)

// 结果状态
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ExtractionRequestMessage 抽取请求。ContentBase64 与 Text 二选一，Text 优先。
type ExtractionRequestMessage struct {
	SubmissionID  string    `json:"submission_id"`
	Filename      string    `json:"filename,omitempty"` // 决定解码格式，仅 ContentBase64 时需要
	ContentBase64 string    `json:"content_base64,omitempty"`
	Text          string    `json:"text,omitempty"`
	WithSummary   bool      `json:"with_summary,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at,omitzero"`
}

// ExtractionResultMessage 抽取结果
type ExtractionResultMessage struct {
	SubmissionID string              `json:"submission_id"`
	Status       string              `json:"status"`
	Record       *types.ResumeRecord `json:"record,omitempty"`
	Summary      string              `json:"summary,omitempty"`
	Error        string              `json:"error,omitempty"`
	ProcessedAt  time.Time           `json:"processed_at"`
}
