package summary

import (
	"context"
	"errors"
	"strings"

	"resume-extractor/internal/types"
)

// Instruction 摘要提示词前缀
const Instruction = "Summarize the following student resume into 3 short sentences highlighting education, technical experience, and projects:"

var (
	// ErrMissingAPIKey 启用了摘要却没有配置凭据
	ErrMissingAPIKey = errors.New("摘要服务未配置 API 密钥")
	// ErrNothingToSummarize 记录中没有可用于摘要的章节
	ErrNothingToSummarize = errors.New("简历中没有可摘要的章节")
)

// Summarizer 根据结构化记录生成简短摘要
type Summarizer interface {
	Summarize(ctx context.Context, rec *types.ResumeRecord) (string, error)
}

// BuildSections 按 Education、Experience、Projects、Skills、Extracurriculars 顺序，
// 为记录中存在的章节生成 "<Key>:\n<内容>\n" 块
func BuildSections(rec *types.ResumeRecord) []string {
	if rec == nil {
		return nil
	}
	var sections []string
	add := func(key, text string) {
		sections = append(sections, key+":\n"+text+"\n")
	}

	if !rec.Education.IsZero() {
		add("Education", strings.Join(rec.Education.Lines(), "\n"))
	}
	if !rec.Experience.IsZero() {
		add("Experience", rec.Experience.String())
	}
	if !rec.Projects.IsZero() {
		add("Projects", rec.Projects.String())
	}
	if !rec.Skills.IsZero() {
		add("Skills", strings.Join(rec.Skills.Lines(), "\n"))
	}
	if s, ok := rec.SectionByCategory(types.CategoryExtracurriculars); ok {
		add("Extracurriculars", s.Text)
	}
	return sections
}

// BuildPrompt 拼出完整提示词；没有可用章节时返回 ErrNothingToSummarize
func BuildPrompt(rec *types.ResumeRecord) (string, error) {
	sections := BuildSections(rec)
	if len(sections) == 0 {
		return "", ErrNothingToSummarize
	}
	return Instruction + "\n\n" + strings.Join(sections, "\n\n"), nil
}
