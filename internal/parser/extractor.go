package parser

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"resume-extractor/internal/types"
)

// Extractor 把简历纯文本转换为结构化记录。
// 不持有可变状态，可被多个 goroutine 共享。
type Extractor struct {
	matcher       *HeaderMatcher
	recognizer    EntityRecognizer
	phoneRegion   string
	contactWindow int
	logger        zerolog.Logger
}

// ExtractorOption 配置 Extractor
type ExtractorOption func(*Extractor)

// WithCategoryRules 在内置别名表基础上合并额外类别
func WithCategoryRules(extra []CategoryRule) ExtractorOption {
	return func(e *Extractor) {
		e.matcher = NewHeaderMatcher(MergeCategoryRules(DefaultCategoryRules(), extra))
	}
}

// WithHeaderMatcher 直接指定标题匹配器
func WithHeaderMatcher(m *HeaderMatcher) ExtractorOption {
	return func(e *Extractor) {
		if m != nil {
			e.matcher = m
		}
	}
}

// WithEntityRecognizer 设置姓名兜底用的实体识别器
func WithEntityRecognizer(r EntityRecognizer) ExtractorOption {
	return func(e *Extractor) {
		e.recognizer = r
	}
}

// WithPhoneRegion 设置电话号码默认地区
func WithPhoneRegion(region string) ExtractorOption {
	return func(e *Extractor) {
		e.phoneRegion = region
	}
}

// WithContactWindow 设置链接扫描的行数
func WithContactWindow(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.contactWindow = n
		}
	}
}

// WithExtractorLogger 设置日志
func WithExtractorLogger(l zerolog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor 创建提取器
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		matcher:       NewHeaderMatcher(nil),
		phoneRegion:   DefaultPhoneRegion,
		contactWindow: DefaultContactWindow,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Matcher 返回当前使用的标题匹配器
func (e *Extractor) Matcher() *HeaderMatcher {
	return e.matcher
}

// ScanContacts 各字段独立扫描
func (e *Extractor) ScanContacts(ctx context.Context, text string) types.ContactInfo {
	info := types.ContactInfo{
		Name:     ScanName(ctx, text, e.recognizer),
		Email:    ScanEmail(text),
		Phone:    ScanPhone(text),
		LinkedIn: ScanLinkedIn(text, e.contactWindow),
		GitHub:   ScanGitHub(text, e.contactWindow),
	}
	info.PhoneE164 = NormalizePhone(info.Phone, e.phoneRegion)
	return info
}

// Segment 按当前别名表切分章节
func (e *Extractor) Segment(text string) *SectionMap {
	return Segment(text, e.matcher)
}

// Extract 运行完整流水线。核心流程不会返回错误，找不到的字段为缺失值。
func (e *Extractor) Extract(ctx context.Context, text string) *types.ResumeRecord {
	rec := &types.ResumeRecord{ContactInfo: e.ScanContacts(ctx, text)}

	sections := e.Segment(text)
	for _, block := range sections.Blocks() {
		cleaned := strings.TrimSpace(block.Text())
		if cleaned == "" {
			continue
		}
		switch block.Category {
		case types.CategorySkills:
			rec.Skills = types.NewFieldList(ParseSkills(cleaned))
		case types.CategoryExperience:
			rec.Experience = types.Structured[types.ExperienceEntry]{Entries: ParseExperience(cleaned)}
			if !rec.Experience.IsStructured() {
				rec.Experience.Raw = cleaned
			}
		case types.CategoryProjects:
			rec.Projects = types.Structured[types.ProjectEntry]{Entries: ParseProjects(cleaned)}
			if !rec.Projects.IsStructured() {
				rec.Projects.Raw = cleaned
			}
		case types.CategoryEducation:
			rec.Education = types.NewFieldList(nonEmptyTrimmedLines(cleaned))
		default:
			rec.Sections = append(rec.Sections, types.RawSection{Label: block.Label, Category: block.Category, Text: cleaned})
		}
	}

	e.logger.Debug().
		Int("sections", sections.Len()).
		Bool("name_found", rec.Name.IsFound()).
		Bool("email_found", rec.Email.IsFound()).
		Msg("简历文本结构化完成")
	return rec
}

func nonEmptyTrimmedLines(text string) []string {
	var out []string
	for _, l := range splitLines(text) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
