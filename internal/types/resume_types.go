package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NotFound 缺失字段在文本输出中的占位符
const NotFound = "Not found"

// SectionCategory 表示简历章节类别
type SectionCategory string

const (
	// CategoryEducation 教育经历
	CategoryEducation SectionCategory = "education"
	// CategoryExperience 工作经历
	CategoryExperience SectionCategory = "experience"
	// CategorySkills 技能
	CategorySkills SectionCategory = "skills"
	// CategoryProjects 项目经历
	CategoryProjects SectionCategory = "projects"
	// CategoryCertifications 证书
	CategoryCertifications SectionCategory = "certifications"
	// CategoryExtracurriculars 课外活动
	CategoryExtracurriculars SectionCategory = "extracurriculars"
)

// Label 返回类别的展示名（首字母大写，其余小写）
func (c SectionCategory) Label() string {
	s := strings.ToLower(string(c))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Field 可缺失的单值字段，零值即缺失
type Field struct {
	value string
	found bool
}

// Found 构造一个已找到的字段
func Found(v string) Field {
	return Field{value: v, found: true}
}

// Absent 构造一个缺失字段
func Absent() Field {
	return Field{}
}

// Value 返回字段值以及是否找到
func (f Field) Value() (string, bool) {
	return f.value, f.found
}

// IsFound 字段是否存在
func (f Field) IsFound() bool {
	return f.found
}

// String 缺失时返回 "Not found"
func (f Field) String() string {
	if !f.found {
		return NotFound
	}
	return f.value
}

// MarshalJSON 缺失输出 null
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.found {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON null 解析为缺失
func (f *Field) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Field{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("字段必须是字符串或 null: %w", err)
	}
	*f = Found(s)
	return nil
}

// FieldList 可缺失的有序字符串列表。
// 零值表示章节不存在；章节存在但没有条目时为缺失列表（JSON 为 null）。
type FieldList struct {
	items   []string
	present bool
}

// NewFieldList 构造章节列表，items 为空时得到缺失列表
func NewFieldList(items []string) FieldList {
	if len(items) == 0 {
		return FieldList{present: true}
	}
	cp := make([]string, len(items))
	copy(cp, items)
	return FieldList{items: cp, present: true}
}

// Items 返回条目副本
func (l FieldList) Items() []string {
	if len(l.items) == 0 {
		return nil
	}
	cp := make([]string, len(l.items))
	copy(cp, l.items)
	return cp
}

// Found 列表是否有条目
func (l FieldList) Found() bool {
	return len(l.items) > 0
}

// IsZero 供 omitzero 使用：章节不存在
func (l FieldList) IsZero() bool {
	return !l.present
}

// Lines 文本渲染用，缺失时为 ["Not found"]
func (l FieldList) Lines() []string {
	if !l.Found() {
		return []string{NotFound}
	}
	return l.Items()
}

func (l FieldList) MarshalJSON() ([]byte, error) {
	if !l.Found() {
		return []byte("null"), nil
	}
	return json.Marshal(l.items)
}

func (l *FieldList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = FieldList{present: true}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("列表字段必须是字符串数组或 null: %w", err)
	}
	*l = NewFieldList(items)
	return nil
}

// ExperienceEntry 一条带日期的工作经历
type ExperienceEntry struct {
	TitleOrRole      string   `json:"title_or_role"`
	DateRange        string   `json:"date_range"`
	Responsibilities []string `json:"responsibilities"`
}

// String 用于拼接摘要提示词
func (e ExperienceEntry) String() string {
	var sb strings.Builder
	sb.WriteString(e.TitleOrRole)
	if e.DateRange != "" {
		if e.TitleOrRole != "" {
			sb.WriteString(" ")
		}
		sb.WriteString("(" + e.DateRange + ")")
	}
	for _, r := range e.Responsibilities {
		sb.WriteString("\n- " + r)
	}
	return sb.String()
}

// ProjectEntry 一个项目条目
type ProjectEntry struct {
	Title   string   `json:"title"`
	Details []string `json:"details"`
}

func (p ProjectEntry) String() string {
	var sb strings.Builder
	sb.WriteString(p.Title)
	for _, d := range p.Details {
		sb.WriteString("\n- " + d)
	}
	return sb.String()
}

// Structured 结构化章节：有条目时输出条目数组，否则回退为原始文本
type Structured[T fmt.Stringer] struct {
	Entries []T
	Raw     string
}

// IsStructured 是否解析出条目
func (s Structured[T]) IsStructured() bool {
	return len(s.Entries) > 0
}

// IsZero 供 omitzero 使用
func (s Structured[T]) IsZero() bool {
	return len(s.Entries) == 0 && s.Raw == ""
}

// String 条目逐个字符串化后按行拼接；回退时返回原始文本
func (s Structured[T]) String() string {
	if !s.IsStructured() {
		return s.Raw
	}
	parts := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "\n")
}

func (s Structured[T]) MarshalJSON() ([]byte, error) {
	if s.IsStructured() {
		return json.Marshal(s.Entries)
	}
	return json.Marshal(s.Raw)
}

func (s *Structured[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*s = Structured[T]{}
		return nil
	case trimmed[0] == '[':
		var entries []T
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return fmt.Errorf("解析结构化条目失败: %w", err)
		}
		*s = Structured[T]{Entries: entries}
		return nil
	case trimmed[0] == '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*s = Structured[T]{Raw: raw}
		return nil
	default:
		return fmt.Errorf("结构化章节必须是数组或字符串，实际为 %q", string(trimmed[:1]))
	}
}

// RawSection 未做结构化解析的章节，按标签原样透传
type RawSection struct {
	Label    string          `json:"label"`
	Category SectionCategory `json:"category,omitempty"`
	Text     string          `json:"text"`
}

// Block 章节中以空行分隔的一个块，首行即标题
type Block struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// SplitIntoBlocks 按空行把章节文本切成块
func SplitIntoBlocks(text string) []Block {
	var blocks []Block
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.TrimSpace(strings.Join(current, "\n"))
		title := body
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			title = body[:i]
		}
		blocks = append(blocks, Block{Title: title, Text: body})
		current = nil
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

// Entity 命名实体识别结果
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// EntityPerson 人名实体标签
const EntityPerson = "PERSON"

// ContactInfo 联系方式，五个字段相互独立
type ContactInfo struct {
	Name     Field `json:"name"`
	Email    Field `json:"email"`
	Phone    Field `json:"phone"`
	LinkedIn Field `json:"linkedin"`
	GitHub   Field `json:"github"`
	// PhoneE164 号码可被解析时的 E.164 形式
	PhoneE164 Field `json:"phone_e164"`
}

// ResumeRecord 一份简历的结构化结果
type ResumeRecord struct {
	ContactInfo

	Education  FieldList                   `json:"education,omitzero"`
	Experience Structured[ExperienceEntry] `json:"experience,omitzero"`
	Projects   Structured[ProjectEntry]    `json:"projects,omitzero"`
	Skills     FieldList                   `json:"skills,omitzero"`

	// Sections 其余章节（证书、课外活动以及配置扩展的类别），保持文档顺序
	Sections []RawSection `json:"sections,omitempty"`
}

// Section 按标签查找透传章节（大小写不敏感）
func (r *ResumeRecord) Section(label string) (RawSection, bool) {
	for _, s := range r.Sections {
		if strings.EqualFold(s.Label, label) {
			return s, true
		}
	}
	return RawSection{}, false
}

// SectionByCategory 按类别查找透传章节；未记录类别的章节按默认展示名匹配
func (r *ResumeRecord) SectionByCategory(cat SectionCategory) (RawSection, bool) {
	for _, s := range r.Sections {
		if s.Category == cat || (s.Category == "" && strings.EqualFold(s.Label, cat.Label())) {
			return s, true
		}
	}
	return RawSection{}, false
}

// Blocks 返回透传章节的分块；章节不存在时为 nil
func (r *ResumeRecord) Blocks(label string) []Block {
	s, ok := r.Section(label)
	if !ok {
		return nil
	}
	return SplitIntoBlocks(s.Text)
}
