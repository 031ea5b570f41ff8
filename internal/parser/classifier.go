package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-extractor/internal/types"
)

// CategoryRule 章节类别及其标题别名，按声明顺序匹配
type CategoryRule struct {
	Category types.SectionCategory
	// Label 输出时使用的名称，为空时取 Category.Label()
	Label   string
	Aliases []string
}

// DisplayLabel 返回章节展示名
func (r CategoryRule) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Category.Label()
}

// DefaultCategoryRules 返回内置的别名表
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Category: types.CategoryEducation, Aliases: []string{"education", "academic background", "educational qualifications", "studies"}},
		{Category: types.CategoryExperience, Aliases: []string{"experience", "work experience", "professional background", "employment history"}},
		{Category: types.CategorySkills, Aliases: []string{"skills", "technical skills", "technologies", "tools"}},
		{Category: types.CategoryProjects, Aliases: []string{"projects", "personal projects", "academic projects", "professional projects", "project experience"}},
		{Category: types.CategoryCertifications, Aliases: []string{"certifications", "certificates"}},
		{Category: types.CategoryExtracurriculars, Aliases: []string{"extracurriculars", "activities", "leadership", "organizations", "volunteer experience"}},
	}
}

// HeaderMatcher 依据别名表判断一行是否为章节标题。
// 多个类别同时命中时取先声明的类别。
type HeaderMatcher struct {
	rules []CategoryRule
}

// NewHeaderMatcher 创建匹配器；rules 为空时使用内置别名表
func NewHeaderMatcher(rules []CategoryRule) *HeaderMatcher {
	if len(rules) == 0 {
		rules = DefaultCategoryRules()
	}
	cp := make([]CategoryRule, len(rules))
	for i, r := range rules {
		r.Aliases = append([]string(nil), r.Aliases...)
		cp[i] = r
	}
	return &HeaderMatcher{rules: cp}
}

// MergeCategoryRules 把 extra 合并进 base：同类别追加别名，新类别追加到表尾
func MergeCategoryRules(base, extra []CategoryRule) []CategoryRule {
	out := make([]CategoryRule, 0, len(base)+len(extra))
	for _, r := range base {
		r.Aliases = append([]string(nil), r.Aliases...)
		out = append(out, r)
	}
	for _, e := range extra {
		cat := types.SectionCategory(strings.ToLower(strings.TrimSpace(string(e.Category))))
		if cat == "" {
			continue
		}
		merged := false
		for i := range out {
			if out[i].Category == cat {
				out[i].Aliases = append(out[i].Aliases, e.Aliases...)
				if e.Label != "" {
					out[i].Label = e.Label
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, CategoryRule{Category: cat, Label: e.Label, Aliases: append([]string(nil), e.Aliases...)})
		}
	}
	return out
}

// Rules 返回别名表副本
func (m *HeaderMatcher) Rules() []CategoryRule {
	return NewHeaderMatcher(m.rules).rules
}

// Match 返回 line 命中的类别
func (m *HeaderMatcher) Match(line string) (CategoryRule, bool) {
	if strings.TrimSpace(line) == "" {
		return CategoryRule{}, false
	}
	for _, r := range m.rules {
		if IsSectionHeader(line, r.Aliases) {
			return r, true
		}
	}
	return CategoryRule{}, false
}

// IsSectionHeader 去掉首尾空白后，行内容恰好为某个别名（大小写不敏感），
// 可带一个复数 s 和冒号，冒号前后允许空白
func IsSectionHeader(line string, aliases []string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	for _, alias := range aliases {
		if matchAlias(s, strings.TrimSpace(alias)) {
			return true
		}
	}
	return false
}

func matchAlias(s, alias string) bool {
	if alias == "" || len(s) < len(alias) || !strings.EqualFold(s[:len(alias)], alias) {
		return false
	}
	rest := s[len(alias):]
	if strings.HasPrefix(rest, "s") || strings.HasPrefix(rest, "S") {
		rest = rest[1:]
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest) == ""
}

const bulletGlyphs = "•●▪▫◦‣⁃-*"

// IsBulletLine 去掉前导空白后以项目符号开头
func IsBulletLine(line string) bool {
	s := strings.TrimLeftFunc(line, unicode.IsSpace)
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return strings.ContainsRune(bulletGlyphs, r)
}

// StripBullets 去掉行首连续的项目符号及空白
func StripBullets(line string) string {
	return strings.TrimLeftFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(bulletGlyphs, r)
	})
}
