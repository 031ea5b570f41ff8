package parser

import (
	"regexp"
	"strings"
)

var (
	skillCategoryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(programming\s+languages?|technical\s+skills?|tools?(/software)?|soft\s+skills?|languages?|developer\s+tools?|libraries?)\s*:?\s*$`),
		regexp.MustCompile(`(?i)^skills?\s*:?\s*$`),
	}
	labelledLine = regexp.MustCompile(`^([^:]+):\s*(.*)$`)

	skillStopWords = map[string]struct{}{
		"and": {}, "or": {}, "with": {}, "using": {}, "including": {},
	}
)

// ParseSkills 解析技能章节，结果按首次出现顺序去重（大小写不敏感）。
// 没有任何技能时返回 nil。
func ParseSkills(block string) []string {
	var raw []string
	for _, line := range splitLines(block) {
		line = strings.TrimSpace(line)
		if line == "" || isSkillCategoryLabel(line) {
			continue
		}
		line = strings.TrimSpace(StripBullets(line))
		if m := labelledLine.FindStringSubmatch(line); m != nil {
			if rest := strings.TrimSpace(m[2]); rest != "" {
				line = rest
			}
		}
		raw = append(raw, splitSkillTokens(line)...)
	}

	var out []string
	seen := make(map[string]struct{})
	for _, tok := range raw {
		tok = strings.Trim(strings.TrimSpace(tok), ",")
		tok = strings.TrimSpace(tok)
		if runeLen(tok) < 2 {
			continue
		}
		key := strings.ToLower(tok)
		if _, stop := skillStopWords[key]; stop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func isSkillCategoryLabel(line string) bool {
	for _, p := range skillCategoryPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// splitSkillTokens 按括号外的逗号切分；不含括号的片段再按 " | " 或 " / " 切分
func splitSkillTokens(line string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range line {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, line[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, line[start:])

	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "()") {
			out = append(out, p)
			continue
		}
		switch {
		case strings.Contains(p, " | "):
			out = append(out, strings.Split(p, " | ")...)
		case strings.Contains(p, " / "):
			out = append(out, strings.Split(p, " / ")...)
		default:
			out = append(out, p)
		}
	}
	return out
}
