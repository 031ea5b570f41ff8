package parser

import (
	"regexp"
	"strings"

	"resume-extractor/internal/types"
)

// 日期区间按优先级排列：先带月份，再纯年份
var experienceDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s*\d{4}\s*[–\-~]\s*(Present|Current|\d{4})`),
	regexp.MustCompile(`(?i)\d{4}\s*[–\-]\s*(Present|Current|\d{4})`),
}

var titleTrailingGlyph = regexp.MustCompile(`[–\-•●▪]\s*$`)

// minResponsibilityLen 短于等于该长度的描述行被视为噪声
const minResponsibilityLen = 10

type experienceFold struct {
	entries []types.ExperienceEntry
	current *types.ExperienceEntry
}

func (f *experienceFold) step(line string) {
	if loc := matchDateRange(line); loc != nil {
		f.close()
		title := strings.TrimSpace(line[:loc[0]])
		title = strings.TrimSpace(titleTrailingGlyph.ReplaceAllString(title, ""))
		f.current = &types.ExperienceEntry{
			TitleOrRole:      title,
			DateRange:        line[loc[0]:loc[1]],
			Responsibilities: []string{},
		}
		return
	}
	if f.current == nil {
		return
	}
	resp := strings.TrimSpace(StripBullets(line))
	if runeLen(resp) > minResponsibilityLen {
		f.current.Responsibilities = append(f.current.Responsibilities, resp)
	}
}

func (f *experienceFold) close() {
	if f.current != nil {
		f.entries = append(f.entries, *f.current)
		f.current = nil
	}
}

func matchDateRange(line string) []int {
	for _, p := range experienceDatePatterns {
		if loc := p.FindStringIndex(line); loc != nil {
			return loc
		}
	}
	return nil
}

// ParseExperience 以日期行为锚点切分工作经历；没有任何日期行时返回 nil
func ParseExperience(block string) []types.ExperienceEntry {
	f := &experienceFold{}
	for _, line := range splitLines(block) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		f.step(line)
	}
	f.close()
	return f.entries
}
