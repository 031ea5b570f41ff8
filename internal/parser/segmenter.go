package parser

import (
	"strings"

	"resume-extractor/internal/types"
)

// SectionBlock 一个章节的原始行，不含标题行，空行以 "" 保留
type SectionBlock struct {
	Category types.SectionCategory
	Label    string
	Lines    []string
}

// Text 每行后接换行符拼接
func (b SectionBlock) Text() string {
	var sb strings.Builder
	for _, l := range b.Lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SectionMap 按首次出现顺序保存章节
type SectionMap struct {
	blocks []SectionBlock
	index  map[types.SectionCategory]int
}

// Blocks 按文档顺序返回所有章节
func (m *SectionMap) Blocks() []SectionBlock {
	return m.blocks
}

// Get 按类别取章节
func (m *SectionMap) Get(c types.SectionCategory) (SectionBlock, bool) {
	i, ok := m.index[c]
	if !ok {
		return SectionBlock{}, false
	}
	return m.blocks[i], true
}

// Len 章节数
func (m *SectionMap) Len() int {
	return len(m.blocks)
}

// sectionFold 分段状态：当前章节在 blocks 中的下标，-1 表示尚未遇到标题
type sectionFold struct {
	matcher *HeaderMatcher
	out     *SectionMap
	current int
}

func (f *sectionFold) step(line string) {
	if strings.TrimSpace(line) == "" {
		if f.current >= 0 {
			f.out.blocks[f.current].Lines = append(f.out.blocks[f.current].Lines, "")
		}
		return
	}
	if rule, ok := f.matcher.Match(line); ok {
		f.open(rule)
		return
	}
	if f.current >= 0 {
		f.out.blocks[f.current].Lines = append(f.out.blocks[f.current].Lines, line)
	}
}

// open 切换当前章节；重复出现的标题清空已有内容但保留原位置
func (f *sectionFold) open(rule CategoryRule) {
	if i, ok := f.out.index[rule.Category]; ok {
		f.out.blocks[i].Lines = nil
		f.current = i
		return
	}
	f.out.blocks = append(f.out.blocks, SectionBlock{Category: rule.Category, Label: rule.DisplayLabel()})
	f.current = len(f.out.blocks) - 1
	f.out.index[rule.Category] = f.current
}

// Segment 单遍扫描，把文本切分成章节。第一个标题之前的行被丢弃。
func Segment(text string, matcher *HeaderMatcher) *SectionMap {
	if matcher == nil {
		matcher = NewHeaderMatcher(nil)
	}
	f := &sectionFold{
		matcher: matcher,
		out:     &SectionMap{index: make(map[types.SectionCategory]int)},
		current: -1,
	}
	for _, line := range splitLines(text) {
		f.step(line)
	}
	return f.out
}
