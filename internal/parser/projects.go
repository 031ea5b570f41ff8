package parser

import (
	"strings"

	"resume-extractor/internal/types"
)

type projectFold struct {
	entries []types.ProjectEntry
	current *types.ProjectEntry
}

func (f *projectFold) step(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.EqualFold(trimmed, "projects") {
		return
	}
	if IsBulletLine(line) {
		if f.current == nil {
			return
		}
		if detail := strings.TrimSpace(StripBullets(line)); detail != "" {
			f.current.Details = append(f.current.Details, detail)
		}
		return
	}
	f.close()
	f.current = &types.ProjectEntry{Title: trimmed, Details: []string{}}
}

func (f *projectFold) close() {
	if f.current != nil {
		f.entries = append(f.entries, *f.current)
		f.current = nil
	}
}

// ParseProjects 非项目符号行开启新项目，项目符号行归入当前项目；没有项目时返回 nil
func ParseProjects(block string) []types.ProjectEntry {
	f := &projectFold{}
	for _, line := range splitLines(block) {
		f.step(line)
	}
	f.close()
	return f.entries
}
