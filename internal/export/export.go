package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"resume-extractor/internal/types"
)

// Format 输出格式
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrNoTabularData 记录中既没有技能也没有工作经历，无法导出 CSV
var ErrNoTabularData = errors.New("没有可导出为表格的数据")

// ParseFormat 解析格式名，大小写不敏感
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("未知的输出格式: %q", s)
	}
}

// FileExtension 格式对应的文件扩展名
func (f Format) FileExtension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	default:
		return ".txt"
	}
}

// WriteJSON 以两个空格缩进写出 v
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// CSVRows 生成 Section,Content 行：每个技能一行；工作经历有条目时每条一行，
// 否则把原始文本按空行切块，每块一行
func CSVRows(rec *types.ResumeRecord) [][]string {
	var rows [][]string
	for _, skill := range rec.Skills.Items() {
		rows = append(rows, []string{"Skill", skill})
	}
	if rec.Experience.IsStructured() {
		for _, e := range rec.Experience.Entries {
			content := e.TitleOrRole
			if e.DateRange != "" {
				content = strings.TrimSpace(content + " (" + e.DateRange + ")")
			}
			rows = append(rows, []string{"Experience", content})
		}
	} else if rec.Experience.Raw != "" {
		for _, block := range strings.Split(rec.Experience.Raw, "\n\n") {
			if block = strings.TrimSpace(block); block != "" {
				rows = append(rows, []string{"Experience", block})
			}
		}
	}
	return rows
}

// WriteCSV 写出 CSV；没有任何数据行时返回 ErrNoTabularData 且不写任何内容
func WriteCSV(w io.Writer, rec *types.ResumeRecord) error {
	rows := CSVRows(rec)
	if len(rows) == 0 {
		return ErrNoTabularData
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Section", "Content"}); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("写入 CSV 失败: %w", err)
	}
	return nil
}

// WriteText 写出终端报告：键名大写，列表项以 " - " 开头，缺失值显示 "Not found"
func WriteText(w io.Writer, rec *types.ResumeRecord, summary string) error {
	tw := &textWriter{w: w}

	tw.scalar("Name", rec.Name)
	tw.scalar("Email", rec.Email)
	tw.scalar("Phone", rec.Phone)
	tw.scalar("LinkedIn", rec.LinkedIn)
	tw.scalar("GitHub", rec.GitHub)

	if !rec.Education.IsZero() {
		tw.list("Education", rec.Education.Lines())
	}
	if !rec.Experience.IsZero() {
		tw.structured("Experience", rec.Experience.IsStructured(), experienceItems(rec.Experience), rec.Experience.Raw)
	}
	if !rec.Projects.IsZero() {
		tw.structured("Projects", rec.Projects.IsStructured(), projectItems(rec.Projects), rec.Projects.Raw)
	}
	if !rec.Skills.IsZero() {
		tw.list("Skills", rec.Skills.Lines())
	}
	for _, s := range rec.Sections {
		tw.text(s.Label, s.Text)
	}
	if summary != "" {
		tw.text("Summary", summary)
	}
	return tw.err
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) header(key string) {
	t.printf("\n%s:\n", strings.ToUpper(key))
}

func (t *textWriter) scalar(key string, f types.Field) {
	t.header(key)
	t.printf(" %s\n", f.String())
}

func (t *textWriter) list(key string, items []string) {
	t.header(key)
	for _, item := range items {
		t.printf(" - %s\n", item)
	}
}

func (t *textWriter) text(key, body string) {
	t.header(key)
	for _, line := range strings.Split(body, "\n") {
		t.printf(" %s\n", line)
	}
}

func (t *textWriter) structured(key string, structured bool, items []string, raw string) {
	if !structured {
		t.text(key, raw)
		return
	}
	t.header(key)
	for _, item := range items {
		lines := strings.Split(item, "\n")
		t.printf(" - %s\n", lines[0])
		for _, l := range lines[1:] {
			t.printf("   %s\n", l)
		}
	}
}

func experienceItems(s types.Structured[types.ExperienceEntry]) []string {
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.String())
	}
	return out
}

func projectItems(s types.Structured[types.ProjectEntry]) []string {
	out := make([]string, 0, len(s.Entries))
	for _, p := range s.Entries {
		out = append(out, p.String())
	}
	return out
}
