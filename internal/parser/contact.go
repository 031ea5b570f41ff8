package parser

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nyaruka/phonenumbers"

	"resume-extractor/internal/types"
)

// DefaultContactWindow GitHub/LinkedIn 只在前若干行查找
const DefaultContactWindow = 20

// DefaultPhoneRegion 解析无国家码号码时使用的地区
const DefaultPhoneRegion = "US"

// EntityRecognizer 命名实体识别器，仅用于姓名兜底
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]types.Entity, error)
}

var (
	emailPattern    = regexp.MustCompile(`[\w.-]+@[\w.-]+\.[A-Za-z]+`)
	phonePattern    = regexp.MustCompile(`(\+?\d{1,3}[\s-]?)?(\(?\d{3}\)?[\s-]?)?[\d\s-]{7,}`)
	githubPattern   = regexp.MustCompile(`(?i)(https?://)?(www\.)?github\.com/[a-zA-Z0-9\-_.]+`)
	linkedinPattern = regexp.MustCompile(`(?i)(https?://)?(www\.)?linkedin\.com/in/[a-zA-Z0-9\-_/]+`)
	genericURL      = regexp.MustCompile(`https?://\S+`)
)

// ScanName 首个非空行为 1~4 个词时直接作为姓名，否则取识别器给出的第一个 PERSON 实体
func ScanName(ctx context.Context, text string, recognizer EntityRecognizer) types.Field {
	for _, line := range splitLines(strings.TrimSpace(text)) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n := len(strings.Fields(line)); n >= 1 && n <= 4 {
			return types.Found(line)
		}
		break
	}

	if recognizer == nil {
		return types.Absent()
	}
	entities, err := recognizer.Recognize(ctx, text)
	if err != nil {
		return types.Absent()
	}
	for _, ent := range entities {
		if ent.Label != types.EntityPerson {
			continue
		}
		if n := len(strings.Fields(ent.Text)); n >= 1 && n <= 4 {
			return types.Found(strings.TrimSpace(ent.Text))
		}
	}
	return types.Absent()
}

// ScanEmail 在私有副本上删除夹在两个非空白字符之间的单个空白，再取最长的邮箱匹配
func ScanEmail(text string) types.Field {
	matches := emailPattern.FindAllString(collapseSingleSpaces(text), -1)
	if len(matches) == 0 {
		return types.Absent()
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if len(m) > len(best) {
			best = m
		}
	}
	return types.Found(best)
}

func collapseSingleSpaces(text string) string {
	runes := []rune(text)
	var sb strings.Builder
	sb.Grow(len(text))
	for i, r := range runes {
		if unicode.IsSpace(r) && i > 0 && i+1 < len(runes) &&
			!unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ScanPhone 返回第一个含数字的电话匹配（去首尾空白）
func ScanPhone(text string) types.Field {
	for _, m := range phonePattern.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if strings.IndexFunc(m, unicode.IsDigit) >= 0 {
			return types.Found(m)
		}
	}
	return types.Absent()
}

// NormalizePhone 尝试把号码转换为 E.164，无法识别为有效号码时返回缺失
func NormalizePhone(phone types.Field, region string) types.Field {
	raw, ok := phone.Value()
	if !ok {
		return types.Absent()
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return types.Absent()
	}
	return types.Found(phonenumbers.Format(num, phonenumbers.E164))
}

// ScanGitHub 在前 window 行中查找 GitHub 链接
func ScanGitHub(text string, window int) types.Field {
	for _, line := range headLines(text, window) {
		if m := githubPattern.FindString(line); m != "" {
			return types.Found(withScheme(m))
		}
	}
	return types.Absent()
}

// ScanLinkedIn 在前 window 行中查找 LinkedIn 个人页；
// 行内提到 linkedin 且带有指向 linkedin.com 的链接时也接受
func ScanLinkedIn(text string, window int) types.Field {
	for _, line := range headLines(text, window) {
		if m := linkedinPattern.FindString(line); m != "" {
			return types.Found(withScheme(m))
		}
		if strings.Contains(strings.ToLower(line), "linkedin") {
			if u := genericURL.FindString(line); u != "" && strings.Contains(u, "linkedin.com") {
				return types.Found(strings.TrimSpace(u))
			}
		}
	}
	return types.Absent()
}

func withScheme(url string) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(strings.ToLower(url), "http") {
		url = "https://" + url
	}
	return url
}

func headLines(text string, window int) []string {
	if window <= 0 {
		window = DefaultContactWindow
	}
	lines := splitLines(text)
	if len(lines) > window {
		lines = lines[:window]
	}
	return lines
}

// lineBreaks 把 \r\n、\r、换页符、垂直制表符及 Unicode 行/段分隔符统一为 \n
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\f", "\n",
	"\v", "\n",
	"\x1c", "\n",
	"\x1d", "\n",
	"\x1e", "\n",
	"\u0085", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = lineBreaks.Replace(text)
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
