package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200
	// MaxResumeLength 简历正文最大长度
	MaxResumeLength = 150
	// MaxFilenameLength 文件名最大长度
	MaxFilenameLength = 100
)

// piiKeys 属性名包含这些关键字时值需要掩码
var piiKeys = []string{
	"email",
	"phone",
	"name",
	"linkedin",
	"github",
	"address",
	"secret",
	"token",
	"api_key",
}

// SafeAttributeValue 敏感属性返回掩码，其余按 maxLength 截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lower := strings.ToLower(name)
	for _, key := range piiKeys {
		if strings.Contains(lower, key) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 保留首尾少量字符，其余替换为 *
//
//	"Ada" -> "A*a"
//	"jane@x.io" -> "ja*****io"
func MaskPII(value string) string {
	runes := []rune(value)
	n := len(runes)
	switch {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[:1]) + "*"
	case n <= 4:
		return string(runes[:1]) + strings.Repeat("*", n-2) + string(runes[n-1:])
	}
	return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
}

// TruncateString 超长时保留首尾两段，中间以 "..." 连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeResumeContent 截断简历正文
func SafeResumeContent(content string) string {
	return TruncateString(content, MaxResumeLength)
}
