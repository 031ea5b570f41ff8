package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-extractor/internal/types"
)

const personRecognizerPrompt = `You are a named-entity recognizer. Extract every PERSON name that appears in the resume text supplied by the user.
Reply with a JSON array only, no prose. Each element has the form {"text": "<exact name as written>", "label": "PERSON"}.
List names in order of first appearance. Reply with [] when there are none.`

// maxRecognizerInput 只把简历前部发给模型，姓名几乎总在开头
const maxRecognizerInput = 4000

// LLMPersonRecognizer 用聊天模型做人名识别
type LLMPersonRecognizer struct {
	model model.BaseChatModel
}

// NewLLMPersonRecognizer 创建识别器
func NewLLMPersonRecognizer(m model.BaseChatModel) *LLMPersonRecognizer {
	return &LLMPersonRecognizer{model: m}
}

// Recognize 返回模型识别出的实体，非 PERSON 标签原样保留由调用方过滤
func (r *LLMPersonRecognizer) Recognize(ctx context.Context, text string) ([]types.Entity, error) {
	if r.model == nil {
		return nil, fmt.Errorf("未配置识别模型")
	}
	if runes := []rune(text); len(runes) > maxRecognizerInput {
		text = string(runes[:maxRecognizerInput])
	}

	resp, err := r.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(personRecognizerPrompt),
		schema.UserMessage(text),
	}, model.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("调用识别模型失败: %w", err)
	}

	var entities []types.Entity
	if err := json.Unmarshal([]byte(StripCodeFence(resp.Content)), &entities); err != nil {
		return nil, fmt.Errorf("解析识别结果失败: %w", err)
	}
	for i := range entities {
		entities[i].Label = strings.ToUpper(strings.TrimSpace(entities[i].Label))
	}
	return entities, nil
}

// StripCodeFence 去掉模型回复外层的 ```json 代码块
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
