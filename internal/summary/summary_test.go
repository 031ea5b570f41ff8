package summary

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-extractor/internal/agent"
	"resume-extractor/internal/types"
)

func sampleRecord() *types.ResumeRecord {
	return &types.ResumeRecord{
		Education: types.NewFieldList([]string{"MIT", "B.S. Computer Science"}),
		Experience: types.Structured[types.ExperienceEntry]{Entries: []types.ExperienceEntry{
			{TitleOrRole: "Intern", DateRange: "June 2020 - Aug 2021", Responsibilities: []string{"Built internal tools"}},
		}},
		Skills:   types.NewFieldList([]string{"Python", "SQL"}),
		Sections: []types.RawSection{{Label: "Extracurriculars", Text: "Chess club"}},
	}
}

func TestBuildSections(t *testing.T) {
	sections := BuildSections(sampleRecord())
	require.Len(t, sections, 4, "Projects 缺失时不应出现")
	assert.Equal(t, "Education:\nMIT\nB.S. Computer Science\n", sections[0])
	assert.Equal(t, "Experience:\nIntern (June 2020 - Aug 2021)\n- Built internal tools\n", sections[1])
	assert.Equal(t, "Skills:\nPython\nSQL\n", sections[2])
	assert.Equal(t, "Extracurriculars:\nChess club\n", sections[3])

	assert.Nil(t, BuildSections(nil))
}

func TestBuildSectionsAbsentSkills(t *testing.T) {
	rec := &types.ResumeRecord{Skills: types.NewFieldList(nil)}
	sections := BuildSections(rec)
	require.Len(t, sections, 1)
	assert.Equal(t, "Skills:\nNot found\n", sections[0], "技能章节存在但为空时输出占位符")
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(sampleRecord())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, Instruction+"\n\nEducation:\n"))
	assert.Contains(t, prompt, "\n\nSkills:\nPython\nSQL\n")

	_, err = BuildPrompt(&types.ResumeRecord{ContactInfo: types.ContactInfo{Name: types.Found("Jane")}})
	assert.ErrorIs(t, err, ErrNothingToSummarize, "只有联系方式时无法摘要")
}

func TestNewHuggingFaceSummarizerRequiresKey(t *testing.T) {
	_, err := NewHuggingFaceSummarizer(HFConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestHuggingFaceSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var req hfRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.True(t, strings.HasPrefix(req.Inputs, Instruction))
		assert.Equal(t, 250, req.Parameters.MaxNewTokens)
		assert.InDelta(t, 0.7, req.Parameters.Temperature, 1e-9)
		assert.False(t, req.Parameters.ReturnFullText)

		_, _ = w.Write([]byte(`[{"generated_text":"  A strong candidate.  "}]`))
	}))
	defer server.Close()

	s, err := NewHuggingFaceSummarizer(HFConfig{APIKey: "hf_test", ModelURL: server.URL, QPM: 600},
		WithHFHTTPClient(server.Client()))
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "A strong candidate.", out)
}

func TestHuggingFaceSummarizeRetriesOnLoading(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"generated_text":"ok"}]`))
	}))
	defer server.Close()

	s, err := NewHuggingFaceSummarizer(HFConfig{
		APIKey: "k", ModelURL: server.URL, QPM: 600, RetryWait: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load(), "503 之后应重试一次")
}

func TestHuggingFaceSummarizeError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad token"))
	}))
	defer server.Close()

	s, err := NewHuggingFaceSummarizer(HFConfig{APIKey: "k", ModelURL: server.URL, QPM: 600})
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad token")
	assert.Equal(t, int32(1), calls.Load(), "401 不应重试")

	_, err = s.Summarize(context.Background(), &types.ResumeRecord{})
	assert.ErrorIs(t, err, ErrNothingToSummarize)
	assert.Equal(t, int32(1), calls.Load(), "无章节时不应发起请求")
}

func TestChatSummarizer(t *testing.T) {
	mock := agent.NewMockChatClient("  Summary text \n", nil)
	s, err := NewChatSummarizer(mock, 120, 0.5)
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "Summary text", out)

	msgs := mock.LastMessages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Content, Instruction))
	opts := mock.LastOptions()
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 120, *opts.MaxTokens)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, float32(0.5), *opts.Temperature)
}

func TestChatSummarizerErrors(t *testing.T) {
	_, err := NewChatSummarizer(nil, 0, 0)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	s, err := NewChatSummarizer(agent.NewMockChatClient("", errors.New("upstream down")), 0, 0)
	require.NoError(t, err)
	_, err = s.Summarize(context.Background(), sampleRecord())
	assert.ErrorContains(t, err, "upstream down")
}

func TestBuildSectionsCustomExtracurricularLabel(t *testing.T) {
	rec := &types.ResumeRecord{Sections: []types.RawSection{
		{Label: "Activities", Category: types.CategoryExtracurriculars, Text: "Robotics club"},
	}}
	sections := BuildSections(rec)
	require.Len(t, sections, 1, "自定义展示名的课外活动章节也应进入提示词")
	assert.Equal(t, "Extracurriculars:\nRobotics club\n", sections[0])
}
