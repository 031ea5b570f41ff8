package parser

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-extractor/internal/types"
)

const sampleResume = `JOHN Q PUBLIC
Phone: (201) 555-0123

Email: john.public@example.com

linkedin.com/in/johnqpublic  github.com/jqpublic

Education
State University, B.S. Computer Science

GPA 3.8

Experience
Backend Engineer   Jun 2022 – Present
- Built payment service
- Led 3 engineers

Skills
Languages: Python, Java (Spring, Hibernate), Go

Projects
Resume Parser
• Extracts sections from plain text

Certifications
AWS Certified Developer

Activities
Chess Club President
Organised weekly meetups

Hackathon Mentor
`

func TestExtractFullResume(t *testing.T) {
	rec := NewExtractor().Extract(context.Background(), sampleResume)

	assert.Equal(t, types.Found("JOHN Q PUBLIC"), rec.Name)
	assert.Equal(t, types.Found("john.public@example.com"), rec.Email)
	assert.Equal(t, types.Found("(201) 555-0123"), rec.Phone)
	assert.Equal(t, types.Found("+12015550123"), rec.PhoneE164)
	assert.Equal(t, types.Found("https://linkedin.com/in/johnqpublic"), rec.LinkedIn)
	assert.Equal(t, types.Found("https://github.com/jqpublic"), rec.GitHub)

	assert.Equal(t, []string{"State University, B.S. Computer Science", "GPA 3.8"}, rec.Education.Items())
	require.True(t, rec.Experience.IsStructured())
	assert.Equal(t, "Backend Engineer", rec.Experience.Entries[0].TitleOrRole)
	assert.Equal(t, []string{"Python", "Java (Spring, Hibernate)", "Go"}, rec.Skills.Items())
	require.True(t, rec.Projects.IsStructured())
	assert.Equal(t, "Resume Parser", rec.Projects.Entries[0].Title)

	require.Len(t, rec.Sections, 2)
	assert.Equal(t, types.RawSection{Label: "Certifications", Category: types.CategoryCertifications, Text: "AWS Certified Developer"}, rec.Sections[0])
	assert.Equal(t, "Extracurriculars", rec.Sections[1].Label)
	assert.Equal(t, "Chess Club President\nOrganised weekly meetups\n\nHackathon Mentor", rec.Sections[1].Text)

	blocks := rec.Blocks("Extracurriculars")
	require.Len(t, blocks, 2)
	assert.Equal(t, "Hackathon Mentor", blocks[1].Title)
}

func TestExtractFallbacksAndOmissions(t *testing.T) {
	text := "A B\nExperience\nFreelance consulting for several clients\n\nProjects\n- only a bullet\nSkills\nTools:\nEducation\n\n   \n"
	rec := NewExtractor().Extract(context.Background(), text)

	assert.False(t, rec.Experience.IsStructured())
	assert.Equal(t, "Freelance consulting for several clients", rec.Experience.Raw, "无日期时回退为原始文本")
	assert.Equal(t, "- only a bullet", rec.Projects.Raw, "无项目标题时回退为原始文本")
	assert.True(t, rec.Education.IsZero(), "空章节应省略")
	assert.True(t, rec.Skills.IsZero(), "Tools: 本身是标题行，技能章节为空应省略")
	assert.False(t, rec.Email.IsFound())
	assert.Equal(t, types.NotFound, rec.Email.String())
}

func TestExtractPageBreakSplitsLines(t *testing.T) {
	rec := NewExtractor().Extract(context.Background(), "Jane Doe\nSkills\fGo, SQL\n")
	assert.Equal(t, []string{"Go", "SQL"}, rec.Skills.Items(), "换页符后的内容不应拼到标题行")
}

func TestExtractSkillsAbsentList(t *testing.T) {
	rec := NewExtractor().Extract(context.Background(), "Skills\nProgramming Languages:\n- , a\n")
	assert.False(t, rec.Skills.IsZero(), "章节存在")
	assert.False(t, rec.Skills.Found(), "没有技能时为缺失列表")
	assert.Equal(t, []string{types.NotFound}, rec.Skills.Lines())
}

func TestExtractExtraCategories(t *testing.T) {
	e := NewExtractor(
		WithCategoryRules([]CategoryRule{{Category: "awards", Aliases: []string{"awards", "honors"}}}),
		WithContactWindow(5),
		WithPhoneRegion("GB"),
		WithExtractorLogger(zerolog.Nop()),
	)
	rec := e.Extract(context.Background(), "Jane\nHonors:\nDean's list 2020\n")
	require.Len(t, rec.Sections, 1)
	assert.Equal(t, types.RawSection{Label: "Awards", Category: "awards", Text: "Dean's list 2020"}, rec.Sections[0])
}

func TestExtractPassthroughIdempotent(t *testing.T) {
	e := NewExtractor()
	first := e.Extract(context.Background(), sampleResume)
	for _, s := range first.Sections {
		again := e.Extract(context.Background(), s.Label+"\n"+s.Text)
		got, ok := again.Section(s.Label)
		require.True(t, ok, "章节 %s 应再次被识别", s.Label)
		assert.Equal(t, s.Text, got.Text, "透传章节重复处理结果应一致")
	}
}

func TestExtractConcurrentUse(t *testing.T) {
	e := NewExtractor()
	want, err := json.Marshal(e.Extract(context.Background(), sampleResume))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = json.Marshal(e.Extract(context.Background(), sampleResume))
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.JSONEq(t, string(want), string(got), "并发处理结果应一致")
	}
}

func TestExtractUsesRecognizerForName(t *testing.T) {
	rec := &stubRecognizer{entities: []types.Entity{{Text: "Ada Lovelace", Label: types.EntityPerson}}}
	e := NewExtractor(WithEntityRecognizer(rec))
	got := e.Extract(context.Background(), "Resume of an analytical engine programmer and mathematician\nSkills\nMath")
	assert.Equal(t, types.Found("Ada Lovelace"), got.Name)
	assert.Equal(t, 1, rec.calls)
}
