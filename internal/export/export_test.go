package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-extractor/internal/types"
)

func structuredRecord() *types.ResumeRecord {
	return &types.ResumeRecord{
		ContactInfo: types.ContactInfo{
			Name:  types.Found("Jane Doe"),
			Email: types.Found("jane@example.com"),
		},
		Experience: types.Structured[types.ExperienceEntry]{Entries: []types.ExperienceEntry{
			{TitleOrRole: "Software Intern, Acme", DateRange: "June 2020 - Aug 2021", Responsibilities: []string{"Built data pipelines"}},
		}},
		Skills:   types.NewFieldList([]string{"Python", "SQL, advanced"}),
		Sections: []types.RawSection{{Label: "Extracurriculars", Text: "Chess club\nRobotics"}},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, ".json", f.FileExtension())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f, "空格式默认为文本")

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, structuredRecord()))
	assert.Contains(t, buf.String(), "\n  \"name\": \"Jane Doe\"", "应使用两个空格缩进")
	assert.Contains(t, buf.String(), `"phone": null`)

	var back types.ResumeRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "Software Intern, Acme", back.Experience.Entries[0].TitleOrRole)
}

func TestWriteCSVStructured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, structuredRecord()))
	assert.Equal(t, "Section,Content\n"+
		"Skill,Python\n"+
		"Skill,\"SQL, advanced\"\n"+
		"Experience,\"Software Intern, Acme (June 2020 - Aug 2021)\"\n", buf.String())
}

func TestWriteCSVRawExperience(t *testing.T) {
	rec := &types.ResumeRecord{
		Experience: types.Structured[types.ExperienceEntry]{Raw: "Freelance work\n\n\nTutoring\n"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rec))
	assert.Equal(t, "Section,Content\nExperience,Freelance work\nExperience,Tutoring\n", buf.String(),
		"原始文本应按空行切块")
}

func TestWriteCSVNoData(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, &types.ResumeRecord{Education: types.NewFieldList([]string{"MIT"})})
	assert.ErrorIs(t, err, ErrNoTabularData)
	assert.Zero(t, buf.Len(), "无数据时不应写出表头")
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, structuredRecord(), "A strong candidate."))

	want := "\nNAME:\n Jane Doe\n" +
		"\nEMAIL:\n jane@example.com\n" +
		"\nPHONE:\n Not found\n" +
		"\nLINKEDIN:\n Not found\n" +
		"\nGITHUB:\n Not found\n" +
		"\nEXPERIENCE:\n - Software Intern, Acme (June 2020 - Aug 2021)\n   - Built data pipelines\n" +
		"\nSKILLS:\n - Python\n - SQL, advanced\n" +
		"\nEXTRACURRICULARS:\n Chess club\n Robotics\n" +
		"\nSUMMARY:\n A strong candidate.\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTextAbsentSkills(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, &types.ResumeRecord{Skills: types.NewFieldList(nil)}, ""))
	assert.Contains(t, buf.String(), "\nSKILLS:\n - Not found\n")
	assert.NotContains(t, buf.String(), "EDUCATION", "不存在的章节不应输出")
}
