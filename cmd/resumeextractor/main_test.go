package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-extractor/internal/processor"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p><w:r><w:t>jane.doe@example.com</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Skills</w:t></w:r></w:p>
<w:p><w:r><w:t>Python, Go, SQL</w:t></w:r></w:p>
</w:body>
</w:document>`

func writeDocx(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: error\n"), 0o600))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunJSON(t *testing.T) {
	dir := t.TempDir()
	cv := writeDocx(t, dir, "cv.docx")

	code, out, errOut := runCLI(t, "", "-c", writeConfig(t, dir), "--format", "json", cv)
	require.Equal(t, 0, code, errOut)

	var res processor.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, cv, res.Source)
	assert.Equal(t, "Jane Doe", res.Record.Name.String())
	assert.Equal(t, "jane.doe@example.com", res.Record.Email.String())
	assert.Equal(t, []string{"Python", "Go", "SQL"}, res.Record.Skills.Items())
}

func TestRunStdinText(t *testing.T) {
	dir := t.TempDir()
	code, out, errOut := runCLI(t, "Jane Doe\n\nSkills\nGo, Rust\n", "-c", writeConfig(t, dir), "-")
	require.Equal(t, 0, code, errOut)

	assert.True(t, strings.HasPrefix(out, "===== stdin =====\n"))
	assert.Contains(t, out, "\nNAME:\n Jane Doe\n")
	assert.Contains(t, out, "\nSKILLS:\n - Go\n - Rust\n")
}

func TestRunCSVToOutDir(t *testing.T) {
	dir := t.TempDir()
	cv := writeDocx(t, dir, "candidate.docx")
	outDir := filepath.Join(dir, "out")

	code, out, errOut := runCLI(t, "", "-c", writeConfig(t, dir), "-f", "csv", "-o", outDir, cv)
	require.Equal(t, 0, code, errOut)
	assert.Empty(t, out, "指定输出目录时不写标准输出")

	data, err := os.ReadFile(filepath.Join(outDir, "candidate.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Section,Content\nSkill,Python\nSkill,Go\nSkill,SQL\n", string(data))
}

func TestRunPartialFailure(t *testing.T) {
	dir := t.TempDir()
	cv := writeDocx(t, dir, "cv.docx")
	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("hello"), 0o600))

	code, out, errOut := runCLI(t, "", "-c", writeConfig(t, dir), cv, bad)
	assert.Equal(t, 1, code, "有文件失败时退出码为 1")
	assert.Contains(t, out, "Jane Doe", "其它文件仍然输出")
	assert.Contains(t, errOut, "notes.txt")
}

func TestRunUsageErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	code, _, _ := runCLI(t, "", "-c", cfg)
	assert.Equal(t, 2, code, "没有输入文件")

	code, _, errOut := runCLI(t, "", "-c", cfg, "--format", "xml", "cv.pdf")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "xml")

	code, _, _ = runCLI(t, "", "-c", filepath.Join(dir, "missing.yaml"), "cv.pdf")
	assert.Equal(t, 2, code, "显式指定的配置文件不存在")

	code, _, _ = runCLI(t, "", "--help")
	assert.Equal(t, 0, code)
}
