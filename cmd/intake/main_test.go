package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "report.pdf", "%PDF-1.4\n%fake\n")
	csv := writeFile(t, dir, "table.csv", "a,b\n1,2\n")

	out, _, err := execute(t, "", "classify", pdf, csv)
	require.NoError(t, err)
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "application/pdf")
	assert.Contains(t, out, "document")
	assert.Contains(t, out, "table.csv")
}

func TestProcess_TableAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "report.pdf", "%PDF-1.4\n%fake\n")
	outDir := filepath.Join(dir, "out")

	out, stderr, err := execute(t, "", "process", "--progress", "--out", outDir, pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "processed")
	assert.Contains(t, stderr, "completed")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "report.pdf")
	assert.Len(t, names, 2, "processed file and thumbnail")
}

func TestProcess_JSONWithRules(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "report.pdf", "%PDF-1.4\n%fake\n")
	rulesFile := writeFile(t, dir, "rules.yaml", "rules:\n  - max_file_size: 4\n")

	out, _, err := execute(t, "", "process", "--json", "--rules", rulesFile, pdf)
	require.NoError(t, err)

	var results []struct {
		Status  string `json:"status"`
		Failure struct {
			Code string `json:"error_code"`
		} `json:"failure"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "unprocessed", results[0].Status)
	assert.Equal(t, "file-too-large", results[0].Failure.Code)
}

func TestProcess_StdinAndCancel(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "report.pdf", "%PDF-1.4\n%fake\n")

	out, _, err := execute(t, pdf+"\n\n", "process", "--stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "report.pdf")

	out, stderr, err := execute(t, "", "process", "--stdin")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "nothing selected")
}

func TestProcess_Kind(t *testing.T) {
	dir := t.TempDir()
	blob := writeFile(t, dir, "data.xyz", "\x00\x9f\x13\x37")

	out, _, err := execute(t, "", "process", "--kind", "archive", blob)
	require.NoError(t, err)
	assert.Contains(t, out, "archive")
	assert.Contains(t, out, "processed")

	_, _, err = execute(t, "", "process", "--kind", "hologram", blob)
	assert.ErrorContains(t, err, "unknown kind")
}

func TestProcess_MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "process", filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}
