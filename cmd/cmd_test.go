package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/qrlens/internal/config"
	"github.com/selimozcann/qrlens/internal/model"
)

func TestToHeader(t *testing.T) {
	hdr, err := toHeader([]string{"X-Test: a", "Accept-Language:ru"})
	require.NoError(t, err)
	assert.Equal(t, "a", hdr.Get("X-Test"))
	assert.Equal(t, "ru", hdr.Get("Accept-Language"))

	_, err = toHeader([]string{"broken"})
	assert.Error(t, err)
	_, err = toHeader([]string{": value"})
	assert.Error(t, err)
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nhttps://a.example\n\n  https://b.example  \n"), 0o600))

	targets, err := loadTargets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, targets)

	_, err = loadTargets(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFilterReports(t *testing.T) {
	reports := []model.Report{
		{OriginalURL: "a", Verdict: model.VerdictSafe},
		{OriginalURL: "b", Verdict: model.VerdictDanger},
		{OriginalURL: "c", Verdict: model.VerdictUnknown},
		{OriginalURL: "d", Verdict: model.VerdictSuspicious},
	}
	assert.Len(t, filterReports(reports, false), 4)
	risky := filterReports(reports, true)
	require.Len(t, risky, 2)
	assert.Equal(t, "b", risky[0].OriginalURL)
	assert.Equal(t, "d", risky[1].OriginalURL)
}

func TestBuildParamsMap(t *testing.T) {
	cfg := &config.Config{}
	cfg.Runner.Workers = 8
	params := buildParamsMap(&batchOptions{inputFile: "urls.txt", onlyRisky: true}, cfg, 3)
	assert.Equal(t, "urls.txt", params["input"])
	assert.Equal(t, "8", params["workers"])
	assert.Equal(t, "true", params["only_risky"])
	assert.Equal(t, "3", params["targets"])
}

// writeTestConfig points the data and model paths at the repository copies.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("QRLENS_CONFIG", "")
	t.Setenv(config.APIKeyEnvVar, "")
	abs := func(p string) string {
		a, err := filepath.Abs(p)
		require.NoError(t, err)
		return filepath.ToSlash(a)
	}
	body := "[logging]\nlevel = \"error\"\n" +
		"[data]\nsbp_whitelist = \"" + abs("../data/sbp_whitelist.txt") + "\"\n" +
		"brands = \"" + abs("../data/whitelist_brands.txt") + "\"\n" +
		"[model]\npath = \"" + abs("../models/model.yaml") + "\"\n"
	path := filepath.Join(t.TempDir(), "qrlens.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", writeTestConfig(t), "--no-banner"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCheckJSON(t *testing.T) {
	out, err := execute(t, "check", "--json", "sber://transfer?sum=50000")
	require.NoError(t, err)

	var rep model.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, model.VerdictSuspicious, rep.Verdict)
	assert.Equal(t, model.StageHeuristics, rep.DecidedBy)
	assert.Nil(t, rep.Reputation)
}

func TestCheckText(t *testing.T) {
	out, err := execute(t, "check", "--text", "https://qr.nspk.ru/pay")
	require.NoError(t, err)
	assert.Contains(t, out, "VERDICT: SAFE")
}

func TestCheckFlagsExclusive(t *testing.T) {
	_, err := execute(t, "check", "--json", "--text", "https://vk.com")
	assert.Error(t, err)
}

func TestBatchWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(input, []byte("https://qr.nspk.ru/pay\nhttps://example.com/app.apk\nsber://pay\n"), 0o600))
	jsonl := filepath.Join(dir, "out", "results.jsonl")
	html := filepath.Join(dir, "out", "report.html")

	out, err := execute(t, "batch", "-f", input, "-o", jsonl, "--html", html, "--only-risky", "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "example.com/app.apk")
	assert.NotContains(t, out, "qr.nspk.ru/pay ->")

	data, err := os.ReadFile(jsonl)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)

	page, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "QRLens Report")
}

func TestEval(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "cases.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("url,expected\nhttps://qr.nspk.ru/pay,safe\nhttps://example.com/a.apk,danger\nsber://pay,suspicious\n"), 0o600))
	results := filepath.Join(dir, "results.csv")
	xlsx := filepath.Join(dir, "results.xlsx")

	out, err := execute(t, "eval", "-f", csvPath, "-o", results, "--xlsx", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "RESULTS ON 3 URLS")
	assert.Contains(t, out, "Accuracy:  100.0%")
	assert.Contains(t, out, "All URLs classified correctly.")

	data, err := os.ReadFile(results)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "url,expected,predicted,correct\n"))
	_, err = os.Stat(xlsx)
	assert.NoError(t, err)
}
