package statuscolor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/output"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestSprint(t *testing.T) {
	if got := Sprint(302); got != "302" {
		t.Fatalf("unexpected status: %q", got)
	}
	if got := Sprint(0); got != "-" {
		t.Fatalf("unexpected empty status: %q", got)
	}
}

func TestVerdictColor(t *testing.T) {
	if VerdictColor(model.VerdictDanger) != red || VerdictColor(model.VerdictSafe) != green {
		t.Fatalf("unexpected verdict colours")
	}
	if VerdictColor(model.VerdictUnknown) != gray {
		t.Fatalf("unknown verdicts should be gray")
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, model.Report{
		OriginalURL: "https://bit.ly/x",
		Verdict:     model.VerdictDanger,
		DecidedBy:   model.StageHeuristics,
		Reasons:     []string{"malicious file extension: .apk"},
		Chain: []model.Hop{
			{Index: 0, URL: "https://bit.ly/x", Status: 301},
			{Index: 1, URL: "https://evil.example/app.apk", Status: 200},
		},
		Evidence: []model.Evidence{{Type: "CROSS_DOMAIN", Detail: "redirect leaves bit.ly for evil.example"}},
	})
	out := buf.String()
	for _, sub := range []string{
		"[1] https://evil.example/app.apk 200",
		"verdict: DANGER via heuristics",
		"- malicious file extension: .apk",
		"CROSS_DOMAIN: redirect leaves",
	} {
		if !strings.Contains(out, sub) {
			t.Fatalf("expected %q in:\n%s", sub, out)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, output.Summary{TotalTargets: 3, Danger: 2, Safe: 1})
	if !strings.Contains(buf.String(), "3 URLs: DANGER 2, SUSPICIOUS 0, SAFE 1, UNKNOWN 0") {
		t.Fatalf("unexpected summary: %s", buf.String())
	}
}
