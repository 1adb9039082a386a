// Package statuscolor prints reports and redirect hops with terminal colours.
package statuscolor

import (
	"fmt"
	"io"
	"net/http"

	"github.com/fatih/color"

	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/output"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
	bold   = color.New(color.Bold)
)

func colorFor(status int) *color.Color {
	switch {
	case status == 0:
		return gray
	case status == http.StatusOK:
		return green
	case status >= 300 && status < 400:
		return yellow
	default:
		return red
	}
}

// Sprint returns a colorized status code string; 0 renders as a gray dash.
func Sprint(status int) string {
	if status == 0 {
		return gray.Sprint("-")
	}
	return colorFor(status).Sprint(status)
}

// WrapByStatus wraps the provided text with the color that corresponds to the
// supplied status code.
func WrapByStatus(text string, status int) string {
	return colorFor(status).Sprint(text)
}

// Gray wraps the provided text with a gray ANSI color.
func Gray(text string) string {
	return gray.Sprint(text)
}

// VerdictColor returns the colour used for v.
func VerdictColor(v model.Verdict) *color.Color {
	switch v {
	case model.VerdictSafe:
		return green
	case model.VerdictSuspicious:
		return yellow
	case model.VerdictDanger:
		return red
	default:
		return gray
	}
}

// SprintVerdict returns the colorized verdict.
func SprintVerdict(v model.Verdict) string {
	return bold.Sprint(VerdictColor(v).Sprint(string(v)))
}

// PrintChain prints each hop of a redirect chain with a color-coded status.
func PrintChain(w io.Writer, chain []model.Hop) {
	for _, h := range chain {
		fmt.Fprintf(w, "  [%d] %s %s %s\n", h.Index, h.URL, Sprint(h.Status), Gray(fmt.Sprintf("(%d ms)", h.TimeMs)))
	}
}

// PrintReport prints a full report for terminal use.
func PrintReport(w io.Writer, rep model.Report) {
	fmt.Fprintf(w, "\n%s %s\n", bold.Sprint("[+]"), rep.OriginalURL)
	if rep.Redirected() {
		PrintChain(w, rep.Chain)
	}
	fmt.Fprintf(w, "  verdict: %s %s\n", SprintVerdict(rep.Verdict), Gray("via "+string(rep.DecidedBy)))
	for _, r := range rep.Reasons {
		fmt.Fprintf(w, "  - %s\n", r)
	}
	for _, e := range rep.Evidence {
		fmt.Fprintf(w, "  %s %s: %s\n", yellow.Sprint("[!]"), e.Type, e.Detail)
	}
	fmt.Fprintf(w, "  %s\n", Gray(fmt.Sprintf("%.1f ms", rep.Timings.TotalMs)))
}

// PrintSummary prints verdict counters.
func PrintSummary(w io.Writer, s output.Summary) {
	fmt.Fprintf(w, "\n%s %d URLs: %s %d, %s %d, %s %d, %s %d\n",
		bold.Sprint("Summary:"), s.TotalTargets,
		SprintVerdict(model.VerdictDanger), s.Danger,
		SprintVerdict(model.VerdictSuspicious), s.Suspicious,
		SprintVerdict(model.VerdictSafe), s.Safe,
		SprintVerdict(model.VerdictUnknown), s.Unknown,
	)
}
