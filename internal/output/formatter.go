package output

import (
	"fmt"
	"strings"

	"github.com/selimozcann/qrlens/internal/model"
)

var verdictLabels = map[model.Verdict]string{
	model.VerdictSafe:       "SAFE (no threats detected)",
	model.VerdictSuspicious: "SUSPICIOUS (proceed with caution)",
	model.VerdictDanger:     "DANGER (do not open)",
}

// VerdictLabel returns the human readable form of v.
func VerdictLabel(v model.Verdict) string {
	if l, ok := verdictLabels[v]; ok {
		return l
	}
	return string(model.VerdictUnknown)
}

// FormatText renders a report as plain text for chat and terminal replies.
func FormatText(rep model.Report) string {
	var b strings.Builder
	b.WriteString("QR code analysis\n\n")
	fmt.Fprintf(&b, "Extracted URL: %s\n", rep.OriginalURL)

	if rep.Redirected() {
		b.WriteString("\nRedirect chain:\n")
		for i, hop := range rep.Chain {
			fmt.Fprintf(&b, "%d. %s\n", i+1, hop.URL)
		}
	}

	fmt.Fprintf(&b, "\nVERDICT: %s\n", VerdictLabel(rep.Verdict))

	if len(rep.Reasons) > 0 {
		b.WriteString("\nReasons:\n")
		for _, r := range rep.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	if sb := rep.Reputation; sb != nil {
		switch {
		case sb.Error != "":
			fmt.Fprintf(&b, "\nSafe Browsing: check failed (%s)\n", sb.Error)
		case sb.Safe:
			b.WriteString("\nSafe Browsing: checked, no threats\n")
		default:
			fmt.Fprintf(&b, "\nSafe Browsing: THREATS: %s\n", strings.Join(sb.Threats, ", "))
		}
	}

	fmt.Fprintf(&b, "\nAnalysis time: %.2f s", rep.Timings.TotalMs/1000)
	return b.String()
}
