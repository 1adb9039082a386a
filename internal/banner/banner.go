package banner

import (
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// Fprint writes the startup banner to w.
func Fprint(w io.Writer) {
	fig := figure.NewFigure("QRLENS", "doom", true)
	_, _ = color.New(color.FgRed).Fprint(w, fig.String())

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
	_, _ = green.Fprintln(w, "    QR link verdicts | https://github.com/selimozcann")
	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
}
