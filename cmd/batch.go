package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/selimozcann/qrlens/internal/config"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/output"
	"github.com/selimozcann/qrlens/internal/statuscolor"
)

type batchOptions struct {
	inputFile   string
	outputJSONL string
	outputHTML  string
	summary     bool
	onlyRisky   bool
	silent      bool
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyse every URL listed in a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			targets, err := loadTargets(opts.inputFile)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return fmt.Errorf("no URLs in %s", opts.inputFile)
			}

			out := cmd.OutOrStdout()
			if !opts.silent {
				printBanner(out, root)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			reports, runErr := a.runner.Run(ctx, targets)

			if !opts.silent {
				printConsole(out, reports, opts)
			}
			if opts.outputJSONL != "" {
				if err := writeJSONLFile(opts.outputJSONL, reports, opts.onlyRisky); err != nil {
					return err
				}
			}
			if opts.outputHTML != "" {
				page := output.PageData{
					Title:       "QRLens Report",
					GeneratedAt: time.Now().UTC(),
					Params:      buildParamsMap(opts, a.cfg, len(targets)),
					Summary:     output.BuildSummary(reports),
					Results:     buildViews(reports, opts.onlyRisky),
				}
				if err := writeHTMLFile(opts.outputHTML, page); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("batch interrupted after %d of %d URLs: %w", len(reports), len(targets), runErr)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.inputFile, "file", "f", "", "file with one URL per line")
	f.StringVarP(&opts.outputJSONL, "output", "o", "", "JSONL output file")
	f.StringVar(&opts.outputHTML, "html", "", "HTML report output file")
	f.BoolVar(&opts.summary, "summary", false, "one line per URL")
	f.BoolVar(&opts.onlyRisky, "only-risky", false, "only output SUSPICIOUS and DANGER verdicts")
	f.BoolVar(&opts.silent, "silent", false, "no console output")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// loadTargets reads one URL per line, skipping blank lines and # comments.
func loadTargets(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %q: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	var entries []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("input read error: %w", err)
	}
	return entries, nil
}

func filterReports(reports []model.Report, onlyRisky bool) []model.Report {
	if !onlyRisky {
		return reports
	}
	var out []model.Report
	for _, r := range reports {
		if output.IsRisky(r.Verdict) {
			out = append(out, r)
		}
	}
	return out
}

func buildViews(reports []model.Report, onlyRisky bool) []output.ResultView {
	kept := filterReports(reports, onlyRisky)
	views := make([]output.ResultView, len(kept))
	for i, r := range kept {
		views[i] = output.BuildResultView(i, r)
	}
	return views
}

func buildParamsMap(opts *batchOptions, cfg *config.Config, targetCount int) map[string]string {
	return map[string]string{
		"input":        opts.inputFile,
		"workers":      strconv.Itoa(cfg.Runner.Workers),
		"rate_limit":   strconv.Itoa(cfg.Runner.RateLimit),
		"timeout":      cfg.Resolver.Timeout.String(),
		"retries":      strconv.Itoa(cfg.Resolver.Retries),
		"max_hops":     strconv.Itoa(cfg.Resolver.MaxHops),
		"insecure":     strconv.FormatBool(cfg.Resolver.Insecure),
		"only_risky":   strconv.FormatBool(opts.onlyRisky),
		"model":        cfg.Model.Path,
		"output_jsonl": opts.outputJSONL,
		"output_html":  opts.outputHTML,
		"targets":      strconv.Itoa(targetCount),
	}
}

func writeJSONLFile(path string, reports []model.Report, onlyRisky bool) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("create JSONL directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create JSONL file: %w", err)
	}
	defer f.Close()
	w := output.NewJSONLWriter(f)
	for _, r := range filterReports(reports, onlyRisky) {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("write JSONL: %w", err)
		}
	}
	return w.Close()
}

func writeHTMLFile(path string, page output.PageData) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("create HTML directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML file: %w", err)
	}
	defer f.Close()
	if err := output.RenderHTML(f, page); err != nil {
		return fmt.Errorf("write HTML: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func printConsole(w io.Writer, reports []model.Report, opts *batchOptions) {
	total := len(reports)
	for i, rep := range reports {
		if opts.onlyRisky && !output.IsRisky(rep.Verdict) {
			continue
		}
		if opts.summary {
			fmt.Fprintf(w, "[%d/%d] %s -> %s | %s | %s | %.0fms\n", i+1, total,
				rep.OriginalURL, rep.AnalyzedURL, statuscolor.SprintVerdict(rep.Verdict),
				strings.Join(rep.Reasons, "; "), rep.Timings.TotalMs)
			continue
		}
		statuscolor.PrintReport(w, rep)
	}
	statuscolor.PrintSummary(w, output.BuildSummary(reports))
}
