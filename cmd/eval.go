package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/selimozcann/qrlens/internal/evaluation"
)

func newEvalCmd(root *rootOptions) *cobra.Command {
	var testFile, resultsFile, xlsxFile string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure offline classification quality on a labelled CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			cases, err := evaluation.LoadCases(testFile)
			if err != nil {
				return fmt.Errorf("load test cases: %w", err)
			}
			if !a.analyzer.ScorerAvailable() {
				a.log.Warn("evaluating with heuristics only")
			}

			results := evaluation.Run(cmd.Context(), a.analyzer, cases)
			m := evaluation.Calculate(results)
			printMetrics(cmd.OutOrStdout(), m, evaluation.Errors(results))

			if resultsFile != "" {
				if err := writeResultsCSV(resultsFile, results); err != nil {
					return err
				}
			}
			if xlsxFile != "" {
				if err := ensureDir(xlsxFile); err != nil {
					return fmt.Errorf("create XLSX directory: %w", err)
				}
				if err := evaluation.WriteXLSX(xlsxFile, results, m); err != nil {
					return fmt.Errorf("write XLSX: %w", err)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&testFile, "file", "f", "data/test_urls.csv", "CSV with url,expected columns")
	f.StringVarP(&resultsFile, "output", "o", "", "results CSV output file")
	f.StringVar(&xlsxFile, "xlsx", "", "results workbook output file")
	return cmd
}

func printMetrics(w io.Writer, m evaluation.Metrics, errs []evaluation.Result) {
	line := strings.Repeat("=", 70)
	fmt.Fprintf(w, "%s\nRESULTS ON %d URLS\n%s\n", line, m.Total, line)
	fmt.Fprintf(w, "\nTP: %3d  (threats detected)\n", m.TP)
	fmt.Fprintf(w, "TN: %3d  (safe recognised)\n", m.TN)
	fmt.Fprintf(w, "FP: %3d  (false alarms)\n", m.FP)
	fmt.Fprintf(w, "FN: %3d  (missed threats)\n", m.FN)
	fmt.Fprintf(w, "\nAccuracy:  %5.1f%%\n", m.Accuracy*100)
	fmt.Fprintf(w, "Precision: %5.1f%%\n", m.Precision*100)
	fmt.Fprintf(w, "Recall:    %5.1f%%\n", m.Recall*100)
	fmt.Fprintf(w, "F1-score:  %5.1f%%\n", m.F1*100)

	if len(errs) == 0 {
		fmt.Fprintln(w, "\nAll URLs classified correctly.")
		return
	}
	fmt.Fprintf(w, "\n%s\nERRORS\n%s\n", line, line)
	for _, e := range errs {
		fmt.Fprintf(w, "\nURL: %s\n  expected:  %s\n  predicted: %s\n", e.URL, e.Expected, e.Predicted)
	}
}

func writeResultsCSV(path string, results []evaluation.Result) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()
	if err := evaluation.WriteCSV(f, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
