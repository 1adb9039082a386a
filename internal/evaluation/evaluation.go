// Package evaluation measures offline classification quality against a
// labelled CSV of URLs.
package evaluation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/selimozcann/qrlens/internal/model"
)

const resultsSheet = "Results"

var resultHeader = []string{"url", "expected", "predicted", "correct"}

// Classifier returns an offline verdict for a URL.
type Classifier interface {
	Classify(ctx context.Context, url string) model.Verdict
}

// Case is one labelled URL.
type Case struct {
	URL      string
	Expected string
}

// Result is the outcome for one case. Labels are lower case.
type Result struct {
	URL       string
	Expected  string
	Predicted string
	Correct   bool
}

// Metrics are binary detection counters where a threat is anything
// not labelled safe.
type Metrics struct {
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	TP        int     `json:"tp"`
	TN        int     `json:"tn"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// LoadCases reads a CSV file with url and expected columns.
func LoadCases(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCases(f)
}

// ReadCases parses cases from r. Columns are located by header name.
func ReadCases(r io.Reader) ([]Case, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty test file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	urlCol, expCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "url":
			urlCol = i
		case "expected":
			expCol = i
		}
	}
	if urlCol < 0 || expCol < 0 {
		return nil, errors.New("test file needs url and expected columns")
	}

	var cases []Case
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if max(urlCol, expCol) >= len(rec) {
			continue
		}
		u := strings.TrimSpace(rec[urlCol])
		if u == "" {
			continue
		}
		cases = append(cases, Case{URL: u, Expected: strings.ToLower(strings.TrimSpace(rec[expCol]))})
	}
	return cases, nil
}

// Run classifies every case in order.
func Run(ctx context.Context, c Classifier, cases []Case) []Result {
	out := make([]Result, 0, len(cases))
	for _, tc := range cases {
		if ctx.Err() != nil {
			break
		}
		pred := strings.ToLower(string(c.Classify(ctx, tc.URL)))
		out = append(out, Result{
			URL:       tc.URL,
			Expected:  tc.Expected,
			Predicted: pred,
			Correct:   pred == tc.Expected,
		})
	}
	return out
}

// Calculate derives the counters and ratios; empty denominators yield 0.
func Calculate(results []Result) Metrics {
	m := Metrics{Total: len(results)}
	for _, r := range results {
		if r.Correct {
			m.Correct++
		}
		expectedSafe := r.Expected == "safe"
		predictedSafe := r.Predicted == "safe"
		switch {
		case expectedSafe && predictedSafe:
			m.TN++
		case expectedSafe:
			m.FP++
		case !predictedSafe:
			m.TP++
		default:
			m.FN++
		}
	}
	m.Accuracy = ratio(m.Correct, m.Total)
	m.Precision = ratio(m.TP, m.TP+m.FP)
	m.Recall = ratio(m.TP, m.TP+m.FN)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Errors returns the misclassified results.
func Errors(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Correct {
			out = append(out, r)
		}
	}
	return out
}

// WriteCSV writes results with a url,expected,predicted,correct header.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write([]string{r.URL, r.Expected, r.Predicted, strconv.FormatBool(r.Correct)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX stores results and metrics as a two-sheet workbook.
func WriteXLSX(path string, results []Result, m Metrics) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultHeader); err != nil {
		return err
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.URL, r.Expected, r.Predicted, r.Correct}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return err
		}
	}

	const metricsSheet = "Metrics"
	if _, err := f.NewSheet(metricsSheet); err != nil {
		return err
	}
	rows := [][]any{
		{"total", m.Total},
		{"correct", m.Correct},
		{"tp", m.TP},
		{"tn", m.TN},
		{"fp", m.FP},
		{"fn", m.FN},
		{"accuracy", m.Accuracy},
		{"precision", m.Precision},
		{"recall", m.Recall},
		{"f1", m.F1},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(metricsSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
