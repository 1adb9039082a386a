package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/selimozcann/qrlens/internal/model"
)

// Record represents one line in the JSONL report.
type Record struct {
	ID            string                  `json:"id"`
	Timestamp     string                  `json:"timestamp"`
	InputURL      string                  `json:"input_url"`
	FinalURL      string                  `json:"final_url"`
	Verdict       model.Verdict           `json:"verdict"`
	DecidedBy     model.Stage             `json:"decided_by"`
	Reasons       []string                `json:"reasons"`
	RedirectChain []string                `json:"redirect_chain"`
	Confidence    float64                 `json:"confidence,omitempty"`
	Reputation    *model.ReputationResult `json:"reputation,omitempty"`
	Evidence      []model.Evidence        `json:"evidence,omitempty"`
	DurationMs    float64                 `json:"duration_ms"`
	Error         string                  `json:"error,omitempty"`
}

// Summary contains counters for the HTML summary section.
type Summary struct {
	TotalTargets  int
	Safe          int
	Suspicious    int
	Danger        int
	Unknown       int
	Redirected    int
	ResolveErrors int
	Threats       int
}

// Risky is the number of SUSPICIOUS and DANGER verdicts.
func (s Summary) Risky() int { return s.Suspicious + s.Danger }

// ResultView is used by the HTML template with pre-computed fields.
type ResultView struct {
	Index      int
	Timestamp  time.Time
	InputURL   string
	FinalURL   string
	Verdict    model.Verdict
	DecidedBy  model.Stage
	Reasons    []string
	Confidence float64
	Reputation *model.ReputationResult
	Evidence   []model.Evidence
	Chain      []model.Hop
	DurationMs float64
	Error      string
}

// PageData provides the full context for the HTML report.
type PageData struct {
	Title         string
	GeneratedAt   time.Time
	Params        map[string]string
	OrderedParams []Param
	Summary       Summary
	Results       []ResultView
}

// Param represents a rendered CLI argument/value pair.
type Param struct {
	Key   string
	Value string
}

// IsRisky reports whether a verdict warrants attention.
func IsRisky(v model.Verdict) bool {
	return v == model.VerdictSuspicious || v == model.VerdictDanger
}

// BuildRecord converts a report into a Record for JSONL output.
func BuildRecord(rep model.Report) Record {
	chain := make([]string, len(rep.Chain))
	for i, hop := range rep.Chain {
		chain[i] = hop.URL
	}
	rec := Record{
		ID:            rep.ID,
		Timestamp:     rep.StartedAt.UTC().Format(time.RFC3339),
		InputURL:      rep.OriginalURL,
		FinalURL:      rep.AnalyzedURL,
		Verdict:       rep.Verdict,
		DecidedBy:     rep.DecidedBy,
		Reasons:       append([]string(nil), rep.Reasons...),
		RedirectChain: chain,
		Reputation:    rep.Reputation,
		Evidence:      append([]model.Evidence(nil), rep.Evidence...),
		DurationMs:    rep.Timings.TotalMs,
		Error:         rep.ResolveError,
	}
	if rep.Score != nil && rep.DecidedBy == model.StageStatistical {
		rec.Confidence = rep.Score.Confidence
	}
	return rec
}

// BuildResultView converts a report into a ResultView for HTML rendering.
func BuildResultView(idx int, rep model.Report) ResultView {
	view := ResultView{
		Index:      idx,
		Timestamp:  rep.StartedAt,
		InputURL:   rep.OriginalURL,
		FinalURL:   rep.AnalyzedURL,
		Verdict:    rep.Verdict,
		DecidedBy:  rep.DecidedBy,
		Reasons:    append([]string(nil), rep.Reasons...),
		Reputation: rep.Reputation,
		Evidence:   append([]model.Evidence(nil), rep.Evidence...),
		Chain:      append([]model.Hop(nil), rep.Chain...),
		DurationMs: rep.Timings.TotalMs,
		Error:      rep.ResolveError,
	}
	if rep.Score != nil {
		view.Confidence = rep.Score.Confidence
	}
	return view
}

// BuildSummary derives high level counters from the reports.
func BuildSummary(reports []model.Report) Summary {
	sum := Summary{TotalTargets: len(reports)}
	for _, rep := range reports {
		switch rep.Verdict {
		case model.VerdictSafe:
			sum.Safe++
		case model.VerdictSuspicious:
			sum.Suspicious++
		case model.VerdictDanger:
			sum.Danger++
		default:
			sum.Unknown++
		}
		if rep.Redirected() {
			sum.Redirected++
		}
		if rep.ResolveError != "" {
			sum.ResolveErrors++
		}
		if rep.Reputation != nil && rep.Reputation.Error == "" && !rep.Reputation.Safe {
			sum.Threats++
		}
	}
	return sum
}

// WriteJSONL writes each record as a JSON line to w.
func WriteJSONL(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatTime": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"join":       strings.Join,
	"lower":      func(v model.Verdict) string { return strings.ToLower(string(v)) },
	"percent":    func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	"status": func(code int) string {
		if code == 0 {
			return "-"
		}
		return fmt.Sprint(code)
	},
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
:root { color-scheme: light dark; }
body { font-family: system-ui, -apple-system, Segoe UI, Roboto, sans-serif; margin: 24px; background:#fafafa; color:#111; }
header { margin-bottom: 24px; }
h1 { font-size: 26px; margin: 0 0 8px; }
.section { border:1px solid #e5e7eb; border-radius:16px; padding:16px 20px; margin-bottom:18px; background:#fff; box-shadow:0 1px 2px rgba(15,23,42,0.08); }
h2 { font-size:20px; margin:0 0 12px; }
h3 { font-size:16px; margin:12px 0 6px; }
dt { font-weight:600; }
dd { margin:0 0 8px 0; }
.summary-grid { display:grid; gap:12px; grid-template-columns: repeat(auto-fit,minmax(160px,1fr)); }
.summary-card { display:block; padding:12px; border-radius:12px; border:1px solid #cbd5f5; text-decoration:none; color:inherit; position:relative; background:linear-gradient(180deg,#eef2ff,#fff); }
.summary-card[data-active="true"] { border-color:#4f46e5; box-shadow:0 0 0 2px rgba(79,70,229,0.4); }
.summary-card .badge { position:absolute; top:12px; right:12px; padding:2px 10px; border-radius:999px; background:#4f46e5; color:#fff; font-size:12px; }
.meta { color:#6b7280; font-size:12px; }
.result-row { border-top:1px solid #e5e7eb; padding-top:12px; margin-top:12px; }
.result-row:first-of-type { border-top:none; padding-top:0; margin-top:0; }
.reason-list { list-style:disc; margin:8px 0 8px 20px; }
.verdict { display:inline-block; padding:2px 8px; border-radius:999px; font-size:12px; margin-left:6px; color:#fff; }
.verdict-safe { background:#16a34a; }
.verdict-suspicious { background:#d97706; }
.verdict-danger { background:#dc2626; }
.verdict-unknown { background:#6b7280; }
.table { width:100%; border-collapse:collapse; font-size:14px; }
.table th, .table td { border-bottom:1px solid #e5e7eb; padding:6px 8px; text-align:left; }
.table th { background:#f9fafb; }
.chain-url { font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace; font-size:13px; word-break:break-all; }
.footer { text-align:center; font-size:12px; color:#6b7280; margin-top:24px; }
@media (prefers-color-scheme: dark) {
	body { background:#0f172a; color:#e2e8f0; }
	.section { background:#1e293b; border-color:#334155; box-shadow:none; }
	.summary-card { background:linear-gradient(180deg,#312e81,#1e293b); border-color:#4338ca; color:#e0e7ff; }
	.meta { color:#94a3b8; }
	.table th { background:#1e293b; }
}
</style>
<script>
document.addEventListener('DOMContentLoaded', function() {
  const cards = document.querySelectorAll('[data-filter]');
  const rows = document.querySelectorAll('.result-row');
  function apply(filter) {
    cards.forEach(c => c.dataset.active = (c.dataset.filter === filter ? 'true' : 'false'));
    rows.forEach(row => {
      row.style.display = (filter === 'all' || row.dataset.verdict === filter) ? '' : 'none';
    });
  }
  cards.forEach(card => {
    card.addEventListener('click', function (ev) {
      ev.preventDefault();
      apply(card.dataset.filter || 'all');
    });
  });
  apply('all');
});
</script>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <p class="meta">Generated at {{formatTime .GeneratedAt}}</p>
</header>
<section id="summary" class="section">
  <h2>Summary</h2>
  <div class="summary-grid">
    <a class="summary-card" href="#results" data-filter="all"><strong>Total URLs</strong><span class="badge">{{.Summary.TotalTargets}}</span></a>
    <a class="summary-card" href="#results" data-filter="danger"><strong>Danger</strong><span class="badge">{{.Summary.Danger}}</span></a>
    <a class="summary-card" href="#results" data-filter="suspicious"><strong>Suspicious</strong><span class="badge">{{.Summary.Suspicious}}</span></a>
    <a class="summary-card" href="#results" data-filter="safe"><strong>Safe</strong><span class="badge">{{.Summary.Safe}}</span></a>
    <a class="summary-card" href="#results" data-filter="unknown"><strong>Unknown</strong><span class="badge">{{.Summary.Unknown}}</span></a>
  </div>
  <p class="meta">{{.Summary.Redirected}} redirected, {{.Summary.ResolveErrors}} resolution errors, {{.Summary.Threats}} reputation threats</p>
</section>
<section id="parameters" class="section">
  <h2>Parameters</h2>
  <dl>
  {{- range .OrderedParams }}
    <dt>{{.Key}}</dt>
    <dd><span class="chain-url">{{.Value}}</span></dd>
  {{- end }}
  </dl>
</section>
<section id="results" class="section">
  <h2>Verdicts</h2>
  {{range .Results}}
  <div class="result-row" data-verdict="{{lower .Verdict}}">
    <h3><span class="chain-url">{{.InputURL}}</span><span class="verdict verdict-{{lower .Verdict}}">{{.Verdict}}</span></h3>
    <p class="meta">Decided by {{.DecidedBy}}{{if .Confidence}} ({{percent .Confidence}}){{end}} in {{printf "%.1f" .DurationMs}}ms</p>
    {{if .Reasons}}
      <ul class="reason-list">
        {{range .Reasons}}<li>{{.}}</li>{{end}}
      </ul>
    {{end}}
    {{if .Evidence}}
      <p><strong>Evidence</strong></p>
      <ul class="reason-list">
        {{range .Evidence}}
          <li><strong>{{.Severity}}</strong>: {{.Type}} - {{.Detail}} <span class="meta">{{.Source}}</span></li>
        {{end}}
      </ul>
    {{end}}
    {{if gt (len .Chain) 1}}
      <table class="table">
        <thead><tr><th>#</th><th>URL</th><th>Status</th><th>Time (ms)</th></tr></thead>
        <tbody>
        {{range .Chain}}
          <tr><td>{{.Index}}</td><td class="chain-url">{{.URL}}</td><td>{{status .Status}}</td><td>{{.TimeMs}}</td></tr>
        {{end}}
        </tbody>
      </table>
    {{end}}
    {{if .Error}}<p class="meta">Resolution stopped: {{.Error}}</p>{{end}}
  </div>
  {{end}}
</section>
<footer class="footer">
  QRLens report generated at {{formatTime .GeneratedAt}}
</footer>
</body>
</html>
`))

// RenderHTML renders the HTML report using the provided data.
func RenderHTML(w io.Writer, data PageData) error {
	if data.Params != nil {
		keys := make([]string, 0, len(data.Params))
		for k := range data.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]Param, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, Param{Key: k, Value: data.Params[k]})
		}
		data.OrderedParams = ordered
	}
	return htmlTemplate.Execute(w, data)
}
