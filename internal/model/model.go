package model

import (
	"strings"
	"time"
)

// Verdict is the assessed risk of a URL. Verdicts have no total order.
type Verdict string

const (
	VerdictSafe       Verdict = "SAFE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictDanger     Verdict = "DANGER"
	// VerdictUnknown means there was not enough signal and the next stage should decide.
	VerdictUnknown Verdict = "UNKNOWN"
)

// ParseVerdict maps a label such as "danger" onto the verdict vocabulary.
// Unrecognised labels become UNKNOWN.
func ParseVerdict(label string) Verdict {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(label))); v {
	case VerdictSafe, VerdictSuspicious, VerdictDanger:
		return v
	default:
		return VerdictUnknown
	}
}

// Hop represents a single step in a redirect chain.
type Hop struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"`
	TimeMs int64  `json:"time_ms"`
}

// Resolution is the outcome of following a link to its destination.
// Err is set for partial results (cycle, timeout, unreachable); Chain and
// FinalURL still hold the best known endpoint.
type Resolution struct {
	Chain    []Hop  `json:"chain"`
	FinalURL string `json:"final_url"`
	Err      error  `json:"-"`
}

// URLs returns the visited URLs in order.
func (r Resolution) URLs() []string {
	out := make([]string, len(r.Chain))
	for i, h := range r.Chain {
		out[i] = h.URL
	}
	return out
}

// RuleVerdict is what the heuristic rule engine decided.
type RuleVerdict struct {
	Verdict Verdict       `json:"verdict"`
	Rule    string        `json:"rule,omitempty"`
	Reason  string        `json:"reason"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// ScoreResult is the statistical scorer output.
type ScoreResult struct {
	Verdict       Verdict            `json:"verdict"`
	Label         string             `json:"label"`
	Probabilities map[string]float64 `json:"probabilities"`
	Confidence    float64            `json:"confidence"`
	ModelVersion  string             `json:"model_version,omitempty"`
	Elapsed       time.Duration      `json:"elapsed_ns"`
}

// ReputationResult is the supplementary evidence from the reputation service.
// Safe is only meaningful when Error is empty.
type ReputationResult struct {
	Safe    bool     `json:"safe"`
	Threats []string `json:"threats,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Evidence is an informational observation that never changes the verdict.
type Evidence struct {
	Source   string `json:"source"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// Stage names the pipeline stage that produced a verdict.
type Stage string

const (
	StageResolve     Stage = "resolve"
	StageHeuristics  Stage = "heuristics"
	StageStatistical Stage = "statistical"
	StageReputation  Stage = "reputation"
)

// Timings holds per-stage elapsed milliseconds.
type Timings struct {
	ResolveMs     float64 `json:"resolve_ms"`
	HeuristicsMs  float64 `json:"heuristics_ms"`
	StatisticalMs float64 `json:"statistical_ms"`
	ReputationMs  float64 `json:"reputation_ms"`
	TotalMs       float64 `json:"total_ms"`
}

// Report is the final explained verdict for a single URL.
type Report struct {
	ID           string             `json:"id"`
	OriginalURL  string             `json:"original_url"`
	AnalyzedURL  string             `json:"analyzed_url"`
	Verdict      Verdict            `json:"verdict"`
	DecidedBy    Stage              `json:"decided_by"`
	Reasons      []string           `json:"reasons"`
	Chain        []Hop              `json:"redirect_chain"`
	ResolveError string             `json:"resolve_error,omitempty"`
	Features     map[string]float64 `json:"features,omitempty"`
	Heuristic    *RuleVerdict       `json:"heuristic,omitempty"`
	Score        *ScoreResult       `json:"score,omitempty"`
	Reputation   *ReputationResult  `json:"reputation,omitempty"`
	Evidence     []Evidence         `json:"evidence,omitempty"`
	Timings      Timings            `json:"timings"`
	StartedAt    time.Time          `json:"started_at"`
}

// Redirected reports whether the analysed URL differs from the input.
func (r Report) Redirected() bool {
	return len(r.Chain) > 1
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
