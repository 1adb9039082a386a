// Package detect holds the ordered heuristic rules that decide a verdict
// from the URL text alone, plus informational checks over redirect chains.
package detect

import (
	"time"

	"github.com/selimozcann/qrlens/internal/features"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/whitelist"
)

const unknownReason = "no heuristic matched, deferring to statistical scoring"

// Engine evaluates rules in order; the first rule that fires decides.
type Engine struct {
	rules []Rule
}

// NewEngine builds the default rule order over the trusted and brand lists.
// A nil dist selects Levenshtein.
func NewEngine(trusted, brands *whitelist.List, dist features.Distance) *Engine {
	if dist == nil {
		dist = features.Levenshtein{}
	}
	return NewEngineWithRules(
		&TrustedRule{List: trusted},
		&ExtensionRule{Extensions: MalwareExtensions},
		&DeepLinkRule{},
		&HomographRule{},
		&TyposquatRule{Brands: brands, Dist: dist, Threshold: TyposquatThreshold},
		&EntropyRule{Threshold: EntropyThreshold},
	)
}

// NewEngineWithRules builds an engine over an explicit rule list.
func NewEngineWithRules(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Analyze runs the rules against rawURL. It never fails; when no rule fires
// the verdict is UNKNOWN.
func (e *Engine) Analyze(rawURL string) model.RuleVerdict {
	start := time.Now()
	in := NewInput(rawURL)
	for _, r := range e.rules {
		if f := r.Evaluate(in); f != nil {
			return model.RuleVerdict{
				Verdict: f.Verdict,
				Rule:    r.Name(),
				Reason:  f.Reason,
				Elapsed: time.Since(start),
			}
		}
	}
	return model.RuleVerdict{
		Verdict: model.VerdictUnknown,
		Reason:  unknownReason,
		Elapsed: time.Since(start),
	}
}
