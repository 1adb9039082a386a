package detect

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/idna"

	"github.com/selimozcann/qrlens/internal/features"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/whitelist"
)

const (
	// EntropyThreshold is the first-label entropy above which a domain looks generated.
	EntropyThreshold = 4.5
	// TyposquatThreshold is the largest brand distance still treated as a lookalike.
	TyposquatThreshold = 2
)

// MalwareExtensions are file types that install or execute code on download.
var MalwareExtensions = []string{".apk", ".exe", ".scr", ".bat", ".vbs"}

// Input is the pre-parsed form of a URL shared by all rules.
type Input struct {
	URL    string
	Lower  string
	Domain string
	// Parsed is nil when the URL does not parse.
	Parsed *url.URL
}

// NewInput prepares rawURL for rule evaluation.
func NewInput(rawURL string) *Input {
	in := &Input{
		URL:    rawURL,
		Lower:  strings.ToLower(rawURL),
		Domain: features.ExtractDomain(rawURL),
	}
	if u, err := url.Parse(rawURL); err == nil {
		in.Parsed = u
	}
	return in
}

// Finding is a rule match.
type Finding struct {
	Verdict model.Verdict
	Reason  string
}

// Rule is a single heuristic check. Evaluate returns nil when the rule does
// not apply.
type Rule interface {
	Name() string
	Evaluate(in *Input) *Finding
}

// TrustedRule marks domains on the trusted list, or below them, as safe.
type TrustedRule struct {
	List *whitelist.List
}

func (r *TrustedRule) Name() string { return "trusted-whitelist" }

func (r *TrustedRule) Evaluate(in *Input) *Finding {
	entry, ok := r.List.MatchSuffix(in.Domain)
	if !ok {
		return nil
	}
	return &Finding{
		Verdict: model.VerdictSafe,
		Reason:  fmt.Sprintf("domain %s is in the trusted whitelist (%s)", in.Domain, entry),
	}
}

// ExtensionRule flags links to executable or installable files.
type ExtensionRule struct {
	Extensions []string
}

func (r *ExtensionRule) Name() string { return "malicious-extension" }

func (r *ExtensionRule) Evaluate(in *Input) *Finding {
	path := ""
	if in.Parsed != nil {
		path = strings.ToLower(in.Parsed.Path)
	}
	for _, ext := range r.Extensions {
		if (path != "" && strings.HasSuffix(path, ext)) || strings.HasSuffix(in.Lower, ext) {
			return &Finding{
				Verdict: model.VerdictDanger,
				Reason:  "malicious file extension: " + ext,
			}
		}
	}
	return nil
}

// DeepLinkRule flags app schemes that can trigger payments or transfers.
type DeepLinkRule struct{}

func (r *DeepLinkRule) Name() string { return "deep-link" }

func (r *DeepLinkRule) Evaluate(in *Input) *Finding {
	scheme, ok := features.DeepLinkScheme(in.URL)
	if !ok {
		return nil
	}
	return &Finding{
		Verdict: model.VerdictSuspicious,
		Reason:  "deep link scheme detected: " + scheme,
	}
}

// HomographRule flags punycode domains that decode to Cyrillic or Greek
// letters imitating Latin ones.
type HomographRule struct{}

func (r *HomographRule) Name() string { return "homograph" }

func (r *HomographRule) Evaluate(in *Input) *Finding {
	if !strings.Contains(in.Lower, "xn--") {
		return nil
	}
	decoded, err := idna.Punycode.ToUnicode(in.Domain)
	if err != nil || !hasConfusableScript(decoded) {
		return nil
	}
	return &Finding{
		Verdict: model.VerdictDanger,
		Reason:  fmt.Sprintf("IDN homograph attack: %s -> %s", in.Domain, decoded),
	}
}

func hasConfusableScript(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) || unicode.Is(unicode.Greek, r) {
			return true
		}
	}
	return false
}

// TyposquatRule flags domains a small edit away from a protected brand.
// A domain equal to any brand never fires, even if listed after a closer one.
type TyposquatRule struct {
	Brands    *whitelist.List
	Dist      features.Distance
	Threshold int
}

func (r *TyposquatRule) Name() string { return "typosquatting" }

func (r *TyposquatRule) Evaluate(in *Input) *Finding {
	clean := features.StripWWW(in.Domain)
	if r.Brands.Contains(clean) {
		return nil
	}
	brand, d, ok := features.Nearest(r.Dist, clean, r.Brands.Entries())
	if !ok || d <= 0 || d > r.Threshold {
		return nil
	}
	return &Finding{
		Verdict: model.VerdictDanger,
		Reason:  fmt.Sprintf("typosquatting: levenshtein distance %d to %s", d, brand),
	}
}

// EntropyRule flags randomly generated looking domain names.
type EntropyRule struct {
	Threshold float64
}

func (r *EntropyRule) Name() string { return "high-entropy" }

func (r *EntropyRule) Evaluate(in *Input) *Finding {
	h := features.Entropy(features.FirstLabel(in.Domain))
	if h <= r.Threshold {
		return nil
	}
	return &Finding{
		Verdict: model.VerdictSuspicious,
		Reason:  fmt.Sprintf("high domain entropy: %.2f (threshold %.2f)", h, r.Threshold),
	}
}
