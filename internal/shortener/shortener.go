// Package shortener recognises links produced by URL-shortening services.
package shortener

import (
	"net/url"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Domains is the fixed set of known shortener hosts. Matching is by substring
// of the host, so subdomains and ports are covered as well.
var Domains = []string{
	// regional
	"clck.ru", "vk.cc", "vk.me", "ok.me", "t.me", "ya.ru", "go.mail.ru",
	// international
	"bit.ly", "bitly.com", "goo.gl", "g.co", "t.co", "ow.ly",
	"tinyurl.com", "is.gd", "v.gd", "rebrand.ly", "short.io", "cutt.ly",
	// corporate
	"aka.ms", "amzn.to", "youtu.be", "fb.me", "instagr.am", "lnkd.in", "redd.it",
}

// Matcher tests hosts against the shortener set in a single pass.
type Matcher struct {
	// Match on the automaton is not safe for concurrent use.
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	domains []string
}

// New builds a Matcher over domains, or over Domains when none are given.
func New(domains ...string) *Matcher {
	if len(domains) == 0 {
		domains = Domains
	}
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			normalized = append(normalized, d)
		}
	}
	return &Matcher{
		matcher: ahocorasick.NewStringMatcher(normalized),
		domains: normalized,
	}
}

// IsShortened reports whether rawURL is a web link on a shortener host.
// Non-web or unparseable input is never considered shortened.
func (m *Matcher) IsShortened(rawURL string) bool {
	_, ok := m.Match(rawURL)
	return ok
}

// Match returns the first shortener entry contained in the host of rawURL.
func (m *Matcher) Match(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	host := strings.ToLower(u.Host)
	if host == "" || len(m.domains) == 0 {
		return "", false
	}

	m.mu.Lock()
	hits := m.matcher.Match([]byte(host))
	m.mu.Unlock()

	if len(hits) == 0 {
		return "", false
	}
	first := hits[0]
	for _, h := range hits[1:] {
		if h < first {
			first = h
		}
	}
	return m.domains[first], true
}
