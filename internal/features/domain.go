package features

import (
	"math"
	"net/url"
	"regexp"
	"strings"
)

// DeepLinkSchemes are the app schemes treated as deep links.
var DeepLinkSchemes = []string{
	"tg://", "sber://", "bank://", "ton://", "whatsapp://",
	"tinkoff://", "alfa://", "vtb://", "sberpay://",
}

var ipPattern = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{1,3}){3}$`)

// DeepLinkScheme returns the recognised app scheme prefix of rawURL, compared
// case-insensitively.
func DeepLinkScheme(rawURL string) (string, bool) {
	lower := strings.ToLower(rawURL)
	for _, s := range DeepLinkSchemes {
		if strings.HasPrefix(lower, s) {
			return s, true
		}
	}
	return "", false
}

// ExtractDomain returns the lowercase host a URL points at. It never fails:
// deep links yield their first segment, scheme-less input yields its first
// path segment and unparseable input everything before the first slash.
func ExtractDomain(rawURL string) string {
	if scheme, ok := DeepLinkScheme(rawURL); ok {
		rest := rawURL[len(scheme):]
		if i := strings.IndexAny(rest, "/?"); i >= 0 {
			rest = rest[:i]
		}
		return strings.ToLower(rest)
	}

	// url.Parse reads "host:port/path" as scheme "host"
	if !strings.Contains(rawURL, "://") && !strings.HasPrefix(rawURL, "//") {
		return bareHost(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		before, _, _ := strings.Cut(rawURL, "/")
		return strings.ToLower(stripPort(before))
	}
	if u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	return bareHost(u.Path)
}

// bareHost returns the lowercase text before the first path, query or
// fragment delimiter, without a port.
func bareHost(s string) string {
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(stripPort(s))
}

func stripPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// FirstLabel returns the part of domain before the first dot, or the whole
// domain when it has a single label.
func FirstLabel(domain string) string {
	if first, _, ok := strings.Cut(domain, "."); ok {
		return first
	}
	return domain
}

// IsIPv4Literal reports whether domain looks like a dotted-quad address.
// Octet ranges are not checked.
func IsIPv4Literal(domain string) bool {
	return ipPattern.MatchString(domain)
}

// Entropy returns the Shannon entropy of s in bits, counted over runes.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	var h float64
	for _, c := range freq {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}
