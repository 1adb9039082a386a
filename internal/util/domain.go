package util

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ETLDPlusOne returns the registrable domain of the URL host, falling back to
// the last two labels when the public suffix list has no answer.
func ETLDPlusOne(u *url.URL) string {
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
