// Package features turns a URL into the fixed numeric vector consumed by the
// statistical scorer.
package features

import (
	"strings"
	"unicode/utf8"

	"github.com/selimozcann/qrlens/internal/whitelist"
)

// Size is the number of features in a Vector.
const Size = 6

// NoBrandDistance is reported when the brand list is empty.
const NoBrandDistance = 10

// Names lists the feature names in vector order.
var Names = []string{"url_length", "dots_count", "special_chars", "has_ip", "entropy", "levenshtein_min"}

const specialChars = "-_@&=?%"

// Vector holds the features of one URL in Names order.
type Vector [Size]float64

// Map returns the vector keyed by feature name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, Size)
	for i, name := range Names {
		m[name] = v[i]
	}
	return m
}

// Extractor computes feature vectors against a brand list.
type Extractor struct {
	brands *whitelist.List
	dist   Distance
}

// NewExtractor creates an Extractor. A nil dist selects Levenshtein.
func NewExtractor(brands *whitelist.List, dist Distance) *Extractor {
	if dist == nil {
		dist = Levenshtein{}
	}
	return &Extractor{brands: brands, dist: dist}
}

// Extract computes the feature vector of rawURL. It never fails.
func (e *Extractor) Extract(rawURL string) Vector {
	domain := ExtractDomain(rawURL)

	var v Vector
	v[0] = float64(utf8.RuneCountInString(rawURL)) / 200.0
	v[1] = float64(strings.Count(domain, "."))
	v[2] = float64(countSpecial(rawURL))
	if IsIPv4Literal(domain) {
		v[3] = 1
	}
	v[4] = Entropy(FirstLabel(domain))
	v[5] = float64(e.BrandDistance(domain))
	return v
}

// BrandDistance returns the smallest distance between domain, without a
// leading "www.", and any brand.
func (e *Extractor) BrandDistance(domain string) int {
	_, d, ok := Nearest(e.dist, StripWWW(domain), e.brands.Entries())
	if !ok {
		return NoBrandDistance
	}
	return d
}

func countSpecial(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specialChars, s[i]) >= 0 {
			n++
		}
	}
	return n
}
