package features

import "strings"

// Distance measures how far apart two strings are.
type Distance interface {
	Distance(a, b string) int
}

// Levenshtein is the rune-wise edit distance with unit costs.
type Levenshtein struct{}

// Distance implements Distance.
func (Levenshtein) Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Nearest finds the entry closest to s. The first entry wins ties.
// ok is false when entries is empty.
func Nearest(d Distance, s string, entries []string) (entry string, dist int, ok bool) {
	for _, e := range entries {
		n := d.Distance(s, e)
		if !ok || n < dist {
			entry, dist, ok = e, n, true
		}
	}
	return entry, dist, ok
}

// StripWWW removes a single leading "www." label.
func StripWWW(domain string) string {
	return strings.TrimPrefix(domain, "www.")
}
