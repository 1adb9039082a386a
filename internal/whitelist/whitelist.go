// Package whitelist loads ordered domain lists such as trusted payment hosts
// and protected brand names.
package whitelist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/miekg/dns"

	"github.com/selimozcann/qrlens/internal/logger"
)

// List is an ordered, de-duplicated, read-only set of lowercase domains.
// The zero value and a nil *List are empty lists.
type List struct {
	entries []string
	set     map[string]struct{}
}

// New builds a list from entries, skipping blanks and duplicates.
func New(entries ...string) *List {
	l := &List{set: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if name, err := normalize(e); err == nil {
			l.add(name)
		}
	}
	return l
}

// Load reads a list from path. A missing file yields an empty list and no
// error; any other failure yields an empty list and the error.
func Load(path string, log logger.Logger) (*List, error) {
	if log == nil {
		log = logger.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("whitelist file not found, using empty list", logger.String("path", path))
			return New(), nil
		}
		return New(), fmt.Errorf("open whitelist %s: %w", path, err)
	}
	defer f.Close()

	l, err := Parse(f, log.With(logger.String("path", path)))
	if err != nil {
		return New(), err
	}
	return l, nil
}

// Parse reads one domain per line. Blank lines and lines starting with
// '#', '//' or ';' are ignored; trailing comments are stripped. Invalid
// entries are logged and skipped.
func Parse(r io.Reader, log logger.Logger) (*List, error) {
	if log == nil {
		log = logger.NewNop()
	}
	l := New()
	invalid := 0

	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(stripBOM(scanner.Text()))
		if line == "" || isComment(line) {
			continue
		}
		fields := strings.Fields(line)
		token := fields[0]

		name, err := normalize(token)
		if err != nil {
			invalid++
			log.Warn("invalid whitelist entry",
				logger.Int("line", lineNum),
				logger.String("entry", token),
				logger.Error(err),
			)
			continue
		}
		l.add(name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan whitelist: %w", err)
	}

	log.Debug("parsed whitelist", logger.Int("domains", l.Len()), logger.Int("invalid", invalid))
	return l, nil
}

// Entries returns a copy of the entries in file order.
func (l *List) Entries() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Contains reports whether domain is an exact entry.
func (l *List) Contains(domain string) bool {
	if l == nil {
		return false
	}
	_, ok := l.set[strings.ToLower(domain)]
	return ok
}

// MatchSuffix returns the first entry that domain equals or is a subdomain of.
func (l *List) MatchSuffix(domain string) (string, bool) {
	if l == nil || domain == "" {
		return "", false
	}
	domain = strings.ToLower(domain)
	for _, e := range l.entries {
		if domain == e || strings.HasSuffix(domain, "."+e) {
			return e, true
		}
	}
	return "", false
}

func (l *List) add(name string) {
	if _, dup := l.set[name]; dup {
		return
	}
	l.set[name] = struct{}{}
	l.entries = append(l.entries, name)
}

func stripBOM(line string) string {
	return strings.TrimPrefix(line, "\ufeff")
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") || strings.HasPrefix(line, ";")
}

func normalize(name string) (string, error) {
	lower := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if lower == "" {
		return "", fmt.Errorf("empty domain")
	}
	if strings.Contains(lower, "/") || strings.Contains(lower, ":") {
		return "", fmt.Errorf("invalid hostname")
	}
	if _, ok := dns.IsDomainName(lower); !ok {
		return "", fmt.Errorf("invalid domain")
	}
	return lower, nil
}
