package detect

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/util"
)

const chainSource = "redirect-chain"

var tokenKeys = map[string]bool{
	"token":        true,
	"access_token": true,
	"id_token":     true,
	"code":         true,
	"session":      true,
	"bearer":       true,
}

// ChainNotes inspects a redirect chain for downgrades, leaked tokens and
// cross-domain hops. The notes are informational only.
func ChainNotes(chain []model.Hop) []model.Evidence {
	var notes []model.Evidence
	var first, prev *url.URL
	for i, h := range chain {
		u, err := url.Parse(h.URL)
		if err != nil {
			continue
		}
		if prev != nil {
			if e := HTTPSDowngrade(prev, u, i); e != nil {
				notes = append(notes, *e)
			}
		}
		if e := TokenLeakage(u, i); e != nil {
			notes = append(notes, *e)
		}
		if first == nil {
			first = u
		}
		prev = u
	}
	if first != nil && prev != nil && first != prev && first.Host != "" && prev.Host != "" {
		if from, to := util.ETLDPlusOne(first), util.ETLDPlusOne(prev); from != to {
			notes = append(notes, model.Evidence{
				Source:   chainSource,
				Type:     "CROSS_DOMAIN",
				Severity: "info",
				Detail:   "redirect leaves " + from + " for " + to,
			})
		}
	}
	return notes
}

// HTTPSDowngrade reports if the scheme changed from https to http.
func HTTPSDowngrade(prev, next *url.URL, hop int) *model.Evidence {
	if prev.Scheme == "https" && next.Scheme == "http" {
		return &model.Evidence{
			Source:   chainSource,
			Type:     "HTTPS_DOWNGRADE",
			Severity: "medium",
			Detail:   "hop " + strconv.Itoa(hop) + ": " + prev.String() + " -> " + next.String(),
		}
	}
	return nil
}

// TokenLeakage detects sensitive tokens in query or fragment.
func TokenLeakage(u *url.URL, hop int) *model.Evidence {
	q := u.Query()
	for k := range q {
		if tokenKeys[strings.ToLower(k)] {
			return &model.Evidence{Source: chainSource, Type: "TOKEN_LEAK", Severity: "medium", Detail: "hop " + strconv.Itoa(hop) + ": " + k + " in query"}
		}
	}
	if frag := u.Fragment; frag != "" {
		for _, part := range strings.Split(frag, "&") {
			kv := strings.SplitN(part, "=", 2)
			if tokenKeys[strings.ToLower(kv[0])] {
				return &model.Evidence{Source: chainSource, Type: "TOKEN_LEAK", Severity: "high", Detail: "hop " + strconv.Itoa(hop) + ": " + kv[0] + " in fragment"}
			}
		}
	}
	return nil
}
