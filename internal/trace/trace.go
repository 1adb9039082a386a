package trace

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/model"
)

const (
	DefaultMaxHops = 5
	DefaultTimeout = 5 * time.Second
)

var (
	ErrCycle       = errors.New("cyclic redirect")
	ErrTimeout     = errors.New("timeout")
	ErrUnreachable = errors.New("network unreachable")
)

// Tracer performs manual redirect tracing.
type Tracer struct {
	Client *http.Client
	// Timeout bounds every individual hop.
	Timeout time.Duration
	log     logger.Logger
}

// New creates a new Tracer. A zero timeout selects DefaultTimeout.
func New(c *http.Client, timeout time.Duration, log logger.Logger) *Tracer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracer{Client: c, Timeout: timeout, log: log}
}

// Resolve follows HTTP redirects starting from target using HEAD requests.
// The returned chain always starts with target. Err is set when the walk was
// cut short by a cycle, a timeout or a transport failure; the chain then
// holds everything seen so far.
func (t *Tracer) Resolve(ctx context.Context, target string, maxHops int) model.Resolution {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	res := model.Resolution{Chain: []model.Hop{{Index: 0, URL: target}}}
	current := target
	seen := make(map[string]struct{})

	for i := 0; i < maxHops; i++ {
		if _, ok := seen[current]; ok {
			t.log.Warn("cyclic redirect detected", logger.String("url", current))
			res.Err = fmt.Errorf("%w: %s", ErrCycle, current)
			break
		}
		seen[current] = struct{}{}

		u, err := url.Parse(current)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			break
		}

		next, status, elapsed, err := t.hop(ctx, current, u)
		last := &res.Chain[len(res.Chain)-1]
		last.Status = status
		last.TimeMs = elapsed
		if err != nil {
			res.Err = classify(err)
			t.log.Warn("redirect hop failed",
				logger.String("url", current),
				logger.String("tag", ErrorTag(res.Err)),
				logger.Error(err),
			)
			break
		}
		if next == "" {
			break
		}

		t.log.Debug("redirect", logger.Int("hop", i+1), logger.String("url", next))
		res.Chain = append(res.Chain, model.Hop{Index: len(res.Chain), URL: next})
		current = next
	}

	res.FinalURL = res.Chain[len(res.Chain)-1].URL
	return res
}

// hop issues a single HEAD request and returns the next URL when the response
// is a redirect carrying a usable Location.
func (t *Tracer) hop(ctx context.Context, current string, u *url.URL) (string, int, int64, error) {
	hctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodHead, current, nil)
	if err != nil {
		return "", 0, 0, err
	}
	start := time.Now()
	resp, err := t.Client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return "", 0, elapsed, err
	}
	_ = resp.Body.Close()

	if !isRedirect(resp.StatusCode) {
		return "", resp.StatusCode, elapsed, nil
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", resp.StatusCode, elapsed, nil
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return "", resp.StatusCode, elapsed, nil
	}
	if ref.IsAbs() {
		return ref.String(), resp.StatusCode, elapsed, nil
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	return base.ResolveReference(ref).String(), resp.StatusCode, elapsed, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return fmt.Errorf("request failed: %w", err)
}

// ErrorTag returns the short tag used in reports and metrics for a resolver error.
func ErrorTag(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCycle):
		return ErrCycle.Error()
	case errors.Is(err, ErrTimeout):
		return ErrTimeout.Error()
	case errors.Is(err, ErrUnreachable):
		return ErrUnreachable.Error()
	default:
		return "request failed"
	}
}
