// Package reputation queries a Safe Browsing v4 compatible threat-match
// service for known malicious URLs.
package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/model"
)

const (
	DefaultEndpoint      = "https://sba.yandex.net/v4/threatMatches:find"
	DefaultTimeout       = 10 * time.Second
	DefaultClientID      = "qrlens"
	DefaultClientVersion = "1.0.0"
)

var (
	ErrDisabled    = errors.New("api key not configured")
	ErrBadRequest  = errors.New("bad request")
	ErrForbidden   = errors.New("invalid api key")
	ErrTimeout     = errors.New("timeout")
	ErrUnavailable = errors.New("api unavailable")
	ErrMalformed   = errors.New("malformed response")
)

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

// Threat types requested from the service.
var ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"}

// Config holds client settings.
type Config struct {
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ClientID      string        `mapstructure:"client_id"`
	ClientVersion string        `mapstructure:"client_version"`
}

// Client talks to the threat-match endpoint. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

// New creates a Client, filling unset fields with defaults.
func New(cfg Config, log logger.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = DefaultClientVersion
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.APIKey != ""
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type threatMatch struct {
	ThreatType string      `json:"threatType"`
	Threat     threatEntry `json:"threat"`
}

type findResponse struct {
	Matches []threatMatch `json:"matches"`
}

// Check looks up a single URL. On failure the returned result carries the
// error tag and Safe is false.
func (c *Client) Check(ctx context.Context, rawURL string) (model.ReputationResult, error) {
	results, err := c.CheckBatch(ctx, []string{rawURL})
	if err != nil {
		return model.ReputationResult{Error: Tag(err)}, err
	}
	return results[rawURL], nil
}

// CheckBatch looks up several URLs in one request. Every input URL has an
// entry in the returned map when err is nil.
func (c *Client) CheckBatch(ctx context.Context, urls []string) (map[string]model.ReputationResult, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if len(urls) == 0 {
		return map[string]model.ReputationResult{}, nil
	}

	matches, err := c.find(ctx, urls)
	if err != nil {
		c.log.Warn("reputation lookup failed",
			logger.Int("urls", len(urls)),
			logger.String("tag", Tag(err)),
			logger.Error(err),
		)
		return nil, err
	}

	results := make(map[string]model.ReputationResult, len(urls))
	for _, u := range urls {
		results[u] = model.ReputationResult{Safe: true}
	}
	for _, m := range matches {
		target := m.Threat.URL
		if _, ok := results[target]; !ok {
			// single-URL requests may get matches without an echoed url
			if len(urls) != 1 {
				continue
			}
			target = urls[0]
		}
		threat := m.ThreatType
		if threat == "" {
			threat = "UNKNOWN"
		}
		r := results[target]
		r.Safe = false
		if !slices.Contains(r.Threats, threat) {
			r.Threats = append(r.Threats, threat)
		}
		results[target] = r
	}
	for u, r := range results {
		if !r.Safe {
			c.log.Warn("reputation threats found", logger.String("url", u), logger.Strings("threats", r.Threats))
		}
	}
	return results, nil
}

func (c *Client) find(ctx context.Context, urls []string) ([]threatMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	entries := make([]threatEntry, len(urls))
	for i, u := range urls {
		entries[i] = threatEntry{URL: u}
	}
	body, err := json.Marshal(findRequest{
		Client: clientInfo{ClientID: c.cfg.ClientID, ClientVersion: c.cfg.ClientVersion},
		ThreatInfo: threatInfo{
			ThreatTypes:      ThreatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    entries,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", c.cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	case http.StatusForbidden:
		return nil, ErrForbidden
	default:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	var out findResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return out.Matches, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Tag maps an error to the short tag recorded in reports and metrics.
func Tag(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return se.Error()
	case errors.Is(err, ErrDisabled):
		return ErrDisabled.Error()
	case errors.Is(err, ErrBadRequest):
		return ErrBadRequest.Error()
	case errors.Is(err, ErrForbidden):
		return ErrForbidden.Error()
	case errors.Is(err, ErrTimeout):
		return ErrTimeout.Error()
	case errors.Is(err, ErrUnavailable):
		return ErrUnavailable.Error()
	case errors.Is(err, ErrMalformed):
		return ErrMalformed.Error()
	default:
		return err.Error()
	}
}
