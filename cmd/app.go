package cmd

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/selimozcann/qrlens/internal/banner"
	"github.com/selimozcann/qrlens/internal/config"
	"github.com/selimozcann/qrlens/internal/detect"
	"github.com/selimozcann/qrlens/internal/features"
	"github.com/selimozcann/qrlens/internal/httpclient"
	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/metrics"
	"github.com/selimozcann/qrlens/internal/pipeline"
	"github.com/selimozcann/qrlens/internal/plugin"
	"github.com/selimozcann/qrlens/internal/reputation"
	"github.com/selimozcann/qrlens/internal/runner"
	"github.com/selimozcann/qrlens/internal/scorer"
	"github.com/selimozcann/qrlens/internal/shortener"
	"github.com/selimozcann/qrlens/internal/trace"
	"github.com/selimozcann/qrlens/internal/whitelist"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg        *config.Config
	log        logger.Logger
	analyzer   *pipeline.Analyzer
	runner     *runner.Runner
	metrics    *metrics.Metrics
	scorer     *scorer.Scorer
	reputation *reputation.Client
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		if err := config.ValidateLogLevel(opts.logLevel); err != nil {
			return nil, err
		}
		cfg.Logging.Level = opts.logLevel
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	headers, err := toHeader(opts.headers)
	if err != nil {
		return nil, err
	}
	var proxyFunc func(*http.Request) (*url.URL, error)
	if cfg.Resolver.Proxy != "" {
		proxyURL, perr := url.Parse(cfg.Resolver.Proxy)
		if perr != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", perr)
		}
		proxyFunc = http.ProxyURL(proxyURL)
	}

	trusted, err := whitelist.Load(cfg.Data.SBPWhitelist, log)
	if err != nil {
		log.Warn("trusted whitelist unavailable", logger.String("path", cfg.Data.SBPWhitelist), logger.Error(err))
	}
	brands, err := whitelist.Load(cfg.Data.Brands, log)
	if err != nil {
		log.Warn("brand whitelist unavailable", logger.String("path", cfg.Data.Brands), logger.Error(err))
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	// a nil *scorer.Scorer must not reach the pipeline as a non-nil interface
	var sc pipeline.Scorer
	if s, err := scorer.Load(cfg.Model.Path); err != nil {
		log.Warn("statistical model not loaded, heuristics only",
			logger.String("path", cfg.Model.Path), logger.Error(err))
	} else {
		a.scorer = s
		sc = s
		log.Info("statistical model loaded",
			logger.String("version", s.Version()),
			logger.Strings("classes", s.Classes()))
	}

	client := httpclient.New(httpclient.Config{
		Timeout:   cfg.Resolver.Timeout,
		Proxy:     proxyFunc,
		Headers:   headers,
		UserAgent: cfg.Resolver.UserAgent,
		Insecure:  cfg.Resolver.Insecure,
		Retries:   cfg.Resolver.Retries,
	})

	a.reputation = reputation.New(cfg.Reputation, log)
	if !a.reputation.Enabled() {
		log.Info("reputation lookups disabled", logger.String("hint", "set "+config.APIKeyEnvVar))
	}

	dist := features.Levenshtein{}
	a.analyzer = pipeline.New(pipeline.Options{
		Resolver:  trace.New(client, cfg.Resolver.Timeout, log),
		Shortener: shortener.New(),
		Engine:    detect.NewEngine(trusted, brands, dist),
		Extractor: features.NewExtractor(brands, dist),
		Scorer:    sc,
		Plugins:   plugin.Default(a.reputation, log),
		Recorder:  a.metrics,
		Logger:    log,
		MaxHops:   cfg.Resolver.MaxHops,
	})
	a.runner = runner.New(cfg.Runner, a.analyzer, log)
	return a, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func printBanner(w io.Writer, opts *rootOptions) {
	if !opts.noBanner {
		banner.Fprint(w)
	}
}

func toHeader(headers []string) (http.Header, error) {
	hdr := make(http.Header)
	for _, h := range headers {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header %q (expected Key: Value)", h)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			return nil, fmt.Errorf("invalid header %q (empty key)", h)
		}
		hdr.Add(key, value)
	}
	return hdr, nil
}
