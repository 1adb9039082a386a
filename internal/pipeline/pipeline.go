// Package pipeline chains redirect resolution, heuristic rules, statistical
// scoring and reputation lookups into one explained verdict.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/selimozcann/qrlens/internal/detect"
	"github.com/selimozcann/qrlens/internal/features"
	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/plugin"
	"github.com/selimozcann/qrlens/internal/shortener"
	"github.com/selimozcann/qrlens/internal/trace"
)

const (
	reasonScorerUnavailable = "statistical model unavailable"
	outcomeSafe             = "safe"
	outcomeThreat           = "threat"
)

// Resolver follows a link to its destination.
type Resolver interface {
	Resolve(ctx context.Context, url string, maxHops int) model.Resolution
}

// Scorer classifies a feature vector.
type Scorer interface {
	Score(v features.Vector) model.ScoreResult
}

// Recorder observes pipeline outcomes, typically for metrics.
type Recorder interface {
	ObserveVerdict(v model.Verdict, stage model.Stage)
	ObserveStage(stage model.Stage, d time.Duration)
	ObserveResolution(hops int, errTag string)
	ObserveReputation(outcome string)
}

// Options wires the analyzer's collaborators. Scorer may be nil, in which
// case URLs no heuristic decides stay UNKNOWN.
type Options struct {
	Resolver  Resolver
	Shortener *shortener.Matcher
	Engine    *detect.Engine
	Extractor *features.Extractor
	Scorer    Scorer
	Plugins   []plugin.Plugin
	Recorder  Recorder
	Logger    logger.Logger
	MaxHops   int
}

// Analyzer produces reports. All collaborators are read-only, so one
// Analyzer serves concurrent requests.
type Analyzer struct {
	resolver  Resolver
	shortener *shortener.Matcher
	engine    *detect.Engine
	extractor *features.Extractor
	scorer    Scorer
	plugins   []plugin.Plugin
	rec       Recorder
	log       logger.Logger
	maxHops   int
}

// New creates an Analyzer from opts.
func New(opts Options) *Analyzer {
	a := &Analyzer{
		resolver:  opts.Resolver,
		shortener: opts.Shortener,
		engine:    opts.Engine,
		extractor: opts.Extractor,
		scorer:    opts.Scorer,
		plugins:   opts.Plugins,
		rec:       opts.Recorder,
		log:       opts.Logger,
		maxHops:   opts.MaxHops,
	}
	if a.shortener == nil {
		a.shortener = shortener.New()
	}
	if a.extractor == nil {
		a.extractor = features.NewExtractor(nil, nil)
	}
	if a.engine == nil {
		a.engine = detect.NewEngine(nil, nil, nil)
	}
	if a.rec == nil {
		a.rec = nopRecorder{}
	}
	if a.log == nil {
		a.log = logger.NewNop()
	}
	if a.maxHops <= 0 {
		a.maxHops = trace.DefaultMaxHops
	}
	return a
}

// ScorerAvailable reports whether a statistical model is loaded.
func (a *Analyzer) ScorerAvailable() bool { return a.scorer != nil }

// Analyze runs the full pipeline on rawURL. It never fails: the worst case
// is an UNKNOWN verdict with a reason explaining why.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) model.Report {
	start := time.Now()
	rep := model.Report{
		ID:          uuid.NewString(),
		OriginalURL: rawURL,
		AnalyzedURL: rawURL,
		Chain:       []model.Hop{{Index: 0, URL: rawURL}},
		StartedAt:   start,
	}
	log := a.log.With(logger.String("id", rep.ID), logger.String("url", rawURL))

	if a.resolver != nil && a.shortener.IsShortened(rawURL) {
		a.resolve(ctx, &rep, log)
	}

	a.decide(&rep)

	for _, p := range a.plugins {
		t := time.Now()
		looked := rep.Reputation != nil
		rep.Evidence = append(rep.Evidence, p.Evaluate(ctx, &rep)...)
		// only a plugin that performed the lookup is charged to the stage
		if !looked && rep.Reputation != nil {
			d := time.Since(t)
			rep.Timings.ReputationMs = model.Milliseconds(d)
			a.rec.ObserveStage(model.StageReputation, d)
		}
	}
	if rep.Reputation != nil {
		note, outcome := reputationNote(*rep.Reputation)
		rep.Reasons = append(rep.Reasons, note)
		a.rec.ObserveReputation(outcome)
	}

	rep.Timings.TotalMs = model.Milliseconds(time.Since(start))
	a.rec.ObserveVerdict(rep.Verdict, rep.DecidedBy)
	log.Info("url analysed",
		logger.String("verdict", string(rep.Verdict)),
		logger.String("decided_by", string(rep.DecidedBy)),
		logger.String("analyzed_url", rep.AnalyzedURL),
		logger.Float64("total_ms", rep.Timings.TotalMs),
	)
	return rep
}

// Classify is the offline variant of Analyze: heuristics and statistical
// scoring only, without any network access.
func (a *Analyzer) Classify(_ context.Context, rawURL string) model.Verdict {
	rep := model.Report{OriginalURL: rawURL, AnalyzedURL: rawURL}
	a.decide(&rep)
	return rep.Verdict
}

func (a *Analyzer) resolve(ctx context.Context, rep *model.Report, log logger.Logger) {
	t := time.Now()
	res := a.resolver.Resolve(ctx, rep.OriginalURL, a.maxHops)
	d := time.Since(t)
	rep.Timings.ResolveMs = model.Milliseconds(d)
	a.rec.ObserveStage(model.StageResolve, d)

	if len(res.Chain) > 0 {
		rep.Chain = res.Chain
	}
	if res.FinalURL != "" {
		rep.AnalyzedURL = res.FinalURL
	}
	tag := trace.ErrorTag(res.Err)
	a.rec.ObserveResolution(len(rep.Chain), tag)
	log.Debug("redirect chain", logger.Strings("urls", res.URLs()))
	if res.Err != nil {
		rep.ResolveError = tag
		rep.Reasons = append(rep.Reasons, "redirect resolution error: "+tag)
		log.Warn("redirect resolution incomplete", logger.String("tag", tag), logger.Error(res.Err))
	}
	rep.Evidence = append(rep.Evidence, detect.ChainNotes(rep.Chain)...)
}

// decide runs the heuristic stage and, when it is inconclusive, the
// statistical stage on rep.AnalyzedURL.
func (a *Analyzer) decide(rep *model.Report) {
	target := rep.AnalyzedURL

	t := time.Now()
	rv := a.engine.Analyze(target)
	d := time.Since(t)
	rep.Timings.HeuristicsMs = model.Milliseconds(d)
	a.rec.ObserveStage(model.StageHeuristics, d)
	rep.Heuristic = &rv

	if rv.Verdict != model.VerdictUnknown {
		rep.Verdict = rv.Verdict
		rep.DecidedBy = model.StageHeuristics
		rep.Reasons = append(rep.Reasons, rv.Reason)
		rep.Features = a.extractor.Extract(target).Map()
		return
	}

	rep.DecidedBy = model.StageStatistical
	t = time.Now()
	vec := a.extractor.Extract(target)
	rep.Features = vec.Map()
	if a.scorer == nil {
		rep.Verdict = model.VerdictUnknown
		rep.Reasons = append(rep.Reasons, reasonScorerUnavailable)
		return
	}
	sr := a.scorer.Score(vec)
	d = time.Since(t)
	rep.Timings.StatisticalMs = model.Milliseconds(d)
	a.rec.ObserveStage(model.StageStatistical, d)

	rep.Score = &sr
	rep.Verdict = sr.Verdict
	rep.Reasons = append(rep.Reasons, fmt.Sprintf("statistical model: %s (%.1f%%)", sr.Label, sr.Confidence*100))
}

func reputationNote(r model.ReputationResult) (note, outcome string) {
	switch {
	case r.Error != "":
		return "reputation check failed: " + r.Error, r.Error
	case r.Safe:
		return "reputation: no threats found", outcomeSafe
	default:
		return "reputation: threats found: " + strings.Join(r.Threats, ", "), outcomeThreat
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveVerdict(model.Verdict, model.Stage) {}
func (nopRecorder) ObserveStage(model.Stage, time.Duration) {}
func (nopRecorder) ObserveResolution(int, string) {}
func (nopRecorder) ObserveReputation(string) {}
