package plugin

import (
	"context"
	"strings"

	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/reputation"
)

// ReputationPlugin looks the analysed URL up in the reputation service and
// attaches the result to the report.
type ReputationPlugin struct {
	Client *reputation.Client
	// Log receives lookup failures; nil discards them.
	Log logger.Logger
}

func (p *ReputationPlugin) Name() string { return "reputation" }

func (p *ReputationPlugin) Evaluate(ctx context.Context, rep *model.Report) []model.Evidence {
	if !p.Client.Enabled() || !isWeb(rep.AnalyzedURL) {
		return nil
	}
	res, err := p.Client.Check(ctx, rep.AnalyzedURL)
	if err != nil && p.Log != nil {
		p.Log.Debug("reputation lookup failed",
			logger.String("url", rep.AnalyzedURL),
			logger.String("tag", res.Error),
			logger.Error(err))
	}
	rep.Reputation = &res
	if res.Error != "" || res.Safe {
		return nil
	}
	return []model.Evidence{{
		Source:   p.Name(),
		Type:     "REPUTATION_THREAT",
		Severity: "high",
		Detail:   strings.Join(res.Threats, ", "),
	}}
}

func isWeb(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
