package plugin

import (
	"context"
	"net/url"

	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/util"
)

// SSRFPlugin checks the analysed URL for internal hosts.
type SSRFPlugin struct{}

func (p *SSRFPlugin) Name() string { return "ssrf-final" }

func (p *SSRFPlugin) Evaluate(ctx context.Context, rep *model.Report) []model.Evidence {
	u, err := url.Parse(rep.AnalyzedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	if util.IsInternalHost(u.Hostname()) {
		return []model.Evidence{{Source: p.Name(), Type: "SSRF_FINAL", Severity: "high", Detail: u.Host + " is an internal or loopback host"}}
	}
	return nil
}
