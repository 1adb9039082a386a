package plugin

import (
	"context"

	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/reputation"
)

// Plugin inspects a report after the verdict is decided and returns
// additional evidence. Plugins never change the verdict.
type Plugin interface {
	Name() string
	Evaluate(ctx context.Context, rep *model.Report) []model.Evidence
}

// Default returns the built-in plugins. The reputation plugin is only
// included when the client has a credential.
func Default(rc *reputation.Client, log logger.Logger) []Plugin {
	plugins := []Plugin{&SSRFPlugin{}}
	if rc.Enabled() {
		plugins = append(plugins, &ReputationPlugin{Client: rc, Log: log})
	}
	return plugins
}
