package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/selimozcann/qrlens/internal/api"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			if listen == "" {
				listen = a.cfg.Server.Listen
			}
			status := api.Status{
				ModelLoaded:       a.analyzer.ScorerAvailable(),
				ReputationEnabled: a.reputation.Enabled(),
			}
			if status.ModelLoaded {
				status.ModelVersion = a.scorer.Version()
			}

			printBanner(cmd.OutOrStdout(), root)
			handler := api.NewHandler(a.analyzer, a.runner, status, a.log)
			router := api.NewRouter(handler, a.metrics.Handler(), debug, a.log)
			srv := api.NewServer(api.ServerConfig{
				Listen:       listen,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				Debug:        debug,
			}, router)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.Serve(ctx, srv, a.log)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default server.listen)")
	cmd.Flags().BoolVar(&debug, "debug", false, "gin debug mode")
	return cmd
}
