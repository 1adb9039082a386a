// Package cmd implements the qrlens command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile  string
	logLevel string
	headers  []string
	noBanner bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "qrlens",
		Short:         "Explained safety verdicts for links decoded from QR codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default $QRLENS_CONFIG or ./qrlens.toml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	pf.StringArrayVarP(&opts.headers, "header", "H", nil, "extra HTTP header for redirect resolution (repeatable)")
	pf.BoolVar(&opts.noBanner, "no-banner", false, "do not print the banner")

	root.AddCommand(
		newCheckCmd(opts),
		newBatchCmd(opts),
		newServeCmd(opts),
		newEvalCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
}
