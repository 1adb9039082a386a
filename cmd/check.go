package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selimozcann/qrlens/internal/output"
	"github.com/selimozcann/qrlens/internal/statuscolor"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var asJSON, asText bool
	cmd := &cobra.Command{
		Use:   "check <url>...",
		Short: "Analyse one or more URLs and print the verdicts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			if !asJSON && !asText {
				printBanner(out, root)
			}
			for _, u := range args {
				rep := a.analyzer.Analyze(cmd.Context(), u)
				switch {
				case asJSON:
					b, err := json.MarshalIndent(rep, "", "  ")
					if err != nil {
						return fmt.Errorf("encode report: %w", err)
					}
					fmt.Fprintln(out, string(b))
				case asText:
					fmt.Fprintln(out, output.FormatText(rep))
					fmt.Fprintln(out)
				default:
					statuscolor.PrintReport(out, rep)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	cmd.Flags().BoolVar(&asText, "text", false, "print plain text reports")
	cmd.MarkFlagsMutuallyExclusive("json", "text")
	return cmd
}
