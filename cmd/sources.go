package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// sourcesCmd groups provider subcommands.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Source provider utilities",
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every provider with a one-item request",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		out := cmd.OutOrStdout()
		failed := 0
		for _, p := range a.svc.Orchestrator().Probe(ctx) {
			fmt.Fprintf(out, "%-12s %-15s %6dms", p.Source, p.Status, p.LatencyMS)
			if p.Error != "" {
				fmt.Fprintf(out, "  %s", p.Error)
				failed++
			}
			fmt.Fprintln(out)
		}
		if failed > 0 {
			return fmt.Errorf("%d provider(s) failed", failed)
		}
		return nil
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesCheckCmd)
	rootCmd.AddCommand(sourcesCmd)
}
