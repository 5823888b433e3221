package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zerocrash/internal/digest"
	"zerocrash/internal/model"

	"github.com/spf13/cobra"
)

var (
	searchSources  []string
	searchCategory string
	searchMax      int
	searchFormat   string
	searchTitle    string
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Aggregate content for a query and print it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(searchFormat))
		if format != "json" && format != "markdown" {
			return fmt.Errorf("invalid --format %q: want json or markdown", searchFormat)
		}
		cfg := GetConfig()
		srcs, err := model.ParseSources(searchSources)
		if err != nil {
			return err
		}
		q := model.SearchQuery{
			Query:      strings.Join(args, " "),
			Sources:    srcs,
			Category:   searchCategory,
			MaxResults: searchMax,
		}
		if q.MaxResults == 0 {
			q.MaxResults = cfg.Engine.DefaultResults
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		a.startBackground()
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		items, degraded, err := a.svc.Search(ctx, q)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == "markdown" {
			md, err := digest.Render(digest.Data{
				Title:    searchTitle,
				Query:    q.Query,
				Degraded: degraded,
				Items:    items,
			}, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprint(out, md)
			return nil
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"query":         q.Query,
			"degraded":      degraded,
			"total_results": len(items),
			"results":       items,
		})
	},
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchSources, "sources", []string{"google_news", "youtube", "reddit"}, "sources to query")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "taxonomy category id or name")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "maximum results (default engine.default_results)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "json", "output format: json or markdown")
	searchCmd.Flags().StringVar(&searchTitle, "title", "", "digest title; supports {.Query} and {.CurrentDate}")
	rootCmd.AddCommand(searchCmd)
}
