package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"zerocrash/internal/markdown"

	"github.com/spf13/cobra"
)

var (
	seoKeywords []string
	seoLanguage string
	seoText     bool
)

var seoCmd = &cobra.Command{
	Use:   "seo <markdown_path>",
	Short: "Score a markdown draft for SEO",
	Long:  "Reads keywords and language from the YAML frontmatter (keywords, lang) unless given as flags, then scores the body.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := markdown.ParseFile(args[0])
		if err != nil {
			return err
		}
		keywords := seoKeywords
		if len(keywords) == 0 {
			keywords = doc.Keywords()
		}
		lang := seoLanguage
		if lang == "" {
			lang = doc.Language()
		}

		a, err := buildApp(GetConfig())
		if err != nil {
			return err
		}
		a.startBackground()
		defer a.Close()

		sug := a.svc.ScoreContent(doc.Content(), keywords, lang)
		out := cmd.OutOrStdout()
		if !seoText {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sug)
		}
		fmt.Fprintf(out, "score: %.1f (%s)\n", sug.Score, sug.Language)
		fmt.Fprintf(out, "primary keyword: %s\n", sug.PrimaryKeyword)
		fmt.Fprintln(out, "titles:")
		for _, t := range sug.TitleVariants {
			fmt.Fprintf(out, "  - %s\n", t)
		}
		fmt.Fprintf(out, "meta: %s\n", sug.MetaDescription)
		fmt.Fprintln(out, "outline:")
		for _, s := range sug.Outline {
			indent := "  "
			if s.Level != "H1" {
				indent = "    "
			}
			fmt.Fprintf(out, "%s%s %s\n", indent, s.Level, s.Title)
		}
		if len(sug.Recommendations) > 0 {
			fmt.Fprintln(out, "recommendations:")
			for _, r := range sug.Recommendations {
				fmt.Fprintf(out, "  - %s\n", strings.TrimSpace(r))
			}
		}
		return nil
	},
}

func init() {
	seoCmd.Flags().StringSliceVar(&seoKeywords, "keywords", nil, "target keywords (default: frontmatter keywords)")
	seoCmd.Flags().StringVar(&seoLanguage, "lang", "", "content language (default: frontmatter lang, then seo.default_language)")
	seoCmd.Flags().BoolVar(&seoText, "text", false, "print a human readable report instead of JSON")
	rootCmd.AddCommand(seoCmd)
}
