package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"zerocrash/internal/taxonomy"

	"github.com/spf13/cobra"
)

var taxonomyJSON bool

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the IT category tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := taxonomy.Default().Roots()
		out := cmd.OutOrStdout()
		if taxonomyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(roots)
		}
		for _, n := range roots {
			printNode(out, n, 0)
		}
		return nil
	},
}

func printNode(w io.Writer, n taxonomy.Node, depth int) {
	fmt.Fprintf(w, "%s%s (%s)", strings.Repeat("  ", depth), n.Name, n.ID)
	if len(n.Keywords) > 0 {
		fmt.Fprintf(w, ": %s", strings.Join(n.Keywords, ", "))
	}
	fmt.Fprintln(w)
	for _, sub := range n.Subcategories {
		printNode(w, sub, depth+1)
	}
}

func init() {
	taxonomyCmd.Flags().BoolVar(&taxonomyJSON, "json", false, "print JSON")
	rootCmd.AddCommand(taxonomyCmd)
}
