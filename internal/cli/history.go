package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [material]",
	Short: "Show recorded comparison results",
	Long: `Show recorded comparison results, newest first, optionally only those
involving one material.

With a YAML catalog, results are kept in memory only, so history shows the
comparisons of the current invocation.

Examples:
  matsim history
  matsim history tile-001 --limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max results (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	materialID := ""
	if len(args) == 1 {
		materialID = args[0]
	}

	results, err := st.ListComparisonResults(cmd.Context(), materialID, historyLimit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeJSON(out, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No comparisons recorded.")
		return nil
	}

	for _, r := range results {
		preset := ""
		if r.PresetID != nil {
			preset = defaultTheme.hintStyle().Render(" preset " + *r.PresetID)
		}
		fmt.Fprintf(out, "%s  %-40s %s%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%s ↔ %s", r.MaterialIDs[0], r.MaterialIDs[1]),
			percent(r.OverallSimilarity),
			preset,
		)
	}
	return nil
}
