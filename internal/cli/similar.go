package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/spf13/cobra"
)

var (
	similarFlags comparisonFlags
	similarLimit int
	similarKind  string
)

var similarCmd = &cobra.Command{
	Use:   "similar <reference> [candidate...]",
	Short: "Rank materials by similarity to a reference",
	Long: `Rank candidate materials by weighted similarity to a reference material.

Without explicit candidates, the catalog is searched, optionally restricted to
one material type with --of-type. Ties are ordered by candidate id.

Examples:
  matsim similar tile-001
  matsim similar tile-001 --of-type tile --limit 5
  matsim similar oak-001 oak-002 oak-003 walnut-001 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimilar,
}

func init() {
	similarFlags.register(similarCmd)
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 10, "max results (0 for all)")
	similarCmd.Flags().StringVar(&similarKind, "of-type", "", "only consider catalog materials of this type")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	opts, err := similarFlags.options()
	if err != nil {
		return err
	}
	reference, candidates := args[0], args[1:]

	var matches []models.SimilarMatch
	svc := newComparisonService()
	err = runWithProgress(cmd.Context(), cmd.ErrOrStderr(), !similarFlags.json, "Ranking", func(ctx context.Context, onProgress func(done, total int)) error {
		opts.OnProgress = onProgress
		var err error
		if len(candidates) > 0 {
			matches, err = svc.FindSimilar(ctx, reference, candidates, similarLimit, opts)
		} else {
			filter := models.CandidateFilter{MaterialType: similarKind}
			matches, err = svc.FindSimilarInCatalog(ctx, reference, filter, similarLimit, opts)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("similar: %w", err)
	}

	out := cmd.OutOrStdout()
	if similarFlags.json {
		return writeJSON(out, matches)
	}
	renderMatches(out, defaultTheme, materialLabel(materialNames(cmd.Context(), []string{reference}), reference), matches)
	return nil
}
