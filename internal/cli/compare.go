package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/service"
	"github.com/raphaelgruber/matsim/internal/weights"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

// comparisonFlags are shared by compare, matrix and similar.
type comparisonFlags struct {
	preset       string
	materialType string
	weights      map[string]string
	include      []string
	exclude      []string
	json         bool
}

func (f *comparisonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.preset, "preset", "p", "", "comparison preset id")
	cmd.Flags().StringVarP(&f.materialType, "type", "t", "", "material type for weight defaults ("+fmt.Sprint(weights.MaterialTypes())+")")
	cmd.Flags().StringToStringVarP(&f.weights, "weight", "w", nil, "weight override, path=weight (repeatable)")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "only compare paths with these prefixes")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "skip paths with these prefixes")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
}

func (f *comparisonFlags) options() (service.CompareOptions, error) {
	w, err := parseWeights(f.weights)
	if err != nil {
		return service.CompareOptions{}, err
	}
	return service.CompareOptions{
		PresetID:     f.preset,
		MaterialType: f.materialType,
		Weights:      w,
		IncludePaths: f.include,
		ExcludePaths: f.exclude,
	}, nil
}

// parseWeights converts --weight path=value pairs.
func parseWeights(raw map[string]string) (weights.Map, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(weights.Map, len(raw))
	for path, v := range raw {
		w, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, errs.Invalid("weight", "%s=%q is not a number", path, v)
		}
		out[path] = w
	}
	return out, nil
}

// materialNames looks up display names for ids; failures leave ids unnamed.
func materialNames(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if m, err := st.GetMaterial(ctx, id); err == nil && m != nil {
			names[id] = m.Name
		}
	}
	return names
}

var compareFlags comparisonFlags

var compareCmd = &cobra.Command{
	Use:   "compare <material-a> <material-b>",
	Short: "Compare two materials property by property",
	Long: `Compare two materials and show per-property similarity and the weighted
overall similarity. The result is recorded in the comparison history.

Weights are merged from the built-in defaults, the material-type table, the
preset (or the default preset for the material type) and --weight overrides,
later sources winning.

Examples:
  matsim compare tile-001 tile-002
  matsim compare tile-001 tile-002 --preset tile-technical
  matsim compare tile-001 tile-002 -w color=1 -w dimensions=0.2
  matsim compare tile-001 tile-002 --include technicalSpecs --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareFlags.register(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts, err := compareFlags.options()
	if err != nil {
		return err
	}

	result, err := newComparisonService().ComparePair(ctx, args[0], args[1], opts)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	out := cmd.OutOrStdout()
	if compareFlags.json {
		return writeJSON(out, result)
	}
	renderComparison(out, defaultTheme, materialNames(ctx, args), result)
	return nil
}

var matrixFlags comparisonFlags

var matrixCmd = &cobra.Command{
	Use:   "matrix <material>...",
	Short: "Compare every pair of materials",
	Long: `Compare every unordered pair of the given materials and print a similarity
matrix. Each pair is recorded in the comparison history.

Examples:
  matsim matrix tile-001 tile-002 tile-003
  matsim matrix oak-001 oak-002 walnut-001 --type wood --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMatrix,
}

func init() {
	matrixFlags.register(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	opts, err := matrixFlags.options()
	if err != nil {
		return err
	}

	var results []*models.ComparisonResult
	svc := newComparisonService()
	err = runWithProgress(cmd.Context(), cmd.ErrOrStderr(), !matrixFlags.json, "Comparing", func(ctx context.Context, onProgress func(done, total int)) error {
		opts.OnProgress = onProgress
		var err error
		results, err = svc.CompareMany(ctx, args, opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("matrix: %w", err)
	}

	out := cmd.OutOrStdout()
	if matrixFlags.json {
		return writeJSON(out, results)
	}

	// Duplicates were dropped by the service; keep first occurrences.
	ids := make([]string, 0, len(args))
	for _, id := range args {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	renderMatrix(out, defaultTheme, ids, results)
	return nil
}
