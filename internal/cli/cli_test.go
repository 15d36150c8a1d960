package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/raphaelgruber/matsim/internal/catalog"
	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
materials:
  - id: a
    name: Bianco
    properties:
      color: White
      dimensions: {width: 600}
  - id: b
    name: Bianco 62
    properties:
      color: white
      dimensions: {width: 620}
  - id: c
    name: Nero
    properties:
      color: black
      dimensions: {width: 300}
presets:
  - id: finish-first
    name: Example
    weights: {color: 0.8, dimensions.width: 0.7}
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func resetFlags() {
	verbose, catalogPath = false, ""
	compareFlags, matrixFlags, similarFlags = comparisonFlags{}, comparisonFlags{}, comparisonFlags{}
	// pflag merges repeated --weight values into the bound map once the flag
	// has been set, so give each test a fresh non-nil map.
	compareFlags.weights, matrixFlags.weights, similarFlags.weights = map[string]string{}, map[string]string{}, map[string]string{}
	similarLimit, similarKind = 10, ""
	presetsType, presetsFile, presetsJSON = "", "", false
	materialsType, materialsFile, materialsJSON = "", "", false
	historyLimit, historyJSON = 20, false
}

// execute runs the root command against a fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MATSIM_LOG_FILE", filepath.Join(t.TempDir(), "matsim.log"))
	t.Setenv("MATSIM_CATALOG", "")
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCompareJSON(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	out, err := execute(t, "--catalog", path, "compare", "a", "b", "--preset", "finish-first", "--json")
	require.NoError(t, err)

	var result models.ComparisonResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.InDelta(t, (0.8+0.7*(1-20.0/3000))/1.5, result.OverallSimilarity, 1e-9)
	require.NotNil(t, result.PresetID)
	assert.Equal(t, "finish-first", *result.PresetID)
	require.Len(t, result.PropertyComparisons, 2)
	assert.Equal(t, "White", result.PropertyComparisons[0].Left.String())
}

func TestCompareTable(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	out, err := execute(t, "--catalog", path, "compare", "a", "c", "-w", "color=1")
	require.NoError(t, err)
	assert.Contains(t, out, "Bianco (a)")
	assert.Contains(t, out, "Overall similarity")
	assert.Contains(t, out, "Width (mm)")
}

func TestCompareUnknownMaterial(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	_, err := execute(t, "--catalog", path, "compare", "a", "zzz")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCompareBadWeight(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	_, err := execute(t, "--catalog", path, "compare", "a", "b", "-w", "color=heavy")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestMatrixJSON(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	out, err := execute(t, "--catalog", path, "matrix", "a", "b", "c", "--json")
	require.NoError(t, err)

	var results []models.ComparisonResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, []string{"b", "c"}, results[2].MaterialIDs)
}

func TestMatrixTable(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	out, err := execute(t, "--catalog", path, "matrix", "a", "b", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "100.0%")

	rows := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "│ a ") {
			rows++
		}
	}
	assert.Equal(t, 1, rows, "duplicate ids are shown once")
}

func TestSimilarFromCatalog(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	out, err := execute(t, "--catalog", path, "similar", "a", "--limit", "1", "--json")
	require.NoError(t, err)

	var matches []models.SimilarMatch
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].CandidateID)
}

func TestSimilarExplicitCandidates(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	out, err := execute(t, "--catalog", path, "similar", "a", "c", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "Most similar to Bianco (a)")
	assert.Less(t, strings.Index(out, " b "), strings.Index(out, " c "))
}

func TestMaterialsImportAndList(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	importFile := writeCatalog(t, `
materials:
  - id: d
    name: Oak
    material_type: wood
    properties: {species: oak}
`)

	out, err := execute(t, "--catalog", path, "materials", "import", "-f", importFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 of 1")

	c, err := catalog.Load(path)
	require.NoError(t, err)
	_, err = c.GetMaterial(context.Background(), "d")
	require.NoError(t, err, "import is written back to the catalog file")

	out, err = execute(t, "--catalog", path, "materials", "list", "--type", "wood")
	require.NoError(t, err)
	assert.Contains(t, out, "d: Oak [wood]")
	assert.NotContains(t, out, "Bianco")
}

func TestMaterialsImportRejectsBadShape(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	importFile := writeCatalog(t, `
materials:
  - id: bad
    properties: {"a.b": 1}
  - id: good
    properties: {color: red}
`)

	out, err := execute(t, "--catalog", path, "materials", "import", "-f", importFile)
	require.Error(t, err)
	assert.Contains(t, out, "Imported 1 of 2")
}

func TestPresetsValidate(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	good := writeCatalog(t, `
presets:
  - id: ok
    name: OK
    material_type: tile
    weights: {color: 1}
`)
	bad := writeCatalog(t, `
presets:
  - id: neg
    name: Negative
    weights: {color: -1}
  - name: Nameless id
    material_type: plasma
`)

	out, err := execute(t, "--catalog", path, "presets", "validate", "-f", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 presets valid")

	_, err = execute(t, "--catalog", path, "presets", "validate", "-f", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "neg")
	assert.Contains(t, err.Error(), "plasma")
}

func TestPresetsAddAndList(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	file := writeCatalog(t, `
presets:
  - id: tile-default
    name: Tile default
    material_type: tile
    is_default: true
    weights: {technicalSpecs: 0.9}
`)

	_, err := execute(t, "--catalog", path, "presets", "add", "-f", file)
	require.NoError(t, err)

	out, err := execute(t, "--catalog", path, "presets", "list", "--type", "tile")
	require.NoError(t, err)
	assert.Contains(t, out, "tile-default: Tile default [tile] (default)")
	assert.Contains(t, out, "finish-first", "untyped presets apply to every type")
}

func TestHistoryEmpty(t *testing.T) {
	path := writeCatalog(t, testCatalog)

	out, err := execute(t, "--catalog", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No comparisons recorded.")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "matsim "+Version+"\n", out)
}

func TestParseWeights(t *testing.T) {
	w, err := parseWeights(map[string]string{"color": "0.5", "dimensions": "2"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, w["color"])
	assert.Equal(t, 2.0, w["dimensions"])

	w, err = parseWeights(nil)
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestTopDifferences(t *testing.T) {
	comps := []models.PropertyComparison{
		{Path: "a", Similarity: 1, Weight: 1},
		{Path: "b", Similarity: 0.5, Weight: 0.9},
		{Path: "c", Similarity: 0.2, Weight: 0},
		{Path: "d", Similarity: 0, Weight: 0.3},
		{Path: "e", Similarity: 0.1, Weight: 0.2},
	}
	got := topDifferences(comps, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Path)
	assert.Equal(t, "d", got[1].Path)
}

func TestMaterialsImportDataSheet(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	sheet := filepath.Join(t.TempDir(), "oak.md")
	require.NoError(t, os.WriteFile(sheet, []byte("---\nmaterial_type: wood\n---\n# Smoked Oak\n\n- species: oak\n- color: dark brown\n"), 0o644))

	out, err := execute(t, "--catalog", path, "materials", "import", "-f", sheet)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 of 1")

	out, err = execute(t, "--catalog", path, "materials", "list", "-t", "wood")
	require.NoError(t, err)
	assert.Contains(t, out, "smoked-oak: Smoked Oak [wood]")
}
