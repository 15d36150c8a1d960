package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/raphaelgruber/matsim/internal/catalog"
	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/metrics"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCatalog(t *testing.T, materials ...models.MaterialInput) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	for _, m := range materials {
		require.NoError(t, c.AddMaterial(m))
	}
	return c
}

func newService(c *catalog.Catalog) *ComparisonService {
	return NewComparisonService(c, c, c, ComparisonConfig{Workers: 4, Logger: quietLogger()})
}

func TestComparePair_WeightedExample(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", Properties: map[string]any{
			"color":      "White",
			"dimensions": map[string]any{"width": 600},
		}},
		models.MaterialInput{ID: "b", Properties: map[string]any{
			"color":      "white",
			"dimensions": map[string]any{"width": 620},
		}},
	)
	svc := newService(c)

	result, err := svc.ComparePair(context.Background(), "a", "b", CompareOptions{
		Weights: weights.Map{"color": 0.8, "dimensions.width": 0.7},
	})
	require.NoError(t, err)
	require.Len(t, result.PropertyComparisons, 2)

	color, width := result.PropertyComparisons[0], result.PropertyComparisons[1]
	assert.Equal(t, "color", color.Path)
	assert.Equal(t, 1.0, color.Similarity)
	assert.Equal(t, weights.ImportanceHigh, color.Importance)

	assert.Equal(t, "dimensions.width", width.Path)
	assert.InDelta(t, 1-20.0/3000, width.Similarity, 1e-9)
	assert.Equal(t, "mm", width.Unit)
	assert.Equal(t, weights.ImportanceMedium, width.Importance)

	want := (1*0.8 + (1-20.0/3000)*0.7) / 1.5
	assert.InDelta(t, want, result.OverallSimilarity, 1e-9)
	assert.Equal(t, []string{"a", "b"}, result.MaterialIDs)
	assert.Nil(t, result.PresetID)
	assert.NotEmpty(t, result.ID)

	history, err := c.ListComparisonResults(context.Background(), "a", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.ID, history[0].ID)
}

func TestComparePair_TypeMismatchScoresZero(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", Properties: map[string]any{"finish": "Matte"}},
		models.MaterialInput{ID: "b", Properties: map[string]any{"finish": 3}},
	)

	result, err := newService(c).ComparePair(context.Background(), "a", "b", CompareOptions{
		Weights: weights.Map{"finish": 5},
	})
	require.NoError(t, err)
	require.Len(t, result.PropertyComparisons, 1)
	assert.Equal(t, 0.0, result.PropertyComparisons[0].Similarity)
	assert.Equal(t, 0.0, result.OverallSimilarity)
}

func TestComparePair_ReflexiveAndSymmetric(t *testing.T) {
	props := map[string]any{
		"color":    "Beige",
		"finishes": []any{"matte", "honed"},
		"technicalSpecs": map[string]any{
			"hardness":       6,
			"frostResistant": true,
		},
	}
	c := newCatalog(t,
		models.MaterialInput{ID: "a", MaterialType: "tile", Properties: props},
		models.MaterialInput{ID: "b", MaterialType: "tile", Properties: map[string]any{
			"color":    "sand beige",
			"finishes": []any{"matte"},
			"technicalSpecs": map[string]any{
				"hardness":       4,
				"frostResistant": false,
			},
		}},
	)
	svc := newService(c)
	ctx := context.Background()

	self, err := svc.ComparePair(ctx, "a", "a", CompareOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, self.OverallSimilarity)

	ab, err := svc.ComparePair(ctx, "a", "b", CompareOptions{})
	require.NoError(t, err)
	ba, err := svc.ComparePair(ctx, "b", "a", CompareOptions{})
	require.NoError(t, err)
	assert.InDelta(t, ab.OverallSimilarity, ba.OverallSimilarity, 1e-12)
	assert.Greater(t, ab.OverallSimilarity, 0.0)
	assert.Less(t, ab.OverallSimilarity, 1.0)
}

func TestComparePair_SymmetricAcrossMaterialTypes(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "tile", MaterialType: "tile", Properties: map[string]any{
			"color":          "white",
			"technicalSpecs": map[string]any{"waterAbsorption": 0.5, "hardness": 6},
		}},
		models.MaterialInput{ID: "stone", MaterialType: "Stone", Properties: map[string]any{
			"color":          "ivory",
			"technicalSpecs": map[string]any{"waterAbsorption": 4.0, "hardness": 3},
		}},
	)
	tile := "tile"
	require.NoError(t, c.AddPreset(models.ComparisonPreset{
		ID: "tile-default", Name: "Tile default", MaterialType: &tile, IsDefault: true,
		Weights: weights.Map{"color": 0},
	}))
	svc := newService(c)
	ctx := context.Background()

	ab, err := svc.ComparePair(ctx, "tile", "stone", CompareOptions{})
	require.NoError(t, err)
	ba, err := svc.ComparePair(ctx, "stone", "tile", CompareOptions{})
	require.NoError(t, err)
	assert.InDelta(t, ab.OverallSimilarity, ba.OverallSimilarity, 1e-12)
	assert.Nil(t, ab.PresetID, "a default preset needs both materials to share its type")
	assert.Nil(t, ba.PresetID)

	for _, pc := range ab.PropertyComparisons {
		if pc.Path == "technicalSpecs.waterAbsorption" {
			assert.Equal(t, weights.DefaultWeight, pc.Weight, "no type table applies across types")
		}
	}

	many, err := svc.CompareMany(ctx, []string{"stone", "tile"}, CompareOptions{})
	require.NoError(t, err)
	require.Len(t, many, 1)
	assert.InDelta(t, ab.OverallSimilarity, many[0].OverallSimilarity, 1e-12)

	typed, err := svc.ComparePair(ctx, "stone", "tile", CompareOptions{MaterialType: "tile"})
	require.NoError(t, err)
	require.NotNil(t, typed.PresetID, "an explicit type still selects its default preset")
	assert.Equal(t, "tile-default", *typed.PresetID)
}

func TestComparePair_MissingValues(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", Properties: map[string]any{"color": "white", "origin": nil}},
		models.MaterialInput{ID: "b", Properties: map[string]any{"pattern": "veined", "color": "white"}},
	)

	result, err := newService(c).ComparePair(context.Background(), "a", "b", CompareOptions{})
	require.NoError(t, err)

	byPath := make(map[string]models.PropertyComparison)
	for _, pc := range result.PropertyComparisons {
		byPath[pc.Path] = pc
	}
	assert.NotContains(t, byPath, "origin", "missing on both sides is skipped")
	require.Contains(t, byPath, "pattern")
	assert.Equal(t, 0.0, byPath["pattern"].Similarity)
	assert.True(t, byPath["pattern"].Left.IsMissing())

	// color 0.9, pattern 0.7
	assert.InDelta(t, 0.9/1.6, result.OverallSimilarity, 1e-9)
}

func TestComparePair_IncludeExclude(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", Properties: map[string]any{
			"color":      "white",
			"dimensions": map[string]any{"width": 600, "length": 600},
		}},
		models.MaterialInput{ID: "b", Properties: map[string]any{
			"color":      "black",
			"dimensions": map[string]any{"width": 600, "length": 1200},
		}},
	)

	result, err := newService(c).ComparePair(context.Background(), "a", "b", CompareOptions{
		IncludePaths: []string{"dimensions"},
		ExcludePaths: []string{"dimensions.length"},
	})
	require.NoError(t, err)
	require.Len(t, result.PropertyComparisons, 1)
	assert.Equal(t, "dimensions.width", result.PropertyComparisons[0].Path)
	assert.Equal(t, 1.0, result.OverallSimilarity)
}

func TestComparePair_NotFound(t *testing.T) {
	c := newCatalog(t, models.MaterialInput{ID: "a", Properties: map[string]any{"color": "white"}})

	_, err := newService(c).ComparePair(context.Background(), "a", "ghost", CompareOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.ID)
}

type failingResults struct{}

func (failingResults) SaveComparisonResult(context.Context, *models.ComparisonResult) error {
	return errors.New("disk full")
}

func TestComparePair_PersistFailureIsNotFatal(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", Properties: map[string]any{"color": "white"}},
		models.MaterialInput{ID: "b", Properties: map[string]any{"color": "white"}},
	)
	m := metrics.NewCollector()
	svc := NewComparisonService(c, c, failingResults{}, ComparisonConfig{Logger: quietLogger(), Metrics: m})

	result, err := svc.ComparePair(context.Background(), "a", "b", CompareOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.OverallSimilarity)

	snap := m.Snapshot()
	require.NotNil(t, snap.Persist)
	assert.Equal(t, int64(1), snap.Persist.Failures)
	require.NotNil(t, snap.ComparePair)
	assert.Equal(t, int64(0), snap.ComparePair.Failures)
}

func TestComparePair_Presets(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", MaterialType: "tile", Properties: map[string]any{"color": "white", "pattern": "plain"}},
		models.MaterialInput{ID: "b", MaterialType: "tile", Properties: map[string]any{"color": "white", "pattern": "veined"}},
	)
	tile := "tile"
	require.NoError(t, c.AddPreset(models.ComparisonPreset{
		ID: "tile-default", Name: "Tile default", MaterialType: &tile, IsDefault: true,
		Weights: weights.Map{"pattern": 0},
	}))
	require.NoError(t, c.AddPreset(models.ComparisonPreset{
		ID: "colors", Name: "Colors only", IncludePaths: []string{"color"},
	}))
	svc := newService(c)
	ctx := context.Background()

	t.Run("default preset applies", func(t *testing.T) {
		result, err := svc.ComparePair(ctx, "a", "b", CompareOptions{})
		require.NoError(t, err)
		require.NotNil(t, result.PresetID)
		assert.Equal(t, "tile-default", *result.PresetID)
		assert.Equal(t, 1.0, result.OverallSimilarity, "pattern weight zeroed by preset")
	})

	t.Run("caller weights beat preset", func(t *testing.T) {
		result, err := svc.ComparePair(ctx, "a", "b", CompareOptions{Weights: weights.Map{"pattern": 1}})
		require.NoError(t, err)
		assert.Less(t, result.OverallSimilarity, 1.0)
	})

	t.Run("named preset", func(t *testing.T) {
		result, err := svc.ComparePair(ctx, "a", "b", CompareOptions{PresetID: "colors"})
		require.NoError(t, err)
		require.Len(t, result.PropertyComparisons, 1)
		assert.Equal(t, "color", result.PropertyComparisons[0].Path)
	})

	t.Run("unknown preset", func(t *testing.T) {
		_, err := svc.ComparePair(ctx, "a", "b", CompareOptions{PresetID: "nope"})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("invalid override", func(t *testing.T) {
		_, err := svc.ComparePair(ctx, "a", "b", CompareOptions{Weights: weights.Map{"color": -1}})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

// rawPresets serves presets without validating them, like a store holding
// rows written by another tool.
type rawPresets map[string]models.ComparisonPreset

func (r rawPresets) GetPreset(_ context.Context, id string) (*models.ComparisonPreset, error) {
	p, ok := r[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r rawPresets) ListPresets(context.Context, models.PresetFilter) ([]models.ComparisonPreset, error) {
	return nil, nil
}

func TestComparePair_MalformedPresetRejected(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", Properties: map[string]any{"color": "white"}},
		models.MaterialInput{ID: "b", Properties: map[string]any{"color": "white"}},
	)
	presets := rawPresets{"bad": {ID: "bad", Name: "Bad", Weights: weights.Map{"color": -2}}}
	svc := NewComparisonService(c, presets, nil, ComparisonConfig{Logger: quietLogger()})

	_, err := svc.ComparePair(context.Background(), "a", "b", CompareOptions{PresetID: "bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.ComparePair(context.Background(), "a", "b", CompareOptions{PresetID: "absent"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCompareMany(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "a", Properties: map[string]any{"color": "white"}},
		models.MaterialInput{ID: "b", Properties: map[string]any{"color": "white"}},
		models.MaterialInput{ID: "c", Properties: map[string]any{"color": "black"}},
	)
	svc := newService(c)

	var mu sync.Mutex
	var calls []int
	results, err := svc.CompareMany(context.Background(), []string{"a", "b", "c", "a"}, CompareOptions{
		OnProgress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 3, total)
			calls = append(calls, done)
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"a", "b"}, results[0].MaterialIDs)
	assert.Equal(t, []string{"a", "c"}, results[1].MaterialIDs)
	assert.Equal(t, []string{"b", "c"}, results[2].MaterialIDs)
	assert.Equal(t, 1.0, results[0].OverallSimilarity)
	assert.Less(t, results[1].OverallSimilarity, 1.0)
	assert.ElementsMatch(t, []int{1, 2, 3}, calls)

	history, err := c.ListComparisonResults(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestCompareMany_NeedsTwoIDs(t *testing.T) {
	svc := newService(newCatalog(t, models.MaterialInput{ID: "a"}))

	for _, ids := range [][]string{nil, {"a"}, {"a", "a"}} {
		_, err := svc.CompareMany(context.Background(), ids, CompareOptions{})
		assert.ErrorIs(t, err, errs.ErrValidation, "ids=%v", ids)
	}
}

func TestFindSimilar(t *testing.T) {
	c := newCatalog(t,
		models.MaterialInput{ID: "ref", Properties: map[string]any{"color": "white", "pattern": "plain"}},
		models.MaterialInput{ID: "twin-b", Properties: map[string]any{"color": "white", "pattern": "plain"}},
		models.MaterialInput{ID: "twin-a", Properties: map[string]any{"color": "white", "pattern": "plain"}},
		models.MaterialInput{ID: "far", Properties: map[string]any{"color": "anthracite", "pattern": "veined"}},
		models.MaterialInput{ID: "near", Properties: map[string]any{"color": "white", "pattern": "veined"}},
	)
	svc := newService(c)
	ctx := context.Background()

	matches, err := svc.FindSimilar(ctx, "ref", []string{"far", "twin-b", "near", "twin-a", "ref", "near"}, 0, CompareOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 4, "reference and duplicates are skipped")

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.CandidateID
	}
	assert.Equal(t, []string{"twin-a", "twin-b", "near", "far"}, ids)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}

	top, err := svc.FindSimilar(ctx, "ref", []string{"far", "near", "twin-a"}, 2, CompareOptions{})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "twin-a", top[0].CandidateID)
	assert.Equal(t, "near", top[1].CandidateID)

	history, err := c.ListComparisonResults(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, history, "similarity search does not record results")
}

func TestFindSimilar_Cancelled(t *testing.T) {
	inputs := []models.MaterialInput{{ID: "ref", Properties: map[string]any{"color": "white"}}}
	candidates := make([]string, 0, 50)
	for i := range 50 {
		id := fmt.Sprintf("cand-%02d", i)
		inputs = append(inputs, models.MaterialInput{ID: id, Properties: map[string]any{"color": "grey"}})
		candidates = append(candidates, id)
	}
	svc := newService(newCatalog(t, inputs...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matches, err := svc.FindSimilar(ctx, "ref", candidates, 10, CompareOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, matches)
}

func TestFindSimilar_CancelledWhileRanking(t *testing.T) {
	const n = 50
	inputs := []models.MaterialInput{{ID: "ref", Properties: map[string]any{"color": "white"}}}
	candidates := make([]string, 0, n)
	for i := range n {
		id := fmt.Sprintf("cand-%02d", i)
		inputs = append(inputs, models.MaterialInput{ID: id, Properties: map[string]any{"color": "grey"}})
		candidates = append(candidates, id)
	}
	c := newCatalog(t, inputs...)
	svc := NewComparisonService(c, c, c, ComparisonConfig{Workers: 2, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var scored atomic.Int64
	matches, err := svc.FindSimilar(ctx, "ref", candidates, 10, CompareOptions{
		OnProgress: func(done, total int) {
			scored.Add(1)
			if done >= 5 {
				cancel()
			}
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, matches)
	assert.GreaterOrEqual(t, scored.Load(), int64(5))
	assert.Less(t, scored.Load(), int64(n), "workers stop picking up candidates once cancelled")
}

// countingMaterials records the filter passed to ListCandidates.
type countingMaterials struct {
	*catalog.Catalog
	last models.CandidateFilter
}

func (c *countingMaterials) ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Material, error) {
	c.last = f
	return c.Catalog.ListCandidates(ctx, f)
}

func TestFindSimilarInCatalog(t *testing.T) {
	cat := newCatalog(t,
		models.MaterialInput{ID: "ref", MaterialType: "tile", Properties: map[string]any{"color": "white"}},
		models.MaterialInput{ID: "t1", MaterialType: "tile", Properties: map[string]any{"color": "white"}},
		models.MaterialInput{ID: "t2", MaterialType: "tile", Properties: map[string]any{"color": "ivory"}},
		models.MaterialInput{ID: "w1", MaterialType: "wood", Properties: map[string]any{"color": "white"}},
	)
	store := &countingMaterials{Catalog: cat}
	svc := NewComparisonService(store, cat, cat, ComparisonConfig{Overfetch: 4, Logger: quietLogger()})
	ctx := context.Background()

	matches, err := svc.FindSimilarInCatalog(ctx, "ref", models.CandidateFilter{MaterialType: "tile"}, 1, CompareOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "t1", matches[0].CandidateID)

	assert.Equal(t, 4, store.last.Limit)
	assert.Contains(t, store.last.ExcludeIDs, "ref")

	_, err = svc.FindSimilarInCatalog(ctx, "ref", models.CandidateFilter{MaterialType: "plasma"}, 1, CompareOptions{})
	assert.ErrorIs(t, err, errs.ErrValidation)
}
