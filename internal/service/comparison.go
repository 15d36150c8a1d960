// Package service provides the material comparison engine: pairwise and
// N-way comparison and similarity search over a catalog.
package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/metrics"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/weights"
)

const (
	defaultFetchConcurrency = 8
	defaultOverfetch        = 3
)

// ComparisonConfig tunes a ComparisonService. Zero values pick defaults.
type ComparisonConfig struct {
	Workers          int // compute pool size, default runtime.NumCPU()
	FetchConcurrency int // concurrent store fetches, default 8
	Overfetch        int // candidate over-fetch factor for catalog search, default 3
	Logger           *slog.Logger
	Metrics          *metrics.Collector
}

// CompareOptions configures a single comparison call.
type CompareOptions struct {
	// PresetID names a stored preset. When empty, the default preset for the
	// material type is used if the preset store has one.
	PresetID string
	// MaterialType selects the material-type weight table; defaults to the
	// preset's material type, then the reference material's.
	MaterialType string
	// Weights override every other weight source.
	Weights weights.Map
	// IncludePaths and ExcludePaths replace the preset's filters when non-empty.
	IncludePaths []string
	ExcludePaths []string
	// OnProgress is called after each pair or candidate is scored. It may be
	// called from several goroutines.
	OnProgress func(done, total int)
}

// ComparisonService orchestrates fetching, weighting, comparison and ranking.
// It holds no mutable state; all methods are safe for concurrent use.
type ComparisonService struct {
	materials MaterialStore
	presets   PresetStore
	results   ResultStore

	workers          int
	fetchConcurrency int
	overfetch        int
	logger           *slog.Logger
	metrics          *metrics.Collector

	now   func() time.Time
	newID func() string
}

// NewComparisonService creates a comparison service. presets and results may
// be nil: comparisons then run without presets and are not persisted.
func NewComparisonService(materials MaterialStore, presets PresetStore, results ResultStore, cfg ComparisonConfig) *ComparisonService {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = defaultFetchConcurrency
	}
	if cfg.Overfetch <= 0 {
		cfg.Overfetch = defaultOverfetch
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ComparisonService{
		materials:        materials,
		presets:          presets,
		results:          results,
		workers:          cfg.Workers,
		fetchConcurrency: cfg.FetchConcurrency,
		overfetch:        cfg.Overfetch,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		now:              time.Now,
		newID:            func() string { return uuid.New().String() },
	}
}

// ComparePair compares two materials and records the result.
// The material-type table and default preset apply only when both materials
// share a type, so swapping the arguments gives the same score.
// A failure to record the result is logged and does not fail the call.
func (s *ComparisonService) ComparePair(ctx context.Context, idA, idB string, opts CompareOptions) (result *models.ComparisonResult, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpComparePair, start, 1, err) }()

	mats, err := s.fetchMaterials(ctx, []string{idA, idB})
	if err != nil {
		return nil, err
	}

	p, err := s.resolvePlan(ctx, opts, sharedType(mats[0], mats[1]))
	if err != nil {
		return nil, err
	}

	result = s.compare(mats[0], mats[1], p)
	if opts.OnProgress != nil {
		opts.OnProgress(1, 1)
	}
	s.persist(ctx, result)

	s.logger.Debug("compared materials",
		"material_ids", result.MaterialIDs,
		"overall_similarity", result.OverallSimilarity,
		"properties", len(result.PropertyComparisons),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// CompareMany compares every unordered pair of ids. Results follow input
// order: (0,1), (0,2), ..., (1,2), ... Duplicate ids are ignored; fewer than
// two distinct ids is a validation error.
func (s *ComparisonService) CompareMany(ctx context.Context, ids []string, opts CompareOptions) (results []*models.ComparisonResult, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpCompareMany, start, len(results), err) }()

	ids = dedupe(ids)
	if len(ids) < 2 {
		return nil, errs.Invalid("ids", "at least 2 distinct material ids required, got %d", len(ids))
	}

	mats, err := s.fetchMaterials(ctx, ids)
	if err != nil {
		return nil, err
	}

	type pair struct{ a, b int }
	pairs := make([]pair, 0, len(ids)*(len(ids)-1)/2)
	for i := range mats {
		for j := i + 1; j < len(mats); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	// A pair's plan depends only on the type the two materials share, so
	// resolve one plan per distinct shared type.
	plansByType := make(map[string]plan)
	plans := make([]plan, len(pairs))
	for k, pr := range pairs {
		t := sharedType(mats[pr.a], mats[pr.b])
		p, ok := plansByType[t]
		if !ok {
			if p, err = s.resolvePlan(ctx, opts, t); err != nil {
				return nil, err
			}
			plansByType[t] = p
		}
		plans[k] = p
	}

	results = make([]*models.ComparisonResult, len(pairs))
	err = s.parallel(ctx, len(pairs), opts.OnProgress, func(k int) {
		pr := pairs[k]
		results[k] = s.compare(mats[pr.a], mats[pr.b], plans[k])
	})
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		s.persist(ctx, r)
	}
	return results, nil
}

// FindSimilar ranks candidateIDs by similarity to referenceID and returns
// the top limit matches (all of them when limit <= 0). Ties are broken by
// candidate id. The reference itself and duplicate candidates are skipped.
// Weights and the default preset follow the reference's material type.
// Rankings are not recorded in the result store.
// On cancellation partial results are discarded and ctx.Err() is returned.
func (s *ComparisonService) FindSimilar(ctx context.Context, referenceID string, candidateIDs []string, limit int, opts CompareOptions) ([]models.SimilarMatch, error) {
	ids := make([]string, 0, len(candidateIDs)+1)
	ids = append(ids, referenceID)
	for _, id := range dedupe(candidateIDs) {
		if id != referenceID {
			ids = append(ids, id)
		}
	}

	mats, err := s.fetchMaterials(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.rank(ctx, mats[0], mats[1:], limit, opts)
}

// FindSimilarInCatalog asks the material store for candidates matching
// filter and ranks them against referenceID. The store is asked for
// limit × over-fetch candidates so that post-filtering still leaves enough.
func (s *ComparisonService) FindSimilarInCatalog(ctx context.Context, referenceID string, filter models.CandidateFilter, limit int, opts CompareOptions) ([]models.SimilarMatch, error) {
	if err := weights.ValidateMaterialType("material_type", filter.MaterialType); err != nil {
		return nil, err
	}

	mats, err := s.fetchMaterials(ctx, []string{referenceID})
	if err != nil {
		return nil, err
	}
	ref := mats[0]

	filter.ExcludeIDs = append(slices.Clone(filter.ExcludeIDs), ref.ID)
	if limit > 0 {
		filter.Limit = limit * s.overfetch
	}

	fetchStart := time.Now()
	found, err := s.materials.ListCandidates(ctx, filter)
	s.record(metrics.OpFetch, fetchStart, len(found), err)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	candidates := make([]*models.Material, 0, len(found))
	for i := range found {
		if found[i].ID != ref.ID && !slices.Contains(filter.ExcludeIDs, found[i].ID) {
			candidates = append(candidates, &found[i])
		}
	}
	return s.rank(ctx, ref, candidates, limit, opts)
}

func (s *ComparisonService) rank(ctx context.Context, ref *models.Material, candidates []*models.Material, limit int, opts CompareOptions) (matches []models.SimilarMatch, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpFindSimilar, start, len(candidates), err) }()

	p, err := s.resolvePlan(ctx, opts, ref.MaterialType)
	if err != nil {
		return nil, err
	}

	matches = make([]models.SimilarMatch, len(candidates))
	err = s.parallel(ctx, len(candidates), opts.OnProgress, func(i int) {
		c := candidates[i]
		comps := CompareProperties(ref.Properties, c.Properties, p.Plan)
		matches[i] = models.SimilarMatch{
			CandidateID: c.ID,
			Name:        c.Name,
			Similarity:  Aggregate(comps),
			Comparisons: comps,
		}
	})
	if err != nil {
		return nil, err
	}

	return topMatches(matches, limit), nil
}

// topMatches sorts by descending similarity, then ascending candidate id,
// and keeps the first limit entries.
func topMatches(matches []models.SimilarMatch, limit int) []models.SimilarMatch {
	slices.SortFunc(matches, func(a, b models.SimilarMatch) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.CandidateID, b.CandidateID)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (s *ComparisonService) compare(a, b *models.Material, p plan) *models.ComparisonResult {
	comps := CompareProperties(a.Properties, b.Properties, p.Plan)
	return &models.ComparisonResult{
		ID:                  s.newID(),
		MaterialIDs:         []string{a.ID, b.ID},
		OverallSimilarity:   Aggregate(comps),
		PropertyComparisons: comps,
		PresetID:            p.presetID,
		CreatedAt:           s.now().UTC(),
	}
}

func (s *ComparisonService) persist(ctx context.Context, result *models.ComparisonResult) {
	if s.results == nil {
		return
	}
	start := time.Now()
	err := s.results.SaveComparisonResult(ctx, result)
	s.record(metrics.OpPersist, start, 1, err)
	if err != nil {
		s.logger.Warn("failed to persist comparison result",
			"result_id", result.ID,
			"material_ids", result.MaterialIDs,
			"error", &errs.PersistError{ResultID: result.ID, Err: err},
		)
	}
}

func (s *ComparisonService) record(op string, start time.Time, items int, err error) {
	if s.metrics != nil {
		s.metrics.Record(op, time.Since(start), items, err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
