package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// firstResult returns the rows of the first statement, or nil.
func firstResult[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return nil
	}
	return (*results)[0].Result
}

// =============================================================================
// MATERIALS
// =============================================================================

// GetMaterial retrieves a material by ID.
// Returns an errs.NotFoundError if it does not exist.
func (c *Client) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	results, err := surrealdb.Query[[]materialRow](ctx, c.db, `
		SELECT * FROM type::record("material", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get material: %w", wrapQueryError(err))
	}

	rows := firstResult(results)
	if len(rows) == 0 {
		return nil, errs.NotFound("material", id)
	}
	return rows[0].toModel()
}

// ListCandidates returns materials matching filter ordered by ID.
// The material type comparison is case-insensitive.
func (c *Client) ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]models.Material, error) {
	var where []string
	vars := map[string]any{}
	if filter.MaterialType != "" {
		where = append(where, "string::lowercase(material_type ?? '') = $material_type")
		vars["material_type"] = strings.ToLower(filter.MaterialType)
	}
	if len(filter.ExcludeIDs) > 0 {
		where = append(where, "record::id(id) NOT IN $exclude")
		vars["exclude"] = filter.ExcludeIDs
	}

	sql := "SELECT * FROM material"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY id"
	if filter.Limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = filter.Limit
	}

	results, err := surrealdb.Query[[]materialRow](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", wrapQueryError(err))
	}

	rows := firstResult(results)
	out := make([]models.Material, 0, len(rows))
	for _, r := range rows {
		m, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// ListMaterials returns every material of materialType ("" for all).
func (c *Client) ListMaterials(ctx context.Context, materialType string) ([]models.Material, error) {
	return c.ListCandidates(ctx, models.CandidateFilter{MaterialType: materialType})
}

// UpsertMaterial creates or replaces a material. The property bag is
// checked before it is written so malformed bags never reach the table.
func (c *Client) UpsertMaterial(ctx context.Context, in models.MaterialInput) (*models.Material, error) {
	if in.ID == "" {
		return nil, errs.Invalid("id", "material id is required")
	}
	m, err := in.ToMaterial()
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", in.ID, err)
	}

	var materialType *string
	if m.MaterialType != "" {
		materialType = &m.MaterialType
	}

	results, err := surrealdb.Query[[]materialRow](ctx, c.db, `
		UPSERT type::record("material", $id) SET
			name = $name,
			material_type = $material_type,
			properties = $properties,
			created = IF created THEN created ELSE time::now() END,
			updated = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":            m.ID,
		"name":          m.Name,
		"material_type": materialType,
		"properties":    m.Properties.Native(),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert material: %w", wrapQueryError(err))
	}

	rows := firstResult(results)
	if len(rows) == 0 {
		return nil, fmt.Errorf("upsert material: no result returned")
	}
	return rows[0].toModel()
}

// DeleteMaterial removes materials by ID and returns how many existed.
func (c *Client) DeleteMaterial(ctx context.Context, ids ...string) (int, error) {
	deleted := 0
	for _, id := range ids {
		results, err := surrealdb.Query[[]materialRow](ctx, c.db, `
			DELETE type::record("material", $id) RETURN BEFORE
		`, map[string]any{"id": id})
		if err != nil {
			return deleted, fmt.Errorf("delete material: %w", wrapQueryError(err))
		}
		deleted += len(firstResult(results))
	}
	return deleted, nil
}

// =============================================================================
// PRESETS
// =============================================================================

// GetPreset retrieves a preset by ID.
// Returns an errs.NotFoundError if it does not exist.
func (c *Client) GetPreset(ctx context.Context, id string) (*models.ComparisonPreset, error) {
	results, err := surrealdb.Query[[]presetRow](ctx, c.db, `
		SELECT * FROM type::record("comparison_preset", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get preset: %w", wrapQueryError(err))
	}

	rows := firstResult(results)
	if len(rows) == 0 {
		return nil, errs.NotFound("preset", id)
	}
	return rows[0].toModel()
}

// ListPresets returns presets matching filter, defaults first, then by ID.
// Presets without a material type match every material type.
func (c *Client) ListPresets(ctx context.Context, filter models.PresetFilter) ([]models.ComparisonPreset, error) {
	var where []string
	vars := map[string]any{}
	if filter.MaterialType != "" {
		where = append(where, "(material_type = NONE OR string::lowercase(material_type) = $material_type)")
		vars["material_type"] = strings.ToLower(filter.MaterialType)
	}
	if filter.DefaultOnly {
		where = append(where, "is_default = true")
	}

	sql := "SELECT * FROM comparison_preset"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY is_default DESC, id"

	results, err := surrealdb.Query[[]presetRow](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", wrapQueryError(err))
	}

	rows := firstResult(results)
	out := make([]models.ComparisonPreset, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// UpsertPreset validates and stores a preset.
func (c *Client) UpsertPreset(ctx context.Context, p models.ComparisonPreset) (*models.ComparisonPreset, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("preset %q: %w", p.ID, err)
	}

	include, exclude := p.IncludePaths, p.ExcludePaths
	if include == nil {
		include = []string{}
	}
	if exclude == nil {
		exclude = []string{}
	}
	w := map[string]float64(p.Weights)
	if w == nil {
		w = map[string]float64{}
	}

	results, err := surrealdb.Query[[]presetRow](ctx, c.db, `
		UPSERT type::record("comparison_preset", $id) SET
			name = $name,
			description = $description,
			weights = $weights,
			material_type = $material_type,
			include_paths = $include_paths,
			exclude_paths = $exclude_paths,
			is_default = $is_default,
			created_at = IF created_at THEN created_at ELSE time::now() END,
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":            p.ID,
		"name":          p.Name,
		"description":   p.Description,
		"weights":       w,
		"material_type": p.MaterialType,
		"include_paths": include,
		"exclude_paths": exclude,
		"is_default":    p.IsDefault,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert preset: %w", wrapQueryError(err))
	}

	rows := firstResult(results)
	if len(rows) == 0 {
		return nil, fmt.Errorf("upsert preset: no result returned")
	}
	return rows[0].toModel()
}

// =============================================================================
// COMPARISON RESULTS
// =============================================================================

// SaveComparisonResult stores a comparison result under its own ID.
func (c *Client) SaveComparisonResult(ctx context.Context, result *models.ComparisonResult) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("comparison_result", $id) CONTENT {
			material_ids: $material_ids,
			overall_similarity: $overall_similarity,
			property_comparisons: $property_comparisons,
			preset_id: $preset_id,
			created_at: $created_at
		}
	`, map[string]any{
		"id":                   result.ID,
		"material_ids":         result.MaterialIDs,
		"overall_similarity":   result.OverallSimilarity,
		"property_comparisons": comparisonRows(result.PropertyComparisons),
		"preset_id":            result.PresetID,
		"created_at":           result.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("save comparison result: %w", wrapQueryError(err))
	}
	return nil
}

// ListComparisonResults returns stored results involving materialID ("" for
// all), newest first. A limit <= 0 returns every result.
func (c *Client) ListComparisonResults(ctx context.Context, materialID string, limit int) ([]models.ComparisonResult, error) {
	vars := map[string]any{}
	sql := "SELECT * FROM comparison_result"
	if materialID != "" {
		sql += " WHERE material_ids CONTAINS $material_id"
		vars["material_id"] = materialID
	}
	sql += " ORDER BY created_at DESC"
	if limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = limit
	}

	results, err := surrealdb.Query[[]resultRow](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list comparison results: %w", wrapQueryError(err))
	}

	rows := firstResult(results)
	out := make([]models.ComparisonResult, 0, len(rows))
	for _, r := range rows {
		res, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}
