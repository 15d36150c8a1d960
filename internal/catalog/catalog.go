// Package catalog provides an in-memory material, preset and result store
// loaded from a YAML catalog file.
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog layout.
//
//	materials:
//	  - id: tile-001
//	    name: Carrara Look 60x120
//	    material_type: tile
//	    properties:
//	      color: White
//	      dimensions: {width: 600, length: 1200}
//	presets:
//	  - id: tile-technical
//	    name: Tile technical
//	    material_type: tile
//	    weights: {technicalSpecs: 0.9}
type File struct {
	Materials []models.MaterialInput    `yaml:"materials"`
	Presets   []models.ComparisonPreset `yaml:"presets"`
}

// Catalog is a thread-safe in-memory store.
type Catalog struct {
	mu        sync.RWMutex
	materials map[string]*models.Material
	presets   map[string]models.ComparisonPreset
	results   []models.ComparisonResult
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		materials: make(map[string]*models.Material),
		presets:   make(map[string]models.ComparisonPreset),
	}
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog. Materials with non-tree property bags and
// invalid presets are rejected.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	c := New()
	for _, in := range f.Materials {
		if err := c.AddMaterial(in); err != nil {
			return nil, err
		}
	}
	for _, p := range f.Presets {
		if err := c.AddPreset(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddMaterial converts and stores a material, replacing any with the same id.
func (c *Catalog) AddMaterial(in models.MaterialInput) error {
	if in.ID == "" {
		return errs.Invalid("id", "material id is required")
	}
	m, err := in.ToMaterial()
	if err != nil {
		return fmt.Errorf("material %s: %w", in.ID, err)
	}
	now := time.Now().UTC()
	m.Created, m.Updated = now, now

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.materials[m.ID]; ok {
		m.Created = prev.Created
	}
	c.materials[m.ID] = m
	return nil
}

// AddPreset validates and stores a preset, replacing any with the same id.
func (c *Catalog) AddPreset(p models.ComparisonPreset) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("preset %q: %w", p.ID, err)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	c.mu.Lock()
	defer c.mu.Unlock()
	c.presets[p.ID] = p
	return nil
}

// UpsertMaterial is AddMaterial returning the stored material.
func (c *Catalog) UpsertMaterial(ctx context.Context, in models.MaterialInput) (*models.Material, error) {
	if err := c.AddMaterial(in); err != nil {
		return nil, err
	}
	return c.GetMaterial(ctx, in.ID)
}

// DeleteMaterial removes materials by id and returns how many existed.
func (c *Catalog) DeleteMaterial(_ context.Context, ids ...string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := c.materials[id]; ok {
			delete(c.materials, id)
			deleted++
		}
	}
	return deleted, nil
}

// UpsertPreset is AddPreset returning the stored preset.
func (c *Catalog) UpsertPreset(ctx context.Context, p models.ComparisonPreset) (*models.ComparisonPreset, error) {
	if err := c.AddPreset(p); err != nil {
		return nil, err
	}
	return c.GetPreset(ctx, p.ID)
}

// GetMaterial returns the material with id.
func (c *Catalog) GetMaterial(_ context.Context, id string) (*models.Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.materials[id]
	if !ok {
		return nil, errs.NotFound("material", id)
	}
	return m, nil
}

// ListMaterials returns every material of materialType ("" for all), sorted by id.
func (c *Catalog) ListMaterials(ctx context.Context, materialType string) ([]models.Material, error) {
	return c.ListCandidates(ctx, models.CandidateFilter{MaterialType: materialType})
}

// ListCandidates returns materials matching filter, sorted by id.
func (c *Catalog) ListCandidates(_ context.Context, filter models.CandidateFilter) ([]models.Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Material, 0, len(c.materials))
	for _, m := range c.materials {
		if filter.MaterialType != "" && !strings.EqualFold(m.MaterialType, filter.MaterialType) {
			continue
		}
		if slices.Contains(filter.ExcludeIDs, m.ID) {
			continue
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b models.Material) int { return cmp.Compare(a.ID, b.ID) })

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetPreset returns the preset with id.
func (c *Catalog) GetPreset(_ context.Context, id string) (*models.ComparisonPreset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.presets[id]
	if !ok {
		return nil, errs.NotFound("preset", id)
	}
	return &p, nil
}

// ListPresets returns presets matching filter: defaults first, then by id.
// A preset without a material type matches every material type.
func (c *Catalog) ListPresets(_ context.Context, filter models.PresetFilter) ([]models.ComparisonPreset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.ComparisonPreset, 0, len(c.presets))
	for _, p := range c.presets {
		if filter.DefaultOnly && !p.IsDefault {
			continue
		}
		if filter.MaterialType != "" && p.MaterialType != nil && !strings.EqualFold(*p.MaterialType, filter.MaterialType) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.ComparisonPreset) int {
		if a.IsDefault != b.IsDefault {
			if a.IsDefault {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// File returns the catalog contents in file layout, sorted by id.
// Comparison results are not part of the file.
func (c *Catalog) File() File {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f := File{
		Materials: make([]models.MaterialInput, 0, len(c.materials)),
		Presets:   make([]models.ComparisonPreset, 0, len(c.presets)),
	}
	for _, m := range c.materials {
		f.Materials = append(f.Materials, models.MaterialInput{
			ID:           m.ID,
			Name:         m.Name,
			MaterialType: m.MaterialType,
			Properties:   m.Properties.Native(),
		})
	}
	for _, p := range c.presets {
		f.Presets = append(f.Presets, p)
	}
	slices.SortFunc(f.Materials, func(a, b models.MaterialInput) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(f.Presets, func(a, b models.ComparisonPreset) int { return cmp.Compare(a.ID, b.ID) })
	return f
}

// Save writes the catalog to path as YAML, replacing the file.
func (c *Catalog) Save(path string) error {
	data, err := yaml.Marshal(c.File())
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// SaveComparisonResult appends result to the in-memory history.
func (c *Catalog) SaveComparisonResult(_ context.Context, result *models.ComparisonResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, *result)
	return nil
}

// ListComparisonResults returns saved results involving materialID, newest first.
func (c *Catalog) ListComparisonResults(_ context.Context, materialID string, limit int) ([]models.ComparisonResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.ComparisonResult
	for i := len(c.results) - 1; i >= 0; i-- {
		r := c.results[i]
		if materialID == "" || slices.Contains(r.MaterialIDs, materialID) {
			out = append(out, r)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
