package cli

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/raphaelgruber/matsim/internal/catalog"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage comparison presets",
	Long: `Manage comparison presets: named weight maps and path filters.

Subcommands:
  list      List presets
  add       Add or replace presets from a YAML file
  validate  Check a preset file without storing it

A preset file holds a "presets:" list in catalog file layout:

  presets:
    - id: tile-technical
      name: Tile technical
      material_type: tile
      is_default: true
      weights: {technicalSpecs: 0.95, color: 0.5}
      exclude_paths: [pattern]

Examples:
  matsim presets list --type tile
  matsim presets add -f presets.yaml
  matsim presets validate -f presets.yaml`,
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets",
	RunE:  runPresetsList,
}

var presetsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or replace presets from a YAML file",
	RunE:  runPresetsAdd,
}

var presetsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a preset file",
	RunE:  runPresetsValidate,
}

var (
	presetsType string
	presetsFile string
	presetsJSON bool
)

func init() {
	presetsListCmd.Flags().StringVarP(&presetsType, "type", "t", "", "only presets applying to this material type")
	presetsListCmd.Flags().BoolVar(&presetsJSON, "json", false, "print JSON")

	for _, c := range []*cobra.Command{presetsAddCmd, presetsValidateCmd} {
		c.Flags().StringVarP(&presetsFile, "file", "f", "", "YAML preset file (required)")
		_ = c.MarkFlagRequired("file")
	}

	presetsCmd.AddCommand(presetsListCmd)
	presetsCmd.AddCommand(presetsAddCmd)
	presetsCmd.AddCommand(presetsValidateCmd)
}

func runPresetsList(cmd *cobra.Command, args []string) error {
	presets, err := st.ListPresets(cmd.Context(), models.PresetFilter{MaterialType: presetsType})
	if err != nil {
		return fmt.Errorf("list presets: %w", err)
	}

	out := cmd.OutOrStdout()
	if presetsJSON {
		return writeJSON(out, presets)
	}
	if len(presets) == 0 {
		fmt.Fprintln(out, "No presets found.")
		return nil
	}

	fmt.Fprintf(out, "Presets (%d):\n\n", len(presets))
	for _, p := range presets {
		line := fmt.Sprintf("- %s: %s", p.ID, p.Name)
		if t := p.MaterialTypeOrEmpty(); t != "" {
			line += " [" + t + "]"
		}
		if p.IsDefault {
			line += " (default)"
		}
		fmt.Fprintln(out, line)
		if p.Description != nil && *p.Description != "" {
			fmt.Fprintf(out, "  %s\n", *p.Description)
		}
		if verbose {
			for _, path := range slices.Sorted(maps.Keys(p.Weights)) {
				fmt.Fprintf(out, "  %s = %.2f\n", path, p.Weights[path])
			}
		}
	}
	return nil
}

// readPresetFile decodes a preset file and validates every preset,
// collecting all problems.
func readPresetFile(path string) ([]models.ComparisonPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	var f catalog.File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse preset file: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, errors.New("no presets in file")
	}

	var result *multierror.Error
	for _, p := range f.Presets {
		if err := p.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("preset %q: %w", p.ID, err))
		}
	}
	return f.Presets, result.ErrorOrNil()
}

func runPresetsValidate(cmd *cobra.Command, args []string) error {
	presets, err := readPresetFile(presetsFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d presets valid\n", len(presets))
	return nil
}

func runPresetsAdd(cmd *cobra.Command, args []string) error {
	presets, err := readPresetFile(presetsFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range presets {
		if _, err := st.UpsertPreset(cmd.Context(), p); err != nil {
			return fmt.Errorf("store preset %s: %w", p.ID, err)
		}
		fmt.Fprintf(out, "✓ %s\n", p.ID)
	}
	return st.Flush()
}
