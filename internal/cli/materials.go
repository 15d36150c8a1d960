package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/matsim/internal/catalog"
	"github.com/raphaelgruber/matsim/internal/datasheet"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/property"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "Manage catalog materials",
	Long: `Manage catalog materials.

Subcommands:
  list    List materials
  import  Add or replace materials from a YAML file or Markdown data sheet
  delete  Delete materials

An import file holds a "materials:" list in catalog file layout:

  materials:
    - id: tile-001
      name: Carrara Look 60x120
      material_type: tile
      properties:
        color: White
        dimensions: {width: 600, length: 1200, thickness: 9}
        technicalSpecs: {waterAbsorption: 0.1, frostResistant: true}

A Markdown data sheet (.md) describes one material: identity in frontmatter,
properties as "- key: value" items or two-column tables under headings.

Examples:
  matsim materials list --type tile
  matsim materials import -f tiles.yaml
  matsim materials import -f carrara.md
  matsim materials delete tile-001`,
}

var materialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List materials",
	RunE:  runMaterialsList,
}

var materialsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Add or replace materials from a YAML file",
	RunE:  runMaterialsImport,
}

var materialsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete materials",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMaterialsDelete,
}

var (
	materialsType string
	materialsFile string
	materialsJSON bool
)

func init() {
	materialsListCmd.Flags().StringVarP(&materialsType, "type", "t", "", "filter by material type")
	materialsListCmd.Flags().BoolVar(&materialsJSON, "json", false, "print JSON")
	materialsImportCmd.Flags().StringVarP(&materialsFile, "file", "f", "", "YAML material file (required)")
	_ = materialsImportCmd.MarkFlagRequired("file")

	materialsCmd.AddCommand(materialsListCmd)
	materialsCmd.AddCommand(materialsImportCmd)
	materialsCmd.AddCommand(materialsDeleteCmd)
}

func runMaterialsList(cmd *cobra.Command, args []string) error {
	materials, err := st.ListMaterials(cmd.Context(), materialsType)
	if err != nil {
		return fmt.Errorf("list materials: %w", err)
	}

	out := cmd.OutOrStdout()
	if materialsJSON {
		return writeJSON(out, materials)
	}
	if len(materials) == 0 {
		fmt.Fprintln(out, "No materials found.")
		return nil
	}

	fmt.Fprintf(out, "Materials (%d):\n\n", len(materials))
	for _, m := range materials {
		line := "- " + m.ID
		if m.Name != "" {
			line += ": " + m.Name
		}
		if m.MaterialType != "" {
			line += " [" + m.MaterialType + "]"
		}
		fmt.Fprintln(out, line)
		if verbose {
			flat := property.Flatten(m.Properties)
			for _, path := range property.Paths(flat) {
				fmt.Fprintf(out, "  %s: %s\n", path, flat[path])
			}
		}
	}
	return nil
}

func runMaterialsImport(cmd *cobra.Command, args []string) error {
	inputs, err := readMaterialFile(materialsFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	imported := 0
	for _, in := range inputs {
		if _, err := st.UpsertMaterial(cmd.Context(), in); err != nil {
			logger.Warn("skipping material", "id", in.ID, "error", err)
			fmt.Fprintln(out, defaultTheme.errorStyle().Render("✗ "+in.ID+": "+err.Error()))
			continue
		}
		imported++
	}
	if err := st.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Imported %d of %d materials\n", imported, len(inputs))
	if imported < len(inputs) {
		return fmt.Errorf("%d materials rejected", len(inputs)-imported)
	}
	return nil
}

// readMaterialFile reads a YAML material list, or a single Markdown data
// sheet when the file ends in .md.
func readMaterialFile(path string) ([]models.MaterialInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read material file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".md") {
		in, err := datasheet.ParseMaterial(string(data))
		if err != nil {
			return nil, fmt.Errorf("data sheet %s: %w", path, err)
		}
		return []models.MaterialInput{in}, nil
	}

	var f catalog.File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse material file: %w", err)
	}
	if len(f.Materials) == 0 {
		return nil, errors.New("no materials in file")
	}
	return f.Materials, nil
}

func runMaterialsDelete(cmd *cobra.Command, args []string) error {
	n, err := st.DeleteMaterial(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("delete materials: %w", err)
	}
	if err := st.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d materials\n", n)
	return nil
}
