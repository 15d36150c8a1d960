package cli

import (
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	json "github.com/goccy/go-json"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/weights"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Title  lipgloss.Color
	High   lipgloss.Color
	Medium lipgloss.Color
	Low    lipgloss.Color
	Error  lipgloss.Color
	Hint   lipgloss.Color
	Border lipgloss.Color
}

var defaultTheme = Theme{
	Title:  lipgloss.Color("#5FAFD7"), // light blue
	High:   lipgloss.Color("#00D787"), // green
	Medium: lipgloss.Color("#FFAF00"), // amber
	Low:    lipgloss.Color("#8A8A8A"), // gray
	Error:  lipgloss.Color("#FF005F"), // red
	Hint:   lipgloss.Color("#6C6C6C"), // dim gray
	Border: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) importanceStyle(i weights.Importance) lipgloss.Style {
	switch i {
	case weights.ImportanceHigh:
		return lipgloss.NewStyle().Foreground(t.High).Bold(true)
	case weights.ImportanceMedium:
		return lipgloss.NewStyle().Foreground(t.Medium)
	default:
		return lipgloss.NewStyle().Foreground(t.Low)
	}
}

// bar renders a static similarity bar.
func bar(v float64, width int) string {
	p := progress.New(progress.WithDefaultBlend(), progress.WithWidth(width), progress.WithoutPercentage())
	return p.ViewAs(v)
}

func percent(v float64) string {
	return fmt.Sprintf("%5.1f%%", v*100)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// materialLabel renders "Name (id)", or just the id when the name is empty.
func materialLabel(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return fmt.Sprintf("%s (%s)", n, id)
	}
	return id
}

func comparisonTable(t Theme, comps []models.PropertyComparison, leftHeader, rightHeader string) string {
	rows := make([][]string, 0, len(comps))
	for _, c := range comps {
		name := c.DisplayName
		if c.Unit != "" {
			name += " (" + c.Unit + ")"
		}
		rows = append(rows, []string{
			name,
			c.Left.String(),
			c.Right.String(),
			bar(c.Similarity, 12) + " " + percent(c.Similarity),
			fmt.Sprintf("%.2f", c.Weight),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Border)).
		Headers("Property", leftHeader, rightHeader, "Similarity", "Weight").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col == 0 && row >= 0 && row < len(comps) {
				return t.importanceStyle(comps[row].Importance).Padding(0, 1)
			}
			return s
		}).
		String()
}

// renderComparison prints one pairwise result.
func renderComparison(w io.Writer, t Theme, names map[string]string, r *models.ComparisonResult) {
	a, b := r.MaterialIDs[0], r.MaterialIDs[1]
	fmt.Fprintln(w, t.titleStyle().Render(materialLabel(names, a)+"  vs  "+materialLabel(names, b)))
	fmt.Fprintf(w, "Overall similarity: %s %s\n", bar(r.OverallSimilarity, 30), percent(r.OverallSimilarity))
	if r.PresetID != nil {
		fmt.Fprintln(w, t.hintStyle().Render("preset: "+*r.PresetID))
	}
	fmt.Fprintln(w)

	if len(r.PropertyComparisons) == 0 {
		fmt.Fprintln(w, t.hintStyle().Render("No comparable properties."))
		return
	}
	fmt.Fprintln(w, comparisonTable(t, r.PropertyComparisons, a, b))
}

// renderMatrix prints an ids × ids grid of overall similarities.
func renderMatrix(w io.Writer, t Theme, ids []string, results []*models.ComparisonResult) {
	score := make(map[[2]string]float64, len(results)*2)
	for _, r := range results {
		a, b := r.MaterialIDs[0], r.MaterialIDs[1]
		score[[2]string{a, b}] = r.OverallSimilarity
		score[[2]string{b, a}] = r.OverallSimilarity
	}

	rows := make([][]string, len(ids))
	for i, a := range ids {
		row := make([]string, 0, len(ids)+1)
		row = append(row, a)
		for _, b := range ids {
			if a == b {
				row = append(row, "—")
				continue
			}
			row = append(row, percent(score[[2]string{a, b}]))
		}
		rows[i] = row
	}

	headers := append([]string{""}, ids...)
	fmt.Fprintln(w, table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Border)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow || col == 0 {
				return s.Bold(true)
			}
			return s
		}).
		String())
}

// renderMatches prints a ranked similarity search result.
func renderMatches(w io.Writer, t Theme, reference string, matches []models.SimilarMatch) {
	fmt.Fprintln(w, t.titleStyle().Render("Most similar to "+reference))
	fmt.Fprintln(w)
	if len(matches) == 0 {
		fmt.Fprintln(w, "No candidates found.")
		return
	}

	width := 0
	for _, m := range matches {
		width = max(width, len(m.CandidateID))
	}
	for i, m := range matches {
		line := fmt.Sprintf("%2d. %-*s %s %s", i+1, width, m.CandidateID, bar(m.Similarity, 20), percent(m.Similarity))
		if m.Name != "" {
			line += "  " + t.hintStyle().Render(m.Name)
		}
		fmt.Fprintln(w, line)
		if verbose {
			for _, c := range topDifferences(m.Comparisons, 3) {
				fmt.Fprintf(w, "      %s: %s vs %s (%s)\n", c.DisplayName, c.Left, c.Right, strings.TrimSpace(percent(c.Similarity)))
			}
		}
	}
}

// topDifferences returns up to n weighted comparisons that scored below 1,
// keeping their weight order.
func topDifferences(comps []models.PropertyComparison, n int) []models.PropertyComparison {
	var out []models.PropertyComparison
	for _, c := range comps {
		if c.Similarity < 1 && c.Weight > 0 {
			out = append(out, c)
			if len(out) == n {
				break
			}
		}
	}
	return out
}
