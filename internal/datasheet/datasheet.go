// Package datasheet reads material data sheets written in Markdown.
//
// A sheet carries identity in YAML frontmatter and properties as
// "key: value" list items or two-column tables under headings. Headings
// below the title open nested property groups:
//
//	---
//	id: tile-001
//	material_type: tile
//	color: White
//	---
//	# Carrara Look 60x120
//
//	## Dimensions
//	- width: 600
//	- length: 1200
//
//	## Technical Specs
//	| Property         | Value |
//	|------------------|-------|
//	| Water absorption | 0.1   |
//	| Frost resistant  | true  |
//
// yields properties color, dimensions.width, dimensions.length,
// technicalSpecs.waterAbsorption and technicalSpecs.frostResistant.
package datasheet

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)
	listItemRe  = regexp.MustCompile(`^\s*[-*+]\s+([^:]+):\s*(.*)$`)
	tableRowRe  = regexp.MustCompile(`^\s*\|(.+)\|\s*$`)
	tableRuleRe = regexp.MustCompile(`^[\s|:-]+$`)
	parenRe     = regexp.MustCompile(`\([^)]*\)`)
)

// reserved frontmatter keys describe the material, not its properties.
var reserved = map[string]bool{"id": true, "name": true, "title": true, "material_type": true, "properties": true}

// Sheet is a parsed data sheet.
type Sheet struct {
	Frontmatter map[string]any
	Title       string
	Sections    []Section
}

// Section is a heading with the property entries directly under it.
type Section struct {
	Level   int
	Heading string
	// Path holds the property keys of this heading and its parents,
	// excluding the title.
	Path    []string
	Entries []Entry
	Start   int // line number of the heading
}

// Entry is one "key: value" pair.
type Entry struct {
	Key   string
	Value string
	Line  int
}

// Parse splits a sheet into frontmatter and sections. Unlike free-form
// notes, a sheet with malformed frontmatter is rejected.
func Parse(content string) (*Sheet, error) {
	sheet := &Sheet{Frontmatter: map[string]any{}}

	remaining := content
	offset := 0
	if strings.HasPrefix(content, "---\n") {
		end := strings.Index(content[4:], "\n---")
		if end < 0 {
			return nil, errs.Invalid("frontmatter", "missing closing ---")
		}
		if err := yaml.Unmarshal([]byte(content[4:4+end]), &sheet.Frontmatter); err != nil {
			return nil, errs.Invalid("frontmatter", "%v", err)
		}
		if sheet.Frontmatter == nil {
			sheet.Frontmatter = map[string]any{}
		}
		offset = strings.Count(content[:4+end+4], "\n") + 1
		remaining = strings.TrimPrefix(content[4+end+4:], "\n")
	}

	if t, ok := sheet.Frontmatter["title"].(string); ok {
		sheet.Title = t
	}
	sheet.Sections = parseSections(remaining, offset, &sheet.Title)
	return sheet, nil
}

// parseSections groups entries by heading. The first level-1 heading is
// the title and does not contribute a path segment.
func parseSections(content string, offset int, title *string) []Section {
	sections := []Section{{}} // entries before any heading
	var levels []int
	var path []string

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNum := offset
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			heading := strings.TrimSpace(m[2])
			if level == 1 {
				if *title == "" {
					*title = heading
				}
				levels, path = nil, nil
				sections = append(sections, Section{Level: 1, Heading: heading, Start: lineNum})
				continue
			}

			for len(levels) > 0 && levels[len(levels)-1] >= level {
				levels = levels[:len(levels)-1]
				path = path[:len(path)-1]
			}
			levels = append(levels, level)
			path = append(path, Key(heading))
			sections = append(sections, Section{
				Level:   level,
				Heading: heading,
				Path:    append([]string(nil), path...),
				Start:   lineNum,
			})
			continue
		}

		cur := &sections[len(sections)-1]
		if e, ok := parseEntry(line); ok {
			e.Line = lineNum
			cur.Entries = append(cur.Entries, e)
		}
	}

	out := sections[:0]
	for _, s := range sections {
		if s.Heading != "" || len(s.Entries) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func parseEntry(line string) (Entry, bool) {
	if m := listItemRe.FindStringSubmatch(line); m != nil {
		return Entry{Key: strings.TrimSpace(m[1]), Value: strings.TrimSpace(m[2])}, true
	}
	if m := tableRowRe.FindStringSubmatch(line); m != nil {
		if tableRuleRe.MatchString(line) {
			return Entry{}, false
		}
		cells := strings.Split(m[1], "|")
		if len(cells) != 2 {
			return Entry{}, false
		}
		key, value := strings.TrimSpace(cells[0]), strings.TrimSpace(cells[1])
		// header row
		if strings.EqualFold(key, "property") && strings.EqualFold(value, "value") {
			return Entry{}, false
		}
		return Entry{Key: key, Value: value}, true
	}
	return Entry{}, false
}

// Key turns a heading or label into a property name: parenthesized units are
// dropped and words are joined in lower camel case. "Water absorption (%)"
// becomes "waterAbsorption"; "PEI rating" becomes "peiRating".
func Key(label string) string {
	words := strings.FieldsFunc(parenRe.ReplaceAllString(label, " "), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for i, w := range words {
		runes := []rune(w)
		if isUpper(w) {
			runes = []rune(strings.ToLower(w))
		}
		if i == 0 {
			runes[0] = unicode.ToLower(runes[0])
		} else {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

func isUpper(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// scalar parses a value the way YAML would: numbers, booleans and flow
// lists become typed, anything unparsable stays text, empty is null.
func scalar(s string) any {
	if s == "" {
		return nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	if _, isMap := v.(map[string]any); isMap {
		return s
	}
	return v
}

// Material builds the material described by the sheet. The id falls back
// to a slug of the name, the name to the title.
func (s *Sheet) Material() (models.MaterialInput, error) {
	in := models.MaterialInput{Properties: map[string]any{}}
	in.ID, _ = s.Frontmatter["id"].(string)
	in.Name, _ = s.Frontmatter["name"].(string)
	in.MaterialType, _ = s.Frontmatter["material_type"].(string)
	if in.Name == "" {
		in.Name = s.Title
	}
	if in.ID == "" {
		in.ID = models.Slugify(in.Name)
	}
	if in.ID == "" {
		return in, errs.Invalid("id", "data sheet has no id, name or title")
	}

	if props, ok := s.Frontmatter["properties"].(map[string]any); ok {
		for k, v := range props {
			in.Properties[k] = v
		}
	}
	for k, v := range s.Frontmatter {
		if !reserved[k] {
			in.Properties[k] = v
		}
	}

	for _, sec := range s.Sections {
		for _, e := range sec.Entries {
			key := Key(e.Key)
			if key == "" {
				continue
			}
			if err := set(in.Properties, append(sec.Path, key), scalar(e.Value)); err != nil {
				return in, fmt.Errorf("line %d: %w", e.Line, err)
			}
		}
	}
	return in, nil
}

// set stores v at path, creating nested maps on the way.
func set(root map[string]any, path []string, v any) error {
	m := root
	for i, seg := range path[:len(path)-1] {
		switch next := m[seg].(type) {
		case map[string]any:
			m = next
		case nil:
			child := map[string]any{}
			m[seg] = child
			m = child
		default:
			return &errs.ShapeError{Path: strings.Join(path[:i+1], "."), Reason: "property is both a value and a group"}
		}
	}
	leaf := path[len(path)-1]
	if _, isGroup := m[leaf].(map[string]any); isGroup {
		return &errs.ShapeError{Path: strings.Join(path, "."), Reason: "property is both a value and a group"}
	}
	m[leaf] = v
	return nil
}

// ParseMaterial parses content and builds its material.
func ParseMaterial(content string) (models.MaterialInput, error) {
	sheet, err := Parse(content)
	if err != nil {
		return models.MaterialInput{}, err
	}
	return sheet.Material()
}
