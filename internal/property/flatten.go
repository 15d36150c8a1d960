package property

import (
	"slices"
	"strings"
)

// Path is a dot-separated address of a leaf property, e.g. "dimensions.width".
type Path = string

// Join appends key to prefix with a dot separator.
func Join(prefix, key string) Path {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// LastSegment returns the final dotted segment of p.
func LastSegment(p Path) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Flatten walks m depth-first and returns its leaves keyed by dotted path.
// Nested maps are recursed into; every other value, lists included, is a leaf.
// A Missing leaf (a null in the source bag) is kept so callers can tell
// "present but null" from "absent"; both compare as Missing.
func Flatten(m Map) map[Path]Value {
	out := make(map[Path]Value, len(m))
	flattenInto(out, "", m)
	return out
}

func flattenInto(out map[Path]Value, prefix string, m Map) {
	for key, v := range m {
		p := Join(prefix, key)
		if fields, ok := v.Fields(); ok {
			flattenInto(out, p, fields)
			continue
		}
		out[p] = v
	}
}

// Paths returns the sorted union of the keys of the given flattened bags.
func Paths(bags ...map[Path]Value) []Path {
	seen := make(map[Path]struct{})
	for _, bag := range bags {
		for p := range bag {
			seen[p] = struct{}{}
		}
	}
	paths := make([]Path, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
