package schema

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const maxSuggestions = 3

// Suggest returns up to three candidates close to name: case-insensitive
// substring matches first, then the nearest by edit distance.
func Suggest(name string, candidates []string) []string {
	needle := strings.ToLower(name)
	if needle == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)

	for _, c := range candidates {
		hay := strings.ToLower(c)
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			out = append(out, c)
			seen[c] = true
			if len(out) == maxSuggestions {
				return out
			}
		}
	}

	type scored struct {
		name string
		dist int
	}
	limit := len(needle) / 3
	if limit < 2 {
		limit = 2
	}
	var near []scored
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		if d := levenshtein.ComputeDistance(needle, strings.ToLower(c)); d <= limit {
			near = append(near, scored{name: c, dist: d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].name < near[j].name
	})
	for _, s := range near {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, s.name)
	}
	return out
}

// resolveName finds the single case-insensitive match of name. An exact
// match always wins.
func resolveName(name string, candidates []string) (string, bool) {
	match := ""
	n := 0
	for _, c := range candidates {
		if c == name {
			return c, true
		}
		if strings.EqualFold(c, name) {
			match = c
			n++
		}
	}
	return match, n == 1
}
