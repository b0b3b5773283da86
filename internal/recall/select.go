// Package recall selects which stored memories go into a prompt and renders
// them as a grouped text block.
package recall

import (
	"slices"
	"strings"

	"github.com/rcliao/companion/internal/model"
)

// DefaultMaxMemories is used when the caller asks for zero or fewer memories.
const DefaultMaxMemories = 15

const header = "Important things you remember about the user:\n\n"

const dayMillis = float64(24 * 60 * 60 * 1000)

// Group holds the selected memories of one category.
type Group struct {
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Contents []string `json:"contents"`
}

// Context is the rendered memory block for a prompt.
type Context struct {
	Text          string         `json:"context"`
	Groups        []Group        `json:"groups"`
	Selected      []model.Memory `json:"-"`
	TotalMemories int            `json:"total_memories"`
	UsedMemories  int            `json:"used_memories"`
}

// Compare returns a negative value when a should come before b. Importance
// is weighted 2 per point and creation time 1 per day; a positive creation
// gap in b's favor counts against b, so at equal importance older memories
// rank first.
func Compare(a, b model.Memory) float64 {
	importance := float64(b.Importance-a.Importance) * 2
	recency := float64(b.CreatedAt.UnixMilli()-a.CreatedAt.UnixMilli()) / dayMillis
	return importance - recency
}

// Select ranks memories, keeps at most limit of them and groups the result by
// category in the order categories are first seen.
func Select(memories []model.Memory, limit int) Context {
	if limit <= 0 {
		limit = DefaultMaxMemories
	}

	sorted := slices.Clone(memories)
	slices.SortStableFunc(sorted, func(a, b model.Memory) int {
		switch c := Compare(a, b); {
		case c < 0:
			return -1
		case c > 0:
			return 1
		}
		return 0
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	groups := groupByCategory(sorted)
	return Context{
		Text:          Format(groups),
		Groups:        groups,
		Selected:      sorted,
		TotalMemories: len(memories),
		UsedMemories:  len(sorted),
	}
}

func groupByCategory(memories []model.Memory) []Group {
	var groups []Group
	index := map[string]int{}
	for _, m := range memories {
		i, ok := index[m.Category]
		if !ok {
			label := model.CategoryLabels[m.Category]
			if label == "" {
				label = m.Category
			}
			groups = append(groups, Group{Category: m.Category, Label: label})
			i = len(groups) - 1
			index[m.Category] = i
		}
		groups[i].Contents = append(groups[i].Contents, m.Content)
	}
	return groups
}

// Format renders groups under the fixed header, one labeled section per group.
func Format(groups []Group) string {
	var b strings.Builder
	b.WriteString(header)
	for _, g := range groups {
		b.WriteString(g.Label)
		b.WriteString(":\n")
		for _, c := range g.Contents {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
