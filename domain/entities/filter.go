package entities

import (
	"math"
	"strings"
)

const (
	CategoryAll = "All"
	// AnyBudget and above disables the budget cap.
	AnyBudget = 1000
)

// DestinationFilter narrows a saved-destination list. Zero values disable the
// corresponding criterion.
type DestinationFilter struct {
	Category string
	Budget   float64
	Rating   int
	Tags     []string
	Search   string
}

// Match reports whether d passes every active criterion.
func (f DestinationFilter) Match(d SavedDestination) bool {
	if f.Category != "" && f.Category != CategoryAll && !strings.EqualFold(f.Category, d.Category) {
		return false
	}
	// Zero is treated as unset, so a zero budget does not filter out paid
	// destinations.
	if f.Budget > 0 && f.Budget < AnyBudget && d.Budget > f.Budget {
		return false
	}
	if f.Rating > 0 && !matchRating(f.Rating, d.Rating) {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(f.Tags, d.Tags) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" &&
		!strings.Contains(strings.ToLower(d.Name), q) &&
		!strings.Contains(strings.ToLower(d.Description), q) {
		return false
	}
	return true
}

// Apply returns the destinations that match, preserving order.
func (f DestinationFilter) Apply(items []SavedDestination) []SavedDestination {
	out := make([]SavedDestination, 0, len(items))
	for _, d := range items {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// Rating buckets: 1 is "below 2", 5 is "above 4", others match the floor.
func matchRating(bucket int, rating float64) bool {
	switch bucket {
	case 1:
		return rating < 2
	case 5:
		return rating > 4
	default:
		return int(math.Floor(rating)) == bucket
	}
}

func anyTag(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}
