// Package catalog assembles the restaurant records a member currently knows about,
// keeps their saved (personally liked) list, and filters and sorts the discover deck.
package catalog

import (
	"math"

	"github.com/mmynk/meshimatch/internal/models"
)

// Catalog maps restaurant ids to records.
type Catalog map[string]models.Restaurant

// Build merges lists into a Catalog. When an id appears more than once the first
// record wins, so callers pass the freshest source first.
func Build(lists ...[]models.Restaurant) Catalog {
	size := 0
	for _, l := range lists {
		size += len(l)
	}
	c := make(Catalog, size)
	for _, l := range lists {
		for _, r := range l {
			if r.ID == "" {
				continue
			}
			if _, ok := c[r.ID]; !ok {
				c[r.ID] = r
			}
		}
	}
	return c
}

// walkingMetersPerMinute is an average walking pace.
const walkingMetersPerMinute = 80

// WalkingMinutes estimates the walk for a distance in kilometers, never less than
// one minute.
func WalkingMinutes(km float64) int {
	mins := int(math.Round(km * 1000 / walkingMetersPerMinute))
	return max(1, mins)
}
