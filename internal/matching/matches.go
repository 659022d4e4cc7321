package matching

import (
	"github.com/mmynk/meshimatch/internal/models"
)

// MinMembersForMatch is the smallest group that can agree on anything.
const MinMembersForMatch = 2

// ComputeMatches returns the restaurants every current member has liked.
//
// Groups with fewer than MinMembersForMatch members never match. Members without a
// ledger entry count as having liked nothing. Ids missing from catalog are dropped.
// Results follow the first member's like order; callers sort for display.
func ComputeMatches(g *models.Group, catalog map[string]models.Restaurant) []models.Restaurant {
	if g == nil {
		return nil
	}
	members := uniqueIDs(g.Members)
	if len(members) < MinMembersForMatch {
		return nil
	}

	others := make([]map[string]struct{}, 0, len(members)-1)
	for _, member := range members[1:] {
		liked := g.Likes[member]
		if len(liked) == 0 {
			return nil
		}
		set := make(map[string]struct{}, len(liked))
		for _, id := range liked {
			set[id] = struct{}{}
		}
		others = append(others, set)
	}

	var matches []models.Restaurant
	for _, id := range uniqueIDs(g.Likes[members[0]]) {
		if !likedByAll(id, others) {
			continue
		}
		if r, ok := catalog[id]; ok {
			matches = append(matches, r)
		}
	}
	return matches
}

func likedByAll(id string, sets []map[string]struct{}) bool {
	for _, set := range sets {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
