package matching

import (
	"slices"

	"github.com/mmynk/meshimatch/internal/models"
)

// AddLike appends restaurantID to the member's ledger entry unless it is already
// there. It reports whether the ledger changed.
func AddLike(g *models.Group, memberID, restaurantID string) bool {
	if g.Likes == nil {
		g.Likes = make(map[string][]string)
	}
	current := g.Likes[memberID]
	if slices.Contains(current, restaurantID) {
		return false
	}
	g.Likes[memberID] = append(slices.Clone(current), restaurantID)
	return true
}

// RemoveLike deletes restaurantID from the member's ledger entry if present.
// The entry itself stays, possibly empty, so a later merge still treats it as the
// member's own state. It reports whether the ledger changed.
func RemoveLike(g *models.Group, memberID, restaurantID string) bool {
	current, ok := g.Likes[memberID]
	if !ok {
		return false
	}
	idx := slices.Index(current, restaurantID)
	if idx < 0 {
		return false
	}
	g.Likes[memberID] = slices.Delete(slices.Clone(current), idx, idx+1)
	return true
}

// uniqueIDs drops empty and repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
