// Package cache persists a member's local state (groups, saved restaurants, filter
// preferences) as one versioned JSON snapshot, upgrading older shapes at load time.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/mmynk/meshimatch/internal/models"
)

// CurrentVersion is the snapshot shape written by this package.
const CurrentVersion = 3

// Snapshot is everything cached for one member.
type Snapshot struct {
	Version int                 `json:"version"`
	Groups  []*models.Group     `json:"groups"`
	Saved   []models.Restaurant `json:"saved"`
	Filters models.Filters      `json:"filters"`
}

// upgrade turns the raw document of version From into version From+1.
// Upgrades are pure: they return a new document and never touch their input.
type upgrade struct {
	From  int
	Apply func(doc map[string]any) map[string]any
}

var upgrades = []upgrade{
	{From: 1, Apply: genreToGenres},
	{From: 2, Apply: swipesToLikes},
}

// Decode parses a stored snapshot of any known version and upgrades it to
// CurrentVersion. Documents without a version are treated as version 1.
func Decode(data []byte) (*Snapshot, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	version := 1
	if v, ok := doc["version"].(float64); ok {
		version = int(v)
	}
	if version > CurrentVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than %d", version, CurrentVersion)
	}

	for _, u := range upgrades {
		if u.From == version {
			doc = u.Apply(doc)
			version++
		}
	}
	doc["version"] = version

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode upgraded snapshot: %w", err)
	}
	return &snap, nil
}

// Encode serializes snap at CurrentVersion.
func Encode(snap *Snapshot) ([]byte, error) {
	out := *snap
	out.Version = CurrentVersion
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// genreToGenres replaces the single filters.genre string with a filters.genres list.
func genreToGenres(doc map[string]any) map[string]any {
	out := shallowCopy(doc)
	filters, _ := doc["filters"].(map[string]any)
	next := shallowCopy(filters)

	if old, ok := next["genre"]; ok {
		if _, has := next["genres"]; !has {
			genre, _ := old.(string)
			if genre == "" || genre == models.GenreAll {
				next["genres"] = []any{models.GenreAll}
			} else {
				next["genres"] = []any{genre}
			}
		}
		delete(next, "genre")
	}
	out["filters"] = next
	return out
}

// swipesToLikes renames each group's "swipes" ledger to "likes".
func swipesToLikes(doc map[string]any) map[string]any {
	out := shallowCopy(doc)
	groups, _ := doc["groups"].([]any)
	next := make([]any, 0, len(groups))

	for _, item := range groups {
		g, ok := item.(map[string]any)
		if !ok {
			next = append(next, item)
			continue
		}
		ng := shallowCopy(g)
		if swipes, ok := ng["swipes"]; ok {
			if _, has := ng["likes"]; !has {
				ng["likes"] = swipes
			}
			delete(ng, "swipes")
		}
		next = append(next, ng)
	}
	out["groups"] = next
	return out
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
