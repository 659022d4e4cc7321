package matching

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/meshimatch/internal/models"
)

func catalogOf(ids ...string) map[string]models.Restaurant {
	out := make(map[string]models.Restaurant, len(ids))
	for _, id := range ids {
		out[id] = models.Restaurant{ID: id, Name: "Restaurant " + id}
	}
	return out
}

func matchIDs(rs []models.Restaurant) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestComputeMatches(t *testing.T) {
	catalog := catalogOf("r1", "r2", "r3", "r4")

	tests := []struct {
		name  string
		group *models.Group
		want  []string
	}{
		{
			name: "intersection of two members",
			group: &models.Group{
				Members: []string{"alice", "bob"},
				Likes: map[string][]string{
					"alice": {"r1", "r2", "r3"},
					"bob":   {"r3", "r2"},
				},
			},
			want: []string{"r2", "r3"},
		},
		{
			name: "three members",
			group: &models.Group{
				Members: []string{"alice", "bob", "carol"},
				Likes: map[string][]string{
					"alice": {"r1", "r2", "r3"},
					"bob":   {"r1", "r2", "r3"},
					"carol": {"r2"},
				},
			},
			want: []string{"r2"},
		},
		{
			name: "ids missing from the catalog are dropped",
			group: &models.Group{
				Members: []string{"alice", "bob"},
				Likes: map[string][]string{
					"alice": {"r1", "unknown"},
					"bob":   {"unknown", "r1"},
				},
			},
			want: []string{"r1"},
		},
		{
			name: "member without ledger entry matches nothing",
			group: &models.Group{
				Members: []string{"alice", "bob"},
				Likes:   map[string][]string{"alice": {"r1"}},
			},
			want: []string{},
		},
		{
			name: "single member never matches",
			group: &models.Group{
				Members: []string{"alice"},
				Likes:   map[string][]string{"alice": {"r1", "r2"}},
			},
			want: []string{},
		},
		{
			name: "duplicate member ids count once",
			group: &models.Group{
				Members: []string{"alice", "alice"},
				Likes:   map[string][]string{"alice": {"r1"}},
			},
			want: []string{},
		},
		{
			name:  "no members",
			group: &models.Group{Likes: map[string][]string{"alice": {"r1"}}},
			want:  []string{},
		},
		{
			name: "ledger of a former member is ignored",
			group: &models.Group{
				Members: []string{"alice", "bob"},
				Likes: map[string][]string{
					"alice": {"r1", "r4"},
					"bob":   {"r1", "r4"},
					"gone":  {"r1"},
				},
			},
			want: []string{"r1", "r4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeMatches(tt.group, catalog)
			assert.Equal(t, tt.want, matchIDs(got))
		})
	}
}

func TestComputeMatchesDeterministic(t *testing.T) {
	g := &models.Group{
		Members: []string{"alice", "bob"},
		Likes: map[string][]string{
			"alice": {"r3", "r1", "r2"},
			"bob":   {"r1", "r2", "r3"},
		},
	}
	catalog := catalogOf("r1", "r2", "r3")

	first := ComputeMatches(g, catalog)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeMatches(g, catalog))
	}
}

func TestComputeMatchesNilGroup(t *testing.T) {
	assert.Nil(t, ComputeMatches(nil, catalogOf("r1")))
}
