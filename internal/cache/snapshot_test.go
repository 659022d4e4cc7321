package cache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/meshimatch/internal/models"
)

func TestDecodeUpgradesVersion1(t *testing.T) {
	raw := `{
		"version": 1,
		"filters": {"maxDistance": 5, "genre": "Ramen", "sort": "rating", "priceLevels": [1], "mealTime": "all"},
		"groups": [{"id": "g1", "code": "MESH-AB12", "members": ["alice"], "swipes": {"alice": ["r1"]}}],
		"saved": [{"id": "r1", "name": "Ramen Ichi"}]
	}`

	snap, err := Decode([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, snap.Version)
	assert.Equal(t, []string{"Ramen"}, snap.Filters.Genres)
	assert.Equal(t, 5.0, snap.Filters.MaxDistance)
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, []string{"r1"}, snap.Groups[0].Likes["alice"])
	require.Len(t, snap.Saved, 1)
	assert.Equal(t, "Ramen Ichi", snap.Saved[0].Name)
}

func TestDecodeMissingVersionIsVersion1(t *testing.T) {
	snap, err := Decode([]byte(`{"filters": {"genre": "All"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{models.GenreAll}, snap.Filters.Genres)
}

func TestDecodeVersion2OnlyRenamesSwipes(t *testing.T) {
	raw := `{"version": 2, "filters": {"genres": ["Sushi"]},
		"groups": [{"id": "g1", "swipes": {"alice": ["r1"]}, "likes": {"alice": ["r2"]}}]}`

	snap, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sushi"}, snap.Filters.Genres)
	assert.Equal(t, []string{"r2"}, snap.Groups[0].Likes["alice"], "existing likes win over swipes")
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	_, err := Decode([]byte(`{"version": 99}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestUpgradesArePure(t *testing.T) {
	in := map[string]any{
		"filters": map[string]any{"genre": "Ramen"},
		"groups":  []any{map[string]any{"id": "g1", "swipes": map[string]any{}}},
	}
	before, err := json.Marshal(in)
	require.NoError(t, err)

	swipesToLikes(genreToGenres(in))

	after, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestEncodeStampsCurrentVersion(t *testing.T) {
	data, err := Encode(&Snapshot{Version: 1, Filters: models.DefaultFilters()})
	require.NoError(t, err)

	snap, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, snap.Version)
	assert.Equal(t, models.DefaultFilters(), snap.Filters)
}
