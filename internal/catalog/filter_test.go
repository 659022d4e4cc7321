package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/meshimatch/internal/models"
)

func ids(list []models.Restaurant) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

var deck = []models.Restaurant{
	{ID: "ramen", Genre: "Ramen", Distance: 0.5, Rating: 4.2, Reviews: 300, PriceLevel: 1, Hours: "11:00 AM – 3:00 PM"},
	{ID: "sushi", Genre: "Sushi", Distance: 2.0, Rating: 4.8, Reviews: 120, PriceLevel: 3, Hours: "17:00~23:00"},
	{ID: "izakaya", Genre: "Izakaya", Distance: 1.0, Rating: 3.9, Reviews: 900, PriceLevel: 2, Hours: "18:00~翌2:00"},
	{ID: "cafe", Genre: "Cafe", Distance: 25, Rating: 4.0, Reviews: 50, PriceLevel: 1, Hours: "whenever"},
	{ID: "closed", Genre: "Ramen", Distance: 0.2, Rating: 4.5, Reviews: 10, PriceLevel: 1, Hours: "Closed"},
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Filters)
		exclude map[string]bool
		want    []string
	}{
		{
			name: "defaults keep everything within distance",
			want: []string{"ramen", "sushi", "izakaya", "closed"},
		},
		{
			name:    "excluded ids are skipped",
			exclude: map[string]bool{"sushi": true},
			want:    []string{"ramen", "izakaya", "closed"},
		},
		{
			name:   "genres",
			mutate: func(f *models.Filters) { f.Genres = []string{"Ramen", "Sushi"} },
			want:   []string{"ramen", "sushi", "closed"},
		},
		{
			name:   "price levels",
			mutate: func(f *models.Filters) { f.PriceLevels = []int{2, 3} },
			want:   []string{"sushi", "izakaya"},
		},
		{
			name:   "max distance",
			mutate: func(f *models.Filters) { f.MaxDistance = 1 },
			want:   []string{"ramen", "izakaya", "closed"},
		},
		{
			name: "lunch",
			mutate: func(f *models.Filters) {
				f.MealTime = models.MealTimeLunch
				f.MaxDistance = 30
			},
			want: []string{"ramen", "cafe"},
		},
		{
			name: "dinner",
			mutate: func(f *models.Filters) {
				f.MealTime = models.MealTimeDinner
				f.MaxDistance = 30
			},
			want: []string{"sushi", "izakaya", "cafe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := models.DefaultFilters()
			if tt.mutate != nil {
				tt.mutate(&f)
			}
			assert.Equal(t, tt.want, ids(Filter(deck, f, tt.exclude)))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		order string
		want  []string
	}{
		{models.SortDistance, []string{"closed", "ramen", "izakaya", "sushi", "cafe"}},
		{models.SortRating, []string{"sushi", "closed", "ramen", "cafe", "izakaya"}},
		{models.SortReviews, []string{"izakaya", "ramen", "sushi", "cafe", "closed"}},
		{models.SortPriceAsc, []string{"ramen", "cafe", "closed", "izakaya", "sushi"}},
		{models.SortPriceDesc, []string{"sushi", "izakaya", "ramen", "cafe", "closed"}},
		{"bogus", []string{"closed", "ramen", "izakaya", "sushi", "cafe"}},
	}
	for _, tt := range tests {
		t.Run(tt.order, func(t *testing.T) {
			list := append([]models.Restaurant(nil), deck...)
			Sort(list, tt.order)
			assert.Equal(t, tt.want, ids(list))
		})
	}
}

func TestDeck(t *testing.T) {
	f := models.DefaultFilters()
	f.Sort = models.SortRating
	got := Deck(deck, f, map[string]bool{"closed": true})
	assert.Equal(t, []string{"sushi", "ramen", "izakaya"}, ids(got))
}
