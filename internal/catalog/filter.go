package catalog

import (
	"slices"
	"sort"

	"github.com/mmynk/meshimatch/internal/hours"
	"github.com/mmynk/meshimatch/internal/models"
)

// Filter returns the restaurants in list that pass filters, skipping any id in
// exclude (saved or already swiped). Input order is kept.
func Filter(list []models.Restaurant, filters models.Filters, exclude map[string]bool) []models.Restaurant {
	allGenres := len(filters.Genres) == 0 || slices.Contains(filters.Genres, models.GenreAll)

	out := make([]models.Restaurant, 0, len(list))
	for _, r := range list {
		if exclude[r.ID] {
			continue
		}
		if r.Distance > filters.MaxDistance {
			continue
		}
		if !allGenres && !slices.Contains(filters.Genres, r.Genre) {
			continue
		}
		if !slices.Contains(filters.PriceLevels, r.PriceLevel) {
			continue
		}
		switch filters.MealTime {
		case models.MealTimeLunch:
			if !hours.ServesLunch(r.Hours) {
				continue
			}
		case models.MealTimeDinner:
			if !hours.ServesDinner(r.Hours) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Sort orders list in place by one of the models.Sort* orders. Unknown orders
// sort by distance. Ties keep their input order.
func Sort(list []models.Restaurant, order string) {
	var less func(a, b models.Restaurant) bool
	switch order {
	case models.SortRating:
		less = func(a, b models.Restaurant) bool { return a.Rating > b.Rating }
	case models.SortReviews:
		less = func(a, b models.Restaurant) bool { return a.Reviews > b.Reviews }
	case models.SortPriceAsc:
		less = func(a, b models.Restaurant) bool { return a.PriceLevel < b.PriceLevel }
	case models.SortPriceDesc:
		less = func(a, b models.Restaurant) bool { return a.PriceLevel > b.PriceLevel }
	default:
		less = func(a, b models.Restaurant) bool { return a.Distance < b.Distance }
	}
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}

// Deck filters list and sorts the result by filters.Sort.
func Deck(list []models.Restaurant, filters models.Filters, exclude map[string]bool) []models.Restaurant {
	out := Filter(list, filters, exclude)
	Sort(out, filters.Sort)
	return out
}
