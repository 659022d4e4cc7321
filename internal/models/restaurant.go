package models

// Restaurant represents one place as known to the caller.
// Records come from the places source or from the member's saved list.
type Restaurant struct {
	// ID is the stable place id supplied by the places source.
	ID string `json:"id"`

	Name   string  `json:"name"`
	Genre  string  `json:"genre"`
	Rating float64 `json:"rating"`

	// Reviews is the review count.
	Reviews int `json:"reviews"`

	// Distance is the distance from the member in kilometers.
	Distance float64 `json:"distance"`

	Price      string `json:"price"`
	PriceLevel int    `json:"priceLevel"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`

	// Hours is the raw, free-text opening hours for today.
	Hours string `json:"hours"`

	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
	Photos []string `json:"photos,omitempty"`

	// FetchedAt is the Unix timestamp (milliseconds) of the last places fetch.
	// Zero means unknown and is treated as stale.
	FetchedAt int64 `json:"fetchedAt,omitempty"`
}

// Sort orders for the discover deck.
const (
	SortDistance  = "distance"
	SortRating    = "rating"
	SortReviews   = "reviews"
	SortPriceAsc  = "priceAsc"
	SortPriceDesc = "priceDesc"
)

// Meal-time filter values.
const (
	MealTimeAll    = "all"
	MealTimeLunch  = "lunch"
	MealTimeDinner = "dinner"
)

// GenreAll disables genre filtering when present in Filters.Genres.
const GenreAll = "All"

// Filters holds the discover-deck filter preferences.
type Filters struct {
	// MaxDistance is the maximum distance in kilometers.
	MaxDistance float64 `json:"maxDistance"`

	Genres      []string `json:"genres"`
	Sort        string   `json:"sort"`
	PriceLevels []int    `json:"priceLevels"`
	MealTime    string   `json:"mealTime"`
}

// DefaultFilters returns the filters a new member starts with.
func DefaultFilters() Filters {
	return Filters{
		MaxDistance: 20,
		Genres:      []string{GenreAll},
		Sort:        SortDistance,
		PriceLevels: []int{1, 2, 3, 4},
		MealTime:    MealTimeAll,
	}
}
