package landmark

import (
	"context"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Catalog is the read-only view of landmark reference data.
// Implementations return shared.ErrLandmarkNotFound (or an error matching
// shared.ErrNotFound) when an id is unknown.
type Catalog interface {
	// Get returns a single landmark.
	Get(ctx context.Context, id shared.LandmarkID) (*Landmark, error)

	// LandmarkIDsIn returns the landmark ids of a country, restricted to the
	// given categories. No categories means every category.
	LandmarkIDsIn(ctx context.Context, country shared.CountryID, categories ...Category) ([]shared.LandmarkID, error)

	// CountriesIn returns every country id catalogued for a continent.
	CountriesIn(ctx context.Context, continent shared.Continent) ([]shared.CountryID, error)
}

// EntitledCategories returns the categories a user may complete a country with.
func EntitledCategories(premiumAccess bool) []Category {
	if premiumAccess {
		return []Category{CategoryOfficial, CategoryPremium}
	}
	return []Category{CategoryOfficial}
}

// MatchesCategory reports whether c is among categories. An empty filter matches everything.
func MatchesCategory(c Category, categories []Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, want := range categories {
		if c == want {
			return true
		}
	}
	return false
}
