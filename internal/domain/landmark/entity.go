// Package landmark models the read-only landmark catalog the progression
// engine consults. The catalog itself is seeded and curated elsewhere.
package landmark

import (
	"errors"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Domain errors for landmark package.
var (
	ErrInvalidCategory   = errors.New("landmark: invalid category")
	ErrInvalidPointValue = errors.New("landmark: point value must be positive")
)

// Category determines access rules and the point value of a landmark.
type Category string

const (
	CategoryOfficial Category = "official"
	CategoryPremium  Category = "premium"
)

// Fixed point values per category.
const (
	OfficialPoints shared.Points = 10
	PremiumPoints  shared.Points = 25
)

// IsValid checks if the category is known.
func (c Category) IsValid() bool {
	return c == CategoryOfficial || c == CategoryPremium
}

// IsPremium reports whether the category requires premium access.
func (c Category) IsPremium() bool {
	return c == CategoryPremium
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// DefaultPoints returns the point value a landmark of this category is worth.
func (c Category) DefaultPoints() shared.Points {
	if c == CategoryPremium {
		return PremiumPoints
	}
	return OfficialPoints
}

// Landmark is a catalogued point of interest.
type Landmark struct {
	ID         shared.LandmarkID
	Name       string
	CountryID  shared.CountryID
	Continent  shared.Continent
	Category   Category
	PointValue shared.Points
}

// New creates a landmark with the point value of its category.
func New(id shared.LandmarkID, name string, country shared.CountryID, continent shared.Continent, category Category) (*Landmark, error) {
	l := &Landmark{
		ID:         id,
		Name:       name,
		CountryID:  country,
		Continent:  continent,
		Category:   category,
		PointValue: category.DefaultPoints(),
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks catalog invariants.
func (l *Landmark) Validate() error {
	if !l.ID.IsValid() {
		return shared.ErrInvalidLandmark
	}
	if !l.CountryID.IsValid() || !l.Continent.IsValid() {
		return shared.ErrInvalidLandmark
	}
	if !l.Category.IsValid() {
		return ErrInvalidCategory
	}
	if l.PointValue <= 0 {
		return ErrInvalidPointValue
	}
	return nil
}

// IsPremium reports whether the landmark is premium-only.
func (l *Landmark) IsPremium() bool {
	return l.Category.IsPremium()
}

// DisplayName returns the name, falling back to the id.
func (l *Landmark) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID.String()
}
