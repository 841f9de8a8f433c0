// Package visit contains the Visit record: a user's one-time completion of a
// catalogued landmark. Visits are append-only; nothing here updates or deletes one.
package visit

import (
	"errors"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Domain errors for visit package.
var (
	ErrInvalidVisitID = errors.New("visit: invalid visit ID")
	ErrZeroTimestamp  = errors.New("visit: visited_at is required")
)

// Visit is an immutable record of a user having visited a landmark.
// CountryID, Continent and Category are snapshots of the catalog at visit time,
// like PointsEarned, so aggregates never need to join against the catalog.
type Visit struct {
	ID           string
	UserID       shared.UserID
	LandmarkID   shared.LandmarkID
	CountryID    shared.CountryID
	Continent    shared.Continent
	Category     landmark.Category
	PointsEarned shared.Points
	VisitedAt    time.Time
	Payload      Payload
}

// Payload holds the optional user-supplied content of a visit.
type Payload struct {
	Photos     []string
	DiaryNotes *string
	TravelTips *string
}

// PhotoCount returns the number of attached photos.
func (p Payload) PhotoCount() int {
	return len(p.Photos)
}

// HasDiary reports whether diary notes were supplied.
func (p Payload) HasDiary() bool {
	return p.DiaryNotes != nil && *p.DiaryNotes != ""
}

// New builds a visit for lm, freezing the landmark's current point value.
func New(id string, userID shared.UserID, lm *landmark.Landmark, payload Payload, at time.Time) (*Visit, error) {
	v := &Visit{
		ID:           id,
		UserID:       userID,
		LandmarkID:   lm.ID,
		CountryID:    lm.CountryID,
		Continent:    lm.Continent,
		Category:     lm.Category,
		PointsEarned: lm.PointValue,
		VisitedAt:    at,
		Payload:      payload,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks record invariants.
func (v *Visit) Validate() error {
	if v.ID == "" {
		return ErrInvalidVisitID
	}
	if !v.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if !v.LandmarkID.IsValid() {
		return shared.ErrInvalidLandmark
	}
	if !v.PointsEarned.IsValid() {
		return shared.ErrNegativeValue
	}
	if v.VisitedAt.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

// IsPremium reports whether the visited landmark was premium at visit time.
func (v *Visit) IsPremium() bool {
	return v.Category.IsPremium()
}

// Stats are the cumulative figures badge rules are evaluated against.
// They only ever grow as visits are appended.
type Stats struct {
	VisitCount         int
	VisitPoints        shared.Points
	DistinctCountries  int
	DistinctContinents int
	PremiumVisits      int
}

// ComputeStats folds a set of visits into Stats.
func ComputeStats(visits []*Visit) Stats {
	var s Stats
	countries := make(map[shared.CountryID]struct{})
	continents := make(map[shared.Continent]struct{})
	for _, v := range visits {
		s.VisitCount++
		s.VisitPoints += v.PointsEarned
		if v.IsPremium() {
			s.PremiumVisits++
		}
		if v.CountryID != "" {
			countries[v.CountryID] = struct{}{}
		}
		if v.Continent != "" {
			continents[v.Continent] = struct{}{}
		}
	}
	s.DistinctCountries = len(countries)
	s.DistinctContinents = len(continents)
	return s
}
