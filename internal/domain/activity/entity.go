// Package activity contains the append-only activity feed: one immutable entry
// per awarding event (a visit, a badge, a completion bonus).
// This is a pure domain layer with zero external dependencies.
package activity

import (
	"errors"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Domain errors for activity package.
var (
	ErrInvalidEntryID = errors.New("activity: invalid entry ID")
	ErrInvalidType    = errors.New("activity: invalid activity type")
	ErrZeroTimestamp  = errors.New("activity: created_at is required")
)

// Type is the kind of event a feed entry describes.
type Type string

const (
	TypeVisit             Type = "visit"
	TypeBadge             Type = "badge"
	TypeCountryComplete   Type = "country_complete"
	TypeContinentComplete Type = "continent_complete"
)

// IsValid checks if the type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypeVisit, TypeBadge, TypeCountryComplete, TypeContinentComplete:
		return true
	}
	return false
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// Payload carries what a downstream renderer needs. Only the fields relevant
// to the entry's Type are set.
type Payload struct {
	LandmarkID   shared.LandmarkID `json:"landmark_id,omitempty"`
	LandmarkName string            `json:"landmark_name,omitempty"`
	BadgeType    string            `json:"badge_type,omitempty"`
	BadgeName    string            `json:"badge_name,omitempty"`
	CountryID    shared.CountryID  `json:"country_id,omitempty"`
	Continent    shared.Continent  `json:"continent,omitempty"`
	PointsEarned shared.Points     `json:"points_earned"`
}

// Entry is one immutable feed record.
type Entry struct {
	ID        string
	UserID    shared.UserID
	Type      Type
	Payload   Payload
	CreatedAt time.Time
}

// NewEntry creates a feed entry.
func NewEntry(id string, userID shared.UserID, t Type, payload Payload, createdAt time.Time) (*Entry, error) {
	if id == "" {
		return nil, ErrInvalidEntryID
	}
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !t.IsValid() {
		return nil, ErrInvalidType
	}
	if createdAt.IsZero() {
		return nil, ErrZeroTimestamp
	}
	return &Entry{
		ID:        id,
		UserID:    userID,
		Type:      t,
		Payload:   payload,
		CreatedAt: createdAt,
	}, nil
}
