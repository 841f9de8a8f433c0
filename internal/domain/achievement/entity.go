// Package achievement contains badges and the versioned rule catalog that
// awards them. Achievements are never revoked: every rule is a threshold over
// a stat that only grows.
package achievement

import (
	"errors"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Domain errors for achievement package.
var (
	ErrInvalidBadge     = errors.New("achievement: invalid badge type")
	ErrDuplicateRule    = errors.New("achievement: duplicate badge type in rule set")
	ErrInvalidThreshold = errors.New("achievement: threshold must be positive")
	ErrUnknownMetric    = errors.New("achievement: unknown metric")
)

// BadgeType identifies a badge.
type BadgeType string

// String returns the string representation.
func (b BadgeType) String() string {
	return string(b)
}

// IsValid checks if the badge type is non-empty.
func (b BadgeType) IsValid() bool {
	return b != ""
}

// Badge types of the built-in catalog.
const (
	BadgeFirstVisit         BadgeType = "first_visit"
	BadgeExplorer10         BadgeType = "explorer_10"
	BadgeExplorer50         BadgeType = "explorer_50"
	BadgeExplorer100        BadgeType = "explorer_100"
	BadgePoints100          BadgeType = "points_100"
	BadgePoints500          BadgeType = "points_500"
	BadgePoints1000         BadgeType = "points_1000"
	BadgeCountryHopper5     BadgeType = "country_hopper_5"
	BadgeGlobetrotter20     BadgeType = "globetrotter_20"
	BadgeContinentExplorer3 BadgeType = "continent_explorer_3"
	BadgeSevenContinents    BadgeType = "seven_continents"
	BadgePremiumPioneer     BadgeType = "premium_pioneer"
)

// Achievement is a badge held by a user. At most one exists per (user, badge).
type Achievement struct {
	ID        string
	UserID    shared.UserID
	BadgeType BadgeType
	EarnedAt  time.Time
}

// New creates an achievement record.
func New(id string, userID shared.UserID, badge BadgeType, at time.Time) (*Achievement, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !badge.IsValid() {
		return nil, ErrInvalidBadge
	}
	if id == "" {
		return nil, shared.ErrInvalidID
	}
	return &Achievement{ID: id, UserID: userID, BadgeType: badge, EarnedAt: at}, nil
}
