// Package completion contains one-time bonuses for finishing every entitled
// landmark of a country, or every country of a continent.
package completion

import (
	"context"
	"errors"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Domain errors for completion package.
var (
	ErrInvalidScope   = errors.New("completion: invalid scope")
	ErrInvalidScopeID = errors.New("completion: invalid scope id")
)

// Scope is the granularity of a completion bonus.
type Scope string

const (
	ScopeCountry   Scope = "country"
	ScopeContinent Scope = "continent"
)

// IsValid checks if the scope is known.
func (s Scope) IsValid() bool {
	return s == ScopeCountry || s == ScopeContinent
}

// String returns the string representation.
func (s Scope) String() string {
	return string(s)
}

// EventType returns the domain event published when a bonus of this scope is awarded.
func (s Scope) EventType() shared.EventType {
	if s == ScopeContinent {
		return shared.EventContinentCompleted
	}
	return shared.EventCountryCompleted
}

// DefaultCountryBonus and DefaultContinentBonus are the flat bonus amounts.
const (
	DefaultCountryBonus   shared.Points = 50
	DefaultContinentBonus shared.Points = 200
)

// Bonus is a one-time award. At most one exists per (user, scope, scope id).
type Bonus struct {
	ID          string
	UserID      shared.UserID
	Scope       Scope
	ScopeID     string
	BonusPoints shared.Points
	AwardedAt   time.Time
}

// New creates a bonus record.
func New(id string, userID shared.UserID, scope Scope, scopeID string, points shared.Points, at time.Time) (*Bonus, error) {
	if id == "" {
		return nil, shared.ErrInvalidID
	}
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !scope.IsValid() {
		return nil, ErrInvalidScope
	}
	if scopeID == "" {
		return nil, ErrInvalidScopeID
	}
	if !points.IsValid() {
		return nil, shared.ErrNegativeValue
	}
	return &Bonus{
		ID:          id,
		UserID:      userID,
		Scope:       scope,
		ScopeID:     scopeID,
		BonusPoints: points,
		AwardedAt:   at,
	}, nil
}

// Store persists completion bonuses. (user_id, scope, scope_id) is unique at the storage level.
type Store interface {
	// Insert stores b unless the same bonus was already awarded.
	// It reports whether a row was created.
	Insert(ctx context.Context, b *Bonus) (bool, error)

	// ListByUser returns a user's bonuses ordered by awarded_at.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*Bonus, error)

	// ScopeIDs returns the scope ids a user holds a bonus for, within one scope.
	ScopeIDs(ctx context.Context, userID shared.UserID, scope Scope) ([]string, error)

	// PointsByUser sums bonus_points per user for bonuses inside r.
	PointsByUser(ctx context.Context, r shared.TimeRange) ([]shared.UserPoints, error)
}

// Covers reports whether visited contains every id in entitled.
// An empty entitled set is never covered.
func Covers(visited, entitled []shared.LandmarkID) bool {
	if len(entitled) == 0 {
		return false
	}
	seen := make(map[shared.LandmarkID]struct{}, len(visited))
	for _, id := range visited {
		seen[id] = struct{}{}
	}
	for _, id := range entitled {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
