// Package user describes the traveller as seen by the progression engine.
// Points, badges and completions are derived from other records and are
// deliberately absent here.
package user

import (
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/tier"
)

// Role is the account role.
type Role string

const (
	RoleTraveler Role = "traveler"
	RoleAdmin    Role = "admin"
)

// User is the caller identity handed to the engine by the API layer.
type User struct {
	ID   shared.UserID
	Tier tier.Tier
	Role Role
}

// New creates a user, normalizing an unknown tier to free.
func New(id shared.UserID, t tier.Tier, role Role) (User, error) {
	if !id.IsValid() {
		return User{}, shared.ErrInvalidUserID
	}
	if !t.IsValid() {
		t = tier.Free
	}
	if role == "" {
		role = RoleTraveler
	}
	return User{ID: id, Tier: t, Role: role}, nil
}

// Validate checks the identity is usable.
func (u User) Validate() error {
	if !u.ID.IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// EffectiveTier returns the tier used for policy decisions.
func (u User) EffectiveTier() tier.Tier {
	if u.Tier.IsValid() {
		return u.Tier
	}
	return tier.Free
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
