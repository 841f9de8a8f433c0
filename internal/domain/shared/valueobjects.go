// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies a traveller. All mutable progression state is partitioned by it.
type UserID string

// IsValid checks if the user ID is non-empty.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// LandmarkID identifies a catalogued landmark.
type LandmarkID string

// IsValid checks if the landmark ID is non-empty.
func (l LandmarkID) IsValid() bool {
	return strings.TrimSpace(string(l)) != ""
}

// String returns the string representation.
func (l LandmarkID) String() string {
	return string(l)
}

// CountryID identifies a country in the catalog (e.g. "FR").
type CountryID string

// IsValid checks if the country ID is non-empty.
func (c CountryID) IsValid() bool {
	return strings.TrimSpace(string(c)) != ""
}

// String returns the string representation.
func (c CountryID) String() string {
	return string(c)
}

// Continent is a continent name as stored in the catalog (e.g. "Europe").
type Continent string

// IsValid checks if the continent name is non-empty.
func (c Continent) IsValid() bool {
	return strings.TrimSpace(string(c)) != ""
}

// String returns the string representation.
func (c Continent) String() string {
	return string(c)
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Points is an amount of progression points.
type Points int

// IsValid checks that points are not negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// ═══════════════════════════════════════════════════════════════════════════
// Time Range
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange is a half-open interval [From, To). A zero From or To is unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Unbounded returns a range covering all time.
func Unbounded() TimeRange {
	return TimeRange{}
}

// Since returns a range starting at from with no upper bound.
func Since(from time.Time) TimeRange {
	return TimeRange{From: from}
}

// IsUnbounded reports whether neither bound is set.
func (t TimeRange) IsUnbounded() bool {
	return t.From.IsZero() && t.To.IsZero()
}

// Contains checks if the time is inside the range.
func (t TimeRange) Contains(tm time.Time) bool {
	if !t.From.IsZero() && tm.Before(t.From) {
		return false
	}
	if !t.To.IsZero() && !tm.Before(t.To) {
		return false
	}
	return true
}

// ═══════════════════════════════════════════════════════════════════════════
// Aggregates
// ═══════════════════════════════════════════════════════════════════════════

// UserPoints is a per-user points sum over some set of records.
// ReachedAt is the timestamp of the latest record contributing to the sum.
type UserPoints struct {
	UserID    UserID
	Points    Points
	ReachedAt time.Time
}
