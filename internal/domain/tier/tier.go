// Package tier holds the subscription-tier policy table. It is a static lookup:
// nothing in here touches storage and nothing mutates after package init.
package tier

import (
	"math"
	"strings"
)

// Tier is a subscription level.
type Tier string

const (
	// Free is the default tier for every account.
	Free Tier = "free"
	// Pro is the paid tier.
	Pro Tier = "pro"
)

// Parse normalizes a stored tier value. Unknown values map to Free so that a
// corrupted or missing tier never grants more than the least privileged limits.
func Parse(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case Pro:
		return Pro
	default:
		return Free
	}
}

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	return t == Free || t == Pro
}

// String returns the string representation.
func (t Tier) String() string {
	return string(t)
}

// Unlimited marks a limit without an upper bound.
const Unlimited = math.MaxInt32

// Limits are the feature limits granted by a tier.
type Limits struct {
	MaxFriends                int
	PhotosPerVisit            int
	CanAccessPremiumLandmarks bool
	CanCreateCustomVisits     bool
}

// AllowsPhotos reports whether n photos fit into a single visit.
func (l Limits) AllowsPhotos(n int) bool {
	return n <= l.PhotosPerVisit
}

// HasUnlimitedFriends reports whether the friend cap is unbounded.
func (l Limits) HasUnlimitedFriends() bool {
	return l.MaxFriends >= Unlimited
}

var table = map[Tier]Limits{
	Free: {
		MaxFriends:                50,
		PhotosPerVisit:            1,
		CanAccessPremiumLandmarks: false,
		CanCreateCustomVisits:     false,
	},
	Pro: {
		MaxFriends:                Unlimited,
		PhotosPerVisit:            10,
		CanAccessPremiumLandmarks: true,
		CanCreateCustomVisits:     true,
	},
}

// LimitsFor returns the limits for t. Unknown tiers get the Free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := table[t]; ok {
		return l
	}
	return table[Free]
}

// Gate is the injectable view of the policy table used by the application layer.
type Gate interface {
	Limits(t Tier) Limits
}

// StaticGate serves the built-in policy table.
type StaticGate struct{}

// Limits implements Gate.
func (StaticGate) Limits(t Tier) Limits {
	return LimitsFor(t)
}
