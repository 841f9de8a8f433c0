package achievement

import (
	"fmt"

	"github.com/travelquest/travelquest-hub/internal/domain/visit"
)

// Metric is a cumulative stat a rule compares against its threshold.
type Metric string

const (
	MetricVisitCount         Metric = "visit_count"
	MetricVisitPoints        Metric = "visit_points"
	MetricDistinctCountries  Metric = "distinct_countries"
	MetricDistinctContinents Metric = "distinct_continents"
	MetricPremiumVisits      Metric = "premium_visits"
)

// Value extracts the metric from stats.
func (m Metric) Value(s visit.Stats) (int, error) {
	switch m {
	case MetricVisitCount:
		return s.VisitCount, nil
	case MetricVisitPoints:
		return s.VisitPoints.Int(), nil
	case MetricDistinctCountries:
		return s.DistinctCountries, nil
	case MetricDistinctContinents:
		return s.DistinctContinents, nil
	case MetricPremiumVisits:
		return s.PremiumVisits, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, m)
	}
}

// Rule awards Badge once Metric reaches Threshold.
type Rule struct {
	Badge       BadgeType
	Name        string
	Description string
	Metric      Metric
	Threshold   int
}

// Satisfied reports whether the rule holds for s.
func (r Rule) Satisfied(s visit.Stats) bool {
	v, err := r.Metric.Value(s)
	if err != nil {
		return false
	}
	return v >= r.Threshold
}

// RuleSet is a versioned, immutable badge catalog. Build it once at start-up
// and share it by pointer.
type RuleSet struct {
	version int
	rules   []Rule
	index   map[BadgeType]int
}

// NewRuleSet validates and freezes a catalog.
func NewRuleSet(version int, rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{
		version: version,
		rules:   make([]Rule, 0, len(rules)),
		index:   make(map[BadgeType]int, len(rules)),
	}
	for _, r := range rules {
		if !r.Badge.IsValid() {
			return nil, ErrInvalidBadge
		}
		if r.Threshold <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidThreshold, r.Badge)
		}
		if _, err := r.Metric.Value(visit.Stats{}); err != nil {
			return nil, err
		}
		if _, dup := rs.index[r.Badge]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.Badge)
		}
		rs.index[r.Badge] = len(rs.rules)
		rs.rules = append(rs.rules, r)
	}
	return rs, nil
}

// Version returns the catalog version.
func (rs *RuleSet) Version() int {
	return rs.version
}

// Rules returns a copy of the rules in catalog order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Lookup returns the rule for a badge.
func (rs *RuleSet) Lookup(b BadgeType) (Rule, bool) {
	i, ok := rs.index[b]
	if !ok {
		return Rule{}, false
	}
	return rs.rules[i], true
}

// Satisfied returns the rules that hold for s, in catalog order.
func (rs *RuleSet) Satisfied(s visit.Stats) []Rule {
	var out []Rule
	for _, r := range rs.rules {
		if r.Satisfied(s) {
			out = append(out, r)
		}
	}
	return out
}

// DefaultRuleSet returns version 1 of the built-in catalog.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(1,
		Rule{Badge: BadgeFirstVisit, Name: "First Steps", Description: "Record your first visit", Metric: MetricVisitCount, Threshold: 1},
		Rule{Badge: BadgeExplorer10, Name: "Explorer", Description: "Visit 10 landmarks", Metric: MetricVisitCount, Threshold: 10},
		Rule{Badge: BadgeExplorer50, Name: "Seasoned Explorer", Description: "Visit 50 landmarks", Metric: MetricVisitCount, Threshold: 50},
		Rule{Badge: BadgeExplorer100, Name: "Legendary Explorer", Description: "Visit 100 landmarks", Metric: MetricVisitCount, Threshold: 100},
		Rule{Badge: BadgePoints100, Name: "Century", Description: "Earn 100 points from visits", Metric: MetricVisitPoints, Threshold: 100},
		Rule{Badge: BadgePoints500, Name: "High Scorer", Description: "Earn 500 points from visits", Metric: MetricVisitPoints, Threshold: 500},
		Rule{Badge: BadgePoints1000, Name: "Point Master", Description: "Earn 1000 points from visits", Metric: MetricVisitPoints, Threshold: 1000},
		Rule{Badge: BadgeCountryHopper5, Name: "Country Hopper", Description: "Visit landmarks in 5 countries", Metric: MetricDistinctCountries, Threshold: 5},
		Rule{Badge: BadgeGlobetrotter20, Name: "Globetrotter", Description: "Visit landmarks in 20 countries", Metric: MetricDistinctCountries, Threshold: 20},
		Rule{Badge: BadgeContinentExplorer3, Name: "Continent Explorer", Description: "Visit landmarks on 3 continents", Metric: MetricDistinctContinents, Threshold: 3},
		Rule{Badge: BadgeSevenContinents, Name: "Seven Continents", Description: "Visit landmarks on all 7 continents", Metric: MetricDistinctContinents, Threshold: 7},
		Rule{Badge: BadgePremiumPioneer, Name: "Premium Pioneer", Description: "Visit a premium landmark", Metric: MetricPremiumVisits, Threshold: 1},
	)
	if err != nil {
		panic(fmt.Sprintf("achievement: invalid default rule set: %v", err))
	}
	return rs
}
