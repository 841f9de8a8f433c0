package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags holds operational toggles. None of them changes awarding
// rules; they switch optional infrastructure on and off.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Users are bucketed by a hash of their ID.
	RolloutPercent int
}

// Predefined feature flag names.
const (
	FeatureLeaderboardCache  = "leaderboard.cache"   // Serve rankings from Redis
	FeatureCatalogCache      = "catalog.cache"       // Cache landmark lookups in Redis
	FeatureDomainEvents      = "progression.events"  // Publish events on the bus
	FeatureRequestLogging    = "ops.request_logging" // Log ops HTTP requests
	FeatureLeaderboardWarmup = "leaderboard.warmup"  // Periodically recompute cached rankings
)

// dependencies lists features that only work while another one is on, in
// resolution order.
var dependencies = []struct{ feature, requires string }{
	// Cached rankings are only invalidated by progression events.
	{FeatureLeaderboardCache, FeatureDomainEvents},
	{FeatureLeaderboardWarmup, FeatureLeaderboardCache},
}

// LoadFeatureFlags loads feature flags from defaults and environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	for _, f := range []Feature{
		{Name: FeatureLeaderboardCache, Description: "Cache computed rankings in Redis", Enabled: true, RolloutPercent: 100},
		{Name: FeatureCatalogCache, Description: "Cache landmark catalog lookups in Redis", Enabled: true, RolloutPercent: 100},
		{Name: FeatureDomainEvents, Description: "Publish progression events on the in-process bus", Enabled: true, RolloutPercent: 100},
		{Name: FeatureRequestLogging, Description: "Log every request to the ops server", Enabled: false, RolloutPercent: 0},
		{Name: FeatureLeaderboardWarmup, Description: "Recompute cached rankings on a schedule", Enabled: true, RolloutPercent: 100},
	} {
		f := f
		ff.features[f.Name] = &f
	}
}

// loadFromEnvironment loads overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_LEADERBOARD_CACHE=false
// Example: FEATURE_OPS_REQUEST_LOGGING=25 (25% of requests by caller id)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = 0
			if b {
				feature.RolloutPercent = 100
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "leaderboard.cache" -> "FEATURE_LEADERBOARD_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a feature is fully switched on.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[featureName]
	return ok && f.Enabled && f.RolloutPercent >= 100
}

// IsEnabledFor reports whether a feature is on for a specific user.
func (ff *FeatureFlags) IsEnabledFor(featureName, userID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[featureName]
	if !ok || !f.Enabled {
		return false
	}
	if f.RolloutPercent >= 100 {
		return true
	}
	return inRollout(userID, featureName, f.RolloutPercent)
}

// inRollout uses consistent hashing so users stay in their bucket.
func inRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	return int(h.Sum32()%100) < percent
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}
	f.RolloutPercent = percent
	f.Enabled = percent > 0
	return nil
}

// ResolveDependencies disables every feature whose prerequisite is not fully
// enabled and returns the names it switched off.
func (ff *FeatureFlags) ResolveDependencies() []string {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	var disabled []string
	for _, d := range dependencies {
		f, ok := ff.features[d.feature]
		if !ok || !f.Enabled {
			continue
		}
		req, ok := ff.features[d.requires]
		if ok && req.Enabled && req.RolloutPercent >= 100 {
			continue
		}
		f.Enabled = false
		f.RolloutPercent = 0
		disabled = append(disabled, d.feature)
	}
	return disabled
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]Feature, len(ff.features))
	for k, v := range ff.features {
		result[k] = *v
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
