package leaderboard

import (
	"context"
	"time"
)

// Cache stores computed rankings. It is an optimisation only: a miss or an
// error falls back to recomputation from the underlying records.
//
// Every Invalidate advances a generation counter. A reader takes the
// generation before it aggregates and stamps it on the ranking; Set refuses a
// ranking whose generation is no longer current, so a ranking computed before
// a visit committed can never outlive that visit's invalidation.
type Cache interface {
	// Generation returns the current generation.
	Generation(ctx context.Context) (uint64, error)

	// Get returns the cached ranking for a window, or ok=false on a miss.
	// Rankings of an older generation are misses.
	Get(ctx context.Context, window Window) (ranking *Ranking, ok bool, err error)

	// Set stores a ranking for ttl if ranking.Generation is still current.
	// stored is false when the generation moved on.
	Set(ctx context.Context, ranking *Ranking, ttl time.Duration) (stored bool, err error)

	// Invalidate advances the generation and drops every cached window.
	Invalidate(ctx context.Context) error
}
