package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/travelquest/travelquest-hub/internal/domain/leaderboard"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// cachedEntry is the stored form of a ranked user.
type cachedEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"user_id"`
	TotalPoints int       `json:"total_points"`
	VisitPoints int       `json:"visit_points"`
	BonusPoints int       `json:"bonus_points"`
	ReachedAt   time.Time `json:"reached_at"`
}

// cachedRanking is the stored form of a ranking.
type cachedRanking struct {
	Window     string        `json:"window"`
	From       time.Time     `json:"from"`
	Generation uint64        `json:"generation"`
	Entries    []cachedEntry `json:"entries"`
	CachedAt   time.Time     `json:"cached_at"`
}

// GenerationKey holds the counter every invalidation increments.
const GenerationKey = PrefixLeaderboard + "generation"

// setIfCurrent writes KEYS[2] only while KEYS[1] still holds ARGV[1]. A
// missing counter reads as generation 0.
var setIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// LeaderboardCache stores computed rankings, one JSON document per window
// under "leaderboard:{window}", next to a generation counter. It implements
// leaderboard.Cache.
type LeaderboardCache struct {
	cache *Cache
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// LeaderboardKey generates the cache key for a window.
func LeaderboardKey(window leaderboard.Window) string {
	return PrefixLeaderboard + window.String()
}

// Generation returns the current generation.
func (lc *LeaderboardCache) Generation(ctx context.Context) (uint64, error) {
	var gen uint64
	err := lc.cache.guard(ctx, func(ctx context.Context) error {
		raw, err := lc.cache.client.Get(ctx, GenerationKey).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		gen, err = parseGeneration(raw)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("leaderboard_cache: generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached ranking for a window. The ranking and the counter
// are read in one MGET, so an invalidation is never observed half-way.
func (lc *LeaderboardCache) Get(ctx context.Context, window leaderboard.Window) (*leaderboard.Ranking, bool, error) {
	if !window.IsValid() {
		return nil, false, fmt.Errorf("%w: %q", leaderboard.ErrInvalidWindow, window)
	}

	var values []interface{}
	err := lc.cache.guard(ctx, func(ctx context.Context) error {
		var err error
		values, err = lc.cache.client.MGet(ctx, GenerationKey, LeaderboardKey(window)).Result()
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard_cache: get %s: %w", window, err)
	}

	return decodeRanking(values)
}

// Set stores a ranking for ttl unless the generation it was computed under
// has been invalidated since. A zero ttl uses TTLLeaderboardCache.
func (lc *LeaderboardCache) Set(ctx context.Context, ranking *leaderboard.Ranking, ttl time.Duration) (bool, error) {
	if ranking == nil {
		return false, ErrCacheNilValue
	}
	if !ranking.Window.IsValid() {
		return false, fmt.Errorf("%w: %q", leaderboard.ErrInvalidWindow, ranking.Window)
	}
	if ttl < 0 {
		return false, ErrCacheInvalidTTL
	}
	if ttl == 0 {
		ttl = TTLLeaderboardCache
	}

	data, err := json.Marshal(toCached(ranking))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	var stored bool
	err = lc.cache.guard(ctx, func(ctx context.Context) error {
		n, err := setIfCurrent.Run(ctx, lc.cache.client,
			[]string{GenerationKey, LeaderboardKey(ranking.Window)},
			strconv.FormatUint(ranking.Generation, 10), data, ttl.Milliseconds(),
		).Int()
		if err != nil {
			return err
		}
		stored = n == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("leaderboard_cache: set %s: %w", ranking.Window, err)
	}
	return stored, nil
}

// Invalidate bumps the generation and drops every cached window in one
// MULTI/EXEC.
func (lc *LeaderboardCache) Invalidate(ctx context.Context) error {
	windows := leaderboard.AllWindows()
	keys := make([]string, 0, len(windows))
	for _, w := range windows {
		keys = append(keys, LeaderboardKey(w))
	}

	err := lc.cache.guard(ctx, func(ctx context.Context) error {
		_, err := lc.cache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, GenerationKey)
			pipe.Del(ctx, keys...)
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("leaderboard_cache: invalidate: %w", err)
	}
	return nil
}

// decodeRanking turns an MGET of [generation, ranking] into a ranking. A
// missing ranking or one from an older generation is a miss.
func decodeRanking(values []interface{}) (*leaderboard.Ranking, bool, error) {
	if len(values) != 2 || values[1] == nil {
		return nil, false, nil
	}

	var current uint64
	if raw, ok := values[0].(string); ok {
		gen, err := parseGeneration(raw)
		if err != nil {
			return nil, false, err
		}
		current = gen
	}

	raw, ok := values[1].(string)
	if !ok {
		return nil, false, fmt.Errorf("%w: unexpected %T", ErrCacheSerialization, values[1])
	}
	var stored cachedRanking
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	if stored.Generation != current {
		return nil, false, nil
	}
	return fromCached(stored), true, nil
}

func parseGeneration(raw string) (uint64, error) {
	gen, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: generation %q: %v", ErrCacheSerialization, raw, err)
	}
	return gen, nil
}

func toCached(r *leaderboard.Ranking) cachedRanking {
	entries := make([]cachedEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, cachedEntry{
			Rank:        int(e.Rank),
			UserID:      e.UserID.String(),
			TotalPoints: e.TotalPoints.Int(),
			VisitPoints: e.VisitPoints.Int(),
			BonusPoints: e.BonusPoints.Int(),
			ReachedAt:   e.ReachedAt.UTC(),
		})
	}
	return cachedRanking{
		Window:     r.Window.String(),
		From:       r.From.UTC(),
		Generation: r.Generation,
		Entries:    entries,
		CachedAt:   time.Now().UTC(),
	}
}

func fromCached(c cachedRanking) *leaderboard.Ranking {
	entries := make([]leaderboard.Entry, 0, len(c.Entries))
	for _, e := range c.Entries {
		entries = append(entries, leaderboard.Entry{
			Rank:        leaderboard.Rank(e.Rank),
			UserID:      shared.UserID(e.UserID),
			TotalPoints: shared.Points(e.TotalPoints),
			VisitPoints: shared.Points(e.VisitPoints),
			BonusPoints: shared.Points(e.BonusPoints),
			ReachedAt:   e.ReachedAt,
		})
	}
	return &leaderboard.Ranking{
		Window:     leaderboard.Window(c.Window),
		From:       c.From,
		Entries:    entries,
		Generation: c.Generation,
	}
}
