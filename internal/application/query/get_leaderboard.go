// Package query contains read operations following the CQRS pattern.
// Queries never modify state. Everything they return is derived from stored
// visits, bonuses and feed entries at read time.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/leaderboard"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Ranks users by visit points plus completion bonuses inside a calendar
// window. The ranking is recomputed from the records on every cache miss.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Window is all_time, monthly or weekly. Empty means all_time.
	Window string

	// Limit caps the number of entries. 0 returns every ranked user.
	Limit int
}

// Validate checks the query parameters.
func (q GetLeaderboardQuery) Validate() error {
	if _, err := leaderboard.ParseWindow(q.Window); err != nil {
		return shared.ValidationError("leaderboard", "Rank", err.Error(), err)
	}
	if q.Limit < 0 {
		return shared.ValidationError("leaderboard", "Rank", "limit cannot be negative", leaderboard.ErrInvalidLimit)
	}
	return nil
}

// LeaderboardEntryDTO is one ranked user.
type LeaderboardEntryDTO struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	VisitPoints int    `json:"visit_points"`
	BonusPoints int    `json:"bonus_points"`
}

// GetLeaderboardResult contains the ranked users of one window.
type GetLeaderboardResult struct {
	Window     string                `json:"window"`
	From       *time.Time            `json:"from,omitempty"`
	Entries    []LeaderboardEntryDTO `json:"entries"`
	TotalUsers int                   `json:"total_users"`
	FromCache  bool                  `json:"from_cache"`
}

// GetLeaderboardHandler is the leaderboard ranker.
type GetLeaderboardHandler struct {
	visits   visit.Store
	bonuses  completion.Store
	cache    leaderboard.Cache
	cacheTTL time.Duration
	location *time.Location
	clock    timeutil.Clock
	logger   *slog.Logger
}

// LeaderboardOption configures a GetLeaderboardHandler.
type LeaderboardOption func(*GetLeaderboardHandler)

// WithLeaderboardCache enables a read-through ranking cache.
func WithLeaderboardCache(cache leaderboard.Cache, ttl time.Duration) LeaderboardOption {
	return func(h *GetLeaderboardHandler) {
		h.cache = cache
		h.cacheTTL = ttl
	}
}

// WithLocation sets the time zone that weekly and monthly windows align to.
func WithLocation(loc *time.Location) LeaderboardOption {
	return func(h *GetLeaderboardHandler) {
		if loc != nil {
			h.location = loc
		}
	}
}

// WithClock overrides the clock used to place the current window.
func WithClock(c timeutil.Clock) LeaderboardOption {
	return func(h *GetLeaderboardHandler) {
		if c != nil {
			h.clock = c
		}
	}
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
func NewGetLeaderboardHandler(visits visit.Store, bonuses completion.Store, log *slog.Logger, opts ...LeaderboardOption) *GetLeaderboardHandler {
	h := &GetLeaderboardHandler{
		visits:   visits,
		bonuses:  bonuses,
		location: time.UTC,
		clock:    timeutil.SystemClock{},
		logger:   logger.OrDefault(log).With(logger.Component("leaderboard")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	window, _ := leaderboard.ParseWindow(q.Window)

	ranking, cached, err := h.ranking(ctx, window)
	if err != nil {
		return nil, err
	}

	top := ranking.Top(q.Limit)
	result := &GetLeaderboardResult{
		Window:     window.String(),
		Entries:    make([]LeaderboardEntryDTO, 0, len(top)),
		TotalUsers: ranking.Len(),
		FromCache:  cached,
	}
	if !ranking.From.IsZero() {
		from := ranking.From
		result.From = &from
	}
	for _, e := range top {
		result.Entries = append(result.Entries, LeaderboardEntryDTO{
			Rank:        int(e.Rank),
			UserID:      e.UserID.String(),
			TotalPoints: e.TotalPoints.Int(),
			VisitPoints: e.VisitPoints.Int(),
			BonusPoints: e.BonusPoints.Int(),
		})
	}
	return result, nil
}

// Rank returns the ranking of a window, truncated to limit entries (0 = all).
func (h *GetLeaderboardHandler) Rank(ctx context.Context, window leaderboard.Window, limit int) ([]leaderboard.Entry, error) {
	if !window.IsValid() {
		return nil, leaderboard.ErrInvalidWindow
	}
	if limit < 0 {
		return nil, leaderboard.ErrInvalidLimit
	}
	ranking, _, err := h.ranking(ctx, window)
	if err != nil {
		return nil, err
	}
	return ranking.Top(limit), nil
}

// UserEntry returns a user's entry in a window, or ok=false if they have no points there.
func (h *GetLeaderboardHandler) UserEntry(ctx context.Context, window leaderboard.Window, userID shared.UserID) (leaderboard.Entry, bool, error) {
	ranking, _, err := h.ranking(ctx, window)
	if err != nil {
		return leaderboard.Entry{}, false, err
	}
	e, ok := ranking.Find(userID)
	return e, ok, nil
}

// Refresh recomputes a window and stores the result in the cache regardless
// of what the cache holds. It returns the number of ranked users. A ranking
// that lost a race with an invalidation is computed but not stored.
func (h *GetLeaderboardHandler) Refresh(ctx context.Context, window leaderboard.Window) (int, error) {
	if !window.IsValid() {
		return 0, leaderboard.ErrInvalidWindow
	}
	r := WindowRange(window, h.clock.Now(), h.location)

	if h.cache == nil {
		ranking, err := h.compute(ctx, window, r)
		if err != nil {
			return 0, err
		}
		return ranking.Len(), nil
	}

	gen, err := h.cache.Generation(ctx)
	if err != nil {
		return 0, fmt.Errorf("leaderboard: read cache generation: %w", err)
	}
	ranking, err := h.compute(ctx, window, r)
	if err != nil {
		return 0, err
	}
	ranking.Generation = gen
	if _, err := h.cache.Set(ctx, ranking, h.cacheTTL); err != nil {
		return ranking.Len(), fmt.Errorf("leaderboard: cache refreshed ranking: %w", err)
	}
	return ranking.Len(), nil
}

// WindowRange returns the time range a window covers at now.
func WindowRange(window leaderboard.Window, now time.Time, loc *time.Location) shared.TimeRange {
	switch window {
	case leaderboard.WindowWeekly:
		return shared.TimeRange{From: timeutil.StartOfWeek(now, loc), To: timeutil.StartOfNextWeek(now, loc)}
	case leaderboard.WindowMonthly:
		return shared.TimeRange{From: timeutil.StartOfMonth(now, loc), To: timeutil.StartOfNextMonth(now, loc)}
	default:
		return shared.Unbounded()
	}
}

// ranking serves a window from the cache when it holds a ranking of the
// current generation and period, and recomputes it otherwise. The generation
// is read before aggregating so that a ranking racing an invalidation is
// rejected by the cache instead of overwriting it.
func (h *GetLeaderboardHandler) ranking(ctx context.Context, window leaderboard.Window) (*leaderboard.Ranking, bool, error) {
	r := WindowRange(window, h.clock.Now(), h.location)

	useCache := h.cache != nil
	var gen uint64
	if useCache {
		var err error
		gen, err = h.cache.Generation(ctx)
		if err != nil {
			h.logger.Warn("leaderboard cache unavailable", logger.Window(window.String()), logger.Err(err))
			useCache = false
		}
	}

	if useCache {
		cached, ok, err := h.cache.Get(ctx, window)
		switch {
		case err != nil:
			h.logger.Warn("leaderboard cache read failed", logger.Window(window.String()), logger.Err(err))
		case ok && cached.Covers(window, r.From):
			return cached, true, nil
		}
	}

	start := time.Now()
	ranking, err := h.compute(ctx, window, r)
	if err != nil {
		return nil, false, err
	}
	ranking.Generation = gen
	h.logger.Debug("leaderboard computed",
		logger.Window(window.String()),
		slog.Int("users", ranking.Len()),
		logger.Latency(time.Since(start)),
	)

	if useCache {
		stored, err := h.cache.Set(ctx, ranking, h.cacheTTL)
		switch {
		case err != nil:
			h.logger.Warn("leaderboard cache write failed", logger.Window(window.String()), logger.Err(err))
		case !stored:
			h.logger.Debug("leaderboard cache invalidated during computation", logger.Window(window.String()))
		}
	}
	return ranking, false, nil
}

func (h *GetLeaderboardHandler) compute(ctx context.Context, window leaderboard.Window, r shared.TimeRange) (*leaderboard.Ranking, error) {
	visitPoints, err := h.visits.PointsByUser(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: sum visit points: %w", err)
	}
	bonusPoints, err := h.bonuses.PointsByUser(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: sum bonus points: %w", err)
	}

	ranking := leaderboard.Build(window, visitPoints, bonusPoints)
	ranking.From = r.From
	return ranking, nil
}
