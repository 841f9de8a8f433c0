package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/leaderboard"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE INVALIDATOR
// Drops cached rankings whenever points change. Badges carry no points and
// are not subscribed.
// ═══════════════════════════════════════════════════════════════════════════

// LeaderboardInvalidator subscribes to progression events.
type LeaderboardInvalidator struct {
	cache   leaderboard.Cache
	timeout time.Duration
	logger  *slog.Logger
}

// NewLeaderboardInvalidator creates a new LeaderboardInvalidator.
func NewLeaderboardInvalidator(cache leaderboard.Cache, log *slog.Logger) *LeaderboardInvalidator {
	return &LeaderboardInvalidator{
		cache:   cache,
		timeout: 2 * time.Second,
		logger:  logger.OrDefault(log).With(logger.Component("leaderboard_invalidator")),
	}
}

// PointEvents are the event types that change leaderboard totals.
func PointEvents() []shared.EventType {
	return []shared.EventType{
		shared.EventVisitRecorded,
		shared.EventCountryCompleted,
		shared.EventContinentCompleted,
	}
}

// Register subscribes the invalidator to every point-changing event. On a
// bus that supports it the subscription is synchronous, so a ranking read
// after SubmitVisit returns never comes from before the visit.
func (h *LeaderboardInvalidator) Register(sub shared.EventSubscriber) error {
	subscribe := sub.Subscribe
	if s, ok := sub.(shared.SyncSubscriber); ok {
		subscribe = s.SubscribeSync
	}
	for _, t := range PointEvents() {
		if err := subscribe(t, h.Handle); err != nil {
			return fmt.Errorf("leaderboard_invalidator: subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Handle implements shared.EventHandler.
func (h *LeaderboardInvalidator) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Error("failed to invalidate leaderboard cache",
			slog.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
		return err
	}

	h.logger.Debug("leaderboard cache invalidated",
		slog.String("event_type", string(event.EventType())),
		logger.UserID(event.AggregateID()),
	)
	return nil
}
