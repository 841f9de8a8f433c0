// Package eventhandler contains the reactive side of progression: turning
// awarding decisions into feed entries and keeping derived caches fresh.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/activity"
	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

// IDGenerator generates feed entry identifiers.
type IDGenerator interface {
	GenerateID() string
}

// ═══════════════════════════════════════════════════════════════════════════
// FEED EVENTS
// ═══════════════════════════════════════════════════════════════════════════

// FeedEvent is one newly created artifact worth a feed entry.
// The set of implementations is closed.
type FeedEvent interface {
	entry() (activity.Type, activity.Payload, time.Time)
}

// VisitRecorded describes a newly stored visit.
type VisitRecorded struct {
	Visit        *visit.Visit
	LandmarkName string
}

func (e VisitRecorded) entry() (activity.Type, activity.Payload, time.Time) {
	return activity.TypeVisit, activity.Payload{
		LandmarkID:   e.Visit.LandmarkID,
		LandmarkName: e.LandmarkName,
		CountryID:    e.Visit.CountryID,
		Continent:    e.Visit.Continent,
		PointsEarned: e.Visit.PointsEarned,
	}, e.Visit.VisitedAt
}

// BadgeAwarded describes a newly awarded badge.
type BadgeAwarded struct {
	Achievement *achievement.Achievement
	BadgeName   string
}

func (e BadgeAwarded) entry() (activity.Type, activity.Payload, time.Time) {
	return activity.TypeBadge, activity.Payload{
		BadgeType: e.Achievement.BadgeType.String(),
		BadgeName: e.BadgeName,
	}, e.Achievement.EarnedAt
}

// BonusAwarded describes a newly awarded completion bonus.
type BonusAwarded struct {
	Bonus *completion.Bonus
}

func (e BonusAwarded) entry() (activity.Type, activity.Payload, time.Time) {
	p := activity.Payload{PointsEarned: e.Bonus.BonusPoints}
	if e.Bonus.Scope == completion.ScopeContinent {
		p.Continent = shared.Continent(e.Bonus.ScopeID)
		return activity.TypeContinentComplete, p, e.Bonus.AwardedAt
	}
	p.CountryID = shared.CountryID(e.Bonus.ScopeID)
	return activity.TypeCountryComplete, p, e.Bonus.AwardedAt
}

// ═══════════════════════════════════════════════════════════════════════════
// ACTIVITY FEED EMITTER
// Appends exactly one entry per event it receives. Upstream engines only
// report artifacts they actually created, so no deduplication happens here.
// ═══════════════════════════════════════════════════════════════════════════

// ActivityFeedEmitter writes feed entries.
type ActivityFeedEmitter struct {
	feed   activity.FeedStore
	ids    IDGenerator
	clock  timeutil.Clock
	logger *slog.Logger
}

// NewActivityFeedEmitter creates a new ActivityFeedEmitter.
func NewActivityFeedEmitter(feed activity.FeedStore, ids IDGenerator, clock timeutil.Clock, log *slog.Logger) *ActivityFeedEmitter {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &ActivityFeedEmitter{
		feed:   feed,
		ids:    ids,
		clock:  clock,
		logger: logger.OrDefault(log).With(logger.Component("activity_feed")),
	}
}

// Emit appends the entry for ev. The entry is timestamped with the artifact's
// own time when it has one.
func (e *ActivityFeedEmitter) Emit(ctx context.Context, userID shared.UserID, ev FeedEvent) (*activity.Entry, error) {
	t, payload, at := ev.entry()
	if at.IsZero() {
		at = e.clock.Now()
	}

	entry, err := activity.NewEntry(e.ids.GenerateID(), userID, t, payload, at)
	if err != nil {
		return nil, fmt.Errorf("activity_feed: build %s entry: %w", t, err)
	}

	if err := e.feed.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("activity_feed: append %s entry: %w", t, err)
	}

	e.logger.Debug("feed entry appended",
		logger.UserID(userID.String()),
		slog.String("activity_type", t.String()),
		logger.Points(payload.PointsEarned.Int()),
	)
	return entry, nil
}
