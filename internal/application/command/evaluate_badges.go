package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE ENGINE
// Recomputes a user's stats from stored visits and tries to insert every badge
// whose rule holds. Only inserts that actually created a row are reported.
// ══════════════════════════════════════════════════════════════════════════════

// AwardedBadge is a newly created achievement together with its rule.
type AwardedBadge struct {
	Achievement *achievement.Achievement
	Rule        achievement.Rule
}

// BadgeEngine evaluates the badge catalog.
type BadgeEngine struct {
	rules        *achievement.RuleSet
	visits       visit.Store
	achievements achievement.Store
	ids          IDGenerator
	clock        timeutil.Clock
	logger       *slog.Logger
}

// NewBadgeEngine creates a new BadgeEngine. A nil rule set selects the default catalog.
func NewBadgeEngine(
	rules *achievement.RuleSet,
	visits visit.Store,
	achievements achievement.Store,
	ids IDGenerator,
	clock timeutil.Clock,
	log *slog.Logger,
) *BadgeEngine {
	if rules == nil {
		rules = achievement.DefaultRuleSet()
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &BadgeEngine{
		rules:        rules,
		visits:       visits,
		achievements: achievements,
		ids:          ids,
		clock:        clock,
		logger:       logger.OrDefault(log).With(logger.Component("badge_engine")),
	}
}

// Rules returns the catalog in use.
func (e *BadgeEngine) Rules() *achievement.RuleSet {
	return e.rules
}

// EvaluateAndAward awards every satisfied badge the user does not hold yet.
// A lost insert race is not an error. On a storage error the badges created
// before the failure are returned alongside it.
func (e *BadgeEngine) EvaluateAndAward(ctx context.Context, userID shared.UserID) ([]AwardedBadge, error) {
	stats, err := e.visits.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("badge_engine: load stats: %w", err)
	}

	satisfied := e.rules.Satisfied(stats)
	if len(satisfied) == 0 {
		return nil, nil
	}

	held, err := e.heldBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	var awarded []AwardedBadge
	for _, rule := range satisfied {
		if held[rule.Badge] {
			continue
		}

		a, err := achievement.New(e.ids.GenerateID(), userID, rule.Badge, e.clock.Now())
		if err != nil {
			return awarded, fmt.Errorf("badge_engine: build %s: %w", rule.Badge, err)
		}

		created, err := e.achievements.Insert(ctx, a)
		if err != nil {
			return awarded, fmt.Errorf("badge_engine: insert %s: %w", rule.Badge, err)
		}
		if !created {
			e.logger.Debug("badge already awarded",
				logger.UserID(userID.String()),
				logger.BadgeType(rule.Badge.String()),
			)
			continue
		}

		e.logger.Info("badge awarded",
			logger.UserID(userID.String()),
			logger.BadgeType(rule.Badge.String()),
			slog.Int("rule_set_version", e.rules.Version()),
		)
		awarded = append(awarded, AwardedBadge{Achievement: a, Rule: rule})
	}

	return awarded, nil
}

// ListAchievements returns every badge a user holds.
func (e *BadgeEngine) ListAchievements(ctx context.Context, userID shared.UserID) ([]*achievement.Achievement, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	list, err := e.achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("badge_engine: list achievements: %w", err)
	}
	return list, nil
}

// heldBadges skips obviously redundant inserts. The conditional insert
// remains the only guard against double awarding.
func (e *BadgeEngine) heldBadges(ctx context.Context, userID shared.UserID) (map[achievement.BadgeType]bool, error) {
	list, err := e.achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("badge_engine: list held badges: %w", err)
	}
	held := make(map[achievement.BadgeType]bool, len(list))
	for _, a := range list {
		held[a.BadgeType] = true
	}
	return held, nil
}
