package query

import (
	"context"
	"fmt"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/leaderboard"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// Summarises a user's progression. Nothing here is stored as a counter:
// totals come from visits and bonuses, badges from achievements.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeDTO is a held badge.
type BadgeDTO struct {
	Type     string    `json:"badge_type"`
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earned_at"`
}

// UserProgressDTO is the progression summary of a user.
type UserProgressDTO struct {
	UserID              string     `json:"user_id"`
	TotalPoints         int        `json:"total_points"`
	VisitPoints         int        `json:"visit_points"`
	BonusPoints         int        `json:"bonus_points"`
	VisitCount          int        `json:"visit_count"`
	DistinctCountries   int        `json:"distinct_countries"`
	DistinctContinents  int        `json:"distinct_continents"`
	Badges              []BadgeDTO `json:"badges"`
	CompletedCountries  []string   `json:"completed_countries"`
	CompletedContinents []string   `json:"completed_continents"`

	// AllTimeRank is nil when no ranker is configured or the user has no points.
	AllTimeRank *int `json:"all_time_rank,omitempty"`
}

// GetUserProgressHandler builds UserProgressDTO.
type GetUserProgressHandler struct {
	visits       visit.Store
	achievements achievement.Store
	bonuses      completion.Store
	rules        *achievement.RuleSet
	ranker       *GetLeaderboardHandler
}

// NewGetUserProgressHandler creates a new GetUserProgressHandler. ranker may be nil.
func NewGetUserProgressHandler(
	visits visit.Store,
	achievements achievement.Store,
	bonuses completion.Store,
	rules *achievement.RuleSet,
	ranker *GetLeaderboardHandler,
) *GetUserProgressHandler {
	if rules == nil {
		rules = achievement.DefaultRuleSet()
	}
	return &GetUserProgressHandler{
		visits:       visits,
		achievements: achievements,
		bonuses:      bonuses,
		rules:        rules,
		ranker:       ranker,
	}
}

// Handle executes the query.
func (h *GetUserProgressHandler) Handle(ctx context.Context, userID shared.UserID) (*UserProgressDTO, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}

	stats, err := h.visits.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user_progress: load stats: %w", err)
	}

	held, err := h.achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user_progress: list achievements: %w", err)
	}

	bonuses, err := h.bonuses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user_progress: list bonuses: %w", err)
	}

	dto := &UserProgressDTO{
		UserID:              userID.String(),
		VisitPoints:         stats.VisitPoints.Int(),
		VisitCount:          stats.VisitCount,
		DistinctCountries:   stats.DistinctCountries,
		DistinctContinents:  stats.DistinctContinents,
		Badges:              make([]BadgeDTO, 0, len(held)),
		CompletedCountries:  []string{},
		CompletedContinents: []string{},
	}

	for _, a := range held {
		name := a.BadgeType.String()
		if rule, ok := h.rules.Lookup(a.BadgeType); ok {
			name = rule.Name
		}
		dto.Badges = append(dto.Badges, BadgeDTO{Type: a.BadgeType.String(), Name: name, EarnedAt: a.EarnedAt})
	}

	for _, b := range bonuses {
		dto.BonusPoints += b.BonusPoints.Int()
		switch b.Scope {
		case completion.ScopeCountry:
			dto.CompletedCountries = append(dto.CompletedCountries, b.ScopeID)
		case completion.ScopeContinent:
			dto.CompletedContinents = append(dto.CompletedContinents, b.ScopeID)
		}
	}
	dto.TotalPoints = dto.VisitPoints + dto.BonusPoints

	if h.ranker != nil {
		entry, ok, err := h.ranker.UserEntry(ctx, leaderboard.WindowAllTime, userID)
		if err != nil {
			return nil, err
		}
		if ok {
			rank := int(entry.Rank)
			dto.AllTimeRank = &rank
		}
	}

	return dto, nil
}
