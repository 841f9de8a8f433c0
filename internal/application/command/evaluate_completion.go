package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/tier"
	"github.com/travelquest/travelquest-hub/internal/domain/user"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION BONUS ENGINE
// Country: the user visited every landmark of the country they are entitled
// to (official only on free, all categories on pro).
// Continent: every country of the continent with a non-empty entitled set
// holds a country bonus.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionConfig holds the bonus amounts.
type CompletionConfig struct {
	CountryBonus   shared.Points
	ContinentBonus shared.Points
}

// DefaultCompletionConfig returns the default bonus amounts.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		CountryBonus:   completion.DefaultCountryBonus,
		ContinentBonus: completion.DefaultContinentBonus,
	}
}

// CompletionBonusEngine awards country and continent completion bonuses.
type CompletionBonusEngine struct {
	catalog landmark.Catalog
	gate    tier.Gate
	visits  visit.Store
	bonuses completion.Store
	ids     IDGenerator
	clock   timeutil.Clock
	config  CompletionConfig
	logger  *slog.Logger
}

// NewCompletionBonusEngine creates a new CompletionBonusEngine.
func NewCompletionBonusEngine(
	catalog landmark.Catalog,
	gate tier.Gate,
	visits visit.Store,
	bonuses completion.Store,
	ids IDGenerator,
	clock timeutil.Clock,
	config CompletionConfig,
	log *slog.Logger,
) *CompletionBonusEngine {
	if gate == nil {
		gate = tier.StaticGate{}
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &CompletionBonusEngine{
		catalog: catalog,
		gate:    gate,
		visits:  visits,
		bonuses: bonuses,
		ids:     ids,
		clock:   clock,
		config:  config,
		logger:  logger.OrDefault(log).With(logger.Component("completion_engine")),
	}
}

// EvaluateAndAward checks the country of the just-visited landmark and, when
// that country is complete, its continent. Each bonus is an independent
// insert-if-absent, so repeated or concurrent calls never double-award.
func (e *CompletionBonusEngine) EvaluateAndAward(ctx context.Context, u user.User, landmarkID shared.LandmarkID) ([]*completion.Bonus, error) {
	lm, err := e.catalog.Get(ctx, landmarkID)
	if err != nil {
		return nil, fmt.Errorf("completion_engine: load landmark: %w", err)
	}

	categories := landmark.EntitledCategories(e.gate.Limits(u.EffectiveTier()).CanAccessPremiumLandmarks)

	complete, err := e.countryComplete(ctx, u.ID, lm.CountryID, categories)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, nil
	}

	var awarded []*completion.Bonus

	countryBonus, created, err := e.award(ctx, u.ID, completion.ScopeCountry, lm.CountryID.String(), e.config.CountryBonus)
	if err != nil {
		return nil, err
	}
	if created {
		awarded = append(awarded, countryBonus)
	}

	// The continent is checked even when the country bonus already existed, so
	// a retry after a failure between the two inserts still reaches it.
	complete, err = e.continentComplete(ctx, u.ID, lm.Continent, categories)
	if err != nil {
		return awarded, err
	}
	if !complete {
		return awarded, nil
	}

	continentBonus, created, err := e.award(ctx, u.ID, completion.ScopeContinent, lm.Continent.String(), e.config.ContinentBonus)
	if err != nil {
		return awarded, err
	}
	if created {
		awarded = append(awarded, continentBonus)
	}

	return awarded, nil
}

// ListBonuses returns every completion bonus a user holds.
func (e *CompletionBonusEngine) ListBonuses(ctx context.Context, userID shared.UserID) ([]*completion.Bonus, error) {
	list, err := e.bonuses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("completion_engine: list bonuses: %w", err)
	}
	return list, nil
}

func (e *CompletionBonusEngine) countryComplete(ctx context.Context, userID shared.UserID, country shared.CountryID, categories []landmark.Category) (bool, error) {
	entitled, err := e.catalog.LandmarkIDsIn(ctx, country, categories...)
	if err != nil {
		return false, fmt.Errorf("completion_engine: load country landmarks: %w", err)
	}
	if len(entitled) == 0 {
		return false, nil
	}

	visited, err := e.visits.VisitedLandmarkIDs(ctx, userID, country)
	if err != nil {
		return false, fmt.Errorf("completion_engine: load visited landmarks: %w", err)
	}

	return completion.Covers(visited, entitled), nil
}

func (e *CompletionBonusEngine) continentComplete(ctx context.Context, userID shared.UserID, continent shared.Continent, categories []landmark.Category) (bool, error) {
	countries, err := e.catalog.CountriesIn(ctx, continent)
	if err != nil {
		return false, fmt.Errorf("completion_engine: load continent countries: %w", err)
	}

	heldIDs, err := e.bonuses.ScopeIDs(ctx, userID, completion.ScopeCountry)
	if err != nil {
		return false, fmt.Errorf("completion_engine: load country bonuses: %w", err)
	}
	held := make(map[string]struct{}, len(heldIDs))
	for _, id := range heldIDs {
		held[id] = struct{}{}
	}

	counted := 0
	for _, c := range countries {
		if _, ok := held[c.String()]; ok {
			counted++
			continue
		}
		// A country with nothing the user may visit cannot be completed and does not block the continent.
		entitled, err := e.catalog.LandmarkIDsIn(ctx, c, categories...)
		if err != nil {
			return false, fmt.Errorf("completion_engine: load country landmarks: %w", err)
		}
		if len(entitled) > 0 {
			return false, nil
		}
	}

	return counted > 0, nil
}

func (e *CompletionBonusEngine) award(ctx context.Context, userID shared.UserID, scope completion.Scope, scopeID string, points shared.Points) (*completion.Bonus, bool, error) {
	b, err := completion.New(e.ids.GenerateID(), userID, scope, scopeID, points, e.clock.Now())
	if err != nil {
		return nil, false, fmt.Errorf("completion_engine: build %s bonus: %w", scope, err)
	}

	created, err := e.bonuses.Insert(ctx, b)
	if err != nil {
		return nil, false, fmt.Errorf("completion_engine: insert %s bonus: %w", scope, err)
	}

	attrs := []any{
		logger.UserID(userID.String()),
		slog.String("scope", scope.String()),
		slog.String("scope_id", scopeID),
	}
	if !created {
		e.logger.Debug("completion bonus already awarded", attrs...)
		return nil, false, nil
	}

	e.logger.Info("completion bonus awarded", append(attrs, logger.Points(points.Int()))...)
	return b, true, nil
}
