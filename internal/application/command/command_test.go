package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/tier"
	"github.com/travelquest/travelquest-hub/internal/domain/user"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/internal/infrastructure/persistence/memory"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type seqIDs struct{ n int64 }

func (s *seqIDs) GenerateID() string {
	return fmt.Sprintf("id-%d", atomic.AddInt64(&s.n, 1))
}

type fixture struct {
	catalog    *memory.Catalog
	stores     *memory.Stores
	clock      *timeutil.FixedClock
	recorder   *RecordVisitHandler
	badges     *BadgeEngine
	completion *CompletionBonusEngine
}

func newFixture(t *testing.T, landmarks ...*landmark.Landmark) *fixture {
	t.Helper()
	f := &fixture{
		catalog: memory.NewCatalog(landmarks...),
		stores:  memory.New(),
		clock:   timeutil.NewFixedClock(testNow),
	}
	ids := &seqIDs{}
	log := logger.Discard()
	f.recorder = NewRecordVisitHandler(f.catalog, tier.StaticGate{}, f.stores.Visits, ids, f.clock, log)
	f.badges = NewBadgeEngine(achievement.DefaultRuleSet(), f.stores.Visits, f.stores.Achievements, ids, f.clock, log)
	f.completion = NewCompletionBonusEngine(f.catalog, tier.StaticGate{}, f.stores.Visits, f.stores.Completions, ids, f.clock, DefaultCompletionConfig(), log)
	return f
}

func (f *fixture) record(t *testing.T, u user.User, id shared.LandmarkID) {
	t.Helper()
	_, err := f.recorder.Handle(context.Background(), RecordVisitCommand{User: u, LandmarkID: id})
	require.NoError(t, err)
}

func lm(t *testing.T, id string, country shared.CountryID, continent shared.Continent, c landmark.Category) *landmark.Landmark {
	t.Helper()
	l, err := landmark.New(shared.LandmarkID(id), id, country, continent, c)
	require.NoError(t, err)
	return l
}

func countryLandmarks(t *testing.T, country shared.CountryID, continent shared.Continent, official, premium int) []*landmark.Landmark {
	t.Helper()
	var out []*landmark.Landmark
	for i := 0; i < official; i++ {
		out = append(out, lm(t, fmt.Sprintf("%s-o%d", country, i), country, continent, landmark.CategoryOfficial))
	}
	for i := 0; i < premium; i++ {
		out = append(out, lm(t, fmt.Sprintf("%s-p%d", country, i), country, continent, landmark.CategoryPremium))
	}
	return out
}

var (
	freeUser = user.User{ID: "alice", Tier: tier.Free, Role: user.RoleTraveler}
	proUser  = user.User{ID: "bob", Tier: tier.Pro, Role: user.RoleTraveler}
)

func strPtr(s string) *string { return &s }

// ══════════════════════════════════════════════════════════════════════════════
// RECORD VISIT
// ══════════════════════════════════════════════════════════════════════════════

func TestRecordVisit_FreezesPoints(t *testing.T) {
	f := newFixture(t, lm(t, "eiffel", "FR", "Europe", landmark.CategoryOfficial))

	res, err := f.recorder.Handle(context.Background(), RecordVisitCommand{
		User:       freeUser,
		LandmarkID: "eiffel",
		Payload:    visit.Payload{Photos: []string{"https://img.example.com/1.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, shared.Points(landmark.OfficialPoints), res.Visit.PointsEarned)
	assert.Equal(t, testNow, res.Visit.VisitedAt)
	assert.Equal(t, shared.CountryID("FR"), res.Visit.CountryID)
	assert.Equal(t, "eiffel", res.Landmark.Name)
}

func TestRecordVisit_Errors(t *testing.T) {
	twoPhotos := visit.Payload{Photos: []string{"https://a.example.com/1.jpg", "https://a.example.com/2.jpg"}}

	tests := []struct {
		name     string
		user     user.User
		landmark shared.LandmarkID
		payload  visit.Payload
		check    func(error) bool
	}{
		{name: "unknown landmark", user: freeUser, landmark: "atlantis", check: shared.IsNotFound},
		{name: "premium on free tier", user: freeUser, landmark: "louvre-vip", check: shared.IsTierRestricted},
		{name: "two photos on free tier", user: freeUser, landmark: "eiffel", payload: twoPhotos, check: shared.IsTierRestricted},
		{name: "photo is not a url", user: proUser, landmark: "eiffel", payload: visit.Payload{Photos: []string{"not a url"}}, check: shared.IsValidation},
		{name: "diary too long", user: proUser, landmark: "eiffel", payload: visit.Payload{DiaryNotes: strPtr(strings.Repeat("a", MaxDiaryNotesLength+1))}, check: shared.IsValidation},
		{name: "tips too long", user: proUser, landmark: "eiffel", payload: visit.Payload{TravelTips: strPtr(strings.Repeat("a", MaxTravelTipsLength+1))}, check: shared.IsValidation},
		{name: "empty user", user: user.User{}, landmark: "eiffel", check: func(err error) bool { return err == shared.ErrInvalidUserID }},
		// Catalog and tier outcomes win over payload shape.
		{name: "unknown landmark with bad payload", user: proUser, landmark: "atlantis", payload: visit.Payload{Photos: []string{"not a url"}}, check: shared.IsNotFound},
		{name: "premium on free tier with bad payload", user: freeUser, landmark: "louvre-vip", payload: visit.Payload{DiaryNotes: strPtr(strings.Repeat("a", MaxDiaryNotesLength+1))}, check: shared.IsTierRestricted},
		{name: "two non-url photos on free tier", user: freeUser, landmark: "eiffel", payload: visit.Payload{Photos: []string{"one", "two"}}, check: shared.IsTierRestricted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t,
				lm(t, "eiffel", "FR", "Europe", landmark.CategoryOfficial),
				lm(t, "louvre-vip", "FR", "Europe", landmark.CategoryPremium),
			)
			_, err := f.recorder.Handle(context.Background(), RecordVisitCommand{User: tt.user, LandmarkID: tt.landmark, Payload: tt.payload})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Zero(t, f.stores.Visits.Count())
		})
	}
}

func TestRecordVisit_PhotoLimitByTier(t *testing.T) {
	f := newFixture(t, lm(t, "eiffel", "FR", "Europe", landmark.CategoryOfficial))
	payload := visit.Payload{Photos: []string{"https://a.example.com/1.jpg", "https://a.example.com/2.jpg"}}

	_, err := f.recorder.Handle(context.Background(), RecordVisitCommand{User: freeUser, LandmarkID: "eiffel", Payload: payload})
	assert.True(t, shared.IsTierRestricted(err))

	res, err := f.recorder.Handle(context.Background(), RecordVisitCommand{User: proUser, LandmarkID: "eiffel", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Visit.Payload.PhotoCount())
}

func TestRecordVisit_Duplicate(t *testing.T) {
	f := newFixture(t, lm(t, "eiffel", "FR", "Europe", landmark.CategoryOfficial))
	f.record(t, freeUser, "eiffel")

	_, err := f.recorder.Handle(context.Background(), RecordVisitCommand{User: freeUser, LandmarkID: "eiffel"})
	require.Error(t, err)
	assert.True(t, shared.IsAlreadyVisited(err))
	assert.True(t, shared.IsAlreadyExists(err))
	assert.Equal(t, 1, f.stores.Visits.Count())
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

func TestBadgeEngine_AwardsOnce(t *testing.T) {
	f := newFixture(t, lm(t, "eiffel", "FR", "Europe", landmark.CategoryOfficial))
	ctx := context.Background()

	awarded, err := f.badges.EvaluateAndAward(ctx, freeUser.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	f.record(t, freeUser, "eiffel")

	awarded, err = f.badges.EvaluateAndAward(ctx, freeUser.ID)
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, achievement.BadgeFirstVisit, awarded[0].Achievement.BadgeType)
	assert.Equal(t, "First Steps", awarded[0].Rule.Name)
	assert.Equal(t, testNow, awarded[0].Achievement.EarnedAt)

	awarded, err = f.badges.EvaluateAndAward(ctx, freeUser.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)
	assert.Equal(t, 1, f.stores.Achievements.Count())

	held, err := f.badges.ListAchievements(ctx, freeUser.ID)
	require.NoError(t, err)
	require.Len(t, held, 1)
}

func TestBadgeEngine_Thresholds(t *testing.T) {
	landmarks := countryLandmarks(t, "IT", "Europe", 10, 0)
	landmarks = append(landmarks, lm(t, "colosseum-night", "IT", "Europe", landmark.CategoryPremium))
	f := newFixture(t, landmarks...)

	for _, l := range landmarks {
		f.record(t, proUser, l.ID)
	}

	awarded, err := f.badges.EvaluateAndAward(context.Background(), proUser.ID)
	require.NoError(t, err)

	var got []achievement.BadgeType
	for _, a := range awarded {
		got = append(got, a.Achievement.BadgeType)
	}
	// 10 official + 1 premium = 125 visit points
	assert.ElementsMatch(t, []achievement.BadgeType{
		achievement.BadgeFirstVisit,
		achievement.BadgeExplorer10,
		achievement.BadgePoints100,
		achievement.BadgePremiumPioneer,
	}, got)
}

func TestBadgeEngine_ConcurrentEvaluation(t *testing.T) {
	landmarks := countryLandmarks(t, "IT", "Europe", 10, 1)
	f := newFixture(t, landmarks...)
	for _, l := range landmarks {
		f.record(t, proUser, l.ID)
	}

	const workers = 50
	var (
		wg      sync.WaitGroup
		awarded int64
		failed  int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.badges.EvaluateAndAward(context.Background(), proUser.ID)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			atomic.AddInt64(&awarded, int64(len(got)))
		}()
	}
	wg.Wait()

	require.Zero(t, failed)
	// first_visit, explorer_10, points_100, premium_pioneer
	assert.Equal(t, int64(4), awarded)
	assert.Equal(t, 4, f.stores.Achievements.Count())

	held, err := f.badges.ListAchievements(context.Background(), proUser.ID)
	require.NoError(t, err)
	seen := map[achievement.BadgeType]int{}
	for _, a := range held {
		seen[a.BadgeType]++
	}
	for badge, n := range seen {
		assert.Equal(t, 1, n, "badge %s stored more than once", badge)
	}
}

func TestBadgeEngine_PointsBadgesIgnoreBonuses(t *testing.T) {
	landmarks := countryLandmarks(t, "IS", "Europe", 3, 0)
	f := newFixture(t, landmarks...)
	ctx := context.Background()

	for _, l := range landmarks {
		f.record(t, freeUser, l.ID)
	}
	bonuses, err := f.completion.EvaluateAndAward(ctx, freeUser, landmarks[2].ID)
	require.NoError(t, err)
	require.Len(t, bonuses, 2)

	// 30 visit points, 250 bonus points
	awarded, err := f.badges.EvaluateAndAward(ctx, freeUser.ID)
	require.NoError(t, err)
	for _, a := range awarded {
		assert.NotEqual(t, achievement.BadgePoints100, a.Achievement.BadgeType)
	}
}

func TestBadgeEngine_InvalidUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.badges.ListAchievements(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

func TestCompletion_CountryOfficialOnlyForFree(t *testing.T) {
	landmarks := countryLandmarks(t, "PT", "Europe", 3, 1)
	f := newFixture(t, landmarks...)
	ctx := context.Background()

	for i, l := range landmarks[:3] {
		f.record(t, freeUser, l.ID)
		bonuses, err := f.completion.EvaluateAndAward(ctx, freeUser, l.ID)
		require.NoError(t, err)
		if i < 2 {
			assert.Empty(t, bonuses)
			continue
		}
		require.NotEmpty(t, bonuses)
		assert.Equal(t, completion.ScopeCountry, bonuses[0].Scope)
		assert.Equal(t, "PT", bonuses[0].ScopeID)
		assert.Equal(t, completion.DefaultCountryBonus, bonuses[0].BonusPoints)
	}

	again, err := f.completion.EvaluateAndAward(ctx, freeUser, landmarks[2].ID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestCompletion_ProNeedsPremiumToo(t *testing.T) {
	landmarks := countryLandmarks(t, "PT", "Europe", 2, 1)
	f := newFixture(t, landmarks...)
	ctx := context.Background()

	f.record(t, proUser, landmarks[0].ID)
	f.record(t, proUser, landmarks[1].ID)
	bonuses, err := f.completion.EvaluateAndAward(ctx, proUser, landmarks[1].ID)
	require.NoError(t, err)
	assert.Empty(t, bonuses)

	f.record(t, proUser, landmarks[2].ID)
	bonuses, err = f.completion.EvaluateAndAward(ctx, proUser, landmarks[2].ID)
	require.NoError(t, err)
	require.NotEmpty(t, bonuses)
	assert.Equal(t, completion.ScopeCountry, bonuses[0].Scope)
}

func TestCompletion_Continent(t *testing.T) {
	var landmarks []*landmark.Landmark
	landmarks = append(landmarks, countryLandmarks(t, "NZ", "Oceania", 2, 0)...)
	landmarks = append(landmarks, countryLandmarks(t, "AU", "Oceania", 1, 0)...)
	// Premium-only country: nothing a free user may complete, so it does not block Oceania.
	landmarks = append(landmarks, countryLandmarks(t, "FJ", "Oceania", 0, 1)...)
	f := newFixture(t, landmarks...)
	ctx := context.Background()

	f.record(t, freeUser, "AU-o0")
	bonuses, err := f.completion.EvaluateAndAward(ctx, freeUser, "AU-o0")
	require.NoError(t, err)
	require.Len(t, bonuses, 1)
	assert.Equal(t, completion.ScopeCountry, bonuses[0].Scope)

	f.record(t, freeUser, "NZ-o0")
	f.record(t, freeUser, "NZ-o1")
	bonuses, err = f.completion.EvaluateAndAward(ctx, freeUser, "NZ-o1")
	require.NoError(t, err)
	require.Len(t, bonuses, 2)
	assert.Equal(t, completion.ScopeCountry, bonuses[0].Scope)
	assert.Equal(t, "NZ", bonuses[0].ScopeID)
	assert.Equal(t, completion.ScopeContinent, bonuses[1].Scope)
	assert.Equal(t, "Oceania", bonuses[1].ScopeID)
	assert.Equal(t, completion.DefaultContinentBonus, bonuses[1].BonusPoints)

	again, err := f.completion.EvaluateAndAward(ctx, freeUser, "NZ-o0")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 3, f.stores.Completions.Count())
}

func TestCompletion_ContinentRecoveredAfterPartialAward(t *testing.T) {
	landmarks := countryLandmarks(t, "CL", "South America", 1, 0)
	f := newFixture(t, landmarks...)
	ctx := context.Background()

	f.record(t, freeUser, "CL-o0")
	// Country bonus already present, continent bonus missing.
	b, err := completion.New("pre", freeUser.ID, completion.ScopeCountry, "CL", completion.DefaultCountryBonus, testNow)
	require.NoError(t, err)
	_, err = f.stores.Completions.Insert(ctx, b)
	require.NoError(t, err)

	bonuses, err := f.completion.EvaluateAndAward(ctx, freeUser, "CL-o0")
	require.NoError(t, err)
	require.Len(t, bonuses, 1)
	assert.Equal(t, completion.ScopeContinent, bonuses[0].Scope)
}

func TestCompletion_CustomAmounts(t *testing.T) {
	landmarks := countryLandmarks(t, "IS", "Europe", 1, 0)
	f := newFixture(t, landmarks...)
	f.completion = NewCompletionBonusEngine(f.catalog, nil, f.stores.Visits, f.stores.Completions, nil, f.clock,
		CompletionConfig{CountryBonus: 75, ContinentBonus: 300}, logger.Discard())

	f.record(t, freeUser, "IS-o0")
	bonuses, err := f.completion.EvaluateAndAward(context.Background(), freeUser, "IS-o0")
	require.NoError(t, err)
	require.Len(t, bonuses, 2)
	assert.Equal(t, shared.Points(75), bonuses[0].BonusPoints)
	assert.Equal(t, shared.Points(300), bonuses[1].BonusPoints)
}

func TestCompletion_ParallelLastTwoLandmarks(t *testing.T) {
	for round := 0; round < 20; round++ {
		// HR is the only country of its continent, so finishing it finishes both.
		landmarks := countryLandmarks(t, "HR", "Europe", 4, 0)
		f := newFixture(t, landmarks...)
		f.record(t, freeUser, "HR-o0")
		f.record(t, freeUser, "HR-o1")

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			bonuses []*completion.Bonus
			errs    []error
		)
		for _, id := range []shared.LandmarkID{"HR-o2", "HR-o3"} {
			wg.Add(1)
			go func(id shared.LandmarkID) {
				defer wg.Done()
				ctx := context.Background()
				_, err := f.recorder.Handle(ctx, RecordVisitCommand{User: freeUser, LandmarkID: id})
				if err == nil {
					var got []*completion.Bonus
					got, err = f.completion.EvaluateAndAward(ctx, freeUser, id)
					mu.Lock()
					bonuses = append(bonuses, got...)
					mu.Unlock()
				}
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()

		require.Empty(t, errs)
		require.Len(t, bonuses, 2, "round %d", round)
		scopes := map[completion.Scope]int{}
		for _, b := range bonuses {
			scopes[b.Scope]++
		}
		assert.Equal(t, map[completion.Scope]int{completion.ScopeCountry: 1, completion.ScopeContinent: 1}, scopes)
		assert.Equal(t, 2, f.stores.Completions.Count())
	}
}

func TestCompletion_ConcurrentEvaluation(t *testing.T) {
	landmarks := countryLandmarks(t, "HR", "Europe", 3, 0)
	f := newFixture(t, landmarks...)
	for _, l := range landmarks {
		f.record(t, freeUser, l.ID)
	}

	const workers = 50
	var (
		wg                 sync.WaitGroup
		country, continent int64
		failed             int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := f.completion.EvaluateAndAward(context.Background(), freeUser, landmarks[i%len(landmarks)].ID)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			for _, b := range got {
				switch b.Scope {
				case completion.ScopeCountry:
					atomic.AddInt64(&country, 1)
				case completion.ScopeContinent:
					atomic.AddInt64(&continent, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, failed)
	assert.Equal(t, int64(1), country)
	assert.Equal(t, int64(1), continent)
	assert.Equal(t, 2, f.stores.Completions.Count())
}
