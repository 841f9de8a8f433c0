package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelquest/travelquest-hub/internal/application/command"
	"github.com/travelquest/travelquest-hub/internal/application/eventhandler"
	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/activity"
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

var start = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

type seqIDs struct{ n int64 }

func (s *seqIDs) GenerateID() string {
	return fmt.Sprintf("id-%d", atomic.AddInt64(&s.n, 1))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// flakyAchievements fails the next n inserts.
type flakyAchievements struct {
	achievement.Store
	failures int32
}

func (f *flakyAchievements) Insert(ctx context.Context, a *achievement.Achievement) (bool, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return false, errors.New("connection reset")
	}
	return f.Store.Insert(ctx, a)
}

type env struct {
	saga      *SubmitVisitSaga
	stores    *memory.Stores
	clock     *timeutil.FixedClock
	publisher *recordingPublisher
	flaky     *flakyAchievements
}

// levelRecorder keeps the level of every record logged through it.
type levelRecorder struct {
	mu     sync.Mutex
	levels map[string][]slog.Level
}

func (r *levelRecorder) Enabled(context.Context, slog.Level) bool { return true }
func (r *levelRecorder) WithAttrs([]slog.Attr) slog.Handler       { return r }
func (r *levelRecorder) WithGroup(string) slog.Handler            { return r }

func (r *levelRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.levels == nil {
		r.levels = map[string][]slog.Level{}
	}
	r.levels[rec.Message] = append(r.levels[rec.Message], rec.Level)
	return nil
}

func (r *levelRecorder) of(msg string) []slog.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[msg]
}

func newEnv(t *testing.T, landmarks ...*landmark.Landmark) *env {
	t.Helper()
	return newLoggedEnv(t, logger.Discard(), landmarks...)
}

func newLoggedEnv(t *testing.T, log *slog.Logger, landmarks ...*landmark.Landmark) *env {
	t.Helper()
	catalog := memory.NewCatalog(landmarks...)
	stores := memory.New()
	clock := timeutil.NewFixedClock(start)
	ids := &seqIDs{}
	flaky := &flakyAchievements{Store: stores.Achievements}
	pub := &recordingPublisher{}

	recorder := command.NewRecordVisitHandler(catalog, tier.StaticGate{}, stores.Visits, ids, clock, log)
	badges := command.NewBadgeEngine(achievement.DefaultRuleSet(), stores.Visits, flaky, ids, clock, log)
	completions := command.NewCompletionBonusEngine(catalog, tier.StaticGate{}, stores.Visits, stores.Completions, ids, clock, command.DefaultCompletionConfig(), log)
	feed := eventhandler.NewActivityFeedEmitter(stores.Feed, ids, clock, log)

	return &env{
		saga:      NewSubmitVisitSaga(recorder, badges, completions, feed, stores.Visits, catalog, pub, clock, log, DefaultSubmitVisitConfig()),
		stores:    stores,
		clock:     clock,
		publisher: pub,
		flaky:     flaky,
	}
}

func (e *env) submit(u user.User, id shared.LandmarkID, payload visit.Payload) (*SubmitVisitResult, error) {
	e.clock.Advance(time.Minute)
	return e.saga.SubmitVisit(context.Background(), SubmitVisitInput{User: u, LandmarkID: id, Payload: payload})
}

func (e *env) feedTypes(t *testing.T, u shared.UserID) map[activity.Type][]*activity.Entry {
	t.Helper()
	entries, err := e.stores.Feed.ListByUser(context.Background(), u, 0)
	require.NoError(t, err)
	out := map[activity.Type][]*activity.Entry{}
	for _, en := range entries {
		out[en.Type] = append(out[en.Type], en)
	}
	return out
}

func officialCountry(t *testing.T, country shared.CountryID, continent shared.Continent, n int) []*landmark.Landmark {
	t.Helper()
	out := make([]*landmark.Landmark, 0, n)
	for i := 0; i < n; i++ {
		id := shared.LandmarkID(fmt.Sprintf("%s-%02d", country, i))
		l, err := landmark.New(id, fmt.Sprintf("%s landmark %d", country, i), country, continent, landmark.CategoryOfficial)
		require.NoError(t, err)
		out = append(out, l)
	}
	return out
}

var (
	freeUser = user.User{ID: "freya", Tier: tier.Free, Role: user.RoleTraveler}
	proUser  = user.User{ID: "pablo", Tier: tier.Pro, Role: user.RoleTraveler}
)

func TestSubmitVisit_FirstVisit(t *testing.T) {
	e := newEnv(t, officialCountry(t, "JP", "Asia", 2)...)

	res, err := e.submit(freeUser, "JP-00", visit.Payload{})
	require.NoError(t, err)
	assert.Equal(t, shared.Points(10), res.Visit.PointsEarned)
	assert.Equal(t, shared.Points(10), res.PointsAwarded)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, achievement.BadgeFirstVisit, res.NewBadges[0].Achievement.BadgeType)
	assert.Empty(t, res.NewBonuses)
	assert.Equal(t, 2, res.FeedEntries)

	feed := e.feedTypes(t, freeUser.ID)
	require.Len(t, feed[activity.TypeVisit], 1)
	assert.Equal(t, "JP landmark 0", feed[activity.TypeVisit][0].Payload.LandmarkName)
	require.Len(t, feed[activity.TypeBadge], 1)
	assert.Equal(t, "First Steps", feed[activity.TypeBadge][0].Payload.BadgeName)

	assert.Equal(t, []shared.EventType{shared.EventVisitRecorded, shared.EventBadgeAwarded}, e.publisher.types())
}

func TestSubmitVisit_IdempotentVisit(t *testing.T) {
	e := newEnv(t, officialCountry(t, "JP", "Asia", 2)...)

	_, err := e.submit(freeUser, "JP-00", visit.Payload{})
	require.NoError(t, err)
	eventsBefore := len(e.publisher.types())

	_, err = e.submit(freeUser, "JP-00", visit.Payload{})
	require.Error(t, err)
	assert.True(t, shared.IsAlreadyVisited(err))

	assert.Equal(t, 1, e.stores.Visits.Count())
	assert.Equal(t, 1, e.stores.Achievements.Count())
	assert.Equal(t, 2, e.stores.Feed.Count())
	assert.Len(t, e.publisher.types(), eventsBefore)
}

func TestSubmitVisit_ConcurrentIdenticalSubmissions(t *testing.T) {
	e := newEnv(t, officialCountry(t, "JP", "Asia", 2)...)

	const n = 50
	var (
		wg        sync.WaitGroup
		succeeded int32
		duplicate int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.saga.SubmitVisit(context.Background(), SubmitVisitInput{User: freeUser, LandmarkID: "JP-00"})
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case shared.IsAlreadyVisited(err):
				atomic.AddInt32(&duplicate, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(n-1), duplicate)
	assert.Equal(t, 1, e.stores.Visits.Count())
	assert.Equal(t, 1, e.stores.Achievements.Count())

	feed := e.feedTypes(t, freeUser.ID)
	assert.Len(t, feed[activity.TypeVisit], 1)
	assert.Len(t, feed[activity.TypeBadge], 1)
}

func TestSubmitVisit_CountryCompletion(t *testing.T) {
	landmarks := officialCountry(t, "GR", "Europe", 10)
	// A second Europe country keeps the continent incomplete.
	landmarks = append(landmarks, officialCountry(t, "MT", "Europe", 1)...)
	e := newEnv(t, landmarks...)

	for i := 0; i < 9; i++ {
		res, err := e.submit(freeUser, landmarks[i].ID, visit.Payload{})
		require.NoError(t, err)
		assert.Empty(t, res.NewBonuses, "visit %d", i)
	}

	res, err := e.submit(freeUser, landmarks[9].ID, visit.Payload{})
	require.NoError(t, err)
	require.Len(t, res.NewBonuses, 1)
	assert.Equal(t, completion.ScopeCountry, res.NewBonuses[0].Scope)
	assert.Equal(t, "GR", res.NewBonuses[0].ScopeID)
	assert.Equal(t, shared.Points(50), res.NewBonuses[0].BonusPoints)
	assert.Equal(t, shared.Points(60), res.PointsAwarded)

	feed := e.feedTypes(t, freeUser.ID)
	require.Len(t, feed[activity.TypeCountryComplete], 1)
	assert.Equal(t, shared.Points(50), feed[activity.TypeCountryComplete][0].Payload.PointsEarned)
	assert.Equal(t, shared.CountryID("GR"), feed[activity.TypeCountryComplete][0].Payload.CountryID)

	// Client retry of the 10th request.
	_, err = e.submit(freeUser, landmarks[9].ID, visit.Payload{})
	assert.True(t, shared.IsAlreadyVisited(err))
	assert.Equal(t, 1, e.stores.Completions.Count())
	assert.Len(t, e.feedTypes(t, freeUser.ID)[activity.TypeCountryComplete], 1)
	assert.Contains(t, e.publisher.types(), shared.EventCountryCompleted)
}

func TestSubmitVisit_ContinentCompletion(t *testing.T) {
	landmarks := officialCountry(t, "AR", "South America", 1)
	landmarks = append(landmarks, officialCountry(t, "UY", "South America", 1)...)
	e := newEnv(t, landmarks...)

	_, err := e.submit(freeUser, "AR-00", visit.Payload{})
	require.NoError(t, err)

	res, err := e.submit(freeUser, "UY-00", visit.Payload{})
	require.NoError(t, err)
	require.Len(t, res.NewBonuses, 2)
	assert.Equal(t, completion.ScopeContinent, res.NewBonuses[1].Scope)
	assert.Equal(t, shared.Points(10+50+200), res.PointsAwarded)

	feed := e.feedTypes(t, freeUser.ID)
	require.Len(t, feed[activity.TypeContinentComplete], 1)
	assert.Equal(t, shared.Continent("South America"), feed[activity.TypeContinentComplete][0].Payload.Continent)
	assert.Contains(t, e.publisher.types(), shared.EventContinentCompleted)
}

func TestSubmitVisit_PremiumGate(t *testing.T) {
	vip, err := landmark.New("sagrada-rooftop", "Sagrada Rooftop", "ES", "Europe", landmark.CategoryPremium)
	require.NoError(t, err)
	e := newEnv(t, vip)

	_, err = e.submit(freeUser, "sagrada-rooftop", visit.Payload{})
	require.Error(t, err)
	assert.True(t, shared.IsTierRestricted(err))
	assert.Zero(t, e.stores.Visits.Count())
	assert.Zero(t, e.stores.Feed.Count())
	assert.Empty(t, e.publisher.types())

	res, err := e.submit(proUser, "sagrada-rooftop", visit.Payload{})
	require.NoError(t, err)
	assert.Equal(t, shared.Points(25), res.Visit.PointsEarned)

	var badges []achievement.BadgeType
	for _, b := range res.NewBadges {
		badges = append(badges, b.Achievement.BadgeType)
	}
	assert.Contains(t, badges, achievement.BadgePremiumPioneer)
}

func TestSubmitVisit_PhotoLimit(t *testing.T) {
	e := newEnv(t, officialCountry(t, "PE", "South America", 2)...)
	photos := visit.Payload{Photos: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}}

	_, err := e.submit(freeUser, "PE-00", photos)
	assert.True(t, shared.IsTierRestricted(err))
	assert.Zero(t, e.stores.Visits.Count())

	res, err := e.submit(proUser, "PE-00", photos)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Visit.Payload.PhotoCount())
}

func TestSubmitVisit_NotFound(t *testing.T) {
	e := newEnv(t)

	res, err := e.submit(freeUser, "el-dorado", visit.Payload{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, shared.IsNotFound(err))
	var sagaErr *SubmitVisitError
	assert.False(t, errors.As(err, &sagaErr))
}

func TestSubmitVisit_EngineFailureThenReconcile(t *testing.T) {
	rec := &levelRecorder{}
	e := newLoggedEnv(t, slog.New(rec), officialCountry(t, "KE", "Africa", 1)...)
	e.flaky.failures = 1

	partial, err := e.submit(freeUser, "KE-00", visit.Payload{})
	require.Error(t, err)
	assert.Equal(t, []slog.Level{slog.LevelError}, rec.of("submit visit failed"))

	// The stored visit comes back with the error.
	require.NotNil(t, partial)
	require.NotNil(t, partial.Visit)
	assert.Equal(t, shared.LandmarkID("KE-00"), partial.Visit.LandmarkID)
	assert.Equal(t, partial.Visit.PointsEarned, partial.PointsAwarded)
	assert.Positive(t, partial.PointsAwarded.Int())
	assert.False(t, partial.HasAwards())
	assert.Equal(t, 1, partial.FeedEntries)

	var sagaErr *SubmitVisitError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, StepEvaluateBadges, sagaErr.Step)
	assert.True(t, sagaErr.NeedsReconcile())

	// The visit is stored and its feed entry written; nothing was awarded.
	assert.Equal(t, 1, e.stores.Visits.Count())
	assert.Len(t, e.feedTypes(t, freeUser.ID)[activity.TypeVisit], 1)
	assert.Zero(t, e.stores.Completions.Count())

	res, err := e.saga.Reconcile(context.Background(), freeUser, "KE-00")
	require.NoError(t, err)
	require.Len(t, res.NewBadges, 1)
	require.Len(t, res.NewBonuses, 2)
	assert.Equal(t, shared.Points(250), res.PointsAwarded)

	feed := e.feedTypes(t, freeUser.ID)
	assert.Len(t, feed[activity.TypeVisit], 1)
	assert.Len(t, feed[activity.TypeBadge], 1)
	assert.Len(t, feed[activity.TypeCountryComplete], 1)
	assert.Len(t, feed[activity.TypeContinentComplete], 1)

	// A second reconcile has nothing left to do.
	res, err = e.saga.Reconcile(context.Background(), freeUser, "KE-00")
	require.NoError(t, err)
	assert.False(t, res.HasAwards())
	assert.Zero(t, res.FeedEntries)
}

func TestReconcile_UnknownVisit(t *testing.T) {
	rec := &levelRecorder{}
	e := newLoggedEnv(t, slog.New(rec), officialCountry(t, "KE", "Africa", 1)...)

	res, err := e.saga.Reconcile(context.Background(), freeUser, "KE-00")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, []slog.Level{slog.LevelWarn}, rec.of("submit visit failed"))

	var sagaErr *SubmitVisitError
	require.True(t, errors.As(err, &sagaErr))
	assert.False(t, sagaErr.NeedsReconcile())
}
