package postgres

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
)

// testConn connects to TEST_DATABASE_URL and applies migrations. Tests that
// need it are skipped when the variable is unset.
func testConn(t *testing.T) *Connection {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := DefaultConfig()
	cfg.URL = url
	conn, err := NewConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	_, err = NewMigrator(conn).Migrate(ctx)
	require.NoError(t, err)
	return conn
}

// freshUser returns a user id no earlier run has written rows for.
func freshUser() shared.UserID {
	return shared.UserID("it-" + uuid.NewString())
}

func TestVisitRepository_InsertIfAbsent(t *testing.T) {
	conn := testConn(t)
	repo := NewVisitRepository(conn)
	ctx := context.Background()
	userID := freshUser()

	lm, err := landmark.New("it-colosseum", "Colosseum", "IT", "Europe", landmark.CategoryOfficial)
	require.NoError(t, err)
	at := time.Now().UTC().Truncate(time.Microsecond)

	first, err := visit.New(uuid.NewString(), userID, lm, visit.Payload{Photos: []string{"https://img.example.com/1.jpg"}}, at)
	require.NoError(t, err)
	created, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second, err := visit.New(uuid.NewString(), userID, lm, visit.Payload{}, at.Add(time.Hour))
	require.NoError(t, err)
	created, err = repo.Insert(ctx, second)
	require.NoError(t, err)
	assert.False(t, created, "a conflicting insert must report no row")

	stored, err := repo.Get(ctx, userID, lm.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, first.PointsEarned, stored.PointsEarned)
	assert.True(t, at.Equal(stored.VisitedAt))
	assert.Equal(t, 1, stored.Payload.PhotoCount())
}

func TestVisitRepository_ConcurrentInserts(t *testing.T) {
	conn := testConn(t)
	repo := NewVisitRepository(conn)
	userID := freshUser()

	lm, err := landmark.New("it-pantheon", "Pantheon", "IT", "Europe", landmark.CategoryOfficial)
	require.NoError(t, err)

	const workers = 20
	var (
		wg      sync.WaitGroup
		created int32
		failed  int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := visit.New(uuid.NewString(), userID, lm, visit.Payload{}, time.Now())
			if err != nil {
				atomic.AddInt32(&failed, 1)
				return
			}
			ok, err := repo.Insert(context.Background(), v)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				return
			}
			if ok {
				atomic.AddInt32(&created, 1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed)
	assert.Equal(t, int32(1), created)

	ids, err := repo.VisitedLandmarkIDs(context.Background(), userID, "IT")
	require.NoError(t, err)
	assert.Equal(t, []shared.LandmarkID{lm.ID}, ids)
}

func TestAchievementAndCompletion_InsertIfAbsent(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()
	userID := freshUser()
	now := time.Now().UTC()

	achievements := NewAchievementRepository(conn)
	for i, want := range []bool{true, false} {
		a, err := achievement.New(uuid.NewString(), userID, achievement.BadgeFirstVisit, now)
		require.NoError(t, err)
		created, err := achievements.Insert(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, want, created, "achievement insert %d", i)
	}
	held, err := achievements.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, held, 1)

	bonuses := NewCompletionRepository(conn)
	for i, want := range []bool{true, false} {
		b, err := completion.New(uuid.NewString(), userID, completion.ScopeCountry, "IT", completion.DefaultCountryBonus, now)
		require.NoError(t, err)
		created, err := bonuses.Insert(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, want, created, "bonus insert %d", i)
	}
	// Same scope id under another scope is a different bonus.
	b, err := completion.New(uuid.NewString(), userID, completion.ScopeContinent, "IT", completion.DefaultContinentBonus, now)
	require.NoError(t, err)
	created, err := bonuses.Insert(ctx, b)
	require.NoError(t, err)
	assert.True(t, created)

	countries, err := bonuses.ScopeIDs(ctx, userID, completion.ScopeCountry)
	require.NoError(t, err)
	assert.Equal(t, []string{"IT"}, countries)
}
