package leaderboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

func TestBuild_OrdersByTotal(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	visits := []shared.UserPoints{
		{UserID: "alice", Points: 30, ReachedAt: t0},
		{UserID: "bob", Points: 100, ReachedAt: t0},
		{UserID: "carol", Points: 60, ReachedAt: t0},
	}
	bonuses := []shared.UserPoints{
		{UserID: "alice", Points: 50, ReachedAt: t0.Add(time.Hour)},
	}

	r := Build(WindowAllTime, visits, bonuses)
	require.Equal(t, 3, r.Len())

	assert.Equal(t, shared.UserID("bob"), r.Entries[0].UserID)
	assert.Equal(t, shared.UserID("alice"), r.Entries[1].UserID)
	assert.Equal(t, shared.Points(80), r.Entries[1].TotalPoints)
	assert.Equal(t, shared.Points(30), r.Entries[1].VisitPoints)
	assert.Equal(t, shared.Points(50), r.Entries[1].BonusPoints)
	assert.Equal(t, t0.Add(time.Hour), r.Entries[1].ReachedAt)
	assert.Equal(t, shared.UserID("carol"), r.Entries[2].UserID)

	for i, e := range r.Entries {
		assert.Equal(t, Rank(i+1), e.Rank)
	}
}

func TestBuild_TieBreak(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	visits := []shared.UserPoints{
		{UserID: "zed", Points: 50, ReachedAt: t0},
		{UserID: "amy", Points: 50, ReachedAt: t0.Add(time.Minute)},
		{UserID: "bea", Points: 50, ReachedAt: t0},
	}

	r := Build(WindowWeekly, visits, nil)
	ids := []shared.UserID{r.Entries[0].UserID, r.Entries[1].UserID, r.Entries[2].UserID}
	assert.Equal(t, []shared.UserID{"bea", "zed", "amy"}, ids)
}

func TestBuild_Deterministic(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var visits []shared.UserPoints
	for i := 0; i < 40; i++ {
		visits = append(visits, shared.UserPoints{
			UserID:    shared.UserID(fmt.Sprintf("user-%02d", i)),
			Points:    shared.Points((i % 4) * 10),
			ReachedAt: t0.Add(time.Duration(i%3) * time.Hour),
		})
	}

	first := Build(WindowAllTime, visits, nil)
	second := Build(WindowAllTime, visits, nil)
	assert.Equal(t, first.Entries, second.Entries)
}

func TestBuild_ExcludesZeroTotals(t *testing.T) {
	r := Build(WindowMonthly, []shared.UserPoints{{UserID: "a", Points: 0}}, nil)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Top(10))
}

func TestRanking_TopAndFind(t *testing.T) {
	visits := []shared.UserPoints{
		{UserID: "a", Points: 30},
		{UserID: "b", Points: 20},
		{UserID: "c", Points: 10},
	}
	r := Build(WindowAllTime, visits, nil)

	assert.Len(t, r.Top(2), 2)
	assert.Len(t, r.Top(0), 3)
	assert.Len(t, r.Top(99), 3)

	e, ok := r.Find("c")
	require.True(t, ok)
	assert.Equal(t, Rank(3), e.Rank)

	_, ok = r.Find("nobody")
	assert.False(t, ok)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowAllTime, w)

	w, err = ParseWindow("Weekly")
	require.NoError(t, err)
	assert.Equal(t, WindowWeekly, w)

	_, err = ParseWindow("daily")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}
