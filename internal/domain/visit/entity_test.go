package visit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

func mustLandmark(t *testing.T, id shared.LandmarkID, country shared.CountryID, continent shared.Continent, c landmark.Category) *landmark.Landmark {
	t.Helper()
	lm, err := landmark.New(id, string(id), country, continent, c)
	require.NoError(t, err)
	return lm
}

func TestNew_SnapshotsLandmark(t *testing.T) {
	lm := mustLandmark(t, "colosseum", "IT", "Europe", landmark.CategoryPremium)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	v, err := New("v1", "u1", lm, Payload{}, at)
	require.NoError(t, err)

	lm.PointValue = 99
	assert.Equal(t, shared.Points(25), v.PointsEarned)
	assert.Equal(t, shared.CountryID("IT"), v.CountryID)
	assert.True(t, v.IsPremium())
	assert.Equal(t, at, v.VisitedAt)
}

func TestNew_Invalid(t *testing.T) {
	lm := mustLandmark(t, "colosseum", "IT", "Europe", landmark.CategoryOfficial)

	_, err := New("", "u1", lm, Payload{}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidVisitID)

	_, err = New("v1", "", lm, Payload{}, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = New("v1", "u1", lm, Payload{}, time.Time{})
	assert.ErrorIs(t, err, ErrZeroTimestamp)
}

func TestComputeStats(t *testing.T) {
	at := time.Now()
	var visits []*Visit
	for _, lm := range []*landmark.Landmark{
		mustLandmark(t, "a", "FR", "Europe", landmark.CategoryOfficial),
		mustLandmark(t, "b", "FR", "Europe", landmark.CategoryPremium),
		mustLandmark(t, "c", "JP", "Asia", landmark.CategoryOfficial),
	} {
		v, err := New("v-"+string(lm.ID), "u1", lm, Payload{}, at)
		require.NoError(t, err)
		visits = append(visits, v)
	}

	s := ComputeStats(visits)
	assert.Equal(t, Stats{
		VisitCount:         3,
		VisitPoints:        45,
		DistinctCountries:  2,
		DistinctContinents: 2,
		PremiumVisits:      1,
	}, s)

	assert.Equal(t, Stats{}, ComputeStats(nil))
}
