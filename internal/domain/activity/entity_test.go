package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

func TestNewEntry(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	e, err := NewEntry("a1", "u1", TypeCountryComplete, Payload{CountryID: "FR", PointsEarned: 50}, at)
	require.NoError(t, err)
	assert.Equal(t, shared.Points(50), e.Payload.PointsEarned)
	assert.Equal(t, at, e.CreatedAt)

	_, err = NewEntry("a1", "u1", Type("like"), Payload{}, at)
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = NewEntry("", "u1", TypeVisit, Payload{}, at)
	assert.ErrorIs(t, err, ErrInvalidEntryID)

	_, err = NewEntry("a1", "u1", TypeVisit, Payload{}, time.Time{})
	assert.ErrorIs(t, err, ErrZeroTimestamp)
}
