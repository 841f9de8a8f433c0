package completion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

func TestCovers(t *testing.T) {
	ids := func(s ...string) []shared.LandmarkID {
		out := make([]shared.LandmarkID, 0, len(s))
		for _, v := range s {
			out = append(out, shared.LandmarkID(v))
		}
		return out
	}

	tests := []struct {
		name     string
		visited  []shared.LandmarkID
		entitled []shared.LandmarkID
		want     bool
	}{
		{name: "exact", visited: ids("a", "b"), entitled: ids("a", "b"), want: true},
		{name: "superset", visited: ids("a", "b", "p"), entitled: ids("a", "b"), want: true},
		{name: "missing one", visited: ids("a"), entitled: ids("a", "b"), want: false},
		{name: "empty entitled", visited: ids("a"), entitled: nil, want: false},
		{name: "nothing visited", visited: nil, entitled: ids("a"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Covers(tt.visited, tt.entitled))
		})
	}
}

func TestNew(t *testing.T) {
	b, err := New("b1", "u1", ScopeCountry, "FR", DefaultCountryBonus, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, shared.Points(50), b.BonusPoints)
	assert.Equal(t, shared.EventCountryCompleted, b.Scope.EventType())
	assert.Equal(t, shared.EventContinentCompleted, ScopeContinent.EventType())

	_, err = New("b1", "u1", Scope("planet"), "Earth", 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = New("b1", "u1", ScopeCountry, "FR", -1, time.Now())
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}
