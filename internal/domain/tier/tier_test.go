package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsFor(t *testing.T) {
	tests := []struct {
		name          string
		tier          Tier
		photos        int
		premium       bool
		customVisits  bool
		unlimitedFrnd bool
	}{
		{name: "free", tier: Free, photos: 1, premium: false, customVisits: false, unlimitedFrnd: false},
		{name: "pro", tier: Pro, photos: 10, premium: true, customVisits: true, unlimitedFrnd: true},
		{name: "unknown falls back to free", tier: Tier("platinum"), photos: 1, premium: false, customVisits: false, unlimitedFrnd: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LimitsFor(tt.tier)
			assert.Equal(t, tt.photos, l.PhotosPerVisit)
			assert.Equal(t, tt.premium, l.CanAccessPremiumLandmarks)
			assert.Equal(t, tt.customVisits, l.CanCreateCustomVisits)
			assert.Equal(t, tt.unlimitedFrnd, l.HasUnlimitedFriends())
		})
	}
}

func TestLimits_AllowsPhotos(t *testing.T) {
	free := StaticGate{}.Limits(Free)
	assert.True(t, free.AllowsPhotos(0))
	assert.True(t, free.AllowsPhotos(1))
	assert.False(t, free.AllowsPhotos(2))

	pro := StaticGate{}.Limits(Pro)
	assert.True(t, pro.AllowsPhotos(10))
	assert.False(t, pro.AllowsPhotos(11))
}

func TestParse(t *testing.T) {
	assert.Equal(t, Pro, Parse(" PRO "))
	assert.Equal(t, Free, Parse("free"))
	assert.Equal(t, Free, Parse(""))
	assert.Equal(t, Free, Parse("enterprise"))
	assert.True(t, Pro.IsValid())
	assert.False(t, Tier("enterprise").IsValid())
}
