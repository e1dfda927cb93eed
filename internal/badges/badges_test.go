package badges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
)

func defaultConfigs() []models.BadgeConfig {
	return []models.BadgeConfig{
		{Badge: enums.VendorBadgeNone, MinSales: 0},
		{Badge: enums.VendorBadgeBronze, MinSales: 10},
		{Badge: enums.VendorBadgeSilver, MinSales: 50},
		{Badge: enums.VendorBadgeGold, MinSales: 200},
		{Badge: enums.VendorBadgeDiamond, MinSales: 500},
		{Badge: enums.VendorBadgePlatinum, MinSales: 1000},
	}
}

func TestEvaluateDefaultThresholds(t *testing.T) {
	ladder, err := NewLadder(defaultConfigs())
	require.NoError(t, err)

	cases := []struct {
		sales int
		want  enums.VendorBadge
	}{
		{0, enums.VendorBadgeNone},
		{9, enums.VendorBadgeNone},
		{10, enums.VendorBadgeBronze},
		{49, enums.VendorBadgeBronze},
		{50, enums.VendorBadgeSilver},
		{199, enums.VendorBadgeSilver},
		{200, enums.VendorBadgeGold},
		{500, enums.VendorBadgeDiamond},
		{999, enums.VendorBadgeDiamond},
		{1000, enums.VendorBadgePlatinum},
		{250000, enums.VendorBadgePlatinum},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ladder.Evaluate(tc.sales), "sales=%d", tc.sales)
	}
}

func TestNewLadderRejectsNonIncreasingThresholds(t *testing.T) {
	configs := defaultConfigs()
	configs[2].MinSales = 10 // silver equals bronze

	_, err := NewLadder(configs)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestNewLadderRejectsIncompleteTable(t *testing.T) {
	_, err := NewLadder(defaultConfigs()[:4])
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestNewLadderRequiresZeroFloor(t *testing.T) {
	configs := defaultConfigs()
	configs[0].MinSales = 1

	_, err := NewLadder(configs)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestProgressClampedBetweenZeroAndHundred(t *testing.T) {
	ladder, err := NewLadder(defaultConfigs())
	require.NoError(t, err)

	// Bronze at 10, silver at 50: 30 sales is halfway.
	assert.InDelta(t, 50.0, ladder.Progress(30), 0.001)
	assert.InDelta(t, 0.0, ladder.Progress(10), 0.001)
	assert.InDelta(t, 100.0, ladder.Progress(5000), 0.001)

	// Top tier has no next rung.
	assert.InDelta(t, 100.0, ladder.Progress(1000), 0.001)
}

func TestNextStopsAtTopTier(t *testing.T) {
	ladder, err := NewLadder(defaultConfigs())
	require.NoError(t, err)

	next, ok := ladder.Next(enums.VendorBadgeDiamond)
	require.True(t, ok)
	assert.Equal(t, enums.VendorBadgePlatinum, next.Badge)

	_, ok = ladder.Next(enums.VendorBadgePlatinum)
	assert.False(t, ok)
}
