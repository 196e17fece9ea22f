package amm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

func TestPriceBounds(t *testing.T) {
	cases := []struct {
		name     string
		yes, no  float64
		side     domain.Side
		expected float64
	}{
		{"balanced yes", 500, 500, domain.SideYes, 0.5},
		{"balanced no", 500, 500, domain.SideNo, 0.5},
		{"yes cheap when yes reserve deep", 900, 100, domain.SideYes, 0.1},
		{"no expensive when yes reserve deep", 900, 100, domain.SideNo, 0.9},
		{"tiny reserves", 0.001, 0.003, domain.SideYes, 0.75},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Price(tc.side, tc.yes, tc.no)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, p, 1e-12)
			assert.Greater(t, p, 0.0)
			assert.Less(t, p, 1.0)
		})
	}
}

func TestPriceEmptyMarket(t *testing.T) {
	_, err := Price(domain.SideYes, 0, 0)
	require.ErrorIs(t, err, domain.ErrEmptyMarket)
}

func TestBuyPreservesInvariant(t *testing.T) {
	cases := []struct {
		name    string
		yes, no float64
		side    domain.Side
		usd     float64
	}{
		{"small trade", 500, 500, domain.SideYes, 1},
		{"spec scenario", 500, 500, domain.SideYes, 100},
		{"no side", 500, 500, domain.SideNo, 100},
		{"imbalanced reserves", 1200, 300, domain.SideYes, 50},
		{"huge trade vs reserves", 100, 100, domain.SideYes, 1e6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Buy(tc.yes, tc.no, tc.side, tc.usd)
			require.NoError(t, err)

			k := tc.yes * tc.no
			drift := math.Abs(q.NewYesShares*q.NewNoShares-k) / k
			assert.Less(t, drift, 1e-6, "invariant drift too large")

			assert.Greater(t, q.NewYesShares, 0.0)
			assert.Greater(t, q.NewNoShares, 0.0)
			assert.Greater(t, q.SharesBought, 0.0)
		})
	}
}

func TestBuyScenario(t *testing.T) {
	// Reserves (500,500), buy YES for 100.
	q, err := Buy(500, 500, domain.SideYes, 100)
	require.NoError(t, err)

	assert.InDelta(t, 600.0, q.NewYesShares, 1e-9)
	assert.InDelta(t, 250000.0/600.0, q.NewNoShares, 1e-9)
	assert.InDelta(t, 500-250000.0/600.0, q.SharesBought, 1e-9)
	assert.InDelta(t, 100.0, q.TotalCost, 1e-9)

	assert.InDelta(t, 1.0, q.NewYesPrice+q.NewNoPrice, 1e-12)
}

func TestBuyPriceImpactSigned(t *testing.T) {
	// The deposit lands in the traded side's reserve, so the traded side's own
	// reserve-formula price moves down and the impact is negative.
	q, err := Buy(500, 500, domain.SideNo, 200)
	require.NoError(t, err)
	assert.Less(t, q.PriceImpactPct, 0.0)
	assert.Less(t, q.NewNoPrice, 0.5)
	assert.Greater(t, q.NewYesPrice, 0.5)
}

func TestBuyAsymptoticPrice(t *testing.T) {
	// Extremely large trades push the far side toward 1.0 without reaching it.
	q, err := Buy(100, 100, domain.SideYes, 1e9)
	require.NoError(t, err)
	assert.Greater(t, q.NewNoPrice, 0.999)
	assert.Less(t, q.NewNoPrice, 1.0)
	assert.Greater(t, q.NewYesPrice, 0.0)
}

func TestBuyRejectsBadInput(t *testing.T) {
	_, err := Buy(500, 500, domain.SideYes, 0)
	assert.Error(t, err)

	_, err = Buy(500, 500, domain.SideYes, -5)
	assert.Error(t, err)

	_, err = Buy(0, 500, domain.SideYes, 10)
	assert.ErrorIs(t, err, domain.ErrEmptyMarket)
}

func TestExpectedPayout(t *testing.T) {
	assert.Equal(t, 42.5, ExpectedPayout(42.5))
	assert.Equal(t, 0.0, ExpectedPayout(0))
}

func TestInitializeMarket(t *testing.T) {
	r, err := InitializeMarket(1000)
	require.NoError(t, err)
	assert.Equal(t, 500.0, r.YesShares)
	assert.Equal(t, 500.0, r.NoShares)

	_, err = InitializeMarket(0)
	assert.Error(t, err)
}
