package pricing

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestStepClampBound(t *testing.T) {
	params := Params{
		TrendCoefficient: 0.5, // deliberately large so clamping actually engages
		VolatilityMin:    0.0001,
		VolatilityMax:    0.001,
		MaxStepFraction:  0.01,
		FloorPrice:       0.01,
	}
	m := New(params, WithRand(rand.New(rand.NewSource(42))), WithClock(fixedClock()))

	for _, sentiment := range []float64{-1, -0.5, 0, 0.5, 1} {
		for i := 0; i < 1000; i++ {
			step := m.Step(100, sentiment)
			assert.LessOrEqual(t, math.Abs(step.Delta), 1.0+1e-12,
				"delta exceeded maxStepFraction bound at sentiment %f", sentiment)
			assert.Greater(t, step.NewPrice, 0.0)
		}
	}
}

func TestStepFloor(t *testing.T) {
	params := DefaultParams()
	params.TrendCoefficient = 1 // strong downward drift with sentiment -1
	params.MaxStepFraction = 1
	m := New(params, WithRand(rand.New(rand.NewSource(7))), WithClock(fixedClock()))

	price := 0.02
	for i := 0; i < 100; i++ {
		step := m.Step(price, -1)
		require.GreaterOrEqual(t, step.NewPrice, params.FloorPrice)
		price = step.NewPrice
	}
	assert.Equal(t, params.FloorPrice, price)
}

func TestStepChangePct(t *testing.T) {
	m := New(DefaultParams(), WithRand(rand.New(rand.NewSource(1))), WithClock(fixedClock()))

	step := m.Step(200, 0.5)
	assert.InDelta(t, step.Delta/200*100, step.ChangePct, 1e-12)
	assert.Equal(t, 200.0, step.OldPrice)
	assert.InDelta(t, step.OldPrice+step.Delta, step.NewPrice, 1e-12)
}

func TestStepSentimentDrift(t *testing.T) {
	// Over many samples, positive sentiment must drift the price up and
	// negative sentiment down: the trend bias (0.002) dominates the max
	// volatility (0.001) in expectation.
	m := New(DefaultParams(), WithRand(rand.New(rand.NewSource(99))), WithClock(fixedClock()))

	var sumUp, sumDown float64
	for i := 0; i < 5000; i++ {
		sumUp += m.Step(100, 1).Delta
		sumDown += m.Step(100, -1).Delta
	}
	assert.Greater(t, sumUp, 0.0)
	assert.Less(t, sumDown, 0.0)
}

func TestStepTimestampFromClock(t *testing.T) {
	clock := fixedClock()
	m := New(DefaultParams(), WithClock(clock))
	step := m.Step(50, 0)
	assert.Equal(t, clock(), step.Timestamp)
}

func TestNewZeroParamsUsesDefaults(t *testing.T) {
	m := New(Params{})
	assert.Equal(t, DefaultParams(), m.Params())
}
