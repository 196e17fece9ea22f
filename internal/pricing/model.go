// Package pricing implements the stochastic share-price model: a biased
// random walk whose drift follows aggregate market sentiment, with single-tick
// movement clamped and a strictly positive price floor.
package pricing

import (
	"math/rand"
	"time"
)

// Params configures the model. Zero values are replaced by DefaultParams.
type Params struct {
	// TrendCoefficient scales sentiment into a per-tick drift.
	TrendCoefficient float64
	// VolatilityMin and VolatilityMax bound the per-tick volatility sample.
	VolatilityMin float64
	VolatilityMax float64
	// MaxStepFraction bounds a single tick's movement relative to the
	// current price.
	MaxStepFraction float64
	// FloorPrice is the lowest price a step may produce.
	FloorPrice float64
}

// DefaultParams returns the model parameters used by the game world.
func DefaultParams() Params {
	return Params{
		TrendCoefficient: 0.002,
		VolatilityMin:    0.0001,
		VolatilityMax:    0.001,
		MaxStepFraction:  0.01,
		FloorPrice:       0.01,
	}
}

// Step is one computed price movement. Every applied step is recorded as a
// price-history entry for audit and replay.
type Step struct {
	OldPrice  float64
	NewPrice  float64
	Delta     float64
	ChangePct float64
	Timestamp time.Time
}

// Model computes bounded price deltas. It is not safe for concurrent use; the
// engine drives it from a single tick at a time.
type Model struct {
	params Params
	rng    *rand.Rand
	now    func() time.Time
}

// Option customizes a Model.
type Option func(*Model)

// WithRand injects a deterministic random source, used by tests.
func WithRand(rng *rand.Rand) Option {
	return func(m *Model) { m.rng = rng }
}

// WithClock injects a clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New creates a Model with the given parameters.
func New(params Params, opts ...Option) *Model {
	if params == (Params{}) {
		params = DefaultParams()
	}
	m := &Model{
		params: params,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Params returns the model's parameters.
func (m *Model) Params() Params {
	return m.params
}

// Step computes one bounded price movement for a price under the given
// sentiment in [-1,1]. The delta magnitude never exceeds
// MaxStepFraction×price and the resulting price is never below FloorPrice.
func (m *Model) Step(price, sentiment float64) Step {
	p := m.params

	volatility := p.VolatilityMin + m.rng.Float64()*(p.VolatilityMax-p.VolatilityMin)
	trendBias := sentiment * p.TrendCoefficient
	randomWalk := (m.rng.Float64()*2 - 1) * volatility

	rawDelta := price * (trendBias + randomWalk)

	maxStep := price * p.MaxStepFraction
	delta := rawDelta
	if delta > maxStep {
		delta = maxStep
	} else if delta < -maxStep {
		delta = -maxStep
	}

	newPrice := price + delta
	if newPrice < p.FloorPrice {
		newPrice = p.FloorPrice
	}

	var changePct float64
	if price > 0 {
		changePct = delta / price * 100
	}

	return Step{
		OldPrice:  price,
		NewPrice:  newPrice,
		Delta:     delta,
		ChangePct: changePct,
		Timestamp: m.now(),
	}
}
