// Package amm implements constant-product pricing for binary YES/NO markets.
// All functions are pure: they take reserves as input and never touch state
// or I/O. Trade execution lives elsewhere and calls into this package.
package amm

import (
	"fmt"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// Reserves is a YES/NO share reserve pair.
type Reserves struct {
	YesShares float64
	NoShares  float64
}

// Quote is the result of pricing a buy against a market.
type Quote struct {
	SharesBought   float64 `json:"shares_bought"`
	NewYesShares   float64 `json:"new_yes_shares"`
	NewNoShares    float64 `json:"new_no_shares"`
	NewYesPrice    float64 `json:"new_yes_price"`
	NewNoPrice     float64 `json:"new_no_price"`
	PriceImpactPct float64 `json:"price_impact_pct"` // signed, relative change of the traded side's own price
	TotalCost      float64 `json:"total_cost"`
}

// Price returns the implied probability-style price of one side, strictly in
// (0,1) for positive reserves: noShares/total for YES, yesShares/total for NO.
func Price(side domain.Side, yesShares, noShares float64) (float64, error) {
	total := yesShares + noShares
	if total <= 0 {
		return 0, fmt.Errorf("amm: price: %w", domain.ErrEmptyMarket)
	}
	if side == domain.SideYes {
		return noShares / total, nil
	}
	return yesShares / total, nil
}

// Buy prices a USD-denominated purchase of one side against the reserves.
// The deposit is added to the chosen side's reserve (1 unit deposited ≈ 1
// share at parity) and the opposite reserve is recomputed from the invariant
// k = yes×no, which the trade preserves to within floating-point error.
// usdAmount must be positive; the caller rejects zero or negative input
// before invoking this package.
func Buy(yesShares, noShares float64, side domain.Side, usdAmount float64) (Quote, error) {
	if yesShares <= 0 || noShares <= 0 {
		return Quote{}, fmt.Errorf("amm: buy: %w", domain.ErrEmptyMarket)
	}
	if usdAmount <= 0 {
		return Quote{}, fmt.Errorf("amm: buy: amount %f must be positive", usdAmount)
	}

	k := yesShares * noShares

	oldPrice, err := Price(side, yesShares, noShares)
	if err != nil {
		return Quote{}, err
	}

	var newYes, newNo, sharesBought float64
	if side == domain.SideYes {
		newYes = yesShares + usdAmount
		newNo = k / newYes
		sharesBought = noShares - newNo
	} else {
		newNo = noShares + usdAmount
		newYes = k / newNo
		sharesBought = yesShares - newYes
	}

	newYesPrice, err := Price(domain.SideYes, newYes, newNo)
	if err != nil {
		return Quote{}, err
	}
	newNoPrice := 1 - newYesPrice

	newPrice := newYesPrice
	if side == domain.SideNo {
		newPrice = newNoPrice
	}

	return Quote{
		SharesBought:   sharesBought,
		NewYesShares:   newYes,
		NewNoShares:    newNo,
		NewYesPrice:    newYesPrice,
		NewNoPrice:     newNoPrice,
		PriceImpactPct: (newPrice - oldPrice) / oldPrice * 100,
		TotalCost:      usdAmount,
	}, nil
}

// ExpectedPayout returns the redemption value of a winning position: each
// winning share redeems for exactly one unit of currency.
func ExpectedPayout(shares float64) float64 {
	return shares
}

// InitializeMarket splits seed liquidity 50/50 across the two reserves.
func InitializeMarket(liquidity float64) (Reserves, error) {
	if liquidity <= 0 {
		return Reserves{}, fmt.Errorf("amm: initialize: liquidity %f must be positive", liquidity)
	}
	half := liquidity / 2
	return Reserves{YesShares: half, NoShares: half}, nil
}
