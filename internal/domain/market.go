package domain

import "time"

// Side selects one leg of a binary market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Market holds the YES/NO share reserves of a binary AMM-priced market tied to
// a question. The constant product yesShares×noShares is preserved across
// trades; both reserves remain strictly positive. Markets are seeded with a
// 50/50 liquidity split and mutated only by trade execution.
type Market struct {
	ID         string
	QuestionID string
	YesShares  float64
	NoShares   float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Invariant returns the constant product of the market's reserves.
func (m Market) Invariant() float64 {
	return m.YesShares * m.NoShares
}
