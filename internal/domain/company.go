package domain

import "time"

// Company is a synthetic tradable instrument with a share price series. The
// price stays strictly positive; every mutation appends a PriceTick.
type Company struct {
	ID           string
	Name         string
	Ticker       string
	CurrentPrice float64
	InitialPrice float64
	UpdatedAt    time.Time
}

// PriceTick is one appended entry of a company's price history, recorded on
// every per-tick mutation for audit and replay.
type PriceTick struct {
	ID        int64
	CompanyID string
	Price     float64
	Delta     float64
	ChangePct float64
	CreatedAt time.Time
}

// GameState is the singleton checkpoint record updated once per tick.
type GameState struct {
	Day             int
	LastTickAt      time.Time
	ActiveQuestions int
	Running         bool
	UpdatedAt       time.Time
}
