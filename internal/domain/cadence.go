package domain

import "time"

// CadenceClass identifies one of the fixed question time horizons. Buckets are
// held in an array indexed by CadenceClass so iteration order is deterministic.
type CadenceClass int

const (
	CadenceDay CadenceClass = iota
	CadenceThreeDay
	CadenceWeek
	CadenceMonth

	CadenceClassCount
)

// String returns the duration label for the class (e.g. "24h").
func (c CadenceClass) String() string {
	switch c {
	case CadenceDay:
		return "24h"
	case CadenceThreeDay:
		return "3d"
	case CadenceWeek:
		return "7d"
	case CadenceMonth:
		return "30d"
	default:
		return "unknown"
	}
}

// Horizon returns the time between creation and resolution for questions in
// this class.
func (c CadenceClass) Horizon() time.Duration {
	switch c {
	case CadenceDay:
		return 24 * time.Hour
	case CadenceThreeDay:
		return 3 * 24 * time.Hour
	case CadenceWeek:
		return 7 * 24 * time.Hour
	case CadenceMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// CadenceBucket is the configuration and runtime state for one time horizon.
// MaxActive bounds how many questions may be simultaneously scheduled to
// resolve around the bucket's horizon; MinInterval bounds how often the bucket
// may create. LastCreated is mutated only by the scheduler's own tick.
type CadenceBucket struct {
	Class       CadenceClass
	MaxActive   int
	MinInterval time.Duration
	LastCreated time.Time
}
