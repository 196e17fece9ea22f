package domain

import "time"

// QuestionStatus represents the lifecycle state of a prediction question.
type QuestionStatus string

const (
	QuestionStatusActive   QuestionStatus = "active"
	QuestionStatusResolved QuestionStatus = "resolved"
)

// Outcome is the binary answer a resolved question settles to.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Question is a resolvable binary proposition about the game world. Its
// outcome is fixed at creation time by the generation collaborator and
// replayed at resolution; the status transitions active→resolved exactly once.
type Question struct {
	ID         string
	Seq        int64
	Text       string
	Outcome    bool // predetermined settlement, fixed at creation
	Status     QuestionStatus
	CreatedAt  time.Time
	ResolvesAt time.Time
	ResolvedAt *time.Time
}

// IsDue reports whether the question's resolution date has elapsed.
func (q Question) IsDue(now time.Time) bool {
	return q.Status == QuestionStatusActive && !q.ResolvesAt.After(now)
}
