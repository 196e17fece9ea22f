package domain

import "time"

// EventType classifies a narrative world event.
type EventType string

const (
	EventAnnouncement EventType = "announcement"
	EventScandal      EventType = "scandal"
	EventMeeting      EventType = "meeting"
	EventRevelation   EventType = "revelation"
	EventDeal         EventType = "deal"
	EventConflict     EventType = "conflict"
	EventBetrayal     EventType = "betrayal"
	EventOpportunity  EventType = "opportunity"
	EventResolution   EventType = "resolution"
)

// EventBias is the directional hint an event carries toward a question outcome.
type EventBias string

const (
	BiasYes     EventBias = "yes"
	BiasNo      EventBias = "no"
	BiasNeutral EventBias = "neutral"
)

// WorldEvent is a narrative event emitted by the simulation. Events are
// persisted once and never mutated.
type WorldEvent struct {
	ID          string
	Day         int
	Type        EventType
	Description string
	ActorIDs    []string
	QuestionID  *string
	Bias        EventBias
	Public      bool
	CreatedAt   time.Time
}

// Post is a short piece of content attributed to an actor, generated each tick
// and bulk-inserted.
type Post struct {
	ID         string
	AuthorID   string
	Body       string
	EventID    *string
	QuestionID *string
	CreatedAt  time.Time
}

// Actor is a participant identity from the read-only actor directory.
type Actor struct {
	ID   string
	Name string
	Bio  string
}
