// Package sentiment aggregates the directional bias of a tick's narrative
// events into a single scalar in [-1,1] that drives the price model.
package sentiment

import "github.com/alanyoungcy/babylonsim/internal/domain"

const (
	biasWeight   = 0.5
	flavorWeight = 0.3
	// backlogPenalty shrinks the score toward zero per open question, so a
	// crowded backlog cannot keep compounding drift in one direction.
	backlogPenalty = 0.02
)

// positiveTypes and negativeTypes give each event type its flavor
// contribution on top of the explicit YES/NO bias.
var positiveTypes = map[domain.EventType]bool{
	domain.EventDeal:         true,
	domain.EventAnnouncement: true,
	domain.EventOpportunity:  true,
}

var negativeTypes = map[domain.EventType]bool{
	domain.EventScandal:  true,
	domain.EventConflict: true,
	domain.EventBetrayal: true,
}

// Score computes the aggregate market sentiment from the events generated
// this tick and the current active-question backlog size. The result is the
// per-event average, dampened by the backlog penalty and clamped to [-1,1].
func Score(events []domain.WorldEvent, backlog int) float64 {
	if len(events) == 0 {
		return 0
	}

	var sum float64
	for _, e := range events {
		switch e.Bias {
		case domain.BiasYes:
			sum += biasWeight
		case domain.BiasNo:
			sum -= biasWeight
		}

		if positiveTypes[e.Type] {
			sum += flavorWeight
		} else if negativeTypes[e.Type] {
			sum -= flavorWeight
		}
	}

	score := sum / float64(len(events))

	// Pull the score toward zero by the backlog penalty.
	damp := backlogPenalty * float64(backlog)
	switch {
	case score > 0:
		score -= damp
		if score < 0 {
			score = 0
		}
	case score < 0:
		score += damp
		if score > 0 {
			score = 0
		}
	}

	return clamp(score, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
