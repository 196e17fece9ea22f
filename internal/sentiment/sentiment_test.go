package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

func event(typ domain.EventType, bias domain.EventBias) domain.WorldEvent {
	return domain.WorldEvent{Type: typ, Bias: bias}
}

func TestScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil, 0))
	assert.Equal(t, 0.0, Score([]domain.WorldEvent{}, 10))
}

func TestScoreSingleEvents(t *testing.T) {
	cases := []struct {
		name     string
		ev       domain.WorldEvent
		expected float64
	}{
		{"yes deal stacks bias and flavor", event(domain.EventDeal, domain.BiasYes), 0.8},
		{"no scandal stacks negative", event(domain.EventScandal, domain.BiasNo), -0.8},
		{"neutral meeting contributes nothing", event(domain.EventMeeting, domain.BiasNeutral), 0.0},
		{"yes scandal partially cancels", event(domain.EventScandal, domain.BiasYes), 0.2},
		{"neutral announcement is mildly positive", event(domain.EventAnnouncement, domain.BiasNeutral), 0.3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Score([]domain.WorldEvent{tc.ev}, 0), 1e-12)
		})
	}
}

func TestScoreAveragesOverBatch(t *testing.T) {
	events := []domain.WorldEvent{
		event(domain.EventDeal, domain.BiasYes),    // +0.8
		event(domain.EventScandal, domain.BiasNo),  // -0.8
		event(domain.EventMeeting, domain.BiasYes), // +0.5
	}
	assert.InDelta(t, 0.5/3, Score(events, 0), 1e-12)
}

func TestScoreBacklogPenaltyDampsTowardZero(t *testing.T) {
	events := []domain.WorldEvent{event(domain.EventDeal, domain.BiasYes)} // +0.8

	assert.InDelta(t, 0.8, Score(events, 0), 1e-12)
	assert.InDelta(t, 0.7, Score(events, 5), 1e-12)
	// A huge backlog never flips the sign.
	assert.Equal(t, 0.0, Score(events, 100))

	negative := []domain.WorldEvent{event(domain.EventScandal, domain.BiasNo)} // -0.8
	assert.InDelta(t, -0.7, Score(negative, 5), 1e-12)
	assert.Equal(t, 0.0, Score(negative, 100))
}

func TestScoreClamped(t *testing.T) {
	for backlog := 0; backlog <= 50; backlog += 10 {
		for _, events := range [][]domain.WorldEvent{
			{event(domain.EventDeal, domain.BiasYes), event(domain.EventDeal, domain.BiasYes)},
			{event(domain.EventBetrayal, domain.BiasNo), event(domain.EventConflict, domain.BiasNo)},
		} {
			s := Score(events, backlog)
			assert.GreaterOrEqual(t, s, -1.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}
