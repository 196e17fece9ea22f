package textgen

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// Scripted is an offline TextGenerator that answers every request from canned
// template pools. It backs demo mode, where no generation service is
// reachable, and produces output of the same JSON shapes as the live client.
type Scripted struct {
	mu  sync.Mutex
	rng *rand.Rand
	seq int
}

// NewScripted creates a Scripted generator. A zero seed falls back to the
// current time.
func NewScripted(seed int64) *Scripted {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scripted{rng: rand.New(rand.NewSource(seed))}
}

var scriptedQuestions = []string{
	"Will the Castell merger close before the board retreat?",
	"Will VANE post a profit this quarter?",
	"Will the leaked memo force a resignation?",
	"Will the Orchard pilot program survive its budget review?",
	"Will Mirage ship the product it keeps announcing?",
	"Will the Pillar audit find anything worth hiding?",
	"Will Lumen poach another executive from Aether?",
	"Will the waterfront rezoning pass the council vote?",
}

var scriptedEvents = []struct {
	typ  string
	desc string
	bias string
}{
	{"announcement", "A surprise press release promises a product nobody asked for.", "yes"},
	{"scandal", "An expense report surfaces with a line item labelled only 'consulting'.", "no"},
	{"meeting", "Two rival executives were seen sharing a long lunch downtown.", "neutral"},
	{"deal", "A handshake agreement is rumoured between two firms that publicly despise each other.", "yes"},
	{"conflict", "A shouting match in the lobby ends with a security escort.", "no"},
	{"revelation", "An intern discovers the quarterly numbers were pasted from last year.", "no"},
	{"betrayal", "A trusted deputy has been interviewing with the competition for weeks.", "no"},
	{"opportunity", "A distressed competitor quietly puts its best division up for sale.", "yes"},
}

var scriptedPosts = []string{
	"calling it now, this merger is dead on arrival",
	"my landlord owns shares in PLLR and suddenly the elevator works",
	"whoever leaked that memo deserves a statue",
	"imagine betting NO on your own company. couldn't be me",
	"the lunch rush near the exchange tells you everything about today's prices",
	"heard the audit team ordered dinner to the office three nights running",
	"VANE up again. the fundamentals are vibes",
	"resign already, we all read the memo",
	"the pilot program outlived three of its sponsors, it will outlive this one",
	"quietly moving my savings into canned goods",
	"every 'strategic partnership' around here ends in a lawsuit",
	"the board retreat is just golf with extra steps",
}

var scriptedNarratives = []string{
	"The verdict is in, and the city will be talking about it for days.",
	"Traders crowded the ticker as the outcome flashed across the board.",
	"Another prediction settled, another round of told-you-so in the cafes.",
}

// GenerateJSON synthesizes a response matching the JSON shape the prompt asks
// for. The schema hint is the discriminator; prompts without one get a
// narrative blurb.
func (s *Scripted) GenerateJSON(_ context.Context, prompt string, opts domain.GenerateOpts) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++

	hint := opts.SchemaHint
	switch {
	case strings.Contains(hint, `"posts"`):
		return s.posts()
	case strings.Contains(hint, `"expectedOutcome"`):
		return s.question()
	case strings.Contains(hint, `"bias"`):
		return s.event()
	case strings.Contains(prompt, `"narrative"`):
		return s.narrative()
	default:
		return s.narrative()
	}
}

func (s *Scripted) question() (json.RawMessage, error) {
	return json.Marshal(map[string]any{
		"question":        scriptedQuestions[s.rng.Intn(len(scriptedQuestions))],
		"expectedOutcome": s.rng.Float64() < 0.5,
	})
}

func (s *Scripted) event() (json.RawMessage, error) {
	e := scriptedEvents[s.rng.Intn(len(scriptedEvents))]
	return json.Marshal(map[string]any{
		"type":        e.typ,
		"description": e.desc,
		"bias":        e.bias,
	})
}

func (s *Scripted) posts() (json.RawMessage, error) {
	count := 10 + s.rng.Intn(6)
	posts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		posts = append(posts, scriptedPosts[s.rng.Intn(len(scriptedPosts))])
	}
	return json.Marshal(map[string]any{"posts": posts})
}

func (s *Scripted) narrative() (json.RawMessage, error) {
	return json.Marshal(map[string]any{
		"narrative": scriptedNarratives[s.rng.Intn(len(scriptedNarratives))],
	})
}
