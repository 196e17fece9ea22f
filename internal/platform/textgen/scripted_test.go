package textgen

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

func TestScriptedQuestionShape(t *testing.T) {
	gen := NewScripted(1)

	raw, err := gen.GenerateJSON(context.Background(), "create a prediction", domain.GenerateOpts{
		SchemaHint: `{"question": string, "expectedOutcome": bool}`,
	})
	require.NoError(t, err)

	var payload struct {
		Question        *string `json:"question"`
		ExpectedOutcome *bool   `json:"expectedOutcome"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NotNil(t, payload.Question)
	require.NotEmpty(t, *payload.Question)
	require.NotNil(t, payload.ExpectedOutcome)
}

func TestScriptedEventShape(t *testing.T) {
	gen := NewScripted(1)

	raw, err := gen.GenerateJSON(context.Background(), "write an event", domain.GenerateOpts{
		SchemaHint: `{"type": string, "description": string, "bias": "yes"|"no"|"neutral"}`,
	})
	require.NoError(t, err)

	var payload struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Bias        string `json:"bias"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NotEmpty(t, payload.Type)
	require.NotEmpty(t, payload.Description)
	require.Contains(t, []string{"yes", "no", "neutral"}, payload.Bias)
}

func TestScriptedPostsShape(t *testing.T) {
	gen := NewScripted(1)

	raw, err := gen.GenerateJSON(context.Background(), "write posts", domain.GenerateOpts{
		SchemaHint: `{"posts": [string, ...]}`,
	})
	require.NoError(t, err)

	var payload struct {
		Posts []string `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.GreaterOrEqual(t, len(payload.Posts), 10)
}

func TestScriptedNarrativeFallback(t *testing.T) {
	gen := NewScripted(1)

	raw, err := gen.GenerateJSON(context.Background(),
		`announce the outcome. Respond as JSON: {"narrative": "..."}`, domain.GenerateOpts{})
	require.NoError(t, err)

	var payload struct {
		Narrative string `json:"narrative"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NotEmpty(t, payload.Narrative)
}
