package textgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

func TestGenerateJSON(t *testing.T) {
	var gotReq generateRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/generate", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": {"question": "Will it rain?", "expected_outcome": true}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "narrative-large")

	raw, err := c.GenerateJSON(context.Background(), "make a question", domain.GenerateOpts{
		Temperature: 0.8,
		MaxTokens:   256,
		SchemaHint:  `{"question": "string"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "narrative-large", gotReq.Model)
	assert.Equal(t, "make a question", gotReq.Prompt)
	assert.Equal(t, "json", gotReq.Format)
	assert.InDelta(t, 0.8, gotReq.Temperature, 1e-9)

	var payload struct {
		Question string `json:"question"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "Will it rain?", payload.Question)
}

func TestGenerateJSONServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "model overloaded"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "narrative-large")
	_, err := c.GenerateJSON(context.Background(), "p", domain.GenerateOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGenerateJSONHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.GenerateJSON(context.Background(), "p", domain.GenerateOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestGenerateJSONEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.GenerateJSON(context.Background(), "p", domain.GenerateOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}
