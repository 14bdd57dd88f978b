package coalition_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coalition "github.com/ghogue02/living-economy-arena-sub000"
)

// pairTrust is a TrustOracle over an explicit edge table with a default.
type pairTrust struct {
	edges map[string]float64
}

func (p pairTrust) Trust(_ context.Context, from, to string) (float64, error) {
	if v, ok := p.edges[from+"->"+to]; ok {
		return v, nil
	}
	return 70, nil
}

// captureHook records events delivered through the public hook interface.
type captureHook struct {
	events chan coalition.Event
}

func (h *captureHook) OnCoalitionEvent(_ context.Context, ev coalition.Event) error {
	select {
	case h.events <- ev:
	default:
	}
	return nil
}

func TestAppEmbedding(t *testing.T) {
	hook := &captureHook{events: make(chan coalition.Event, 8)}
	app, err := coalition.New(
		coalition.WithVersion("embed-test"),
		coalition.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		coalition.WithRandSeed(7),
		coalition.WithTrustOracle(pairTrust{edges: map[string]float64{"alice->mallory": 5, "mallory->alice": 5}}),
		coalition.WithEventHook(hook),
	)
	require.NoError(t, err)

	body := `{
		"initiator": "alice",
		"purpose": "trading",
		"available_agents": ["bob", "carol"],
		"constraints": {"max_size": 3, "min_trust_level": 50, "reputation_threshold": 0}
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/coalitions/form", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var env struct {
		Data struct {
			Coalition *struct {
				ID      string   `json:"id"`
				Members []string `json:"members"`
				Status  string   `json:"status"`
			} `json:"recommended_coalition"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Data.Coalition)
	assert.Equal(t, "active", env.Data.Coalition.Status)
	assert.Equal(t, "alice", env.Data.Coalition.Members[0])

	// Hooks are delivered asynchronously; both lifecycle events arrive.
	types := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(types) < 2 {
		select {
		case ev := <-hook.events:
			types[ev.Type] = true
		case <-deadline:
			t.Fatalf("missing events, got %v", types)
		}
	}
	assert.True(t, types[coalition.EventCoalitionFormed])
	assert.True(t, types[coalition.EventCoalitionActivated])

	require.NoError(t, app.Shutdown(context.Background()))
}

func TestAppRunStopsOnContextCancel(t *testing.T) {
	app, err := coalition.New(
		coalition.WithVersion("run-test"),
		coalition.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
