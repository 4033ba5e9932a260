package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danja/semem/internal/model"
)

func fakeInteraction(id string) *model.Interaction {
	return &model.Interaction{ID: id}
}

func newTestServer(t *testing.T, askResult bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query := r.FormValue("query")

		w.Header().Set("Content-Type", "application/sparql-results+json")
		if containsAsk(query) {
			_ = json.NewEncoder(w).Encode(map[string]any{"boolean": askResult})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{
				"bindings": []map[string]any{
					{
						"s": map[string]string{"value": "http://semem.dev/ns#interaction_abc"},
						"p": map[string]string{"value": "http://semem.dev/ns#prompt"},
						"o": map[string]string{"value": "hello"},
					},
				},
			},
		})
	})
	mux.HandleFunc("/update", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func containsAsk(query string) bool {
	for i := 0; i+3 <= len(query); i++ {
		if query[i:i+3] == "ASK" {
			return true
		}
	}
	return false
}

func newTestStore(t *testing.T, srv *httptest.Server) *Store {
	t.Helper()
	s, err := New(Options{
		QueryEndpoint:  srv.URL + "/query",
		UpdateEndpoint: srv.URL + "/update",
		Graph:          "http://semem.dev/graph/default",
		DebounceWindow: 20 * time.Millisecond,
		ProbeInterval:  time.Hour,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestStore_StartsDegradedUntilFirstProbeSucceeds(t *testing.T) {
	srv := newTestServer(t, true)
	defer srv.Close()

	s := newTestStore(t, srv)
	assert.True(t, s.Degraded(), "store should start degraded before the first probe")

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.False(t, s.Degraded())
}

func TestStore_AskReturnsParsedBoolean(t *testing.T) {
	srv := newTestServer(t, true)
	defer srv.Close()

	s := newTestStore(t, srv)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	ok, err := s.Ask(context.Background(), "ask-exists", map[string]string{"subject": "interaction_abc"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_ConstructBindsSubjectOnEveryTriple(t *testing.T) {
	srv := newTestServer(t, true)
	defer srv.Close()

	s := newTestStore(t, srv)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	triples, err := s.Construct(context.Background(), "construct-interaction", map[string]string{"subject": "interaction_abc"})
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "http://semem.dev/ns#interaction_abc", triples[0].Subject)
	assert.Equal(t, "http://semem.dev/ns#prompt", triples[0].Predicate)
	assert.Equal(t, "hello", triples[0].Object)
}

func TestStore_DegradedRejectsOperations(t *testing.T) {
	srv := newTestServer(t, true)
	srv.Close() // unreachable from the start

	s := newTestStore(t, srv)

	_, err := s.Select(context.Background(), "select-by-id", map[string]string{"subject": "x"})
	assert.ErrorIs(t, err, ErrDegraded)
}

func TestStore_EnqueueWriteIsReadableBeforeFlush(t *testing.T) {
	srv := newTestServer(t, true)
	defer srv.Close()

	s := newTestStore(t, srv)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.EnqueueWrite("session-1", Mutation{
		Template: "update-insert-interaction",
		Params: map[string]string{
			"subject": "interaction_xyz",
			"prompt":  "buffered prompt",
			"triples": "",
		},
	})

	interaction, err := s.FetchInteractionForSession(context.Background(), "session-1", "interaction_xyz")
	require.NoError(t, err)
	require.NotNil(t, interaction)
	assert.Equal(t, "buffered prompt", interaction.Prompt)
}

func TestLoadCache_EvictsOnCapacityAndInvalidate(t *testing.T) {
	c := newLoadCache(1)
	c.put(fakeInteraction("a"))
	c.put(fakeInteraction("b"))

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted once b was added to a capacity-1 cache")

	c2 := newLoadCache(10)
	c2.put(fakeInteraction("c"))
	c2.invalidate("c")
	_, ok = c2.get("c")
	assert.False(t, ok)
}
