package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asha/internal/responder"
	"asha/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnswerer struct {
	err     error
	history []string
}

func (s *stubAnswerer) GenerateResponse(_ context.Context, message string, history []string) (responder.Reply, error) {
	s.history = history
	if message == "" {
		return responder.Reply{}, responder.ErrEmptyMessage
	}
	if s.err != nil {
		return responder.Reply{}, s.err
	}
	return responder.Reply{Conversation: "echo: " + message, Jobs: "j", Events: "e"}, nil
}

func (s *stubAnswerer) Fallback() string { return "try later" }

func newAPI(t *testing.T, a server.Answerer) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := server.New(a, server.Options{
		Suggestions:      []string{"a", "b", "c"},
		StageSuggestions: map[string][]string{"mid-career": {"How do I return after a break?"}},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_RoundTrip(t *testing.T) {
	a := &stubAnswerer{}
	ts := newAPI(t, a)
	c := New(ts.URL, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	sugg, err := c.Suggestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sugg)

	reply, err := c.Ask(ctx, "hello", []string{"hi"})
	require.NoError(t, err)
	assert.Equal(t, responder.Reply{Conversation: "echo: hello", Jobs: "j", Events: "e"}, reply)
	assert.Equal(t, []string{"hi"}, a.history)
}

func TestClient_StageSuggestions(t *testing.T) {
	c := New(newAPI(t, &stubAnswerer{}).URL, 5*time.Second)
	ctx := context.Background()

	sugg, err := c.StageSuggestions(ctx, "Mid Career")
	require.NoError(t, err)
	assert.Equal(t, []string{"How do I return after a break?"}, sugg)

	_, err = c.StageSuggestions(ctx, "expert")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, "mid-career")
}

func TestClient_APIPrefix(t *testing.T) {
	ts := newAPI(t, &stubAnswerer{})
	c := New(ts.URL+"/api/", 5*time.Second)

	require.NoError(t, c.Health(context.Background()))
}

func TestClient_ErrorsCarryFallback(t *testing.T) {
	ts := newAPI(t, &stubAnswerer{err: errors.New("down")})
	c := New(ts.URL, 5*time.Second)

	reply, err := c.Ask(context.Background(), "hello", nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "try later", reply.Conversation)
}

func TestClient_BadRequest(t *testing.T) {
	ts := newAPI(t, &stubAnswerer{})
	c := New(ts.URL, 5*time.Second)

	_, err := c.Ask(context.Background(), "", nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, "message is empty")
}

func TestClient_Unhealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer ts.Close()

	err := New(ts.URL, time.Second).Health(context.Background())
	assert.ErrorContains(t, err, "degraded")
}
