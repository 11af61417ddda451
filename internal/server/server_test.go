package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"asha/internal/responder"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeAnswerer struct {
	mu      sync.Mutex
	reply   responder.Reply
	err     error
	message string
	history []string
}

func (f *fakeAnswerer) GenerateResponse(_ context.Context, message string, history []string) (responder.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = message
	f.history = history
	if strings.TrimSpace(message) == "" {
		return responder.Reply{}, responder.ErrEmptyMessage
	}
	return f.reply, f.err
}

func (f *fakeAnswerer) Fallback() string { return "fallback" }

func newTestServer(a Answerer) *Server {
	return New(a, Options{
		Suggestions: []string{"one", "two", "three"},
		StageSuggestions: map[string][]string{
			"beginner":   {"b1", "b2"},
			"mid-career": {"m1"},
			"advanced":   {"a1"},
		},
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	for _, path := range []string{"/health", "/api/health"} {
		rec := do(t, s.Handler(), http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	}
}

func TestSuggestions_GetAndPost(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := do(t, s.Handler(), method, "/api/suggestions", "")
		require.Equal(t, http.StatusOK, rec.Code, method)

		var got SuggestionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, []string{"one", "two", "three"}, got.Suggestions)
	}
}

func TestSuggestions_ByStage(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	tests := []struct {
		query string
		stage string
		want  []string
	}{
		{"beginner", "beginner", []string{"b1", "b2"}},
		{"Mid-Career", "mid-career", []string{"m1"}},
		{"mid+career", "mid-career", []string{"m1"}},
		{"ADVANCED", "advanced", []string{"a1"}},
	}
	for _, tt := range tests {
		rec := do(t, s.Handler(), http.MethodGet, "/suggestions?stage="+tt.query, "")
		require.Equal(t, http.StatusOK, rec.Code, tt.query)

		var got SuggestionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, SuggestionsResponse{Stage: tt.stage, Suggestions: tt.want}, got, tt.query)
	}
}

func TestSuggestions_UnknownStage(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/suggestions?stage=expert", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "advanced, beginner, mid-career")
}

func TestNormalizeStage(t *testing.T) {
	assert.Equal(t, "mid-career", NormalizeStage("  Mid   Career "))
	assert.Equal(t, "mid-career", NormalizeStage("MID-CAREER"))
	assert.Equal(t, "", NormalizeStage("  "))
}

func TestAsk_OK(t *testing.T) {
	a := &fakeAnswerer{reply: responder.Reply{
		Conversation: "Learn Go.",
		Jobs:         "jobs",
		Events:       "",
	}}
	s := newTestServer(a)

	rec := do(t, s.Handler(), http.MethodPost, "/ask", `{"message":"How do I start?","history":["hi","hello"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{"response":{"conversation":"Learn Go.","jobs":"jobs","events":""}}`, rec.Body.String())
	if diff := cmp.Diff([]string{"hi", "hello"}, a.history); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "How do I start?", a.message)
}

func TestAsk_MissingHistory(t *testing.T) {
	a := &fakeAnswerer{reply: responder.Reply{Conversation: "ok"}}
	s := newTestServer(a)

	rec := do(t, s.Handler(), http.MethodPost, "/api/ask", `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.history)
}

func TestAsk_BadRequests(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	rec := do(t, s.Handler(), http.MethodPost, "/ask", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.Handler(), http.MethodPost, "/ask", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message is empty")
}

func TestAsk_ResponderErrorReturnsFallback(t *testing.T) {
	s := newTestServer(&fakeAnswerer{err: errors.New("llm down")})

	rec := do(t, s.Handler(), http.MethodPost, "/ask", `{"message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var got AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "fallback", got.Response.Conversation)
	assert.NotEmpty(t, got.Error)
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(&fakeAnswerer{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	transport := &http.Transport{DisableKeepAlives: true}
	client := &http.Client{Transport: transport, Timeout: 5 * time.Second}
	defer transport.CloseIdleConnections()

	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
