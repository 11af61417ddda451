//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asha/internal/browser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_RendersScriptInsertedCards_Integration(t *testing.T) {
	// Cards only exist after the script runs, which a static fetch would miss.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body><div id="root"></div><script>
setTimeout(function () {
  document.getElementById("root").innerHTML =
    '<div data-test-id="job-details">' +
    '<p data-test-id="job-title">Product Manager</p>' +
    '<p data-test-id="company-name">HerKey</p>' +
    '<p class="MuiTypography-root MuiTypography-body2 capitalize">Mumbai | Onsite | 5+ Yrs</p>' +
    '</div>';
}, 200);
</script></body></html>`)
	}))
	defer ts.Close()

	cfg := browser.DefaultConfig()
	cfg.WaitTimeout = 10 * time.Second
	cfg.SettleDelay = 100 * time.Millisecond

	sm := browser.NewSessionManager(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	defer func() {
		_ = sm.Shutdown(context.Background())
	}()

	html, err := sm.Render(ctx, ts.URL, browser.JobCardSelector)
	require.NoError(t, err)
	assert.True(t, sm.IsConnected())
	assert.Empty(t, sm.List())

	jobs, err := browser.ParseJobs(html)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, browser.Job{
		Title: "Product Manager", Company: "HerKey", Location: "Mumbai", WorkType: "Onsite", Experience: "5+ Yrs",
	}, jobs[0])
}

func TestSessionManager_MissingSelectorReturnsPage_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "<html><body><h1>No events today</h1></body></html>")
	}))
	defer ts.Close()

	cfg := browser.DefaultConfig()
	cfg.WaitTimeout = 2 * time.Second
	cfg.SettleDelay = 0

	sm := browser.NewSessionManager(cfg)
	defer func() {
		_ = sm.Shutdown(context.Background())
	}()

	html, err := sm.Render(context.Background(), ts.URL, browser.EventCardSelector)
	require.NoError(t, err)

	events, err := browser.ParseEvents(html, ts.URL)
	require.NoError(t, err)
	assert.Empty(t, events)
}
