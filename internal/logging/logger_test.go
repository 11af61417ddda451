package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, c Config) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetBase(zap.New(core), c)
	t.Cleanup(func() { SetBase(nil, Config{}) })
	return logs
}

func TestCategoryFieldAttached(t *testing.T) {
	logs := observe(t, Config{})

	Responder("turn handled in %dms", 42)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "turn handled in 42ms", entries[0].Message)
	assert.Equal(t, "responder", entries[0].ContextMap()["category"])
	assert.Equal(t, "responder", entries[0].LoggerName)
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	logs := observe(t, Config{Categories: map[string]bool{"browser": false}})

	Browser("should not appear")
	Safety("should appear")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "should appear", entries[0].Message)
}

func TestUnlistedCategoryDefaultsEnabled(t *testing.T) {
	observe(t, Config{Categories: map[string]bool{"browser": false}})
	assert.True(t, IsCategoryEnabled(CategoryGuard))
	assert.False(t, IsCategoryEnabled(CategoryBrowser))
}

func TestWithAddsFields(t *testing.T) {
	logs := observe(t, Config{})

	Get(CategoryServer).With("request_id", "abc").Info("hello")

	entries := logs.FilterField(zap.String("request_id", "abc")).All()
	require.Len(t, entries, 1)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestTimerThreshold(t *testing.T) {
	logs := observe(t, Config{})

	timer := StartTimer(CategoryLLM, "Complete")
	timer.start = time.Now().Add(-2 * time.Second)
	timer.StopWithThreshold(time.Second)

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "Complete slow")
}

func TestInitializeJSON(t *testing.T) {
	l, err := Initialize(Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, l)
	t.Cleanup(func() { SetBase(nil, Config{}) })
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
