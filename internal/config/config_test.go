package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-web/internal/clock"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "cheese:session", cfg.SessionKey)
	assert.Equal(t, clock.TimeControl{White: 600, Black: 600}, cfg.TimeControl)
	assert.Equal(t, "classic", cfg.BoardTheme)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Zero(t, cfg.SessionTTL)
	assert.Empty(t, cfg.RedisURL)
}

func TestOverrides(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"LISTEN_ADDR":      "127.0.0.1:9000",
		"REDIS_URL":        "redis://localhost:6379/2",
		"SESSION_KEY":      "cheese:test",
		"SESSION_TTL_SEC":  "86400",
		"TIME_CONTROL":     "3+2",
		"BOARD_THEME":      "Green",
		"TICK_INTERVAL_MS": "250",
	}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, clock.TimeControl{White: 180, Black: 180, Increment: 2}, cfg.TimeControl)
	assert.Equal(t, "green", cfg.BoardTheme)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
}

func TestAllErrorsReported(t *testing.T) {
	_, err := load(envOf(map[string]string{
		"REDIS_URL":        "http://nope",
		"SESSION_TTL_SEC":  "-1",
		"TIME_CONTROL":     "fast",
		"BOARD_THEME":      "plaid",
		"TICK_INTERVAL_MS": "0",
	}))
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"REDIS_URL", "SESSION_TTL_SEC", "TIME_CONTROL", "BOARD_THEME", "TICK_INTERVAL_MS"} {
		assert.True(t, strings.Contains(msg, want), "missing %s in %s", want, msg)
	}
}
