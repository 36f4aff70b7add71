package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/session"
	"github.com/park285/cheese-web/internal/store"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	SessionKey  string
	SessionTTL  time.Duration
	DatabaseURL string

	TimeControl  clock.TimeControl
	BoardTheme   string
	MessagesDir  string
	TickInterval time.Duration
}

// Load reads the environment. All invalid values are reported together.
func Load() (*AppConfig, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:   ":8080",
		SessionKey:   store.DefaultKey,
		TimeControl:  session.DefaultTimeControl,
		BoardTheme:   session.Themes[0],
		TickInterval: time.Second,
	}
	env := func(k string) string { return strings.TrimSpace(getenv(k)) }
	var result *multierror.Error

	if v := env("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	if cfg.RedisURL != "" && !strings.HasPrefix(cfg.RedisURL, "redis://") && !strings.HasPrefix(cfg.RedisURL, "rediss://") {
		result = multierror.Append(result, fmt.Errorf("REDIS_URL must use redis:// or rediss://"))
	}
	if v := env("SESSION_KEY"); v != "" {
		cfg.SessionKey = v
	}
	if v := env("SESSION_TTL_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			result = multierror.Append(result, fmt.Errorf("SESSION_TTL_SEC: %q is not a non-negative integer", v))
		} else {
			cfg.SessionTTL = time.Duration(n) * time.Second
		}
	}
	cfg.DatabaseURL = env("DATABASE_URL")

	if v := env("TIME_CONTROL"); v != "" {
		tc, err := clock.ParseTimeControl(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("TIME_CONTROL: %w", err))
		} else {
			cfg.TimeControl = tc
		}
	}
	if v := strings.ToLower(env("BOARD_THEME")); v != "" {
		if !contains(session.Themes, v) {
			result = multierror.Append(result, fmt.Errorf("BOARD_THEME: %q not one of %s", v, strings.Join(session.Themes, ", ")))
		} else {
			cfg.BoardTheme = v
		}
	}
	cfg.MessagesDir = env("MESSAGES_DIR")
	if v := env("TICK_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			result = multierror.Append(result, fmt.Errorf("TICK_INTERVAL_MS: %q is not a positive integer", v))
		} else {
			cfg.TickInterval = time.Duration(n) * time.Millisecond
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
