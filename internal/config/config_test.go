package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-classroom-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.New(config.WithDotEnv(""))

	require.Equal(t, 60*time.Second, c.GetValidationCacheTTL())
	require.Equal(t, 250*time.Millisecond, c.GetNoticeDebounce())
	require.Equal(t, 3*time.Second, c.GetFlashTimeout())
	require.Equal(t, time.Second, c.GetDownloadRevokeDelay())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "/auth/validate", c.GetValidatePath())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CLASSROOM_BASE_URL", "https://school.example.com/api/")
	t.Setenv("CLASSROOM_VALIDATION_CACHE_TTL", "5s")
	t.Setenv("CLASSROOM_VALIDATE_PATH", "/session/check")

	c := config.New(config.WithDotEnv(""))

	require.Equal(t, "https://school.example.com/api", c.GetBaseURL())
	require.Equal(t, "wss://school.example.com/api", c.GetPushURL())
	require.Equal(t, 5*time.Second, c.GetValidationCacheTTL())
	require.Equal(t, "/session/check", c.GetValidatePath())
}

func TestWithValueTakesPrecedence(t *testing.T) {
	t.Setenv("CLASSROOM_BASE_URL", "https://from-env.example.com")

	c := config.New(
		config.WithDotEnv(""),
		config.WithValue("base_url", "http://127.0.0.1:9000"),
		config.WithValue("push_url", "ws://127.0.0.1:9001"),
	)

	require.Equal(t, "http://127.0.0.1:9000", c.GetBaseURL())
	require.Equal(t, "ws://127.0.0.1:9001", c.GetPushURL())
}
