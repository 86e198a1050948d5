package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8228", cfg.Bridge.URL)
	assert.Equal(t, 30*time.Second, cfg.Bridge.Timeout)
	assert.False(t, cfg.Security.RequireAPIKey)
	assert.Equal(t, "X-API-Key", cfg.Security.APIKeyHeader)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
	assert.NotEmpty(t, cfg.Discovery.RealGroups)
	assert.NotEmpty(t, cfg.Discovery.CandidateGroups)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REQUIRE_API_KEY", "true")
	t.Setenv("API_KEYS", "alpha,beta")
	t.Setenv("MANAGER_BRIDGE_TIMEOUT", "5s")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Security.RequireAPIKey)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Security.APIKeys)
	assert.Equal(t, 5*time.Second, cfg.Bridge.Timeout)
}

func TestGroupListsUseSemicolonSeparator(t *testing.T) {
	t.Setenv("SEED_REAL_GROUPS", `real\VIP, Gold;real\Standard`)

	cfg := Load()

	// group names may contain commas, so the separator is ';'
	assert.Equal(t, []string{`real\VIP, Gold`, `real\Standard`}, cfg.Discovery.RealGroups)
}
