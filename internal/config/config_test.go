package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Anan1218/homehealth/internal/config"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "https://project.supabase.co", cfg.SupabaseURL)
	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.Equal(t, "8000", cfg.HTTPPort)
	require.Equal(t, "homehealth-api", cfg.ServiceName)
	require.Equal(t, 10*time.Second, cfg.BaaSTimeout)
	require.Equal(t, 30*time.Second, cfg.UserCacheTTL)
	require.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.CORSAllowCredentials)
	require.Equal(t, "anon-key", cfg.BaaSKey())
}

func TestLoadPrefersServiceRoleKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "service-key", cfg.BaaSKey())
}

func TestLoadNormalizesPrefix(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("API_V1_STR", "api/v2/")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "/api/v2", cfg.APIPrefix)
}

func TestLoadRejectsRelativeURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_URL", "project.supabase.co")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRequiresAKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_ANON_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
}
