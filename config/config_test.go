package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/surface"
)

// unsetenv clears keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "PORT", "STORE_DRIVER", "SANDBOX_POLICY", "PUBLIC_BASE_URL", "MAX_HTML_BYTES",
		"WORKSPACE_IDLE_TTL", "MAX_WORKSPACES", "MAX_SESSIONS_PER_WORKSPACE")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, ":8081", cfg.Addr())
	require.Equal(t, DriverFile, cfg.StoreDriver)
	require.Equal(t, surface.DefaultPolicy, cfg.SandboxPolicy)
	require.EqualValues(t, 5<<20, cfg.MaxHTMLBytes)
	require.Equal(t, 30*time.Minute, cfg.WorkspaceIdleTTL)
	require.Equal(t, 1000, cfg.MaxWorkspaces)
	require.Equal(t, 16, cfg.MaxSessionsPerWorkspace)
}

func TestLoadPort(t *testing.T) {
	unsetenv(t, "STORE_DRIVER")
	for raw, want := range map[string]int{"9090": 9090, "abc": DefaultPort, "-1": DefaultPort, "0": DefaultPort} {
		t.Setenv("PORT", raw)
		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, want, cfg.Port, "PORT=%q", raw)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://games.example.com/")
	t.Setenv("STORE_DRIVER", " SQLite ")
	t.Setenv("MAX_IMAGE_BYTES", "1024")
	t.Setenv("SANDBOX_POLICY", "allow-scripts")
	t.Setenv("WORKSPACE_IDLE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://games.example.com", cfg.PublicBaseURL)
	require.Equal(t, DriverSQLite, cfg.StoreDriver)
	require.EqualValues(t, 1024, cfg.MaxImageBytes)
	require.Equal(t, "allow-scripts", cfg.SandboxPolicy)
	require.Equal(t, 90*time.Second, cfg.WorkspaceIdleTTL)
}

func TestLoadRejects(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("MAX_SESSIONS_PER_WORKSPACE", "-1")
	_, err = Load()
	require.ErrorContains(t, err, "negative")

	t.Setenv("MAX_SESSIONS_PER_WORKSPACE", "16")
	t.Setenv("MAX_HTML_BYTES", "lots")
	_, err = Load()
	require.ErrorContains(t, err, "parse env:")
}
