package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/surface"
)

const DefaultPort = 8081

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Port is resolved from PortRaw; hosts like Render and Fly set PORT.
	Port    int
	PortRaw string `env:"PORT"`

	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8081"` // Base URL for media links
	PlatformURL   string `env:"PLATFORM_URL" envDefault:"http://localhost:3000"`    // Allowed frame ancestor for games

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/games.db"`
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	MediaDir    string `env:"MEDIA_DIR" envDefault:"data/media"`

	MaxHTMLBytes  int64  `env:"MAX_HTML_BYTES" envDefault:"5242880"`
	MaxImageBytes int64  `env:"MAX_IMAGE_BYTES" envDefault:"5242880"`
	SandboxPolicy string `env:"SANDBOX_POLICY"`

	// Workspaces left untouched and unwatched this long are torn down; 0 keeps them.
	WorkspaceIdleTTL        time.Duration `env:"WORKSPACE_IDLE_TTL" envDefault:"30m"`
	MaxWorkspaces           int           `env:"MAX_WORKSPACES" envDefault:"1000"`
	MaxSessionsPerWorkspace int           `env:"MAX_SESSIONS_PER_WORKSPACE" envDefault:"16"`
}

// Load reads the environment. A missing or unusable PORT falls back to 8081.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Port = DefaultPort
	if v, err := strconv.Atoi(strings.TrimSpace(cfg.PortRaw)); err == nil && v > 0 {
		cfg.Port = v
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.PlatformURL = strings.TrimRight(cfg.PlatformURL, "/")
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.SandboxPolicy == "" {
		cfg.SandboxPolicy = surface.DefaultPolicy
	}

	if cfg.WorkspaceIdleTTL < 0 || cfg.MaxWorkspaces < 0 || cfg.MaxSessionsPerWorkspace < 0 {
		return nil, fmt.Errorf("workspace limits must not be negative")
	}

	switch cfg.StoreDriver {
	case DriverFile, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want file, postgres or sqlite)", cfg.StoreDriver)
	}
	return &cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
