package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	// API key for the third-party stats provider. Stats are skipped when empty.
	HDevAPIKey string
	// Directory holding the catalog snapshots and the session database.
	DataDir      string
	LockfilePath string
	DBPath       string
	HTTPAddr     string
	LogLevel     string
	PollInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	dataDir := getEnv("DATA_DIR", defaultDataDir())

	cfg := &Config{
		HDevAPIKey:   getEnv("HDEV_API_KEY", ""),
		DataDir:      dataDir,
		LockfilePath: getEnv("LOCKFILE_PATH", defaultLockfilePath()),
		DBPath:       getEnv("DB_PATH", filepath.Join(dataDir, "sessions.db")),
		HTTPAddr:     getEnv("HTTP_ADDR", "127.0.0.1:7899"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		PollInterval: getDurationEnv("POLL_INTERVAL", 10*time.Second),
	}

	if cfg.HDevAPIKey == "" {
		logger.Warn().Msg("HDEV_API_KEY not set, player stats will be unavailable")
	}

	logger.Info().
		Str("data_dir", cfg.DataDir).
		Str("lockfile_path", cfg.LockfilePath).
		Str("http_addr", cfg.HTTPAddr).
		Str("log_level", cfg.LogLevel).
		Dur("poll_interval", cfg.PollInterval).
		Msg("configuration loaded")

	return cfg, nil
}

// defaultLockfilePath points at the lockfile the game client writes on startup.
func defaultLockfilePath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Riot Games", "Riot Client", "Config", "lockfile")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "riot-client", "lockfile")
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".valoripper")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
