package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	// SpartanToken authenticates every Halo Waypoint call. It expires out
	// of band; replacing it requires an operator edit and a restart.
	SpartanToken string

	// PlayerXUID is the single tracked identity.
	PlayerXUID string

	// TargetActivity is the presence activity name that starts a watch.
	TargetActivity string

	DiscordWebhookURL string

	// PresenceURL, when set, is polled once at startup to seed the
	// current presence state.
	PresenceURL string

	DBPath     string
	ServerPort string
	LogLevel   string
	PlotDir    string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		SpartanToken:      getEnv("SPARTAN_TOKEN", ""),
		PlayerXUID:        getEnv("PLAYER_XUID", ""),
		TargetActivity:    getEnv("TARGET_ACTIVITY", "Halo Infinite"),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		PresenceURL:       getEnv("PRESENCE_URL", ""),
		DBPath:            getEnv("DB_PATH", "matches_cache.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		PlotDir:           getEnv("PLOT_DIR", os.TempDir()),
	}

	if cfg.SpartanToken == "" {
		return nil, fmt.Errorf("SPARTAN_TOKEN is required")
	}
	if cfg.PlayerXUID == "" {
		return nil, fmt.Errorf("PLAYER_XUID is required")
	}
	if cfg.DiscordWebhookURL == "" {
		return nil, fmt.Errorf("DISCORD_WEBHOOK_URL is required")
	}

	logger.Info().
		Str("player_xuid", cfg.PlayerXUID).
		Str("target_activity", cfg.TargetActivity).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
