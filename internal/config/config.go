package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zdi-academy/backend/internal/models"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
}

const (
	ModeDebug   = "debug"
	ModeRelease = "release"
)

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServiceName       string `mapstructure:"service_name"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type GamificationConfig struct {
	EventPoints             map[string]int `mapstructure:"event_points"`
	LevelThresholds         []int64        `mapstructure:"level_thresholds"`
	LeaderboardSyncInterval time.Duration  `mapstructure:"leaderboard_sync_interval"`
}

// EventPointTable returns the configured point overrides keyed by event
// type. Keys are case-insensitive in the config file.
func (g GamificationConfig) EventPointTable() map[models.EventType]int {
	out := make(map[models.EventType]int, len(g.EventPoints))
	for k, v := range g.EventPoints {
		out[models.EventType(strings.ToUpper(k))] = v
	}
	return out
}

type RateLimitConfig struct {
	FlagSubmissionsPerMinute int `mapstructure:"flag_submissions_per_minute"`
	Burst                    int `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", ModeRelease)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "zdi")
	v.SetDefault("database.password", "zdi")
	v.SetDefault("database.name", "zdi_academy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "zdi-academy-backend")
	v.SetDefault("tracing.collector_endpoint", "http://localhost:14268/api/traces")

	v.SetDefault("gamification.event_points", map[string]int{})
	v.SetDefault("gamification.level_thresholds", []int64{})
	v.SetDefault("gamification.leaderboard_sync_interval", 5*time.Minute)

	v.SetDefault("rate_limit.flag_submissions_per_minute", 10)
	v.SetDefault("rate_limit.burst", 5)
}

// Load reads .env (if present), then config.yaml from ./config or the
// working directory, then ZDI_* environment overrides such as
// ZDI_DATABASE_HOST.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ZDI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Server.Mode != ModeDebug && cfg.Server.Mode != ModeRelease {
		return nil, fmt.Errorf("server.mode must be %q or %q, got %q", ModeDebug, ModeRelease, cfg.Server.Mode)
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required (set ZDI_JWT_SECRET)")
	}
	if cfg.RateLimit.FlagSubmissionsPerMinute <= 0 {
		return nil, fmt.Errorf("rate_limit.flag_submissions_per_minute must be positive, got %d", cfg.RateLimit.FlagSubmissionsPerMinute)
	}
	if cfg.Gamification.LeaderboardSyncInterval <= 0 {
		return nil, fmt.Errorf("gamification.leaderboard_sync_interval must be positive")
	}

	return &cfg, nil
}
