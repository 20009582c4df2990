package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

type Config struct {
	Port                       string        `mapstructure:"PORT"`
	Env                        string        `mapstructure:"ENV"`
	LogLevel                   string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL                string        `mapstructure:"DATABASE_URL"`
	DBMaxConns                 int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns                 int32         `mapstructure:"DB_MIN_CONNS"`
	RedisAddr                  string        `mapstructure:"REDIS_ADDR"`
	RedisPassword              string        `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers               string        `mapstructure:"KAFKA_BROKERS"`
	KafkaNotifyTopic           string        `mapstructure:"KAFKA_NOTIFY_TOPIC"`
	StaticTokens               string        `mapstructure:"STATIC_TOKENS"`
	JWTSecret                  string        `mapstructure:"JWT_HMAC_SECRET"`
	GoogleClientID             string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret         string        `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL          string        `mapstructure:"GOOGLE_REDIRECT_URL"`
	GoogleCalendarID           string        `mapstructure:"GOOGLE_CALENDAR_ID"`
	OTelEnabled                bool          `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint               string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRatio          float64       `mapstructure:"OTEL_SAMPLING_RATIO"`
	DefaultTimezone            string        `mapstructure:"DEFAULT_TIMEZONE"`
	DefaultSlotIntervalMinutes int           `mapstructure:"DEFAULT_SLOT_INTERVAL_MINUTES"`
	DefaultMinAdvanceMinutes   int           `mapstructure:"DEFAULT_MIN_ADVANCE_MINUTES"`
	DefaultMaxFutureDays       int           `mapstructure:"DEFAULT_MAX_FUTURE_DAYS"`
	DraftTTL                   time.Duration `mapstructure:"DRAFT_TTL"`
	ShutdownTimeout            time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_ADDR", "REDIS_PASSWORD",
	"KAFKA_BROKERS", "KAFKA_NOTIFY_TOPIC",
	"STATIC_TOKENS", "JWT_HMAC_SECRET",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL", "GOOGLE_CALENDAR_ID",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLING_RATIO",
	"DEFAULT_TIMEZONE", "DEFAULT_SLOT_INTERVAL_MINUTES", "DEFAULT_MIN_ADVANCE_MINUTES", "DEFAULT_MAX_FUTURE_DAYS",
	"DRAFT_TTL", "SHUTDOWN_TIMEOUT",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. Environment values win.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("KAFKA_NOTIFY_TOPIC", "scheduler.notices")
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)
	v.SetDefault("DEFAULT_TIMEZONE", "UTC")
	v.SetDefault("DEFAULT_SLOT_INTERVAL_MINUTES", scheduling.DefaultIntervalMinutes)
	v.SetDefault("DEFAULT_MIN_ADVANCE_MINUTES", 60)
	v.SetDefault("DEFAULT_MAX_FUTURE_DAYS", 90)
	v.SetDefault("DRAFT_TTL", "2h")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" && cfg.IsProduction() {
		return nil, fmt.Errorf("DATABASE_URL is required in production")
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// Tokens splits STATIC_TOKENS, dropping blanks.
func (c *Config) Tokens() []string {
	var out []string
	for _, t := range strings.Split(c.StaticTokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// DefaultSettings are served for businesses that never saved their own.
func (c *Config) DefaultSettings() scheduling.Settings {
	return scheduling.Settings{
		BusinessHours:       scheduling.DefaultBusinessHours(),
		MinAdvanceMinutes:   c.DefaultMinAdvanceMinutes,
		MaxFutureDays:       c.DefaultMaxFutureDays,
		SlotIntervalMinutes: c.DefaultSlotIntervalMinutes,
		Timezone:            c.DefaultTimezone,
	}
}
