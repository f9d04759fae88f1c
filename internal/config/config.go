package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Bot      BotConfig
	Ticket   TicketConfig
	Logger   LoggerConfig
	Redis    RedisConfig
	Postgres PostgresConfig
}

// AppConfig controls the liveness HTTP surface.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// BotConfig holds chat-platform connection values.
type BotConfig struct {
	Token  string
	Prefix string
}

// TicketConfig holds the ticket-workflow knobs.
type TicketConfig struct {
	CategoryName      string
	OperatorRole      string
	SupportRoles      []string
	LogChannelName    string
	NamePrefix        string
	ClosedPrefix      string
	CreateCooldownMS  int
	CloseCooldownMS   int
	ReasonMinLen      int
	ReasonMaxLen      int
	DeleteGraceMS     int
	TempMessageMS     int
	CleanupPauseMS    int
	PanelThumbnailURL string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// RedisConfig holds optional Redis connection values. When Addr is empty the
// in-memory rate limiter is used.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PostgresConfig holds optional closure-archive connection values. When DSN
// is empty closures are only posted to the log channel.
type PostgresConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "support-ticket-bot"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("PORT", "3000"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Bot: BotConfig{
			Token:  os.Getenv("BOT_TOKEN"),
			Prefix: getEnv("COMMAND_PREFIX", "!"),
		},
		Ticket: TicketConfig{
			CategoryName:      getEnv("TICKET_CATEGORY", "Support Tickets"),
			OperatorRole:      getEnv("OPERATOR_ROLE", "Admin"),
			SupportRoles:      getEnvAsList("SUPPORT_ROLES", []string{"Support", "Moderator"}),
			LogChannelName:    getEnv("LOG_CHANNEL", "ticket-logs"),
			NamePrefix:        getEnv("TICKET_NAME_PREFIX", "ticket-"),
			ClosedPrefix:      getEnv("TICKET_CLOSED_PREFIX", "closed-"),
			CreateCooldownMS:  getEnvAsInt("CREATE_COOLDOWN_MS", 30000),
			CloseCooldownMS:   getEnvAsInt("CLOSE_COOLDOWN_MS", 10000),
			ReasonMinLen:      getEnvAsInt("REASON_MIN_LENGTH", 3),
			ReasonMaxLen:      getEnvAsInt("REASON_MAX_LENGTH", 200),
			DeleteGraceMS:     getEnvAsInt("DELETE_GRACE_MS", 10000),
			TempMessageMS:     getEnvAsInt("TEMP_MESSAGE_MS", 5000),
			CleanupPauseMS:    getEnvAsInt("CLEANUP_PAUSE_MS", 1000),
			PanelThumbnailURL: getEnv("PANEL_THUMBNAIL_URL", ""),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Postgres: PostgresConfig{
			DSN:      os.Getenv("POSTGRES_DSN"),
			MaxConns: int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns: int32(getEnvAsInt("POSTGRES_MIN_CONNS", 0)),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// CreateCooldown returns the ticket-creation cooldown window.
func (t TicketConfig) CreateCooldown() time.Duration {
	return time.Duration(t.CreateCooldownMS) * time.Millisecond
}

// CloseCooldown returns the ticket-closing cooldown window.
func (t TicketConfig) CloseCooldown() time.Duration {
	return time.Duration(t.CloseCooldownMS) * time.Millisecond
}

// DeleteGrace returns the delay between closing a ticket and deleting its
// channel.
func (t TicketConfig) DeleteGrace() time.Duration {
	return time.Duration(t.DeleteGraceMS) * time.Millisecond
}

// TempMessageTTL returns how long ephemeral channel notices stay up.
func (t TicketConfig) TempMessageTTL() time.Duration {
	return time.Duration(t.TempMessageMS) * time.Millisecond
}

// CleanupPause returns the pause between bulk channel deletions.
func (t TicketConfig) CleanupPause() time.Duration {
	return time.Duration(t.CleanupPauseMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
