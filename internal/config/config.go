package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL      string
	EventsChannel string

	// Server
	Port        string
	FrontendURL string

	// Sandbox Settings
	DefaultSpawnRate   float64
	FrameRate          int
	BroadcastRate      int
	SessionIdleMinutes int
	AutosaveTTLMinutes int
	StatsFlushSeconds  int
	MaxSessions        int

	// Security
	JWTSecret         string
	TokenTTLHours     int
	PINMaxAttempts    int
	PINLockoutMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/balldrop?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		EventsChannel: getEnv("EVENTS_CHANNEL", "balldrop_events"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Sandbox Settings
		DefaultSpawnRate:   getEnvFloat("DEFAULT_SPAWN_RATE", 1.5),
		FrameRate:          getEnvInt("FRAME_RATE", 60),
		BroadcastRate:      getEnvInt("BROADCAST_RATE", 30),
		SessionIdleMinutes: getEnvInt("SESSION_IDLE_MINUTES", 30),
		AutosaveTTLMinutes: getEnvInt("AUTOSAVE_TTL_MINUTES", 60),
		StatsFlushSeconds:  getEnvInt("STATS_FLUSH_SECONDS", 10),
		MaxSessions:        getEnvInt("MAX_SESSIONS", 500),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLHours:     getEnvInt("TOKEN_TTL_HOURS", 720),
		PINMaxAttempts:    getEnvInt("PIN_MAX_ATTEMPTS", 5),
		PINLockoutMinutes: getEnvInt("PIN_LOCKOUT_MINUTES", 15),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
