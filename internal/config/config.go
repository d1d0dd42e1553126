package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Redis (optional; empty disables the shared event bus)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Lab Settings
	SessionExpiryMinutes        int
	SessionCheckIntervalSeconds int
	ChallengeTickMillis         int
	CanvasWidth                 int
	CanvasHeight                int

	// Security
	JWTSecret      string
	KeyExpiryHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Lab Settings
		SessionExpiryMinutes:        getEnvInt("SESSION_EXPIRY_MINUTES", 60),
		SessionCheckIntervalSeconds: getEnvInt("SESSION_CHECK_INTERVAL_SECONDS", 30),
		ChallengeTickMillis:         getEnvInt("CHALLENGE_TICK_MILLIS", 1000),
		CanvasWidth:                 getEnvInt("CANVAS_WIDTH", 700),
		CanvasHeight:                getEnvInt("CANVAS_HEIGHT", 400),

		// Security
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		KeyExpiryHours: getEnvInt("KEY_EXPIRY_HOURS", 12),
	}
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
