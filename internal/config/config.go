package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Redis (optional, enables the shared session store and pub/sub)
	RedisURL string

	// Completion providers
	OpenAIBaseURL string
	DefaultModel  string

	// Uploads
	MaxUploadMB int

	// Assets
	AssetsPath string
	LogoFile   string

	// Logging
	LogDir string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		SessionSecret: mustGetEnv("SESSION_SECRET"),
		SessionTTL:    time.Duration(getEnvAsIntOrDefault("SESSION_TTL_HOURS", 24)) * time.Hour,
		RedisURL:      getEnvOrDefault("REDIS_URL", ""),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		DefaultModel:  getEnvOrDefault("DEFAULT_MODEL", "gpt-3.5-turbo"),
		MaxUploadMB:   getEnvAsIntOrDefault("MAX_UPLOAD_MB", 20),
		AssetsPath:    getEnvOrDefault("ASSETS_PATH", "./assets"),
		LogoFile:      getEnvOrDefault("LOGO_FILE", "logos.png"),
		LogDir:        getEnvOrDefault("LOG_DIR", "./logs"),
		FrontendURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// IsProduction reports whether the service runs with production logging and cookies.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
