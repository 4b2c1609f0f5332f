package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Auth
	JWTSecret      string
	AccessTokenTTL time.Duration

	// WhatsApp Cloud API
	WhatsAppBaseURL     string
	WhatsAppVerifyToken string

	// Cal.com
	CalComBaseURL string

	// Provider call budget (scheduling + messaging)
	ProviderTimeout time.Duration

	// LLM agent
	LLMProvider    string
	LLMModel       string
	GeminiAPIKey   string
	AgentStateTTL  time.Duration
	AgentTurnLimit time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AccessTokenTTL: getEnvAsDuration("ACCESS_TOKEN_TTL", 24*time.Hour),

		WhatsAppBaseURL:     getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v21.0"),
		WhatsAppVerifyToken: getEnv("WHATSAPP_VERIFY_TOKEN", "emprendigo_verify_token"),

		CalComBaseURL: getEnv("CALCOM_BASE_URL", "https://api.cal.com/v1"),

		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),

		LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:       getEnv("LLM_MODEL", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		AgentStateTTL:  getEnvAsDuration("AGENT_STATE_TTL", 24*time.Hour),
		AgentTurnLimit: getEnvAsDuration("AGENT_TURN_LIMIT", 45*time.Second),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
