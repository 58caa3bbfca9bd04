package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	AgentProvider      string
	AgentModel         string
	AgentTimeout       time.Duration
	AnalysisKickoff    time.Duration
	DatabaseURL        string
	Env                string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		AgentProvider:      getEnv("AGENT_PROVIDER", "openai"),
		AgentModel:         getEnv("AGENT_MODEL", ""),
		AgentTimeout:       getEnvDuration("AGENT_TIMEOUT", 90*time.Second),
		AnalysisKickoff:    getEnvDuration("ANALYSIS_KICKOFF_DELAY", 2*time.Second),
		DatabaseURL:        dbURL,
		Env:                env,
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
		return parsed
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("config: invalid duration for %s: %q", key, raw)
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
