package config

import (
	"os"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     string
	SessionSecret string

	GinMode string

	// Notification transports. Either may be left unconfigured; the
	// dispatcher then skips that channel with a logged warning.
	PushEndpoint  string
	PushServerKey string
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPassword  string
	EmailFrom     string

	// InternalEmailDomain marks system accounts that never receive
	// notification emails.
	InternalEmailDomain string

	// BaseURL prefixes notification deep links.
	BaseURL string

	OpenAIAPIKey string

	// Feature flag snapshot, read once at startup and injected where
	// needed instead of being consulted as global state.
	MaintenanceMode    bool
	APIMaintenanceMode bool
	MinimumAppVersion  string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "eproba"),
		DBPassword: getEnv("DB_PASSWORD", "eproba"),
		DBName:     getEnv("DB_NAME", "eproba"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),

		GinMode: getEnv("GIN_MODE", "debug"),

		PushEndpoint:  getEnv("PUSH_ENDPOINT", ""),
		PushServerKey: getEnv("PUSH_SERVER_KEY", ""),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		EmailFrom:     getEnv("EMAIL_FROM", "noreply@eproba.zhr.pl"),

		InternalEmailDomain: getEnv("INTERNAL_EMAIL_DOMAIN", "eproba.zhr.pl"),

		BaseURL: getEnv("BASE_URL", "https://eproba.zhr.pl"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		MaintenanceMode:    getEnv("MAINTENANCE_MODE", "false") == "true",
		APIMaintenanceMode: getEnv("API_MAINTENANCE_MODE", "false") == "true",
		MinimumAppVersion:  getEnv("MINIMUM_APP_VERSION", "1.0.0"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
