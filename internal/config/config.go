package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App        *AppConfig        `yaml:"app"`
	Security   *SecurityConfig   `yaml:"security"`
	Identity   *IdentityConfig   `yaml:"identity"`
	Store      *StoreConfig      `yaml:"store"`
	Database   *DatabaseConfig   `yaml:"database"`
	Redis      *RedisConfig      `yaml:"redis"`
	SMS        *SMSConfig        `yaml:"sms"`
	Push       *PushConfig       `yaml:"push"`
	Maps       *MapsConfig       `yaml:"maps"`
	WebSocket  *WebSocketConfig  `yaml:"websocket"`
	Outbox     *OutboxConfig     `yaml:"outbox"`
	Suggestion *SuggestionConfig `yaml:"suggestion"`
	Emergency  *EmergencyConfig  `yaml:"emergency"`
	Lifecycle  *LifecycleConfig  `yaml:"lifecycle"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

type SecurityConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"`
	JWTIssuer          string        `yaml:"jwt_issuer"`
	JWTAccessTokenTTL  time.Duration `yaml:"jwt_access_token_ttl"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	TrustedProxies     []string      `yaml:"trusted_proxies"`
}

// IdentityConfig selects how bearer tokens are verified: "jwt" (shared secret)
// or "firebase" (Firebase Authentication ID tokens).
type IdentityConfig struct {
	Provider            string `yaml:"provider"`
	FirebaseProjectID   string `yaml:"firebase_project_id"`
	FirebaseCredentials string `yaml:"firebase_credentials_file"`
}

// StoreConfig selects the persistence backend: "mongo" or "memory".
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

func Load() (*Config, error) {
	config := &Config{
		App:        loadAppConfig(),
		Security:   loadSecurityConfig(),
		Identity:   loadIdentityConfig(),
		Store:      &StoreConfig{Driver: getEnv("STORE_DRIVER", "mongo")},
		Database:   loadDatabaseConfig(),
		Redis:      loadRedisConfig(),
		SMS:        loadSMSConfig(),
		Push:       loadPushConfig(),
		Maps:       loadMapsConfig(),
		WebSocket:  loadWebSocketConfig(),
		Outbox:     loadOutboxConfig(),
		Suggestion: loadSuggestionConfig(),
		Emergency:  loadEmergencyConfig(),
		Lifecycle:  loadLifecycleConfig(),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Identity.Provider {
	case "jwt":
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the jwt identity provider")
		}
	case "firebase":
	default:
		return fmt.Errorf("unsupported IDENTITY_PROVIDER %q", c.Identity.Provider)
	}
	switch c.Outbox.Driver {
	case "none", "kafka", "rabbitmq":
	default:
		return fmt.Errorf("unsupported OUTBOX_DRIVER %q", c.Outbox.Driver)
	}
	if c.Lifecycle.CommitAttempts < 1 {
		return fmt.Errorf("LIFECYCLE_COMMIT_ATTEMPTS must be at least 1")
	}
	return nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "RidePair"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "0.0.0.0"),
		Debug:       getEnvAsBool("APP_DEBUG", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "ridepair"),
		JWTAccessTokenTTL:  getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", nil),
	}
}

func loadIdentityConfig() *IdentityConfig {
	return &IdentityConfig{
		Provider:            getEnv("IDENTITY_PROVIDER", "jwt"),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}
