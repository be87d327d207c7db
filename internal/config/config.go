package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects which authentication path the service runs.
const (
	ModeFederated = "federated"
	ModeLegacy    = "legacy"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	IdP      IdPConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	Mode                string // "federated" or "legacy"
	LegacySigningSecret string
	LegacyTokenExpiry   time.Duration
	SyncTTL             time.Duration
}

// IdPConfig holds both credential contexts against the identity provider: the
// backend OIDC client for the realm and the admin account for provisioning.
type IdPConfig struct {
	BaseURL       string
	Realm         string
	ClientID      string
	ClientSecret  string
	AdminUser     string
	AdminPassword string
}

// StorageConfig configures the S3-compatible object store. Endpoint is used
// for backend operations; PublicEndpoint is the base for presigned URLs so
// browsers can reach them from outside the cluster.
type StorageConfig struct {
	Endpoint       string
	PublicEndpoint string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	mode := getEnv("MODE", ModeFederated)
	if mode != ModeFederated && mode != ModeLegacy {
		return nil, fmt.Errorf("MODE must be %q or %q, got %q", ModeFederated, ModeLegacy, mode)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "linksy"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			Mode:                mode,
			LegacySigningSecret: getEnv("LEGACY_SIGNING_SECRET", ""),
			LegacyTokenExpiry:   getEnvAsDuration("LEGACY_TOKEN_EXPIRY", 30*time.Minute),
			SyncTTL:             time.Duration(getEnvAsInt("SYNC_TTL_SECONDS", 86400)) * time.Second,
		},
		IdP: IdPConfig{
			BaseURL:       getEnv("IDP_BASE_URL", ""),
			Realm:         getEnv("IDP_REALM", ""),
			ClientID:      getEnv("IDP_CLIENT_ID", ""),
			ClientSecret:  getEnv("IDP_CLIENT_SECRET", ""),
			AdminUser:     getEnv("IDP_ADMIN_USER", ""),
			AdminPassword: getEnv("IDP_ADMIN_PASSWORD", ""),
		},
		Storage: StorageConfig{
			Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:9000"),
			PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
			Region:         getEnv("S3_REGION", "us-east-1"),
			AccessKey:      getEnv("S3_ACCESS_KEY", ""),
			SecretKey:      getEnv("S3_SECRET_KEY", ""),
			Bucket:         getEnv("S3_BUCKET", "linksy-media"),
			UseSSL:         getEnvAsBool("S3_USE_SSL", false),
		},
	}

	// Presigned URLs fall back to the operational endpoint when no separate
	// browser-reachable endpoint is configured.
	if cfg.Storage.PublicEndpoint == "" {
		cfg.Storage.PublicEndpoint = cfg.Storage.Endpoint
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := cfg.validateAuth(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateAuth fails fast on missing credentials for the selected mode so a
// misconfigured deployment dies at startup rather than on first login.
func (c *Config) validateAuth() error {
	switch c.Auth.Mode {
	case ModeFederated:
		missing := []string{}
		if c.IdP.BaseURL == "" {
			missing = append(missing, "IDP_BASE_URL")
		}
		if c.IdP.Realm == "" {
			missing = append(missing, "IDP_REALM")
		}
		if c.IdP.ClientID == "" {
			missing = append(missing, "IDP_CLIENT_ID")
		}
		if c.IdP.ClientSecret == "" {
			missing = append(missing, "IDP_CLIENT_SECRET")
		}
		if c.IdP.AdminUser == "" {
			missing = append(missing, "IDP_ADMIN_USER")
		}
		if c.IdP.AdminPassword == "" {
			missing = append(missing, "IDP_ADMIN_PASSWORD")
		}
		if len(missing) > 0 {
			return fmt.Errorf("federated mode requires %s", strings.Join(missing, ", "))
		}
	case ModeLegacy:
		if c.Auth.LegacySigningSecret == "" {
			return fmt.Errorf("LEGACY_SIGNING_SECRET is required in legacy mode")
		}
		if err := validateSigningSecret(c.Auth.LegacySigningSecret, c.Server.Env); err != nil {
			return err
		}
	}
	return nil
}

// validateSigningSecret enforces minimum strength for the legacy HMAC key
func validateSigningSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("LEGACY_SIGNING_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("LEGACY_SIGNING_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
