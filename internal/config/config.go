package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	TokenFormatOpaque = "opaque"
	TokenFormatJWT    = "jwt"
)

type Config struct {
	Env   string
	Port  int
	DBURL string
	Store string

	// OAuth2 authorization server
	OAuthBaseURL          string
	OAuthClientID         string
	OAuthClientSecret     string
	OAuthLoginTimeout     time.Duration
	OAuthTokenFormat      string
	OAuthJWTSecret        string
	OAuthIntrospectTTL    time.Duration
	OAuthIntrospectPrefix string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string

	AuthRateLimit  int
	AuthRateWindow time.Duration
	MaxBodyBytes   int64

	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),
		Store: strings.ToLower(getEnv("STORE", StorePostgres)),

		OAuthBaseURL:          strings.TrimRight(getEnv("OAUTH_BASE_URL", "http://127.0.0.1:8000"), "/"),
		OAuthClientID:         getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret:     getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthLoginTimeout:     time.Duration(getEnvInt("OAUTH_LOGIN_TIMEOUT_SECONDS", 120)) * time.Second,
		OAuthTokenFormat:      strings.ToLower(getEnv("OAUTH_TOKEN_FORMAT", TokenFormatOpaque)),
		OAuthJWTSecret:        getEnv("OAUTH_JWT_SECRET", ""),
		OAuthIntrospectTTL:    time.Duration(getEnvInt("OAUTH_INTROSPECT_CACHE_TTL_SECONDS", 60)) * time.Second,
		OAuthIntrospectPrefix: getEnv("OAUTH_INTROSPECT_CACHE_PREFIX", "rentdesk:introspect:"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: time.Duration(getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 5<<20)),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE %q", c.Store)
	}

	switch c.OAuthTokenFormat {
	case TokenFormatOpaque:
	case TokenFormatJWT:
		if c.OAuthJWTSecret == "" {
			return fmt.Errorf("config: OAUTH_JWT_SECRET is required when OAUTH_TOKEN_FORMAT=jwt")
		}
	default:
		return fmt.Errorf("config: unknown OAUTH_TOKEN_FORMAT %q", c.OAuthTokenFormat)
	}

	if c.OAuthBaseURL == "" {
		return fmt.Errorf("config: OAUTH_BASE_URL is required")
	}

	return nil
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "rentdesk")
	pass := getEnv("DB_PASSWORD", "rentdesk")
	name := getEnv("DB_NAME", "rentdesk")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an integer, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}
