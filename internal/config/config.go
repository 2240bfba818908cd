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

type Config struct {
	Env   string
	Port  int
	DBURL string
	// Store selects the persistence backend: "postgres" or "memory".
	Store          string
	MigrateOnStart bool

	// JWTSecret signs session tokens. Token TTL and bcrypt cost are fixed
	// in the auth and security packages.
	JWTSecret string

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RateLimitEnabled bool

	StatsAPIURL          string
	StatsCacheTTLSeconds int

	OTelEnabled  bool
	OTelEndpoint string
}

func Load() Config {
	// a missing .env is fine, the real environment wins anyway
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = buildDBURL()
	}

	return Config{
		Env:            env,
		Port:           getEnvInt("PORT", 8080),
		DBURL:          dbURL,
		Store:          getEnv("STORE", "postgres"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		JWTSecret: getEnv("JWT_SECRET", devSecret(env)),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", false),

		StatsAPIURL:          getEnv("STATS_API_URL", "http://127.0.0.1:3001"),
		StatsCacheTTLSeconds: getEnvInt("STATS_CACHE_TTL_SECONDS", 60),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

// Validate rejects configurations that must never reach production.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", c.Env)
	}
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	return nil
}

func (c Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "fraghub")
	pass := getEnv("DB_PASSWORD", "fraghub")
	name := getEnv("DB_NAME", "fraghub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// only dev gets a built-in secret
func devSecret(env string) string {
	if env == "dev" || env == "test" {
		return "dev-only-secret"
	}
	return ""
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
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an int, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
