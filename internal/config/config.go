package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProductsFromPostgres = "postgres"
	ProductsFromManifest = "manifest"
)

type Config struct {
	Env  string
	Port int

	DBURL      string
	DBMaxConns int32

	ProductsSource      string
	ManifestPath        string
	ManifestSchema      string
	EnsureSchemaOnStart bool

	JWTSecret           string
	JWTAccessTTLMinutes int

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ProductsCacheTTL time.Duration

	CORSAllowedOrigins []string

	OTelEnabled  bool
	OTelEndpoint string

	AuthRateLimitPerMinute int
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 5000),

		DBURL:      buildDBURL(),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 5)),

		ProductsSource:      strings.ToLower(getEnv("PRODUCTS_SOURCE", ProductsFromPostgres)),
		ManifestPath:        getEnv("MANIFEST_PATH", "db.json"),
		ManifestSchema:      getEnv("MANIFEST_SCHEMA", "v2"),
		EnsureSchemaOnStart: getEnvBool("ENSURE_SCHEMA_ON_START", false),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		ProductsCacheTTL: time.Duration(getEnvInt("PRODUCTS_CACHE_TTL_SECONDS", 30)) * time.Second,

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		AuthRateLimitPerMinute: getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
	}
}

// buildDBURL prefers DATABASE_URL and falls back to the libpq PG* variables.
func buildDBURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		if getEnvBool("DATABASE_SSL", false) && !strings.Contains(dsn, "sslmode=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "sslmode=require"
		}
		return dsn
	}

	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "zora")
	pass := getEnv("PGPASSWORD", "zora")
	name := getEnv("PGDATABASE", "zora")

	ssl := "disable"
	if getEnvBool("DATABASE_SSL", false) {
		ssl = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=" + ssl,
	}

	return u.String()
}

func (c Config) JWTEnabled() bool {
	return c.JWTSecret != ""
}

func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
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
			slog.Warn("invalid integer env value, using default", "key", key, "value", v, "default", fallback)
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
			slog.Warn("invalid boolean env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return fallback
	}
	return out
}

func (c Config) String() string {
	return fmt.Sprintf("env=%s port=%d products=%s manifest=%s schema=%s jwt=%t redis=%t otel=%t",
		c.Env, c.Port, c.ProductsSource, c.ManifestPath, c.ManifestSchema, c.JWTEnabled(), c.RedisEnabled(), c.OTelEnabled)
}
