package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	ServiceName    = "pos-service"
	ServiceVersion = "0.1.0"
)

const (
	KioskOrderTopic   = "KioskOrderPlaced"
	OrderSettledTopic = "OrderSettled"
	GroupID           = "pos-service-group"
	BatchTimeout      = 10 * time.Millisecond
	BatchSize         = 100
)

const (
	LogsPath      = "/otlp/v1/logs"
	TracesPath    = "/otlp/v1/traces"
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

const (
	CatalogCachePrefix = "pos:catalog:"
	ShutdownTimeout    = 10 * time.Second
)

type Config struct {
	DatabaseURL     string
	DatabaseDriver  string
	DatabaseMigrate bool
	SeedFile        string

	HTTPAddr    string
	CORSOrigins []string

	KafkaBroker  string
	KioskTaxRate decimal.Decimal

	RedisAddr       string
	CatalogCacheTTL time.Duration

	OtelEndpoint   string
	OtelAuthHeader string

	UnresolvedPolicy   string
	AllowNegativeStock bool
	ResolveConcurrency int

	EntreeCategoryID int64
	BaseCategoryID   int64
}

// LoadConfig reads configuration from the environment. Outside production a
// .env file in the working directory is loaded first, if present.
func LoadConfig() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	config := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseDriver:   envOr("DATABASE_DRIVER", "postgres"),
		SeedFile:         os.Getenv("SEED_FILE"),
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		OtelEndpoint:     os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader:   os.Getenv("OTEL_AUTH_HEADER"),
		UnresolvedPolicy: envOr("SETTLEMENT_UNRESOLVED_POLICY", "fail-fast"),
	}

	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if config.DatabaseDriver != "postgres" && config.DatabaseDriver != "pgx" {
		return nil, fmt.Errorf("DATABASE_DRIVER must be postgres or pgx, got %q", config.DatabaseDriver)
	}
	if config.UnresolvedPolicy != "fail-fast" && config.UnresolvedPolicy != "skip-and-warn" {
		return nil, fmt.Errorf("SETTLEMENT_UNRESOLVED_POLICY must be fail-fast or skip-and-warn, got %q", config.UnresolvedPolicy)
	}

	var err error
	if config.DatabaseMigrate, err = envBool("DATABASE_MIGRATE", false); err != nil {
		return nil, err
	}
	if config.AllowNegativeStock, err = envBool("SETTLEMENT_ALLOW_NEGATIVE_STOCK", false); err != nil {
		return nil, err
	}
	if config.ResolveConcurrency, err = envInt("SETTLEMENT_RESOLVE_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if config.ResolveConcurrency < 1 {
		return nil, fmt.Errorf("SETTLEMENT_RESOLVE_CONCURRENCY must be at least 1")
	}
	if config.CatalogCacheTTL, err = envDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if config.KioskTaxRate, err = envDecimal("KIOSK_TAX_RATE", "0.0825"); err != nil {
		return nil, err
	}
	if config.KioskTaxRate.IsNegative() || config.KioskTaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("KIOSK_TAX_RATE must be in [0, 1), got %s", config.KioskTaxRate)
	}
	entree, err := envInt("ENTREE_CATEGORY_ID", 3)
	if err != nil {
		return nil, err
	}
	base, err := envInt("BASE_CATEGORY_ID", 2)
	if err != nil {
		return nil, err
	}
	config.EntreeCategoryID, config.BaseCategoryID = int64(entree), int64(base)

	return config, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envDecimal(key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(envOr(key, def))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
