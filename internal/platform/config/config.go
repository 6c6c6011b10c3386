package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the single configuration value handed to app.New. Nothing below
// the app package reads the environment.
type Config struct {
	LogMode      string `env:"LOG_MODE" envDefault:"development"`
	LogRedaction bool   `env:"LOG_REDACTION_ENABLED" envDefault:"true"`
	LogHashSalt  string `env:"LOG_HASH_SALT"`

	DBDriver         string `env:"DB_DRIVER" envDefault:"sqlite"`
	SQLitePath       string `env:"SQLITE_PATH" envDefault:"savestats.db"`
	DatabaseURL      string `env:"DATABASE_URL"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresName     string `env:"POSTGRES_NAME" envDefault:"savestats"`

	ObjectStorageMode   string `env:"OBJECT_STORAGE_MODE" envDefault:"local"`
	StorageEmulatorHost string `env:"STORAGE_EMULATOR_HOST"`
	LocalStorageDir     string `env:"LOCAL_STORAGE_DIR" envDefault:"storage"`
	SaveBucket          string `env:"SAVE_BUCKET" envDefault:"eusavestats-bucket"`
	GoogleCredentials   string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	AuthMode     string        `env:"AUTH_MODE" envDefault:"opaque"`
	JWTSecretKey string        `env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"720h"`

	AnnualIncomePolicy string `env:"ANNUAL_INCOME_POLICY" envDefault:"last"`
	ParallelExtraction bool   `env:"PARALLEL_EXTRACTION" envDefault:"false"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"savestats:checksum:"`

	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLER_RATIO" envDefault:"0.1"`
	ServiceName     string  `env:"SERVICE_NAME" envDefault:"savestats"`

	// MetricsFile, when set, receives a Prometheus text dump after each
	// command (node_exporter textfile collector layout).
	MetricsFile string `env:"METRICS_FILE"`
}

// Load reads an optional .env file and parses the environment into Config.
func Load(envFiles ...string) (Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DB_DRIVER=%q (allowed: sqlite, postgres)", c.DBDriver)
	}
	switch strings.ToLower(strings.TrimSpace(c.ObjectStorageMode)) {
	case "local", "gcs", "gcs_emulator":
	default:
		return fmt.Errorf("invalid OBJECT_STORAGE_MODE=%q (allowed: local, gcs, gcs_emulator)", c.ObjectStorageMode)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL=%v (want > 0)", c.TokenTTL)
	}
	switch strings.ToLower(strings.TrimSpace(c.AuthMode)) {
	case "opaque":
	case "jwt":
		if strings.TrimSpace(c.JWTSecretKey) == "" {
			return errors.New("AUTH_MODE=jwt requires JWT_SECRET_KEY")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE=%q (allowed: opaque, jwt)", c.AuthMode)
	}
	switch strings.ToLower(strings.TrimSpace(c.AnnualIncomePolicy)) {
	case "last", "sum":
	default:
		return fmt.Errorf("invalid ANNUAL_INCOME_POLICY=%q (allowed: last, sum)", c.AnnualIncomePolicy)
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLER_RATIO=%v (want 0..1)", c.OtelSampleRatio)
	}
	return nil
}

// PostgresDSN prefers DATABASE_URL and otherwise assembles one from parts.
func (c Config) PostgresDSN() string {
	if dsn := strings.TrimSpace(c.DatabaseURL); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresName,
	)
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
