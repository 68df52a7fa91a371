// Package config builds the process configuration from environment variables
// so main stays lean.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr      string `env:"DOCVAULT_ADDR" envDefault:":8080"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text|json
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	OTPTTL     time.Duration `env:"OTP_TTL" envDefault:"5m"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// StoreDriver selects persistence: "memory" keeps everything in-process,
	// "postgres" uses PostgresDSN.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// BlobDriver selects file storage: "memory" or "minio".
	BlobDriver string `env:"BLOB_DRIVER" envDefault:"memory"`
	Minio      MinioConfig

	SMTP SMTPConfig

	// RedisAddr, when set, backs the login lockout counters; empty falls back
	// to the in-process store.
	RedisAddr        string        `env:"REDIS_ADDR"`
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutWindow    time.Duration `env:"LOCKOUT_WINDOW" envDefault:"15m"`

	AuditBuffer int `env:"AUDIT_BUFFER" envDefault:"256"`
}

// MinioConfig holds object storage credentials.
type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"documents"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// SMTPConfig holds mail delivery credentials for the OTP sender.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"Document Vault <no-reply@docvault.local>"`
}

// Load parses the environment into a Config. A .env file is honored in dev.
func Load() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		// Use a default for development - must be overridden in production.
		cfg.JWTSecret = "dev-secret-key-change-in-production"
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.StoreDriver != "memory" && c.StoreDriver != "postgres" {
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required with the postgres store driver")
	}
	if c.BlobDriver != "memory" && c.BlobDriver != "minio" {
		return fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
	if c.BlobDriver == "minio" && c.Minio.Endpoint == "" {
		return fmt.Errorf("MINIO_ENDPOINT is required with the minio blob driver")
	}
	if c.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1")
	}
	if c.AuditBuffer < 1 {
		return fmt.Errorf("AUDIT_BUFFER must be at least 1")
	}
	return nil
}
