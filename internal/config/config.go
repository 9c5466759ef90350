package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Tradebooks"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Store struct {
		Driver  string `envconfig:"STORE_DRIVER" default:"postgres"`
		Migrate bool   `envconfig:"STORE_MIGRATE" default:"true"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tradebooks"`
	}

	DynamoDB struct {
		Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
		Endpoint        string `envconfig:"DYNAMODB_ENDPOINT"`
		AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
		DocumentsTable  string `envconfig:"DYNAMODB_DOCUMENTS_TABLE" default:"tradebooks-documents"`
		InventoryTable  string `envconfig:"DYNAMODB_INVENTORY_TABLE" default:"tradebooks-inventory"`
		CountersTable   string `envconfig:"DYNAMODB_COUNTERS_TABLE" default:"tradebooks-counters"`
	}

	Documents struct {
		NetTermsDays         int    `envconfig:"NET_TERMS_DAYS" default:"30"`
		EstimateValidityDays int    `envconfig:"ESTIMATE_VALIDITY_DAYS" default:"30"`
		EstimatePrefix       string `envconfig:"ESTIMATE_PREFIX" default:"EST"`
		InvoicePrefix        string `envconfig:"INVOICE_PREFIX" default:"INV"`
		Rounding             string `envconfig:"ROUNDING" default:"half_up"`
		MatchPolicy          string `envconfig:"MATCH_POLICY" default:"fallback"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.Store.Driver {
	case DriverPostgres, DriverDynamoDB, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Documents.NetTermsDays <= 0 {
		return nil, fmt.Errorf("net terms must be at least one day, got %d", cfg.Documents.NetTermsDays)
	}

	if cfg.Documents.EstimateValidityDays < 0 {
		return nil, fmt.Errorf("estimate validity must not be negative")
	}

	return &cfg, nil
}
