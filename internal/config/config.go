package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Storage        string
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	SSLMode        string
	RedisHost      string
	RedisPort      string
	NatsHost       string
	NatsPort       string
	ApiPort        string
	BusProvider    string
	GRPCHost       string
	GRPCPort       string
	GRPCListenPort string
	ApiEnabled     string
	WorkerProvider string
	CatalogPath    string
	HTTPRateLimit  float64
	HTTPRateBurst  int
}

// New loads and validates configuration from environment variables.
// HTTP server is optional: if PLANGUARD_API_ENABLED != "true", ApiAddr() returns an error
// and the HTTP server simply won't start. Redis is optional: without it idempotency
// keys are ignored.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage:        getEnv("PLANGUARD_STORAGE", "postgres"),
		DBUser:         os.Getenv("PLANGUARD_POSTGRES_USER"),
		DBPass:         os.Getenv("PLANGUARD_POSTGRES_PASSWORD"),
		DBHost:         os.Getenv("PLANGUARD_POSTGRES_HOST"),
		DBPort:         getEnv("PLANGUARD_POSTGRES_PORT", "5432"),
		DBName:         os.Getenv("PLANGUARD_POSTGRES_DB"),
		SSLMode:        os.Getenv("PLANGUARD_POSTGRES_SSLMODE"),
		RedisHost:      os.Getenv("PLANGUARD_REDIS_HOST"),
		RedisPort:      getEnv("PLANGUARD_REDIS_PORT", "6379"),
		NatsHost:       os.Getenv("PLANGUARD_NATS_HOST"),
		NatsPort:       os.Getenv("PLANGUARD_NATS_PORT"),
		GRPCHost:       os.Getenv("PLANGUARD_GRPC_HOST"),
		GRPCPort:       os.Getenv("PLANGUARD_GRPC_PORT"),
		GRPCListenPort: getEnv("PLANGUARD_GRPC_LISTEN_PORT", "50051"),
		BusProvider:    os.Getenv("PLANGUARD_BUS_PROVIDER"),
		ApiPort:        os.Getenv("PLANGUARD_API_PORT"),
		ApiEnabled:     os.Getenv("PLANGUARD_API_ENABLED"),
		WorkerProvider: os.Getenv("PLANGUARD_WORKER_PROVIDER"),
		CatalogPath:    os.Getenv("PLANGUARD_CATALOG_PATH"),
		HTTPRateLimit:  getEnvFloat("PLANGUARD_HTTP_RATE_LIMIT", 20),
		HTTPRateBurst:  getEnvInt("PLANGUARD_HTTP_RATE_BURST", 40),
	}

	switch cfg.Storage {
	case "postgres":
		if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
			return nil, fmt.Errorf("missing required env for database: PLANGUARD_POSTGRES_USER/HOST/DB/SSLMODE")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("invalid storage %q, must be 'postgres' or 'memory'", cfg.Storage)
	}

	// Required: bus provider
	if cfg.BusProvider == "" {
		return nil, fmt.Errorf("missing required env: PLANGUARD_BUS_PROVIDER (nats|grpc)")
	}
	if cfg.BusProvider != "nats" && cfg.BusProvider != "grpc" {
		return nil, fmt.Errorf("invalid bus provider %q, must be 'nats' or 'grpc'", cfg.BusProvider)
	}

	// Worker provider defaults to the bus provider.
	if cfg.WorkerProvider == "" {
		cfg.WorkerProvider = cfg.BusProvider
	}
	if cfg.WorkerProvider != "nats" && cfg.WorkerProvider != "grpc" {
		return nil, fmt.Errorf("invalid worker provider %q, must be 'nats' or 'grpc'", cfg.WorkerProvider)
	}
	if cfg.WorkerProvider == "nats" && cfg.BusProvider != "nats" {
		return nil, fmt.Errorf("worker provider 'nats' requires bus provider 'nats'")
	}
	if cfg.BusProvider == "grpc" && (cfg.GRPCHost == "" || cfg.GRPCPort == "") {
		return nil, fmt.Errorf("missing required env for grpc bus: PLANGUARD_GRPC_HOST/PORT")
	}
	if cfg.BusProvider == "nats" && (cfg.NatsHost == "" || cfg.NatsPort == "") {
		return nil, fmt.Errorf("missing required env for nats bus: PLANGUARD_NATS_HOST/PORT")
	}
	if cfg.HTTPRateLimit <= 0 || cfg.HTTPRateBurst <= 0 {
		return nil, fmt.Errorf("PLANGUARD_HTTP_RATE_LIMIT and PLANGUARD_HTTP_RATE_BURST must be positive")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%s", c.GRPCHost, c.GRPCPort)
}

func (c *Config) GRPCListenAddr() string {
	return ":" + c.GRPCListenPort
}

// ApiAddr returns the HTTP listen address if the API is enabled.
// Returns an error if PLANGUARD_API_ENABLED != "true"; callers should skip starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("PLANGUARD_API_PORT is required when PLANGUARD_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (PLANGUARD_API_ENABLED != true)")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultVal
	}
	return val
}
