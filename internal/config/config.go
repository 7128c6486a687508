// Package config loads and validates configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"arb-console/internal/logger"
)

// Config holds all configuration for the console service.
type Config struct {
	// Agent event stream
	AgentWSURL        string
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// EVM chain / vault
	RPCEndpoint   string
	ChainID       uint64
	VaultAddress  string
	TokenAddress  string // fixed settlement token
	TokenDecimals int
	RefreshDelay  time.Duration // post-transaction balance refresh delay

	// Persistence (empty DSNs select in-memory stores)
	PostgresDSN   string
	ClickhouseDSN string

	// HTTP surface
	HTTPAddr    string
	MetricsAddr string

	// Tunables
	OpportunityCap    int
	OpportunityExpiry time.Duration
	NotificationCap   int

	// Demo mode seeds mock data instead of requiring a live agent.
	DemoMode bool

	Log logger.Config
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first without overriding already-set variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AgentWSURL:        getEnv("AGENT_WS_URL", ""),
		ReconnectAttempts: getEnvInt("STREAM_RECONNECT_ATTEMPTS", 10),
		ReconnectDelay:    getEnvDuration("STREAM_RECONNECT_DELAY", 3*time.Second),

		RPCEndpoint:   getEnv("EVM_RPC_ENDPOINT", ""),
		ChainID:       uint64(getEnvInt("CHAIN_ID", 8453)),
		VaultAddress:  getEnv("VAULT_ADDRESS", ""),
		TokenAddress:  getEnv("SETTLEMENT_TOKEN_ADDRESS", ""),
		TokenDecimals: getEnvInt("SETTLEMENT_TOKEN_DECIMALS", 6),
		RefreshDelay:  getEnvDuration("BALANCE_REFRESH_DELAY", 5*time.Second),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		OpportunityCap:    getEnvInt("OPPORTUNITY_CAP", 50),
		OpportunityExpiry: getEnvDuration("OPPORTUNITY_EXPIRY", 2*time.Minute),
		NotificationCap:   getEnvInt("NOTIFICATION_CAP", 100),

		DemoMode: getEnvBool("DEMO_MODE", false),

		Log: logger.Config{
			Level:      getEnv("LOG_LEVEL", "info"),
			Output:     getEnv("LOG_OUTPUT", "console"),
			File:       getEnv("LOG_FILE", "logs/console.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks cross-field requirements.
func (c *Config) validate() error {
	if !c.DemoMode && c.AgentWSURL == "" {
		return fmt.Errorf("AGENT_WS_URL is required unless DEMO_MODE=true")
	}
	if c.RPCEndpoint != "" {
		if c.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDRESS is required when EVM_RPC_ENDPOINT is set")
		}
		if c.TokenAddress == "" {
			return fmt.Errorf("SETTLEMENT_TOKEN_ADDRESS is required when EVM_RPC_ENDPOINT is set")
		}
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 18 {
		return fmt.Errorf("SETTLEMENT_TOKEN_DECIMALS must be in [0,18], got %d", c.TokenDecimals)
	}
	if c.OpportunityCap <= 0 {
		return fmt.Errorf("OPPORTUNITY_CAP must be positive, got %d", c.OpportunityCap)
	}
	if c.ReconnectAttempts < 0 {
		return fmt.Errorf("STREAM_RECONNECT_ATTEMPTS must be non-negative, got %d", c.ReconnectAttempts)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
