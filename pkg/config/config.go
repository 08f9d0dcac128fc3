// Package config loads environment-driven settings (optionally via .env) and
// an optional YAML strategy-parameter file that overrides the env values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds settings for the engine.
type Config struct {
	Port string

	// Strategy parameters
	Symbol     string
	Quantity   int64   // shares per order, also the qualifying trade size
	MaxShares  int64   // maximum long exposure
	DeltaPrice float64 // qualifying one-tick spread

	// Alpaca
	KeyID     string
	SecretKey string
	BaseURL   string
	StreamURL string

	// Execution
	DryRun       bool
	MaxOrdersSec float64 // submit throttle; 0 disables

	// Journal
	JournalPath string

	// Auth
	APIKey    string // operator key exchanged for a JWT; empty disables the control API
	JWTSecret string
}

// StrategyFile is the optional YAML override, pointed to by STRATEGY_CONFIG.
type StrategyFile struct {
	Symbol     string  `yaml:"symbol"`
	Quantity   int64   `yaml:"quantity"`
	MaxShares  int64   `yaml:"max_shares"`
	DeltaPrice float64 `yaml:"delta_price"`
}

// Load reads environment variables into Config, then applies the YAML
// strategy file when configured.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Symbol:       getEnv("SYMBOL", "SNAP"),
		Quantity:     getEnvInt64("QUANTITY", 100),
		MaxShares:    getEnvInt64("MAX_SHARES", 100),
		DeltaPrice:   getEnvFloat("DELTA_PRICE", 0.01),
		KeyID:        os.Getenv("APCA_API_KEY_ID"),
		SecretKey:    os.Getenv("APCA_API_SECRET_KEY"),
		BaseURL:      os.Getenv("APCA_API_BASE_URL"),
		StreamURL:    os.Getenv("APCA_API_STREAM_URL"),
		DryRun:       getEnv("DRY_RUN", "false") == "true",
		MaxOrdersSec: getEnvFloat("MAX_ORDERS_PER_SEC", 5),
		JournalPath:  getEnv("JOURNAL_PATH", "./data/ticktaker.db"),
		APIKey:       os.Getenv("API_KEY"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret"),
	}

	if path := os.Getenv("STRATEGY_CONFIG"); path != "" {
		if err := cfg.applyStrategyFile(path); err != nil {
			return nil, fmt.Errorf("load strategy config %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyStrategyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f StrategyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.Symbol != "" {
		c.Symbol = f.Symbol
	}
	if f.Quantity > 0 {
		c.Quantity = f.Quantity
	}
	if f.MaxShares > 0 {
		c.MaxShares = f.MaxShares
	}
	if f.DeltaPrice > 0 {
		c.DeltaPrice = f.DeltaPrice
	}
	return nil
}

func (c *Config) validate() error {
	if c.Symbol == "" {
		return errors.New("config: symbol is required")
	}
	if c.Quantity < 1 {
		return fmt.Errorf("config: quantity must be >= 1, got %d", c.Quantity)
	}
	if c.MaxShares < c.Quantity {
		return fmt.Errorf("config: max_shares (%d) must be >= quantity (%d)", c.MaxShares, c.Quantity)
	}
	if c.DeltaPrice <= 0 {
		return fmt.Errorf("config: delta_price must be positive, got %v", c.DeltaPrice)
	}
	if !c.DryRun && (c.KeyID == "" || c.SecretKey == "") {
		return errors.New("config: APCA_API_KEY_ID and APCA_API_SECRET_KEY are required unless DRY_RUN=true")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}
