package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/sirupsen/logrus"
)

// Config holds the grinder settings read from the environment. Command line
// flags override individual fields after Load.
type Config struct {
	DBPath        string // empty disables history
	Network       string
	MaxIterations uint64
	Timeout       time.Duration
	MetricsFile   string
	LogLevel      string
	LogFormat     string
}

// Load reads the environment and reports every invalid variable at once.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.DBPath = getEnvOrDefault("TXGRIND_DB_PATH", "txgrind.db")
	cfg.Network = getEnvOrDefault("TXGRIND_NETWORK", "regtest")
	if _, err := NetParams(cfg.Network); err != nil {
		errs = append(errs, err)
	}

	maxIter, err := strconv.ParseUint(getEnvOrDefault("TXGRIND_MAX_ITERATIONS", "0"), 10, 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TXGRIND_MAX_ITERATIONS: %w", err))
	}
	cfg.MaxIterations = maxIter

	timeout, err := time.ParseDuration(getEnvOrDefault("TXGRIND_TIMEOUT", "0s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid duration for TXGRIND_TIMEOUT: %w", err))
	} else if timeout < 0 {
		errs = append(errs, fmt.Errorf("TXGRIND_TIMEOUT must not be negative"))
	}
	cfg.Timeout = timeout

	cfg.MetricsFile = os.Getenv("TXGRIND_METRICS_FILE")

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	cfg.LogFormat = getEnvOrDefault("TXGRIND_LOG_FORMAT", "text")
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("TXGRIND_LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Params returns the chain parameters for cfg.Network.
func (c *Config) Params() *chaincfg.Params {
	params, err := NetParams(c.Network)
	if err != nil {
		return &chaincfg.RegressionNetParams
	}
	return params
}

// NewLogger builds the logger described by the config.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func NetParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3", "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	}
	return nil, fmt.Errorf("unknown network %q", name)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
