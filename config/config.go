// Package config loads and validates the simulation configuration.
// Files may be YAML or JSON; environment variables override a handful
// of fields so the same file can be reused across machines.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the complete simulation configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// AccountConfig contains the starting account parameters
type AccountConfig struct {
	InitialCash   float64 `json:"initial_cash" yaml:"initial_cash"`
	BrokerageRate float64 `json:"brokerage_rate" yaml:"brokerage_rate"`
	CashFraction  float64 `json:"cash_fraction" yaml:"cash_fraction"`
}

// DataConfig points at the market data store
type DataConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// StrategyConfig names the strategy and carries its free-form parameters
type StrategyConfig struct {
	Name         string             `json:"name" yaml:"name"`
	Symbol       string             `json:"symbol" yaml:"symbol"`
	Lookback     int                `json:"lookback,omitempty" yaml:"lookback,omitempty"`
	AllowReverse bool               `json:"allow_reverse,omitempty" yaml:"allow_reverse,omitempty"`
	Params       map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoggingConfig selects the log level
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// applyEnv layers environment overrides on top of file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("BACKSIM_DB_PATH"); v != "" {
		c.Data.DBPath = v
	}
	if v := os.Getenv("BACKSIM_INITIAL_CASH"); v != "" {
		if cash, err := strconv.ParseFloat(v, 64); err == nil {
			c.Account.InitialCash = cash
		}
	}
	if v := os.Getenv("BACKSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}
	if c.Account.BrokerageRate < 0 || c.Account.BrokerageRate >= 1 {
		return fmt.Errorf("account.brokerage_rate must be in [0, 1)")
	}
	if c.Account.CashFraction <= 0 || c.Account.CashFraction > 1 {
		return fmt.Errorf("account.cash_fraction must be in (0, 1]")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Strategy.Symbol == "" {
		return fmt.Errorf("strategy.symbol is required")
	}
	if c.Strategy.Lookback < 0 {
		return fmt.Errorf("strategy.lookback must not be negative")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCash:   100000,
			BrokerageRate: 0.00007,
			CashFraction:  0.95,
		},
		Data: DataConfig{
			DBPath: "./market.db",
		},
		Strategy: StrategyConfig{
			Name:   "sma-cross",
			Symbol: "NIFTY",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
