package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level booksbridge.yaml configuration for one
// migration run.
type Config struct {
	Company  CompanyConfig  `yaml:"company"`
	API      APIConfig      `yaml:"api"`
	Defaults DefaultsConfig `yaml:"defaults"`
	// AccountRenames maps legacy source account names to accounts in the
	// target chart. Consulted only for entries rebuilt from the General
	// Ledger report; a missing mapping fails that record, never the run.
	AccountRenames map[string]string `yaml:"account_renames,omitempty"`
}

// CompanyConfig identifies the company being migrated into.
type CompanyConfig struct {
	Name         string `yaml:"name"`
	Abbr         string `yaml:"abbr"`
	HomeCurrency string `yaml:"home_currency"`
}

// APIConfig locates the external bookkeeping API.
type APIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	CompanyID    string `yaml:"company_id"`
	MinorVersion int    `yaml:"minor_version"`
	PageSize     int    `yaml:"page_size"`
}

// DefaultsConfig holds posting defaults consulted by the transformers.
type DefaultsConfig struct {
	CostCenter            string `yaml:"cost_center"`
	ShippingIncomeAccount string `yaml:"shipping_income_account"`
	// ExchangeGainAccount absorbs the exchange difference legs found in the
	// General Ledger report under ExchangeGainSourceAccount.
	ExchangeGainAccount       string `yaml:"exchange_gain_account"`
	ExchangeGainSourceAccount string `yaml:"exchange_gain_source_account"`
}

// Load reads a booksbridge.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.PageSize == 0 {
		c.API.PageSize = 1000
	}
	if c.API.MinorVersion == 0 {
		c.API.MinorVersion = 73
	}
}

// EncodeAccountName appends the company abbreviation to an account name, the
// convention the target chart uses for company-scoped account identities.
func (c *Config) EncodeAccountName(name string) string {
	if c.Company.Abbr == "" {
		return name
	}
	return fmt.Sprintf("%s - %s", name, c.Company.Abbr)
}

// Rename resolves a legacy source account name through the configured rename
// table.
func (c *Config) Rename(sourceAccount string) (string, bool) {
	target, ok := c.AccountRenames[sourceAccount]
	return target, ok
}
