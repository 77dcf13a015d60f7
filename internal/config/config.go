package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config carries the connection settings for the named data sources. The
// reconciliation core only consumes already-configured handles; this is the
// single place connection configuration is managed.
type Config struct {
	Env                  string `mapstructure:"ENV"`
	ReferenceDatabaseURL string `mapstructure:"REFERENCE_DATABASE_URL"`
	LegacyDatabaseURL    string `mapstructure:"LEGACY_DATABASE_URL"`
	ReportDatabaseURL    string `mapstructure:"REPORT_DATABASE_URL"`
	DBMaxConns           int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32  `mapstructure:"DB_MIN_CONNS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 5)
	v.SetDefault("DB_MIN_CONNS", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("REFERENCE_DATABASE_URL")
	v.BindEnv("LEGACY_DATABASE_URL")
	v.BindEnv("REPORT_DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ReferenceDatabaseURL == "" {
		return nil, fmt.Errorf("REFERENCE_DATABASE_URL is required")
	}
	if cfg.LegacyDatabaseURL == "" {
		return nil, fmt.Errorf("LEGACY_DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValidateReportSource checks the setting only the statistics migration
// needs. The deviation commands run without a report source.
func (c *Config) ValidateReportSource() error {
	if c.ReportDatabaseURL == "" {
		return fmt.Errorf("REPORT_DATABASE_URL is required for statistics migration")
	}
	return nil
}
