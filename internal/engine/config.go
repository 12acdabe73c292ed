package engine

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

// Config drives one emulator run. Zero values fall back to the
// defaults below when loaded from file.
type Config struct {
	// Symbol is the instrument to trade, e.g. "BTCUSDT".
	Symbol string `yaml:"symbol" validate:"required"`

	InitialBalance float64 `yaml:"initial_balance" validate:"gt=0"`
	CommissionRate float64 `yaml:"commission_rate" validate:"gte=0,lt=1"`

	// Leverage applies to every buy. 1 disables margin mechanics.
	Leverage int `yaml:"leverage" validate:"gte=1,lte=100"`

	RiskTolerance float64 `yaml:"risk_tolerance" validate:"gt=0,lte=1"`
	MinConfidence int     `yaml:"min_confidence" validate:"gte=0,lte=100"`

	// CheckInterval is the pause between decision cycles in continuous
	// mode.
	CheckInterval time.Duration `yaml:"check_interval" validate:"gt=0"`

	// HistoryPeriod and HistoryInterval shape the candle fetch backing
	// each decision.
	HistoryPeriod   time.Duration `yaml:"history_period" validate:"gt=0"`
	HistoryInterval string        `yaml:"history_interval" validate:"required"`

	SnapshotPath string `yaml:"snapshot_path" validate:"required"`
	OutputDir    string `yaml:"output_dir" validate:"required"`
}

// DefaultConfig returns the defaults used when no config file or flag
// overrides them.
func DefaultConfig() Config {
	return Config{
		Symbol:          "BTCUSDT",
		InitialBalance:  10000,
		CommissionRate:  0.001,
		Leverage:        1,
		RiskTolerance:   0.5,
		MinConfidence:   60,
		CheckInterval:   60 * time.Second,
		HistoryPeriod:   7 * 24 * time.Hour,
		HistoryInterval: "1h",
		SnapshotPath:    "account_snapshot.json",
		OutputDir:       "./logs",
	}
}

// Validate checks the config against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

// LoadConfig reads a YAML config file over the defaults. Fields absent
// from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}
