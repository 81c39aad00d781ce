package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*DetectorConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultDetectorConfig
	v.SetDefault("detector.database_url", "sqlite://watchtower.db")
	v.SetDefault("detector.batch_size", 500)
	v.SetDefault("detector.workers", 4)
	v.SetDefault("detector.history_window", "24h")
	v.SetDefault("detector.metrics_addr", "")
	v.SetDefault("detector.regions_file", "")

	// Bind environment variables with WT_ prefix
	v.SetEnvPrefix("WT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &DetectorConfig{
		DatabaseURL:   v.GetString("detector.database_url"),
		BatchSize:     v.GetInt("detector.batch_size"),
		Workers:       v.GetInt("detector.workers"),
		HistoryWindow: v.GetDuration("detector.history_window"),
		MetricsAddr:   v.GetString("detector.metrics_addr"),
		RegionsFile:   v.GetString("detector.regions_file"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks positive values for batch size, workers and window.
func validateConfig(cfg *DetectorConfig) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url must not be empty")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive, got %v", cfg.HistoryWindow)
	}
	return nil
}
