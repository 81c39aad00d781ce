// Package config provides configuration management for Watchtower services.
package config

import "time"

// DetectorConfig holds configuration for the anomaly detection service.
type DetectorConfig struct {
	DatabaseURL   string
	BatchSize     int
	Workers       int
	HistoryWindow time.Duration
	MetricsAddr   string
	RegionsFile   string
}

// DefaultDetectorConfig returns configuration with default values.
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		DatabaseURL:   "sqlite://watchtower.db",
		BatchSize:     500,
		Workers:       4,
		HistoryWindow: 24 * time.Hour,
		MetricsAddr:   "",
		RegionsFile:   "",
	}
}
