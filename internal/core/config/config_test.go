package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := DefaultDetectorConfig()
	if cfg.DatabaseURL != want.DatabaseURL {
		t.Errorf("expected database url %s, got %s", want.DatabaseURL, cfg.DatabaseURL)
	}
	if cfg.BatchSize != want.BatchSize {
		t.Errorf("expected batch size %d, got %d", want.BatchSize, cfg.BatchSize)
	}
	if cfg.Workers != want.Workers {
		t.Errorf("expected workers %d, got %d", want.Workers, cfg.Workers)
	}
	if cfg.HistoryWindow != want.HistoryWindow {
		t.Errorf("expected history window %v, got %v", want.HistoryWindow, cfg.HistoryWindow)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `detector:
  database_url: postgres://watchtower@localhost/watchtower?sslmode=disable
  batch_size: 2000
  workers: 12
  history_window: 72h
  metrics_addr: ":9102"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BatchSize != 2000 {
		t.Errorf("expected batch size 2000, got %d", cfg.BatchSize)
	}
	if cfg.Workers != 12 {
		t.Errorf("expected 12 workers, got %d", cfg.Workers)
	}
	if cfg.HistoryWindow != 72*time.Hour {
		t.Errorf("expected 72h window, got %v", cfg.HistoryWindow)
	}
	if cfg.MetricsAddr != ":9102" {
		t.Errorf("expected metrics addr :9102, got %s", cfg.MetricsAddr)
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	os.Setenv("WT_DETECTOR_BATCH_SIZE", "64")
	defer os.Unsetenv("WT_DETECTOR_BATCH_SIZE")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BatchSize != 64 {
		t.Errorf("expected batch size 64 from environment, got %d", cfg.BatchSize)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "zero batch size", content: "detector:\n  batch_size: 0\n"},
		{name: "negative workers", content: "detector:\n  workers: -2\n"},
		{name: "zero history window", content: "detector:\n  history_window: 0s\n"},
		{name: "empty database url", content: "detector:\n  database_url: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
