package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetsight/watchtower/internal/store"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "watchtower",
	Short: "Watchtower fleet transaction anomaly engine",
	Long:  `Watchtower evaluates rule policies against fleet transactions, records anomalies, and tracks their human review workflow.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", logLevel)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch logFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", logFormat)
	}
}

// openStore resolves the database URL (flag over config) and wraps the
// connection. Callers own closing the returned handle.
func openStore(databaseURL string) (*store.Store, error) {
	if dbURL != "" {
		databaseURL = dbURL
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("--db-url required")
	}
	db, err := store.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	st, err := store.New(db, slog.Default())
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}
