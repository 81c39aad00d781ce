package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetsight/watchtower/internal/core/config"
	"github.com/fleetsight/watchtower/internal/detect"
	"github.com/fleetsight/watchtower/internal/geo"
	"github.com/fleetsight/watchtower/internal/metrics"
	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/store"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run anomaly detection over recent transactions",
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().Duration("since", 24*time.Hour, "detect over transactions newer than this age")
	detectCmd.Flags().Int("batch-size", 0, "maximum transactions per batch (overrides config)")
	detectCmd.Flags().Int("workers", 0, "detection worker count (overrides config)")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if n, _ := cmd.Flags().GetInt("batch-size"); n > 0 {
		cfg.BatchSize = n
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Workers = n
	}
	since, _ := cmd.Flags().GetDuration("since")

	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.DB().Close()

	var geometry rules.Geometry
	if cfg.RegionsFile != "" {
		index, err := geo.LoadRegionsFile(cfg.RegionsFile)
		if err != nil {
			return err
		}
		geometry = index
	}

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, collector)
	}

	snap, err := st.LoadActiveRules(ctx)
	if err != nil {
		return err
	}
	slog.Info("rule snapshot loaded", slog.Int("rules", snap.Len()))

	txns, err := st.ListTransactionsSince(ctx, time.Now().Add(-since), cfg.BatchSize)
	if err != nil {
		return err
	}
	slog.Info("batch loaded", slog.Int("transactions", len(txns)))

	detector := detect.NewDetector(slog.Default(), collector, nil)
	provider := store.NewContextProvider(st, cfg.HistoryWindow, geometry)

	results, err := detector.DetectBatch(ctx, txns, snap, provider, cfg.Workers)
	if err != nil {
		return err
	}

	gateway := &detect.LogGateway{Logger: slog.Default()}
	created := 0
	for _, result := range results {
		n, err := st.UpsertDrafts(ctx, result.Drafts)
		if err != nil {
			return err
		}
		created += n
		for _, req := range result.Notifications {
			if err := gateway.Deliver(ctx, req); err != nil {
				slog.Warn("notification delivery failed", slog.String("error", err.Error()))
			}
		}
		for _, req := range result.Invocations {
			if err := gateway.Invoke(ctx, req); err != nil {
				slog.Warn("service invocation failed", slog.String("error", err.Error()))
			}
		}
	}

	slog.Info("detection complete",
		slog.Int("transactions", len(txns)),
		slog.Int("anomalies_created", created))
	return nil
}

func serveMetrics(addr string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server failed", slog.String("error", err.Error()))
	}
}
