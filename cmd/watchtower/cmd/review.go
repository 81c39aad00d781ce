package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fleetsight/watchtower/internal/core/config"
	"github.com/fleetsight/watchtower/internal/review"
	"github.com/fleetsight/watchtower/internal/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage the anomaly review workflow",
}

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit reviewer feedback on an anomaly",
	RunE:  runReviewSubmit,
}

var reviewAmendCmd = &cobra.Command{
	Use:   "amend",
	Short: "Append a correction note to a closed anomaly",
	RunE:  runReviewAmend,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List anomalies by review status",
	RunE:  runReviewList,
}

var reviewHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the feedback history of an anomaly",
	RunE:  runReviewHistory,
}

func init() {
	reviewSubmitCmd.Flags().String("anomaly-id", "", "anomaly to review")
	reviewSubmitCmd.Flags().String("reviewer", "", "reviewer identifier")
	reviewSubmitCmd.Flags().String("status", "", "new review status")
	reviewSubmitCmd.Flags().String("notes", "", "free-form reviewer notes")
	reviewSubmitCmd.Flags().String("corrected-code", "", "corrected category code for miscategorized anomalies")
	reviewSubmitCmd.MarkFlagRequired("anomaly-id")
	reviewSubmitCmd.MarkFlagRequired("reviewer")
	reviewSubmitCmd.MarkFlagRequired("status")

	reviewAmendCmd.Flags().String("anomaly-id", "", "closed anomaly to amend")
	reviewAmendCmd.Flags().String("reviewer", "", "reviewer identifier")
	reviewAmendCmd.Flags().String("notes", "", "amendment notes")
	reviewAmendCmd.Flags().String("corrected-code", "", "corrected category code")
	reviewAmendCmd.MarkFlagRequired("anomaly-id")
	reviewAmendCmd.MarkFlagRequired("reviewer")

	reviewListCmd.Flags().String("status", string(types.StatusPendingReview), "review status to list")

	reviewHistoryCmd.Flags().String("anomaly-id", "", "anomaly to show history for")
	reviewHistoryCmd.MarkFlagRequired("anomaly-id")

	reviewCmd.AddCommand(reviewSubmitCmd, reviewAmendCmd, reviewListCmd, reviewHistoryCmd)
	rootCmd.AddCommand(reviewCmd)
}

func newWorkflow() (*review.Workflow, func(), error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	wf := review.NewWorkflow(st, slog.Default(), nil, nil)
	return wf, func() { st.DB().Close() }, nil
}

func runReviewSubmit(cmd *cobra.Command, args []string) error {
	wf, closeStore, err := newWorkflow()
	if err != nil {
		return err
	}
	defer closeStore()

	anomalyID, _ := cmd.Flags().GetString("anomaly-id")
	reviewer, _ := cmd.Flags().GetString("reviewer")
	status, _ := cmd.Flags().GetString("status")
	notes, _ := cmd.Flags().GetString("notes")
	correctedCode, _ := cmd.Flags().GetString("corrected-code")

	event, err := wf.Submit(context.Background(), review.Feedback{
		AnomalyID:     types.AnomalyID(anomalyID),
		ReviewerID:    reviewer,
		NewStatus:     types.FeedbackStatus(status),
		Notes:         notes,
		CorrectedCode: correctedCode,
	})
	if err != nil {
		return err
	}
	fmt.Printf("feedback %s recorded: %s -> %s\n", event.ID, event.OldStatus, event.NewStatus)
	return nil
}

func runReviewAmend(cmd *cobra.Command, args []string) error {
	wf, closeStore, err := newWorkflow()
	if err != nil {
		return err
	}
	defer closeStore()

	anomalyID, _ := cmd.Flags().GetString("anomaly-id")
	reviewer, _ := cmd.Flags().GetString("reviewer")
	notes, _ := cmd.Flags().GetString("notes")
	correctedCode, _ := cmd.Flags().GetString("corrected-code")

	event, err := wf.Amend(context.Background(), types.AnomalyID(anomalyID), reviewer, notes, correctedCode)
	if err != nil {
		return err
	}
	fmt.Printf("amendment %s recorded on %s\n", event.ID, event.AnomalyID)
	return nil
}

func runReviewList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.DB().Close()

	status, _ := cmd.Flags().GetString("status")
	if !types.ValidFeedbackStatus(types.FeedbackStatus(status)) {
		return fmt.Errorf("unknown review status: %s", status)
	}

	anomalies, err := st.ListAnomaliesByStatus(context.Background(), types.FeedbackStatus(status))
	if err != nil {
		return err
	}
	for _, a := range anomalies {
		fmt.Printf("%s  %s  %-12s  %s\n", a.ID, a.DetectedAt.Format("2006-01-02 15:04"), a.Type, a.Reason)
	}
	return nil
}

func runReviewHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.DB().Close()

	anomalyID, _ := cmd.Flags().GetString("anomaly-id")
	events, err := st.ListFeedback(context.Background(), types.AnomalyID(anomalyID))
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%s  %s  %s -> %s  %s\n",
			e.Timestamp.Format("2006-01-02 15:04"), e.ReviewerID, e.OldStatus, e.NewStatus, e.Notes)
	}
	return nil
}
