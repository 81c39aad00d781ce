// internal/review/workflow.go
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetsight/watchtower/internal/metrics"
	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Review workflow state machine.
 *
 * Governs the legal transitions of an anomaly's feedback status:
 *
 *   PendingReview -> Okay | Investigate | ConfirmedFraudOrMisuse | Miscategorized
 *   Investigate   -> Okay | ConfirmedFraudOrMisuse | Miscategorized
 *
 * Everything else is rejected with ErrIllegalTransition, including
 * self-transitions: a closed review is never re-edited silently. Corrections
 * to closed anomalies go through Amend, which appends a FeedbackEvent with
 * an unchanged status.
 *
 * Every applied transition appends exactly one FeedbackEvent, atomically
 * with the status update. Concurrency is single-writer-per-anomaly: the
 * store applies the update with the caller's read status as a precondition
 * and reports ErrConcurrentModification when it no longer holds; the caller
 * re-reads and retries, the workflow never retries silently.
 */

// Store is the persistence collaborator for review operations.
type Store interface {
	// GetAnomaly loads the current anomaly record.
	// Returns ErrAnomalyNotFound when the ID is unknown.
	GetAnomaly(ctx context.Context, id types.AnomalyID) (*types.Anomaly, error)

	// ApplyTransition atomically sets the anomaly's status to
	// event.NewStatus and appends the event, with event.OldStatus as the
	// precondition on the current status. Returns ErrConcurrentModification
	// when the precondition fails.
	ApplyTransition(ctx context.Context, event *types.FeedbackEvent) error
}

// legalTransitions is the complete transition table. Absent states are
// terminal; Investigate is the only re-enterable review outcome.
var legalTransitions = map[types.FeedbackStatus][]types.FeedbackStatus{
	types.StatusPendingReview: {
		types.StatusOkay,
		types.StatusInvestigate,
		types.StatusConfirmedFraudOrMisuse,
		types.StatusMiscategorized,
	},
	types.StatusInvestigate: {
		types.StatusOkay,
		types.StatusConfirmedFraudOrMisuse,
		types.StatusMiscategorized,
	},
}

// CanTransition reports whether the workflow permits from -> to.
func CanTransition(from, to types.FeedbackStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to, returning ErrIllegalTransition otherwise.
func Transition(from, to types.FeedbackStatus) error {
	if !types.ValidFeedbackStatus(to) {
		return fmt.Errorf("status %q: %w", to, types.ErrIllegalTransition)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, types.ErrIllegalTransition)
	}
	return nil
}

// Terminal reports whether a status accepts no further transitions.
func Terminal(s types.FeedbackStatus) bool {
	return len(legalTransitions[s]) == 0
}

// Feedback is one reviewer submission against an anomaly.
type Feedback struct {
	AnomalyID     types.AnomalyID
	ReviewerID    string
	NewStatus     types.FeedbackStatus
	Notes         string
	CorrectedCode string
}

// Workflow applies reviewer feedback to anomalies through a Store.
type Workflow struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewWorkflow creates a workflow. logger may be nil for slog.Default(),
// collector may be nil, now may be nil for wall-clock event timestamps.
func NewWorkflow(store Store, logger *slog.Logger, collector *metrics.Collector, now func() time.Time) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Workflow{store: store, logger: logger, metrics: collector, now: now}
}

// Submit applies one reviewer feedback. On success the anomaly's status is
// updated and the returned FeedbackEvent has been appended. Rejections are
// explicit: ErrIllegalTransition for a disallowed transition,
// ErrConcurrentModification when the anomaly changed under the reviewer.
func (w *Workflow) Submit(ctx context.Context, fb Feedback) (*types.FeedbackEvent, error) {
	anomaly, err := w.store.GetAnomaly(ctx, fb.AnomalyID)
	if err != nil {
		return nil, err
	}

	if err := Transition(anomaly.Status, fb.NewStatus); err != nil {
		w.metrics.ReviewRejected("illegal_transition")
		return nil, err
	}

	event := &types.FeedbackEvent{
		ID:            types.NewFeedbackEventID(),
		AnomalyID:     fb.AnomalyID,
		ReviewerID:    fb.ReviewerID,
		OldStatus:     anomaly.Status,
		NewStatus:     fb.NewStatus,
		Timestamp:     w.now().UTC(),
		Notes:         fb.Notes,
		CorrectedCode: fb.CorrectedCode,
	}

	if err := w.store.ApplyTransition(ctx, event); err != nil {
		if ctx.Err() == nil {
			w.metrics.ReviewRejected("concurrent_modification")
		}
		return nil, err
	}

	w.metrics.ReviewTransition(string(fb.NewStatus))
	w.logger.Info("feedback applied",
		slog.String("anomaly_id", string(fb.AnomalyID)),
		slog.String("reviewer_id", fb.ReviewerID),
		slog.String("old_status", string(event.OldStatus)),
		slog.String("new_status", string(event.NewStatus)))
	return event, nil
}

// Amend appends a notes-only event to a closed anomaly without changing its
// status. Permitted only on terminal states; an open anomaly takes ordinary
// feedback instead.
func (w *Workflow) Amend(ctx context.Context, anomalyID types.AnomalyID, reviewerID, notes, correctedCode string) (*types.FeedbackEvent, error) {
	anomaly, err := w.store.GetAnomaly(ctx, anomalyID)
	if err != nil {
		return nil, err
	}
	if !Terminal(anomaly.Status) {
		return nil, fmt.Errorf("amendment on open status %s: %w", anomaly.Status, types.ErrIllegalTransition)
	}

	event := &types.FeedbackEvent{
		ID:            types.NewFeedbackEventID(),
		AnomalyID:     anomalyID,
		ReviewerID:    reviewerID,
		OldStatus:     anomaly.Status,
		NewStatus:     anomaly.Status,
		Timestamp:     w.now().UTC(),
		Notes:         notes,
		CorrectedCode: correctedCode,
	}

	if err := w.store.ApplyTransition(ctx, event); err != nil {
		return nil, err
	}

	w.logger.Info("amendment recorded",
		slog.String("anomaly_id", string(anomalyID)),
		slog.String("reviewer_id", reviewerID))
	return event, nil
}
