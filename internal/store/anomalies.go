// internal/store/anomalies.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Persistence sink for anomaly drafts and review transitions.
 *
 * Draft upsert is idempotent on the (transaction_id, rule_id) uniqueness
 * constraint: re-running detection over the same batch, or two racing
 * detector invocations after a retry, insert each pair at most once. The
 * check-then-act lives in the database, not in process memory.
 *
 * ApplyTransition implements the single-writer-per-anomaly discipline: the
 * status update carries the caller's read status as a precondition, and the
 * feedback event appends in the same transaction. A failed precondition
 * surfaces ErrConcurrentModification and writes nothing.
 */

type anomalyRow struct {
	AnomalyID     string   `db:"anomaly_id"`
	TransactionID string   `db:"transaction_id"`
	RuleID        string   `db:"rule_id"`
	AnomalyType   string   `db:"anomaly_type"`
	Reason        string   `db:"reason"`
	Score         *float64 `db:"score"`
	Status        string   `db:"status"`
	DetectedAt    string   `db:"detected_at"`
}

func (r anomalyRow) toAnomaly() (*types.Anomaly, error) {
	detectedAt, err := time.Parse(time.RFC3339, r.DetectedAt)
	if err != nil {
		return nil, fmt.Errorf("anomaly %s detected_at: %w", r.AnomalyID, err)
	}
	return &types.Anomaly{
		ID:            types.AnomalyID(r.AnomalyID),
		TransactionID: types.TransactionID(r.TransactionID),
		RuleID:        types.RuleID(r.RuleID),
		Type:          types.AnomalyType(r.AnomalyType),
		Reason:        r.Reason,
		Score:         r.Score,
		Status:        types.FeedbackStatus(r.Status),
		DetectedAt:    detectedAt,
	}, nil
}

// UpsertDrafts inserts anomaly drafts, assigning fresh UUIDv7 ids. Pairs
// already present are skipped by the uniqueness constraint. Returns the
// number of newly created anomalies.
func (s *Store) UpsertDrafts(ctx context.Context, drafts []types.AnomalyDraft) (int, error) {
	created := 0
	for _, draft := range drafts {
		res, err := s.exec(ctx, "insert-anomaly",
			string(types.NewAnomalyID()),
			string(draft.TransactionID),
			string(draft.RuleID),
			string(draft.Type),
			draft.Reason,
			draft.Score,
			string(draft.Status),
			draft.DetectedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return created, fmt.Errorf("failed to upsert draft (%s, %s): %w", draft.TransactionID, draft.RuleID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("rows affected: %w", err)
		}
		created += int(n)
	}
	return created, nil
}

// GetAnomaly loads one anomaly by ID.
func (s *Store) GetAnomaly(ctx context.Context, id types.AnomalyID) (*types.Anomaly, error) {
	var row anomalyRow
	if err := s.get(ctx, "get-anomaly", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("anomaly %s: %w", id, types.ErrAnomalyNotFound)
		}
		return nil, fmt.Errorf("failed to load anomaly %s: %w", id, err)
	}
	return row.toAnomaly()
}

// ListAnomaliesByStatus returns anomalies in a given review status, ordered
// by detection time.
func (s *Store) ListAnomaliesByStatus(ctx context.Context, status types.FeedbackStatus) ([]*types.Anomaly, error) {
	var rows []anomalyRow
	if err := s.selectAll(ctx, "list-anomalies-by-status", &rows, string(status)); err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	anomalies := make([]*types.Anomaly, 0, len(rows))
	for _, row := range rows {
		a, err := row.toAnomaly()
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, nil
}

// ApplyTransition atomically updates the anomaly status and appends the
// feedback event. The event's OldStatus is the optimistic-concurrency
// precondition; when it no longer matches, nothing is written and
// ErrConcurrentModification is returned for the caller to re-read and retry.
func (s *Store) ApplyTransition(ctx context.Context, event *types.FeedbackEvent) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updateQuery, err := s.raw("update-anomaly-status")
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, updateQuery,
		string(event.NewStatus), string(event.AnomalyID), string(event.OldStatus))
	if err != nil {
		return fmt.Errorf("failed to update anomaly status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		countQuery, err := s.raw("count-anomaly")
		if err != nil {
			return err
		}
		var count int
		if err := tx.GetContext(ctx, &count, countQuery, string(event.AnomalyID)); err != nil {
			return fmt.Errorf("failed to check anomaly existence: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("anomaly %s: %w", event.AnomalyID, types.ErrAnomalyNotFound)
		}
		return fmt.Errorf("anomaly %s: %w", event.AnomalyID, types.ErrConcurrentModification)
	}

	insertQuery, err := s.raw("insert-feedback-event")
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertQuery,
		string(event.ID),
		string(event.AnomalyID),
		event.ReviewerID,
		string(event.OldStatus),
		string(event.NewStatus),
		event.Notes,
		event.CorrectedCode,
		event.Timestamp.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to append feedback event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

// ListFeedback returns the append-only feedback history of one anomaly in
// chronological order.
func (s *Store) ListFeedback(ctx context.Context, anomalyID types.AnomalyID) ([]*types.FeedbackEvent, error) {
	var rows []struct {
		EventID       string `db:"event_id"`
		AnomalyID     string `db:"anomaly_id"`
		ReviewerID    string `db:"reviewer_id"`
		OldStatus     string `db:"old_status"`
		NewStatus     string `db:"new_status"`
		Notes         string `db:"notes"`
		CorrectedCode string `db:"corrected_code"`
		CreatedAt     string `db:"created_at"`
	}
	if err := s.selectAll(ctx, "list-feedback-events", &rows, string(anomalyID)); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	events := make([]*types.FeedbackEvent, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("event %s created_at: %w", row.EventID, err)
		}
		events = append(events, &types.FeedbackEvent{
			ID:            types.FeedbackEventID(row.EventID),
			AnomalyID:     types.AnomalyID(row.AnomalyID),
			ReviewerID:    row.ReviewerID,
			OldStatus:     types.FeedbackStatus(row.OldStatus),
			NewStatus:     types.FeedbackStatus(row.NewStatus),
			Timestamp:     ts,
			Notes:         row.Notes,
			CorrectedCode: row.CorrectedCode,
		})
	}
	return events, nil
}
