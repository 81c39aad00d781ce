// internal/detect/detector.go
package detect

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fleetsight/watchtower/internal/metrics"
	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Anomaly detection orchestration.
 *
 * Detect evaluates every active, kind-applicable rule of an immutable
 * snapshot against one transaction, in snapshot order (priority ascending,
 * rule ID ascending). All matching rules fire - this is not a first-match
 * system; order only makes action dispatch deterministic.
 *
 * Rule-level evaluation errors (unresolvable property, geometry failure) are
 * configuration problems: the rule is skipped for that transaction, logged,
 * and counted, and processing continues. Nothing a single rule does can
 * abort a transaction or a batch.
 *
 * Deduplication: at most one anomaly draft per (transaction, rule) pair,
 * even across repeated Detect calls on the same detector. The same pair is
 * the idempotency key the persistence sink upserts on, so a retried batch
 * cannot double-create anomalies either way.
 *
 * Batch processing is a parallel map: each transaction reads only the
 * snapshot and its own context, so worker goroutines share no mutable state
 * beyond the dedup index. Results keep input order regardless of worker
 * interleaving, and cancellation is checked cooperatively before each
 * transaction.
 */

// Result collects the effect requests produced for one transaction.
type Result struct {
	TransactionID types.TransactionID
	Drafts        []types.AnomalyDraft
	StatusUpdates []types.StatusUpdateRequest
	Notifications []types.NotificationRequest
	Invocations   []types.ServiceInvocationRequest
}

// ContextProvider supplies the per-transaction evaluation context, including
// any historical window and geometry collaborator the rules need.
type ContextProvider interface {
	ContextFor(ctx context.Context, txn *types.Transaction) (rules.Context, error)
}

// Detector runs rule evaluation and action dispatch over transactions.
type Detector struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Collector

	mu   sync.Mutex
	seen map[dedupKey]struct{}
}

type dedupKey struct {
	txn  types.TransactionID
	rule types.RuleID
}

// NewDetector creates a detector. logger may be nil for slog.Default(),
// collector may be nil to disable instrumentation, now may be nil for
// wall-clock detection timestamps.
func NewDetector(logger *slog.Logger, collector *metrics.Collector, now func() time.Time) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		dispatcher: NewDispatcher(now),
		logger:     logger,
		metrics:    collector,
		seen:       make(map[dedupKey]struct{}),
	}
}

// Detect evaluates all applicable snapshot rules against one transaction and
// resolves matched rules' actions into effect requests.
func (d *Detector) Detect(txn *types.Transaction, snap *rules.Snapshot, evalCtx rules.Context) Result {
	result := Result{TransactionID: txn.ID}

	for _, rule := range snap.ForKind(txn.Kind) {
		matched, err := rules.Evaluate(rule.Condition, evalCtx)
		if err != nil {
			// Configuration problem scoped to this rule; skip it and continue.
			d.metrics.RuleError()
			d.logger.Warn("rule evaluation failed",
				slog.String("rule_id", string(rule.RuleID)),
				slog.String("transaction_id", string(txn.ID)),
				slog.String("error", err.Error()))
			continue
		}
		d.metrics.RuleEvaluated(matched)
		if !matched {
			continue
		}

		d.logger.Debug("rule matched",
			slog.String("rule_id", string(rule.RuleID)),
			slog.String("transaction_id", string(txn.ID)))
		d.dispatchActions(rule, txn, &result)
	}

	return result
}

// dispatchActions resolves a matched rule's actions in their declared order.
func (d *Detector) dispatchActions(rule *rules.CompiledRule, txn *types.Transaction, result *Result) {
	for _, action := range rule.Actions {
		effect, err := d.dispatcher.Dispatch(action, rule, txn)
		if err != nil {
			// Render failures drop the single action, never the rule.
			d.metrics.ActionDropped()
			d.logger.Warn("action dropped",
				slog.String("rule_id", string(rule.RuleID)),
				slog.String("transaction_id", string(txn.ID)),
				slog.String("error", err.Error()))
			continue
		}

		switch e := effect.(type) {
		case types.AnomalyDraft:
			if !d.markSeen(txn.ID, rule.RuleID) {
				continue
			}
			d.metrics.AnomalyDrafted(string(e.Type))
			result.Drafts = append(result.Drafts, e)
		case types.StatusUpdateRequest:
			result.StatusUpdates = append(result.StatusUpdates, e)
		case types.NotificationRequest:
			result.Notifications = append(result.Notifications, e)
		case types.ServiceInvocationRequest:
			result.Invocations = append(result.Invocations, e)
		}
	}
}

// markSeen records the (transaction, rule) pair, returning false when a
// draft for the pair was already emitted by this detector.
func (d *Detector) markSeen(txn types.TransactionID, rule types.RuleID) bool {
	key := dedupKey{txn: txn, rule: rule}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// DetectBatch runs detection over a batch of transactions with a pool of
// workers. Results preserve input order. Cancellation is checked before each
// transaction; a cancelled batch returns ctx.Err() and no results.
func (d *Detector) DetectBatch(ctx context.Context, txns []*types.Transaction, snap *rules.Snapshot, provider ContextProvider, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	results := make([]Result, len(txns))
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = d.detectOne(ctx, txns[i], snap, provider)
			}
		}()
	}

feed:
	for i := range txns {
		select {
		case <-ctx.Done():
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.metrics.BatchObserved(time.Since(start))
	return results, nil
}

// detectOne obtains the evaluation context for a transaction and runs Detect.
// Context provider failures are transaction-level: logged, empty result.
func (d *Detector) detectOne(ctx context.Context, txn *types.Transaction, snap *rules.Snapshot, provider ContextProvider) Result {
	evalCtx, err := provider.ContextFor(ctx, txn)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.logger.Error("context provider failed",
				slog.String("transaction_id", string(txn.ID)),
				slog.String("error", err.Error()))
		}
		return Result{TransactionID: txn.ID}
	}
	return d.Detect(txn, snap, evalCtx)
}
