// internal/detect/dispatch.go
package detect

import (
	"fmt"
	"time"

	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Action dispatch.
 *
 * Translates a matched rule's declarative actions into discrete effect
 * request values. The dispatcher performs no I/O and mutates no shared
 * entities: side effects are fully represented as returned values, which is
 * what makes rule-to-effect mapping unit-testable without network or
 * storage dependencies.
 *
 * Mapping:
 *   CreateAnomaly  -> types.AnomalyDraft (status PendingReview)
 *   UpdateStatus   -> types.StatusUpdateRequest
 *   Notify         -> types.NotificationRequest
 *   InvokeService  -> types.ServiceInvocationRequest
 *
 * Template failures return ErrTemplateRender; the caller drops the single
 * offending action and keeps processing the rule's remaining actions.
 */

// Dispatcher resolves actions into effect requests.
type Dispatcher struct {
	now func() time.Time
}

// NewDispatcher creates a dispatcher. now may be nil to use wall-clock time;
// tests inject a fixed clock for deterministic detection timestamps.
func NewDispatcher(now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{now: now}
}

// Dispatch resolves one action of a matched rule into an effect request.
func (d *Dispatcher) Dispatch(action rules.Action, rule *rules.CompiledRule, txn *types.Transaction) (types.EffectRequest, error) {
	fields := templateFields(txn)

	switch a := action.(type) {
	case rules.CreateAnomaly:
		reason, err := renderTemplate(a.ReasonTemplate, fields)
		if err != nil {
			return nil, fmt.Errorf("rule %s reason: %w", rule.RuleID, err)
		}
		return types.AnomalyDraft{
			TransactionID: txn.ID,
			RuleID:        rule.RuleID,
			Type:          a.Type,
			Reason:        reason,
			Score:         txn.MLScore,
			Status:        types.StatusPendingReview,
			DetectedAt:    d.now().UTC(),
		}, nil

	case rules.UpdateStatus:
		return types.StatusUpdateRequest{
			Target:   txn.ID,
			Property: a.TargetProperty,
			Value:    a.NewValue,
		}, nil

	case rules.Notify:
		message, err := renderTemplate(a.Template, fields)
		if err != nil {
			return nil, fmt.Errorf("rule %s notification: %w", rule.RuleID, err)
		}
		return types.NotificationRequest{
			Channel:         a.Channel,
			RenderedMessage: message,
			Role:            a.Role,
		}, nil

	case rules.InvokeService:
		payload, err := renderTemplate(a.PayloadTemplate, fields)
		if err != nil {
			return nil, fmt.Errorf("rule %s payload: %w", rule.RuleID, err)
		}
		return types.ServiceInvocationRequest{
			ServiceRef:      a.ServiceRef,
			RenderedPayload: payload,
		}, nil

	default:
		return nil, fmt.Errorf("action type %T: %w", action, types.ErrUnknownOperator)
	}
}
