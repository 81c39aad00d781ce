// internal/types/effects.go
package types

/*
 * Effect request values produced by the action dispatcher.
 *
 * A matched rule's actions never perform I/O directly. Each action resolves
 * to one of these request values, and the caller hands them to the relevant
 * collaborator (persistence sink, mutation collaborator, notification or
 * service gateway). Delivery failures belong to the gateway, not this core.
 *
 * EffectRequest is a closed variant set: the unexported marker method keeps
 * the dispatch type switch exhaustive.
 */

// EffectRequest is the closed union of dispatchable effect values.
type EffectRequest interface {
	isEffectRequest()
}

// StatusUpdateRequest asks the external mutation collaborator to set a
// property on a target entity. The dispatcher never mutates shared entities.
type StatusUpdateRequest struct {
	Target   TransactionID
	Property string
	Value    string
}

// NotificationRequest carries a rendered message for asynchronous delivery.
type NotificationRequest struct {
	Channel         string
	RenderedMessage string
	Role            string
}

// ServiceInvocationRequest asks the gateway to invoke an external service
// with a rendered payload.
type ServiceInvocationRequest struct {
	ServiceRef      string
	RenderedPayload string
}

func (AnomalyDraft) isEffectRequest()             {}
func (StatusUpdateRequest) isEffectRequest()      {}
func (NotificationRequest) isEffectRequest()      {}
func (ServiceInvocationRequest) isEffectRequest() {}
