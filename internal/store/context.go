// internal/store/context.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/types"
)

// ContextProvider builds per-transaction evaluation contexts with the
// vehicle's prior-transaction window and an optional geometry collaborator.
type ContextProvider struct {
	store  *Store
	window time.Duration
	geo    rules.Geometry
}

// NewContextProvider creates a provider. window bounds the history lookback
// for frequency-style conditions; geo may be nil when no region rules exist.
func NewContextProvider(s *Store, window time.Duration, geo rules.Geometry) *ContextProvider {
	return &ContextProvider{store: s, window: window, geo: geo}
}

// ContextFor loads the history window and assembles the evaluation context.
func (p *ContextProvider) ContextFor(ctx context.Context, txn *types.Transaction) (rules.Context, error) {
	history, err := p.store.VehicleHistory(ctx, txn.VehicleID, txn.Timestamp, p.window)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", txn.ID, err)
	}
	return &rules.TransactionContext{Txn: txn, History: history, Geo: p.geo}, nil
}
