package domain

import "context"

// PriceResolver resolves a symbol to its latest official price and name.
// A nil quote with a nil error means the symbol is unknown to the resolver; callers
// then fall back to the cost basis (new holding) or the last known price (merge).
type PriceResolver interface {
	Resolve(ctx context.Context, symbol string) (*PriceQuote, error)
}

// SnapshotStore persists the complete portfolio snapshot.
// This is the save port invoked by the enclosing application after each mutation;
// the calculation core itself never performs I/O.
type SnapshotStore interface {
	// Save replaces the stored snapshot
	Save(ctx context.Context, snapshot Snapshot) error

	// Load returns the stored snapshot, or nil when nothing has been saved yet
	Load(ctx context.Context) (*Snapshot, error)
}
