package interfaces

import "context"

// TxRunner is the store's transaction primitive: fn runs against a
// consistent snapshot, every write it issues commits atomically or rolls
// back together, and conflicting concurrent transactions on the same
// document are serialized (one commits, the other retries with fresh data).
// Implementations pass the transaction through the returned context so
// repository calls inside fn join it transparently.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
