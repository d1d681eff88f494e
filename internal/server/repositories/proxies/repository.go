// Package proxies persists the pool of pre-deployed proxy contracts waiting
// to be bound to new wallets.
package proxies

import "context"

type Repository interface {
	Add(ctx context.Context, address string) error
	// LockNext selects one pooled proxy and locks its row for the current
	// transaction, skipping rows locked by others. Returns "" on an empty pool.
	LockNext(ctx context.Context) (string, error)
	Delete(ctx context.Context, address string) error
	Count(ctx context.Context) (int, error)
}
