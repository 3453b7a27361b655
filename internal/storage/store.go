// Package storage provides abstractions for persistent pool storage.
package storage

import (
	"context"

	"github.com/tossware/poolengine/internal/models"
)

// Store is the persistence collaborator. Implementations must support
// optimistic-concurrency rejection: SavePoolAtomic persists the whole
// aggregate only if the stored version still equals expectedVersion,
// and returns models.ErrConflict otherwise. A rejected save leaves the
// persisted state unchanged.
type Store interface {
	// CreatePool persists a new pool aggregate at version 1.
	CreatePool(ctx context.Context, pool *models.Pool) error

	// LoadPool retrieves a pool with all owned members, allocations and
	// shares. Returns models.ErrNotFound if absent.
	LoadPool(ctx context.Context, poolID string) (*models.Pool, error)

	// SavePoolAtomic persists the aggregate in one transaction and bumps
	// pool.Version to expectedVersion+1 on success.
	SavePoolAtomic(ctx context.Context, pool *models.Pool, expectedVersion int64) error

	// ListPools returns the pools for a tenant, without owned records.
	// Listings may be served from a stale snapshot.
	ListPools(ctx context.Context, tenantID string) ([]*models.Pool, error)

	// Close releases any resources held by the store.
	Close() error
}
