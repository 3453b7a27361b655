// Package engine orchestrates pool operations. Every mutating
// operation follows one shape: acquire the pool's slot (bounded wait),
// load the aggregate, mutate it through the component packages, save
// it atomically against the version read, then hand the resulting
// events to the sink. A rejected operation leaves persisted state
// untouched and emits nothing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tossware/poolengine/internal/event"
	"github.com/tossware/poolengine/internal/metrics"
	"github.com/tossware/poolengine/internal/models"
	"github.com/tossware/poolengine/internal/storage"
)

// DefaultLockWait bounds how long an operation waits for a pool's slot
// before giving up with ErrConflict.
const DefaultLockWait = 2 * time.Second

// Directory is the identity collaborator. It supplies the display-name
// snapshot at join time; the engine never calls it again for a member.
type Directory interface {
	DisplayName(ctx context.Context, customerID string) (string, error)
}

// StaticDirectory is a map-backed Directory for the server binary and
// tests. Unknown customers fall back to their ID.
type StaticDirectory map[string]string

// DisplayName returns the mapped name or the customer ID itself.
func (d StaticDirectory) DisplayName(_ context.Context, customerID string) (string, error) {
	if name, ok := d[customerID]; ok {
		return name, nil
	}
	return customerID, nil
}

// Engine wires the component packages to storage, events and metrics.
type Engine struct {
	store    storage.Store
	sink     event.Sink
	dir      Directory
	metrics  *metrics.Metrics
	locks    poolLocks
	lockWait time.Duration
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLockWait overrides the bounded slot-acquisition wait.
func WithLockWait(d time.Duration) Option {
	return func(e *Engine) { e.lockWait = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given collaborators.
func New(store storage.Store, sink event.Sink, dir Directory, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		sink:     sink,
		dir:      dir,
		lockWait: DefaultLockWait,
		now:      time.Now,
	}
	e.locks.slots = make(map[string]chan struct{})
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// poolLocks serializes mutations per pool. Each pool gets a one-slot
// channel; acquisition waits a bounded time and then surfaces
// ErrConflict so callers retry with backoff instead of blocking.
type poolLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func (l *poolLocks) acquire(ctx context.Context, poolID string, wait time.Duration) error {
	l.mu.Lock()
	slot, ok := l.slots[poolID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[poolID] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: pool %s busy", models.ErrConflict, poolID)
	}
}

func (l *poolLocks) release(poolID string) {
	l.mu.Lock()
	slot := l.slots[poolID]
	l.mu.Unlock()
	<-slot
}

// withPool runs fn against the loaded aggregate under the pool's slot
// and commits the result. Events are published only after the save
// succeeds.
func (e *Engine) withPool(ctx context.Context, op, poolID string, fn func(pool *models.Pool) ([]event.Event, error)) (err error) {
	start := time.Now()
	defer func() { e.metrics.ObserveOp(op, start, err) }()

	if err = e.locks.acquire(ctx, poolID, e.lockWait); err != nil {
		if errors.Is(err, models.ErrConflict) {
			e.metrics.IncConflict()
		}
		return err
	}
	defer e.locks.release(poolID)

	pool, err := e.store.LoadPool(ctx, poolID)
	if err != nil {
		return err
	}

	events, err := fn(pool)
	if err != nil {
		if errors.Is(err, models.ErrInvariantViolation) {
			slog.Error("invariant violation", "operation", op, "pool_id", poolID, "error", err)
		}
		return err
	}

	if err = e.store.SavePoolAtomic(ctx, pool, pool.Version); err != nil {
		if errors.Is(err, models.ErrConflict) {
			e.metrics.IncConflict()
		}
		return err
	}

	if e.sink != nil && len(events) > 0 {
		e.sink.Publish(ctx, events)
	}
	return nil
}

// GetPool returns the pool aggregate. Reads may be stale relative to
// in-flight commits; only the commit path is linearized.
func (e *Engine) GetPool(ctx context.Context, poolID string) (*models.Pool, error) {
	return e.store.LoadPool(ctx, poolID)
}

// ListPools returns the tenant's pools without owned records.
func (e *Engine) ListPools(ctx context.Context, tenantID string) ([]*models.Pool, error) {
	return e.store.ListPools(ctx, tenantID)
}
