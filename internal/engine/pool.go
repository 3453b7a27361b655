package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tossware/poolengine/internal/event"
	"github.com/tossware/poolengine/internal/lifecycle"
	"github.com/tossware/poolengine/internal/models"
)

// CreatePoolInput carries everything needed to open a new pool.
type CreatePoolInput struct {
	TenantID string
	Number   string
	Name     string
	Kind     models.PoolKind

	TotalCapacity  models.Money
	MinimumMembers int
	MaximumMembers int

	DistributionMethod models.DistributionMethod

	// InterestRateBps is the flat rate applied to credit allocations.
	InterestRateBps int64
}

var numberPrefix = map[models.PoolKind]string{
	models.KindCredit:   "CP",
	models.KindBuying:   "BG",
	models.KindDelivery: "DP",
}

// CreatePool creates a pool in Forming state with nothing committed.
func (e *Engine) CreatePool(ctx context.Context, in CreatePoolInput) (_ *models.Pool, err error) {
	start := time.Now()
	defer func() { e.metrics.ObserveOp("create_pool", start, err) }()

	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: pool name is required", models.ErrPreconditionNotMet)
	}
	prefix, ok := numberPrefix[in.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pool kind %q", models.ErrPreconditionNotMet, in.Kind)
	}
	if in.TotalCapacity < 0 {
		return nil, fmt.Errorf("%w: negative capacity", models.ErrPreconditionNotMet)
	}
	if in.MaximumMembers <= 0 || in.MinimumMembers < 0 || in.MinimumMembers > in.MaximumMembers {
		return nil, fmt.Errorf("%w: invalid membership bounds %d..%d", models.ErrPreconditionNotMet,
			in.MinimumMembers, in.MaximumMembers)
	}
	method := in.DistributionMethod
	if method == "" {
		method = models.DistributeEqual
	}
	switch method {
	case models.DistributeEqual, models.DistributeProRata, models.DistributeQuantityWeighted:
	default:
		return nil, fmt.Errorf("%w: unknown distribution method %q", models.ErrPreconditionNotMet, method)
	}

	now := e.now()
	pool := &models.Pool{
		ID:                 uuid.New().String(),
		Number:             in.Number,
		Name:               strings.TrimSpace(in.Name),
		TenantID:           in.TenantID,
		Kind:               in.Kind,
		Status:             models.PoolForming,
		OpenForMembership:  true,
		TotalCapacity:      in.TotalCapacity,
		MinimumMembers:     in.MinimumMembers,
		MaximumMembers:     in.MaximumMembers,
		DistributionMethod: method,
		InterestRateBps:    in.InterestRateBps,
		CreatedAt:          now.Unix(),
	}
	if pool.Number == "" {
		pool.Number = fmt.Sprintf("%s-%d-%s", prefix, now.Year(), pool.ID[:8])
	}

	if err = e.store.CreatePool(ctx, pool); err != nil {
		return nil, err
	}

	if e.sink != nil {
		e.sink.Publish(ctx, []event.Event{
			event.New(event.TypePoolCreated, pool.ID, pool.TenantID, "", map[string]any{
				"kind":           string(pool.Kind),
				"number":         pool.Number,
				"total_capacity": int64(pool.TotalCapacity),
			}),
		})
	}
	return pool, nil
}

// ActivatePool moves a Forming pool to Active and closes membership.
func (e *Engine) ActivatePool(ctx context.Context, poolID string) error {
	return e.withPool(ctx, "activate_pool", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := lifecycle.Activate(pool); err != nil {
			return nil, err
		}
		return []event.Event{
			event.New(event.TypePoolActivated, pool.ID, pool.TenantID, "", map[string]any{
				"member_count":   pool.MemberCount,
				"total_capacity": int64(pool.TotalCapacity),
			}),
		}, nil
	})
}

// advanceTargets are the statuses AdvancePool may move to. Activation,
// suspension, closing and cancellation have dedicated operations with
// their own guards.
var advanceTargets = map[models.PoolStatus]bool{
	models.PoolOrdered:     true,
	models.PoolInTransit:   true,
	models.PoolCompleted:   true,
	models.PoolDistributed: true,
}

// AdvancePool moves an operating pool along its fulfilment chain
// (Ordered, InTransit, Completed, Distributed).
func (e *Engine) AdvancePool(ctx context.Context, poolID string, to models.PoolStatus) error {
	return e.withPool(ctx, "advance_pool", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if !advanceTargets[to] {
			return nil, fmt.Errorf("%w: advance to %s", models.ErrInvalidStateTransition, to)
		}
		from := pool.Status
		if err := lifecycle.Transition(pool, to); err != nil {
			return nil, err
		}
		return []event.Event{
			event.New(event.TypePoolAdvanced, pool.ID, pool.TenantID, "", map[string]any{
				"from": string(from),
				"to":   string(to),
			}),
		}, nil
	})
}

// SuspendPool pauses an Active credit pool.
func (e *Engine) SuspendPool(ctx context.Context, poolID string) error {
	return e.withPool(ctx, "suspend_pool", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := lifecycle.Suspend(pool); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.TypePoolSuspended, pool.ID, pool.TenantID, "", nil)}, nil
	})
}

// ResumePool returns a Suspended pool to Active.
func (e *Engine) ResumePool(ctx context.Context, poolID string) error {
	return e.withPool(ctx, "resume_pool", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := lifecycle.Resume(pool); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.TypePoolResumed, pool.ID, pool.TenantID, "", nil)}, nil
	})
}

// ClosePool closes the pool and emits the final summary.
func (e *Engine) ClosePool(ctx context.Context, poolID string) error {
	return e.withPool(ctx, "close_pool", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := lifecycle.Close(pool); err != nil {
			return nil, err
		}
		return []event.Event{
			event.New(event.TypePoolClosed, pool.ID, pool.TenantID, "", map[string]any{
				"total_capacity":     int64(pool.TotalCapacity),
				"committed_capacity": int64(pool.CommittedCapacity),
				"repaid_amount":      int64(pool.RepaidAmount),
				"outstanding_amount": int64(pool.OutstandingAmount),
			}),
		}, nil
	})
}

// CancelPool cancels the pool. Allocations already disbursed or
// ordered stay as they are; reversal is an explicit write-off.
func (e *Engine) CancelPool(ctx context.Context, poolID, reason string) error {
	return e.withPool(ctx, "cancel_pool", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := lifecycle.Cancel(pool, reason); err != nil {
			return nil, err
		}
		return []event.Event{
			event.New(event.TypePoolCancelled, pool.ID, pool.TenantID, "", map[string]any{
				"reason": reason,
			}),
		}, nil
	})
}
