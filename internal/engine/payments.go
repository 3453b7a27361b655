package engine

import (
	"context"

	"github.com/tossware/poolengine/internal/event"
	"github.com/tossware/poolengine/internal/ledger"
	"github.com/tossware/poolengine/internal/models"
	"github.com/tossware/poolengine/internal/repayment"
)

// ApplyPayment credits a payment against an allocation and reconciles
// the pool aggregates in the same commit.
func (e *Engine) ApplyPayment(ctx context.Context, poolID, allocationID string, amount models.Money) (repayment.PaymentResult, error) {
	var result repayment.PaymentResult
	err := e.withPool(ctx, "apply_payment", poolID, func(pool *models.Pool) ([]event.Event, error) {
		res, err := repayment.ApplyPayment(pool, allocationID, amount)
		if err != nil {
			return nil, err
		}
		result = res

		events := []event.Event{
			event.New(event.TypePaymentApplied, pool.ID, pool.TenantID, allocationID, map[string]any{
				"applied":     int64(res.Applied),
				"overpayment": int64(res.Overpayment),
			}),
		}
		if res.Closed {
			events = append(events, event.New(event.TypeAllocationClosed, pool.ID, pool.TenantID, allocationID, nil))
		}
		return events, nil
	})
	return result, err
}

// MarkOverdue flags an allocation past its due date. Driven by the
// external scheduler.
func (e *Engine) MarkOverdue(ctx context.Context, poolID, allocationID string) error {
	return e.withPool(ctx, "mark_overdue", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := repayment.MarkOverdue(pool, allocationID, e.now()); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.TypeAllocationOverdue, pool.ID, pool.TenantID, allocationID, nil)}, nil
	})
}

// MarkDefaulted moves an overdue allocation to Defaulted without
// touching capacity; WriteOff is the explicit follow-up.
func (e *Engine) MarkDefaulted(ctx context.Context, poolID, allocationID string) error {
	return e.withPool(ctx, "mark_defaulted", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := repayment.MarkDefaulted(pool, allocationID); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.TypeAllocationDefaulted, pool.ID, pool.TenantID, allocationID, nil)}, nil
	})
}

// WriteOff clears a defaulted allocation's remaining exposure and
// releases its reserved capacity in the same commit.
func (e *Engine) WriteOff(ctx context.Context, poolID, allocationID string) error {
	return e.withPool(ctx, "write_off", poolID, func(pool *models.Pool) ([]event.Event, error) {
		released, err := repayment.WriteOff(pool, allocationID)
		if err != nil {
			return nil, err
		}
		if err := ledger.Release(pool, allocationID, released); err != nil {
			return nil, err
		}
		e.metrics.AddReleased(int64(released))
		return []event.Event{
			event.New(event.TypeAllocationWrittenOff, pool.ID, pool.TenantID, allocationID, map[string]any{
				"released": int64(released),
			}),
			event.New(event.TypeCapacityReleased, pool.ID, pool.TenantID, allocationID, map[string]any{
				"amount":             int64(released),
				"available_capacity": int64(pool.AvailableCapacity()),
			}),
		}, nil
	})
}
