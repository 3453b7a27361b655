package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/tossware/poolengine/internal/distribution"
	"github.com/tossware/poolengine/internal/event"
	"github.com/tossware/poolengine/internal/ledger"
	"github.com/tossware/poolengine/internal/models"
	"github.com/tossware/poolengine/internal/repayment"
)

// ReserveInput describes a capacity reservation request.
type ReserveInput struct {
	// MemberID is the borrowing or ordering member.
	MemberID string
	// Principal is the amount to reserve against the pool's capacity.
	Principal models.Money
	// Surcharge is the extra cost (e.g. shipping) carried on the
	// allocation and split alongside the principal.
	Surcharge models.Money
	// TermMonths sets the repayment horizon for credit allocations.
	TermMonths int
}

// Reserve commits capacity and creates the allocation referencing it.
// The capacity check runs against pool state at commit time under the
// pool's slot, so concurrent reservations can never over-commit.
func (e *Engine) Reserve(ctx context.Context, poolID string, in ReserveInput) (*models.Allocation, error) {
	var created models.Allocation
	err := e.withPool(ctx, "reserve", poolID, func(pool *models.Pool) ([]event.Event, error) {
		alloc, err := ledger.Reserve(pool, in.MemberID, in.Principal, in.Surcharge, in.TermMonths, e.now())
		if err != nil {
			return nil, err
		}
		created = *alloc
		e.metrics.AddReserved(int64(in.Principal))
		return []event.Event{
			event.New(event.TypeCapacityReserved, pool.ID, pool.TenantID, alloc.ID, map[string]any{
				"member_id":          alloc.MemberID,
				"principal":          int64(alloc.Principal),
				"total_repayable":    int64(alloc.TotalRepayable),
				"available_capacity": int64(pool.AvailableCapacity()),
			}),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Release gives reserved capacity back, used by cancellation flows.
func (e *Engine) Release(ctx context.Context, poolID, allocationID string, amount models.Money) error {
	return e.withPool(ctx, "release", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := ledger.Release(pool, allocationID, amount); err != nil {
			return nil, err
		}
		e.metrics.AddReleased(int64(amount))
		return []event.Event{
			event.New(event.TypeCapacityReleased, pool.ID, pool.TenantID, allocationID, map[string]any{
				"amount":             int64(amount),
				"available_capacity": int64(pool.AvailableCapacity()),
			}),
		}, nil
	})
}

// DistributeShares splits the allocation's total across the pool's
// participating members by the pool's configured method. Quantities
// are required for quantity-weighted pools and ignored otherwise. An
// ordered allocation becomes active once its shares exist.
func (e *Engine) DistributeShares(ctx context.Context, poolID, allocationID string, quantities map[string]int64) error {
	return e.withPool(ctx, "distribute_shares", poolID, func(pool *models.Pool) ([]event.Event, error) {
		alloc := pool.Allocation(allocationID)
		if alloc == nil {
			return nil, fmt.Errorf("%w: allocation %s", models.ErrNotFound, allocationID)
		}
		if alloc.Status != models.AllocationOrdered && alloc.Status != models.AllocationDisbursed {
			return nil, fmt.Errorf("%w: distribute on %s allocation", models.ErrOperationNotAllowedInState, alloc.Status)
		}
		if len(alloc.Shares) > 0 {
			return nil, fmt.Errorf("%w: shares already distributed", models.ErrOperationNotAllowedInState)
		}

		participants := distributionParticipants(pool, quantities)
		// The gross part is everything except the surcharge, so the
		// shares sum exactly to the allocation's total repayable.
		gross := alloc.TotalRepayable - alloc.Surcharge
		shares, err := distribution.Split(pool.DistributionMethod, gross, alloc.Surcharge, participants)
		if err != nil {
			return nil, err
		}
		alloc.Shares = shares
		if alloc.Status == models.AllocationOrdered {
			alloc.Status = models.AllocationActive
		}

		return []event.Event{
			event.New(event.TypeSharesDistributed, pool.ID, pool.TenantID, alloc.ID, map[string]any{
				"method":      string(pool.DistributionMethod),
				"share_count": len(shares),
				"grand_total": int64(alloc.TotalRepayable),
			}),
		}, nil
	})
}

// distributionParticipants returns the participating members in stable
// join order with the weight the pool's method uses.
func distributionParticipants(pool *models.Pool, quantities map[string]int64) []distribution.Participant {
	members := make([]*models.Member, 0, len(pool.Members))
	for i := range pool.Members {
		if pool.Members[i].CanParticipate() {
			members = append(members, &pool.Members[i])
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Position < members[j].Position })

	participants := make([]distribution.Participant, len(members))
	for i, m := range members {
		p := distribution.Participant{MemberID: m.ID}
		switch pool.DistributionMethod {
		case models.DistributeProRata:
			p.Weight = int64(m.Commitment)
		case models.DistributeQuantityWeighted:
			p.Weight = quantities[m.ID]
		}
		participants[i] = p
	}
	return participants
}

// SettleShare records a member paying their share of a split
// allocation. The share amount flows through the repayment path, so
// pool and member aggregates reconcile in the same commit; settling
// the last share closes the allocation.
func (e *Engine) SettleShare(ctx context.Context, poolID, allocationID, memberID string) error {
	return e.withPool(ctx, "settle_share", poolID, func(pool *models.Pool) ([]event.Event, error) {
		alloc := pool.Allocation(allocationID)
		if alloc == nil {
			return nil, fmt.Errorf("%w: allocation %s", models.ErrNotFound, allocationID)
		}
		share := alloc.Share(memberID)
		if share == nil {
			return nil, fmt.Errorf("%w: no share for member %s", models.ErrNotFound, memberID)
		}
		if share.Settled {
			return nil, fmt.Errorf("%w: share already settled", models.ErrOperationNotAllowedInState)
		}

		var res repayment.PaymentResult
		if share.TotalDue > 0 {
			var err error
			res, err = repayment.ApplyPayment(pool, allocationID, share.TotalDue)
			if err != nil {
				return nil, err
			}
		}
		share.Settled = true

		events := []event.Event{
			event.New(event.TypeShareSettled, pool.ID, pool.TenantID, allocationID, map[string]any{
				"member_id": memberID,
				"total_due": int64(share.TotalDue),
			}),
		}
		if res.Closed {
			events = append(events, event.New(event.TypeAllocationClosed, pool.ID, pool.TenantID, allocationID, nil))
		}
		return events, nil
	})
}
