// Package ledger is the single entry point for capacity mutations.
// CommittedCapacity moves only through Reserve and Release; no other
// component writes it. The capacity check happens against the pool
// state at commit time — the engine serializes commits per pool, so a
// stale read by the caller can never over-commit the pool.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tossware/poolengine/internal/models"
)

// Reserve atomically commits capacity and creates the allocation that
// references it. The borrower must be a member able to participate.
// Credit allocations start Disbursed with a flat-interest total
// repayable; order allocations start Ordered with the grand total.
func Reserve(pool *models.Pool, borrowerID string, principal, surcharge models.Money, termMonths int, now time.Time) (*models.Allocation, error) {
	if pool.Status != models.PoolActive {
		return nil, fmt.Errorf("%w: reserve on %s pool", models.ErrOperationNotAllowedInState, pool.Status)
	}
	if principal <= 0 {
		return nil, fmt.Errorf("%w: reserve amount must be positive", models.ErrPreconditionNotMet)
	}
	borrower := pool.Member(borrowerID)
	if borrower == nil {
		return nil, fmt.Errorf("%w: member %s", models.ErrNotFound, borrowerID)
	}
	if !borrower.CanParticipate() {
		return nil, fmt.Errorf("%w: member %s is %s", models.ErrOperationNotAllowedInState, borrowerID, borrower.Status)
	}
	if principal > pool.AvailableCapacity() {
		return nil, fmt.Errorf("%w: requested %s, available %s", models.ErrInsufficientCapacity,
			principal, pool.AvailableCapacity())
	}

	status := models.AllocationOrdered
	var interest models.Money
	if pool.Kind == models.KindCredit {
		status = models.AllocationDisbursed
		interest = models.Money(int64(principal) * pool.InterestRateBps / 10000)
	}
	totalRepayable := principal + interest + surcharge

	alloc := models.Allocation{
		ID:             uuid.New().String(),
		MemberID:       borrowerID,
		Status:         status,
		Principal:      principal,
		Surcharge:      surcharge,
		TotalRepayable: totalRepayable,
		TermMonths:     termMonths,
		CreatedAt:      now.Unix(),
	}
	if termMonths > 0 {
		alloc.NextPaymentDue = now.AddDate(0, 1, 0).Unix()
	}

	pool.CommittedCapacity += principal
	pool.OutstandingAmount += totalRepayable
	borrower.AmountDrawn += principal
	borrower.Outstanding += totalRepayable
	pool.Allocations = append(pool.Allocations, alloc)

	return pool.Allocation(alloc.ID), nil
}

// Release gives capacity back, used by cancellation and default
// write-off. Releasing more than is committed means a caller bug: the
// error is ErrInvariantViolation and the pool is left untouched rather
// than clamped.
func Release(pool *models.Pool, allocationID string, amount models.Money) error {
	if amount <= 0 {
		return fmt.Errorf("%w: release amount must be positive", models.ErrPreconditionNotMet)
	}
	if pool.Allocation(allocationID) == nil {
		return fmt.Errorf("%w: allocation %s", models.ErrNotFound, allocationID)
	}
	if amount > pool.CommittedCapacity {
		return fmt.Errorf("%w: release %s exceeds committed %s", models.ErrInvariantViolation,
			amount, pool.CommittedCapacity)
	}
	pool.CommittedCapacity -= amount
	return nil
}
