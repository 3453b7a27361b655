// Package repayment applies payments against allocations and keeps
// the owning pool's aggregates reconciled. Every mutation here touches
// the allocation, the borrowing member and the pool totals inside one
// in-memory change set; the engine persists all of it atomically.
package repayment

import (
	"fmt"
	"time"

	"github.com/tossware/poolengine/internal/models"
)

// PaymentResult describes what a payment did.
type PaymentResult struct {
	// Applied is the portion credited against the outstanding balance.
	Applied models.Money
	// Overpayment is the excess beyond the total repayable, recorded on
	// the allocation rather than discarded.
	Overpayment models.Money
	// Closed is true when this payment settled the allocation.
	Closed bool
}

// ApplyPayment credits amount against the allocation. When the
// outstanding balance reaches zero the allocation closes; a closed
// allocation never re-opens. The pool's RepaidAmount and
// OutstandingAmount move in the same change set as the allocation.
func ApplyPayment(pool *models.Pool, allocationID string, amount models.Money) (PaymentResult, error) {
	if amount <= 0 {
		return PaymentResult{}, fmt.Errorf("%w: payment must be positive", models.ErrPreconditionNotMet)
	}
	alloc := pool.Allocation(allocationID)
	if alloc == nil {
		return PaymentResult{}, fmt.Errorf("%w: allocation %s", models.ErrNotFound, allocationID)
	}
	if !alloc.Status.AcceptsPayment() {
		return PaymentResult{}, fmt.Errorf("%w: payment on %s allocation", models.ErrOperationNotAllowedInState, alloc.Status)
	}

	res := PaymentResult{Applied: amount}
	outstanding := alloc.OutstandingBalance()
	if amount > outstanding {
		res.Applied = outstanding
		res.Overpayment = amount - outstanding
	}

	alloc.AmountSettled += res.Applied
	alloc.Overpayment += res.Overpayment
	alloc.Overdue = false
	if alloc.OutstandingBalance() == 0 {
		alloc.Status = models.AllocationClosed
		res.Closed = true
	}

	member := pool.Member(alloc.MemberID)
	if member == nil {
		return PaymentResult{}, fmt.Errorf("%w: allocation %s references missing member %s",
			models.ErrInvariantViolation, allocationID, alloc.MemberID)
	}
	member.AmountRepaid += res.Applied
	member.Outstanding -= res.Applied

	pool.RepaidAmount += res.Applied
	pool.OutstandingAmount -= res.Applied

	return res, nil
}

// MarkOverdue flags an allocation whose next payment due date has
// passed. Driven by an external scheduler; the engine only checks the
// timestamps it was given.
func MarkOverdue(pool *models.Pool, allocationID string, now time.Time) error {
	alloc := pool.Allocation(allocationID)
	if alloc == nil {
		return fmt.Errorf("%w: allocation %s", models.ErrNotFound, allocationID)
	}
	if !alloc.Status.AcceptsPayment() {
		return fmt.Errorf("%w: mark overdue on %s allocation", models.ErrOperationNotAllowedInState, alloc.Status)
	}
	if alloc.NextPaymentDue == 0 || now.Unix() < alloc.NextPaymentDue {
		return fmt.Errorf("%w: allocation not past due", models.ErrPreconditionNotMet)
	}
	alloc.Overdue = true
	return nil
}

// MarkDefaulted moves an overdue allocation to Defaulted. Capacity is
// not released here: write-off is an explicit follow-up operation.
func MarkDefaulted(pool *models.Pool, allocationID string) error {
	alloc := pool.Allocation(allocationID)
	if alloc == nil {
		return fmt.Errorf("%w: allocation %s", models.ErrNotFound, allocationID)
	}
	if !alloc.Status.AcceptsPayment() {
		return fmt.Errorf("%w: default on %s allocation", models.ErrOperationNotAllowedInState, alloc.Status)
	}
	if !alloc.Overdue {
		return fmt.Errorf("%w: allocation must be overdue before default", models.ErrPreconditionNotMet)
	}
	alloc.Status = models.AllocationDefaulted
	return nil
}

// WriteOff clears a defaulted allocation's remaining exposure from the
// pool aggregates and reports the capacity to give back. The caller
// releases it through the ledger in the same commit.
func WriteOff(pool *models.Pool, allocationID string) (models.Money, error) {
	alloc := pool.Allocation(allocationID)
	if alloc == nil {
		return 0, fmt.Errorf("%w: allocation %s", models.ErrNotFound, allocationID)
	}
	if alloc.Status != models.AllocationDefaulted {
		return 0, fmt.Errorf("%w: write-off on %s allocation", models.ErrOperationNotAllowedInState, alloc.Status)
	}
	if alloc.WrittenOff {
		return 0, fmt.Errorf("%w: allocation already written off", models.ErrOperationNotAllowedInState)
	}

	remaining := alloc.OutstandingBalance()
	member := pool.Member(alloc.MemberID)
	if member != nil {
		member.Outstanding -= remaining
	}
	pool.OutstandingAmount -= remaining
	alloc.WrittenOff = true

	return alloc.Principal, nil
}
