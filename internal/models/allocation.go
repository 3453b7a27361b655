package models

// AllocationStatus is the allocation lifecycle state.
type AllocationStatus string

const (
	AllocationRequested AllocationStatus = "requested"
	AllocationApproved  AllocationStatus = "approved"
	// AllocationDisbursed is the post-reservation status for credit pools.
	AllocationDisbursed AllocationStatus = "disbursed"
	// AllocationOrdered is the post-reservation status for buying groups
	// and delivery pools.
	AllocationOrdered   AllocationStatus = "ordered"
	AllocationActive    AllocationStatus = "active"
	AllocationClosed    AllocationStatus = "closed"
	AllocationDefaulted AllocationStatus = "defaulted"
	AllocationCancelled AllocationStatus = "cancelled"
)

// IsTerminal reports whether the status is terminal. Allocations are
// never deleted; terminal statuses preserve audit history.
func (s AllocationStatus) IsTerminal() bool {
	return s == AllocationClosed || s == AllocationDefaulted || s == AllocationCancelled
}

// AcceptsPayment reports whether payments may be applied in this status.
func (s AllocationStatus) AcceptsPayment() bool {
	return s == AllocationDisbursed || s == AllocationActive
}

// Allocation is one draw against the pool's capacity: a credit
// disbursement, a group purchase order or a delivery cost share. It
// references its borrower by member ID and owns its MemberShare rows.
type Allocation struct {
	// ID is the unique identifier (UUID format).
	ID string

	// MemberID is the borrowing/ordering member.
	MemberID string

	Status AllocationStatus

	// Principal is the reserved amount (goods cost for orders).
	Principal Money

	// Surcharge is the extra cost distributed alongside the principal,
	// e.g. shipping for a delivery pool.
	Surcharge Money

	// TotalRepayable is principal plus flat interest plus surcharge.
	// For orders this is the grand total.
	TotalRepayable Money

	// AmountSettled never exceeds TotalRepayable; any excess payment is
	// recorded in Overpayment instead of being discarded.
	AmountSettled Money
	Overpayment   Money

	TermMonths int

	// NextPaymentDue is the unix timestamp the external scheduler
	// compares against when deciding to mark the allocation overdue.
	NextPaymentDue int64

	// Overdue is set by MarkOverdue and cleared when a payment arrives.
	// It is a flag rather than a status so overdue allocations keep
	// accepting payments.
	Overdue bool

	// WrittenOff is set when a defaulted allocation's remaining capacity
	// has been explicitly released. Write-off never happens implicitly.
	WrittenOff bool

	Shares []MemberShare

	CreatedAt int64
}

// OutstandingBalance returns total repayable minus settled, never
// negative.
func (a *Allocation) OutstandingBalance() Money {
	return a.TotalRepayable - a.AmountSettled
}

// Share returns the share belonging to the given member, or nil.
func (a *Allocation) Share(memberID string) *MemberShare {
	for i := range a.Shares {
		if a.Shares[i].MemberID == memberID {
			return &a.Shares[i]
		}
	}
	return nil
}

// MemberShare is one member's slice of a split allocation. Shares are
// written once at distribution time; only settlement mutates them
// afterward.
type MemberShare struct {
	MemberID string

	AllocatedAmount Money
	SurchargeShare  Money

	// TotalDue is allocated amount plus surcharge share. Across an
	// allocation the shares sum exactly to the grand total: the
	// rounding remainder is assigned to one deterministic member.
	TotalDue Money

	Settled bool
}
