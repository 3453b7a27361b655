package models

// PoolKind selects the pool family. The kind decides the activation
// guard, the initial status of new allocations and whether suspension
// is available.
type PoolKind string

const (
	// KindCredit is a micro-lending credit pool.
	KindCredit PoolKind = "credit"
	// KindBuying is a collective-purchasing buying group.
	KindBuying PoolKind = "buying"
	// KindDelivery is a shared-logistics delivery pool.
	KindDelivery PoolKind = "delivery"
)

// PoolStatus is the pool lifecycle state.
type PoolStatus string

const (
	PoolForming     PoolStatus = "forming"
	PoolActive      PoolStatus = "active"
	PoolOrdered     PoolStatus = "ordered"
	PoolInTransit   PoolStatus = "in_transit"
	PoolCompleted   PoolStatus = "completed"
	PoolDistributed PoolStatus = "distributed"
	PoolSuspended   PoolStatus = "suspended"
	PoolClosed      PoolStatus = "closed"
	PoolCancelled   PoolStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state. Pools are
// never deleted, only moved to a terminal status.
func (s PoolStatus) IsTerminal() bool {
	return s == PoolClosed || s == PoolCancelled
}

// DistributionMethod selects how an allocation total is split across
// member shares.
type DistributionMethod string

const (
	// DistributeEqual gives every participant the same weight.
	DistributeEqual DistributionMethod = "equal"
	// DistributeProRata weights participants by commitment amount.
	DistributeProRata DistributionMethod = "pro_rata"
	// DistributeQuantityWeighted weights participants by ordered quantity.
	DistributeQuantityWeighted DistributionMethod = "quantity_weighted"
)

// Pool is the aggregate root for one credit pool, buying group or
// delivery pool. It is the unit of serializability: every mutation of
// capacity, member count or allocation status is linearized per pool.
type Pool struct {
	// ID is the unique identifier (UUID format).
	ID string

	// Number is the human-readable pool number (e.g. "CP-2026-0042").
	Number string

	// Name is the display name of the pool.
	Name string

	// TenantID is an opaque tenant identifier supplied at creation.
	// The engine never interprets it.
	TenantID string

	// Kind selects the pool family.
	Kind PoolKind

	Status PoolStatus

	// OpenForMembership is independent of Status but is closed
	// automatically on activation.
	OpenForMembership bool

	// TotalCapacity is the pool's full capacity in minor units (or a
	// count for delivery pools). AvailableCapacity is always derived,
	// never stored.
	TotalCapacity     Money
	CommittedCapacity Money

	MinimumMembers int
	MaximumMembers int
	MemberCount    int

	DistributionMethod DistributionMethod

	// InterestRateBps is the flat interest rate in basis points applied
	// to credit allocations. Total repayable is principal plus this flat
	// markup; there is no amortization schedule.
	InterestRateBps int64

	// RepaidAmount and OutstandingAmount are pool-level aggregates kept
	// in sync with the owned allocations inside the same commit.
	RepaidAmount      Money
	OutstandingAmount Money

	// CancelReason records why a cancelled pool was cancelled.
	CancelReason string

	// Version is the optimistic-concurrency token. A save is accepted
	// only if the persisted version still matches.
	Version int64

	Members     []Member
	Allocations []Allocation

	CreatedAt int64
	UpdatedAt int64
}

// AvailableCapacity returns total minus committed capacity.
func (p *Pool) AvailableCapacity() Money {
	return p.TotalCapacity - p.CommittedCapacity
}

// Member returns the member with the given ID, or nil.
func (p *Pool) Member(id string) *Member {
	for i := range p.Members {
		if p.Members[i].ID == id {
			return &p.Members[i]
		}
	}
	return nil
}

// MemberByCustomer returns the member referencing the given external
// customer ID, or nil.
func (p *Pool) MemberByCustomer(customerID string) *Member {
	for i := range p.Members {
		if p.Members[i].CustomerID == customerID {
			return &p.Members[i]
		}
	}
	return nil
}

// Allocation returns the allocation with the given ID, or nil.
func (p *Pool) Allocation(id string) *Allocation {
	for i := range p.Allocations {
		if p.Allocations[i].ID == id {
			return &p.Allocations[i]
		}
	}
	return nil
}
