// Package membership tracks who belongs to a pool, their commitment
// and the join/exit rules. MemberCount moves only through this
// package.
package membership

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tossware/poolengine/internal/models"
)

// operatingStatuses are the pool states in which membership is frozen:
// once the pool begins operating a member can no longer be removed.
var operatingStatuses = map[models.PoolStatus]bool{
	models.PoolActive:    true,
	models.PoolOrdered:   true,
	models.PoolInTransit: true,
}

// Join appends a member with the given commitment. Credit pools
// require approval, so their members start Pending; other kinds start
// Approved. The display name is the caller's snapshot of the customer
// record; the engine never looks it up again.
func Join(pool *models.Pool, customerID, displayName string, commitment models.Money, now time.Time) (*models.Member, error) {
	if !pool.OpenForMembership {
		return nil, fmt.Errorf("%w: pool %s", models.ErrPoolClosed, pool.ID)
	}
	if pool.MemberCount >= pool.MaximumMembers {
		return nil, fmt.Errorf("%w: pool has %d of %d members", models.ErrCapacityExceeded,
			pool.MemberCount, pool.MaximumMembers)
	}
	if commitment < 0 {
		return nil, fmt.Errorf("%w: negative commitment", models.ErrPreconditionNotMet)
	}
	if existing := pool.MemberByCustomer(customerID); existing != nil && existing.Status != models.MemberRemoved {
		return nil, fmt.Errorf("%w: customer %s already joined", models.ErrPreconditionNotMet, customerID)
	}

	status := models.MemberApproved
	if pool.Kind == models.KindCredit {
		status = models.MemberPending
	}

	member := models.Member{
		ID:          uuid.New().String(),
		CustomerID:  customerID,
		DisplayName: displayName,
		Status:      status,
		Commitment:  commitment,
		Position:    len(pool.Members),
		JoinedAt:    now.Unix(),
	}
	pool.Members = append(pool.Members, member)
	pool.MemberCount++

	return pool.Member(member.ID), nil
}

// Approve moves a Pending member to Approved.
func Approve(pool *models.Pool, memberID string) error {
	member := pool.Member(memberID)
	if member == nil {
		return fmt.Errorf("%w: member %s", models.ErrNotFound, memberID)
	}
	if member.Status != models.MemberPending {
		return fmt.Errorf("%w: approve %s member", models.ErrOperationNotAllowedInState, member.Status)
	}
	member.Status = models.MemberApproved
	return nil
}

// Suspend pauses an Approved or Active member.
func Suspend(pool *models.Pool, memberID string) error {
	member := pool.Member(memberID)
	if member == nil {
		return fmt.Errorf("%w: member %s", models.ErrNotFound, memberID)
	}
	if !member.CanParticipate() {
		return fmt.Errorf("%w: suspend %s member", models.ErrOperationNotAllowedInState, member.Status)
	}
	member.Status = models.MemberSuspended
	return nil
}

// Remove marks a member Removed and decrements the member count.
// Rejected once the pool is operating. The member record stays for
// audit, and capacity already committed to the member's settled
// allocations is not reduced.
func Remove(pool *models.Pool, memberID string) error {
	if operatingStatuses[pool.Status] {
		return fmt.Errorf("%w: membership frozen while pool is %s", models.ErrOperationNotAllowedInState, pool.Status)
	}
	member := pool.Member(memberID)
	if member == nil {
		return fmt.Errorf("%w: member %s", models.ErrNotFound, memberID)
	}
	if member.Status == models.MemberRemoved {
		return fmt.Errorf("%w: member already removed", models.ErrOperationNotAllowedInState)
	}
	member.Status = models.MemberRemoved
	pool.MemberCount--
	return nil
}
