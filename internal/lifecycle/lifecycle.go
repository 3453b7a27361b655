// Package lifecycle gates pool status transitions. The transition
// table is plain data so it can be tested without any pool instance;
// the exported operations apply the table plus the per-kind guards.
package lifecycle

import (
	"fmt"

	"github.com/tossware/poolengine/internal/models"
)

// transitions maps each status to the set of statuses reachable from
// it. Absence means the transition is illegal. Cancelled is reachable
// from every non-terminal state and is included explicitly.
var transitions = map[models.PoolStatus]map[models.PoolStatus]bool{
	models.PoolForming: {
		models.PoolActive:    true,
		models.PoolCancelled: true,
	},
	models.PoolActive: {
		models.PoolOrdered:     true,
		models.PoolInTransit:   true,
		models.PoolCompleted:   true,
		models.PoolDistributed: true,
		models.PoolSuspended:   true,
		models.PoolClosed:      true,
		models.PoolCancelled:   true,
	},
	models.PoolOrdered: {
		models.PoolCompleted:   true,
		models.PoolDistributed: true,
		models.PoolClosed:      true,
		models.PoolCancelled:   true,
	},
	models.PoolInTransit: {
		models.PoolCompleted:   true,
		models.PoolDistributed: true,
		models.PoolClosed:      true,
		models.PoolCancelled:   true,
	},
	models.PoolCompleted: {
		models.PoolClosed:    true,
		models.PoolCancelled: true,
	},
	models.PoolDistributed: {
		models.PoolClosed:    true,
		models.PoolCancelled: true,
	},
	models.PoolSuspended: {
		models.PoolActive:    true,
		models.PoolClosed:    true,
		models.PoolCancelled: true,
	},
	models.PoolClosed:    {},
	models.PoolCancelled: {},
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to models.PoolStatus) bool {
	return transitions[from][to]
}

// Transition moves the pool to the target status if the table allows
// it. It applies no guards beyond the table; use the named operations
// for guarded transitions.
func Transition(pool *models.Pool, to models.PoolStatus) error {
	if !CanTransition(pool.Status, to) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidStateTransition, pool.Status, to)
	}
	pool.Status = to
	return nil
}

// Activate moves a Forming pool to Active and closes membership.
// The guard depends on the pool kind: credit pools need capacity,
// buying and delivery pools need the member quorum. Activate is not
// idempotent; a second call fails with ErrInvalidStateTransition.
func Activate(pool *models.Pool) error {
	if pool.Status != models.PoolForming {
		return fmt.Errorf("%w: activate from %s", models.ErrInvalidStateTransition, pool.Status)
	}
	switch pool.Kind {
	case models.KindCredit:
		if pool.TotalCapacity <= 0 {
			return fmt.Errorf("%w: credit pool requires capacity > 0", models.ErrPreconditionNotMet)
		}
	default:
		if pool.MemberCount < pool.MinimumMembers {
			return fmt.Errorf("%w: %d of %d required members", models.ErrPreconditionNotMet,
				pool.MemberCount, pool.MinimumMembers)
		}
	}
	pool.Status = models.PoolActive
	pool.OpenForMembership = false
	return nil
}

// Close moves the pool to Closed. Legal from any non-Forming,
// non-terminal state.
func Close(pool *models.Pool) error {
	if pool.Status == models.PoolForming || pool.Status.IsTerminal() {
		return fmt.Errorf("%w: close from %s", models.ErrInvalidStateTransition, pool.Status)
	}
	pool.Status = models.PoolClosed
	pool.OpenForMembership = false
	return nil
}

// Cancel moves the pool to Cancelled from any non-terminal state and
// records the reason. Allocations already disbursed or ordered are not
// reversed; write-off is a separate explicit operation.
func Cancel(pool *models.Pool, reason string) error {
	if pool.Status.IsTerminal() {
		return fmt.Errorf("%w: cancel from %s", models.ErrInvalidStateTransition, pool.Status)
	}
	pool.Status = models.PoolCancelled
	pool.OpenForMembership = false
	pool.CancelReason = reason
	return nil
}

// Suspend pauses an Active credit pool. Other pool kinds cannot be
// suspended.
func Suspend(pool *models.Pool) error {
	if pool.Kind != models.KindCredit {
		return fmt.Errorf("%w: only credit pools can be suspended", models.ErrOperationNotAllowedInState)
	}
	return Transition(pool, models.PoolSuspended)
}

// Resume returns a Suspended pool to Active.
func Resume(pool *models.Pool) error {
	if pool.Status != models.PoolSuspended {
		return fmt.Errorf("%w: resume from %s", models.ErrInvalidStateTransition, pool.Status)
	}
	pool.Status = models.PoolActive
	return nil
}
