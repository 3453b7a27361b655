package models

import "errors"

// Error kinds returned by the engine. Guard failures are returned to
// the caller as one of these sentinels (usually wrapped with context);
// they are never swallowed. ErrConflict is the only kind a caller
// should retry automatically.
var (
	// ErrNotFound indicates a pool, member or allocation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionNotMet indicates a lifecycle or input guard failed.
	ErrPreconditionNotMet = errors.New("precondition not met")

	// ErrInvalidStateTransition indicates the requested status change is
	// not in the transition table.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrOperationNotAllowedInState indicates the operation is legal in
	// general but not in the entity's current status.
	ErrOperationNotAllowedInState = errors.New("operation not allowed in current state")

	// ErrPoolClosed indicates the pool is not open for membership.
	ErrPoolClosed = errors.New("pool closed for membership")

	// ErrCapacityExceeded indicates the membership bound would be exceeded.
	ErrCapacityExceeded = errors.New("member capacity exceeded")

	// ErrInsufficientCapacity indicates a reservation exceeds the pool's
	// available capacity as of the commit.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrNoParticipants indicates a distribution was requested with an
	// empty participant set.
	ErrNoParticipants = errors.New("no participants")

	// ErrZeroTotalWeight indicates all distribution weights are zero
	// under a weighted method.
	ErrZeroTotalWeight = errors.New("zero total weight")

	// ErrConflict indicates a concurrent write collision; the caller
	// should retry with backoff.
	ErrConflict = errors.New("concurrent write conflict")

	// ErrInvariantViolation indicates an internal invariant was about to
	// break. This is a bug in the caller or the engine, never a normal
	// outcome: it must be logged and surfaced as fatal, not corrected.
	ErrInvariantViolation = errors.New("invariant violation")
)
