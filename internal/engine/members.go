package engine

import (
	"context"
	"fmt"

	"github.com/tossware/poolengine/internal/event"
	"github.com/tossware/poolengine/internal/membership"
	"github.com/tossware/poolengine/internal/models"
)

// Join adds a customer to the pool with the given commitment. The
// display name is snapshotted from the directory collaborator at this
// point and never refreshed.
func (e *Engine) Join(ctx context.Context, poolID, customerID string, commitment models.Money) (*models.Member, error) {
	displayName, err := e.dir.DisplayName(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("customer lookup: %w", err)
	}

	var joined models.Member
	err = e.withPool(ctx, "join", poolID, func(pool *models.Pool) ([]event.Event, error) {
		member, err := membership.Join(pool, customerID, displayName, commitment, e.now())
		if err != nil {
			return nil, err
		}
		joined = *member
		return []event.Event{
			event.New(event.TypeMemberJoined, pool.ID, pool.TenantID, member.ID, map[string]any{
				"customer_id": customerID,
				"commitment":  int64(commitment),
				"status":      string(member.Status),
			}),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &joined, nil
}

// ApproveMember moves a pending member to approved.
func (e *Engine) ApproveMember(ctx context.Context, poolID, memberID string) error {
	return e.withPool(ctx, "approve_member", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := membership.Approve(pool, memberID); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.TypeMemberApproved, pool.ID, pool.TenantID, memberID, nil)}, nil
	})
}

// SuspendMember pauses a member.
func (e *Engine) SuspendMember(ctx context.Context, poolID, memberID string) error {
	return e.withPool(ctx, "suspend_member", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := membership.Suspend(pool, memberID); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.TypeMemberSuspended, pool.ID, pool.TenantID, memberID, nil)}, nil
	})
}

// RemoveMember removes a member while the pool is still forming.
func (e *Engine) RemoveMember(ctx context.Context, poolID, memberID string) error {
	return e.withPool(ctx, "remove_member", poolID, func(pool *models.Pool) ([]event.Event, error) {
		if err := membership.Remove(pool, memberID); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.TypeMemberRemoved, pool.ID, pool.TenantID, memberID, nil)}, nil
	})
}
