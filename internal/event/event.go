// Package event defines the structured domain events the engine hands
// to the sink collaborator after each successful commit. Events
// represent facts that have occurred, never commands. Delivery and
// retry are the sink's responsibility.
package event

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// SchemaVersion is stamped on every event so consumers can evolve
// alongside the payload shape.
const SchemaVersion = 1

// Type identifies the kind of a domain event.
type Type string

// Pool lifecycle events.
const (
	TypePoolCreated   Type = "pool.created"
	TypePoolActivated Type = "pool.activated"
	TypePoolAdvanced  Type = "pool.advanced"
	TypePoolSuspended Type = "pool.suspended"
	TypePoolResumed   Type = "pool.resumed"
	TypePoolClosed    Type = "pool.closed"
	TypePoolCancelled Type = "pool.cancelled"
)

// Membership events.
const (
	TypeMemberJoined    Type = "member.joined"
	TypeMemberApproved  Type = "member.approved"
	TypeMemberSuspended Type = "member.suspended"
	TypeMemberRemoved   Type = "member.removed"
)

// Capacity and allocation events.
const (
	TypeCapacityReserved     Type = "capacity.reserved"
	TypeCapacityReleased     Type = "capacity.released"
	TypeSharesDistributed    Type = "allocation.shares_distributed"
	TypeShareSettled         Type = "allocation.share_settled"
	TypePaymentApplied       Type = "allocation.payment_applied"
	TypeAllocationClosed     Type = "allocation.closed"
	TypeAllocationOverdue    Type = "allocation.overdue"
	TypeAllocationDefaulted  Type = "allocation.defaulted"
	TypeAllocationWrittenOff Type = "allocation.written_off"
)

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g. "pool").
func (t Type) Domain() string {
	if i := strings.IndexByte(string(t), '.'); i >= 0 {
		return string(t[:i])
	}
	return string(t)
}

// Event is one immutable domain event.
type Event struct {
	// SchemaVersion is the payload schema version.
	SchemaVersion int
	// Type identifies the kind of event.
	Type Type
	// PoolID is the pool the event belongs to.
	PoolID string
	// TenantID is the opaque tenant identifier of the pool.
	TenantID string
	// EntityID is the member or allocation affected, if any.
	EntityID string
	// OccurredAt is when the event occurred.
	OccurredAt time.Time
	// Payload holds event-specific data.
	Payload map[string]any
}

// New builds an event with the schema version and timestamp filled in.
func New(t Type, poolID, tenantID, entityID string, payload map[string]any) Event {
	return Event{
		SchemaVersion: SchemaVersion,
		Type:          t,
		PoolID:        poolID,
		TenantID:      tenantID,
		EntityID:      entityID,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}
}

// Sink receives events emitted after a successful commit.
type Sink interface {
	Publish(ctx context.Context, events []Event)
}

// LogSink writes events to the default slog logger. It is the sink
// used by the server binary when no external delivery is wired.
type LogSink struct{}

// Publish logs each event at info level.
func (LogSink) Publish(_ context.Context, events []Event) {
	for _, e := range events {
		slog.Info("domain event",
			"type", e.Type,
			"schema_version", e.SchemaVersion,
			"pool_id", e.PoolID,
			"tenant_id", e.TenantID,
			"entity_id", e.EntityID,
			"payload", e.Payload,
		)
	}
}
