package models

// MemberStatus is the membership sub-state, independent of the owning
// pool's lifecycle status.
type MemberStatus string

const (
	MemberPending   MemberStatus = "pending"
	MemberApproved  MemberStatus = "approved"
	MemberActive    MemberStatus = "active"
	MemberSuspended MemberStatus = "suspended"
	MemberRemoved   MemberStatus = "removed"
)

// Member is one participant in a pool. It references an external
// customer only by ID plus a display-name snapshot taken at join time;
// the engine never performs live customer lookups afterward.
type Member struct {
	// ID is the unique identifier (UUID format).
	ID string

	// CustomerID references the external customer record.
	CustomerID string

	// DisplayName is the customer's name as of join time (denormalized).
	DisplayName string

	Status MemberStatus

	// Commitment is the amount pledged or capacity reserved, in minor
	// units. Used as the weight under pro-rata distribution.
	Commitment Money

	// Running totals, kept consistent with the member's allocations and
	// shares inside the same commit.
	AmountDrawn  Money
	AmountRepaid Money
	Outstanding  Money

	// Position is the stable join-order sort key. It orders participants
	// for distribution, which makes remainder assignment deterministic.
	Position int

	JoinedAt int64
}

// CanParticipate reports whether the member may take part in
// allocations and share distributions.
func (m *Member) CanParticipate() bool {
	return m.Status == MemberApproved || m.Status == MemberActive
}
