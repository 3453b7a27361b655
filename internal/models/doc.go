// Package models defines the core domain model for the pool engine.
//
// A Pool is the aggregate root: it exclusively owns its Member and
// Allocation records, and an Allocation owns its MemberShare records.
// Cross-references between owned records are by ID, never by pointer,
// to keep the ownership graph acyclic.
//
// All monetary values are Money: integer currency minor units (cents).
// Floating point is never used for money.
//
// Mutations happen only through the component packages (lifecycle,
// membership, ledger, distribution, repayment), orchestrated by the
// engine package. Nothing outside those packages should write to
// capacity or counter fields directly.
package models
