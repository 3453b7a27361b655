// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tossware/poolengine/internal/models"
	"github.com/tossware/poolengine/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialized writer: the engine also serializes per pool, but the
	// version check is the final guard and must see committed state.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePool persists a new pool aggregate at version 1.
func (s *SQLiteStore) CreatePool(ctx context.Context, pool *models.Pool) error {
	if pool.CreatedAt == 0 {
		pool.CreatedAt = time.Now().Unix()
	}
	pool.UpdatedAt = pool.CreatedAt
	pool.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertPoolRow(ctx, tx, pool); err != nil {
		return err
	}
	if err := insertChildren(ctx, tx, pool); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadPool retrieves a pool with all owned members, allocations and shares.
func (s *SQLiteStore) LoadPool(ctx context.Context, poolID string) (*models.Pool, error) {
	pool := &models.Pool{}
	var open int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, number, name, tenant_id, kind, status, open_for_membership,
		        total_capacity, committed_capacity, minimum_members, maximum_members,
		        member_count, distribution_method, interest_rate_bps, repaid_amount,
		        outstanding_amount, cancel_reason, version, created_at, updated_at
		 FROM pools WHERE id = ?`, poolID,
	).Scan(&pool.ID, &pool.Number, &pool.Name, &pool.TenantID, &pool.Kind, &pool.Status, &open,
		&pool.TotalCapacity, &pool.CommittedCapacity, &pool.MinimumMembers, &pool.MaximumMembers,
		&pool.MemberCount, &pool.DistributionMethod, &pool.InterestRateBps, &pool.RepaidAmount,
		&pool.OutstandingAmount, &pool.CancelReason, &pool.Version, &pool.CreatedAt, &pool.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pool %s", models.ErrNotFound, poolID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	pool.OpenForMembership = open != 0

	if err := s.loadMembers(ctx, pool); err != nil {
		return nil, err
	}
	if err := s.loadAllocations(ctx, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, pool *models.Pool) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, display_name, status, commitment, amount_drawn,
		        amount_repaid, outstanding, position, joined_at
		 FROM members WHERE pool_id = ? ORDER BY position`, pool.ID)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.CustomerID, &m.DisplayName, &m.Status, &m.Commitment,
			&m.AmountDrawn, &m.AmountRepaid, &m.Outstanding, &m.Position, &m.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		pool.Members = append(pool.Members, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadAllocations(ctx context.Context, pool *models.Pool) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, status, principal, surcharge, total_repayable,
		        amount_settled, overpayment, term_months, next_payment_due,
		        overdue, written_off, created_at
		 FROM allocations WHERE pool_id = ? ORDER BY created_at, id`, pool.ID)
	if err != nil {
		return fmt.Errorf("failed to get allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Allocation
		var overdue, writtenOff int
		if err := rows.Scan(&a.ID, &a.MemberID, &a.Status, &a.Principal, &a.Surcharge,
			&a.TotalRepayable, &a.AmountSettled, &a.Overpayment, &a.TermMonths,
			&a.NextPaymentDue, &overdue, &writtenOff, &a.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.Overdue = overdue != 0
		a.WrittenOff = writtenOff != 0
		pool.Allocations = append(pool.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate allocations: %w", err)
	}

	shareRows, err := s.db.QueryContext(ctx,
		`SELECT allocation_id, member_id, allocated_amount, surcharge_share, total_due, settled
		 FROM member_shares WHERE pool_id = ?`, pool.ID)
	if err != nil {
		return fmt.Errorf("failed to get member shares: %w", err)
	}
	defer shareRows.Close()

	byAlloc := make(map[string][]models.MemberShare)
	for shareRows.Next() {
		var allocID string
		var sh models.MemberShare
		var settled int
		if err := shareRows.Scan(&allocID, &sh.MemberID, &sh.AllocatedAmount,
			&sh.SurchargeShare, &sh.TotalDue, &settled); err != nil {
			return fmt.Errorf("failed to scan member share: %w", err)
		}
		sh.Settled = settled != 0
		byAlloc[allocID] = append(byAlloc[allocID], sh)
	}
	if err := shareRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate member shares: %w", err)
	}

	for i := range pool.Allocations {
		shares := byAlloc[pool.Allocations[i].ID]
		// Share order must match member join order for deterministic
		// remainder assignment on re-distribution.
		sort.SliceStable(shares, func(x, y int) bool {
			mx, my := pool.Member(shares[x].MemberID), pool.Member(shares[y].MemberID)
			if mx == nil || my == nil {
				return shares[x].MemberID < shares[y].MemberID
			}
			return mx.Position < my.Position
		})
		pool.Allocations[i].Shares = shares
	}
	return nil
}

// SavePoolAtomic persists the whole aggregate in one transaction,
// accepted only if the stored version still equals expectedVersion.
func (s *SQLiteStore) SavePoolAtomic(ctx context.Context, pool *models.Pool, expectedVersion int64) error {
	pool.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE pools SET number = ?, name = ?, tenant_id = ?, kind = ?, status = ?,
		        open_for_membership = ?, total_capacity = ?, committed_capacity = ?,
		        minimum_members = ?, maximum_members = ?, member_count = ?,
		        distribution_method = ?, interest_rate_bps = ?, repaid_amount = ?,
		        outstanding_amount = ?, cancel_reason = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		pool.Number, pool.Name, pool.TenantID, pool.Kind, pool.Status,
		boolToInt(pool.OpenForMembership), pool.TotalCapacity, pool.CommittedCapacity,
		pool.MinimumMembers, pool.MaximumMembers, pool.MemberCount,
		pool.DistributionMethod, pool.InterestRateBps, pool.RepaidAmount,
		pool.OutstandingAmount, pool.CancelReason, expectedVersion+1, pool.UpdatedAt,
		pool.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update pool: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM pools WHERE id = ?", pool.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: pool %s", models.ErrNotFound, pool.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to check pool existence: %w", err)
		}
		return fmt.Errorf("%w: pool %s version %d", models.ErrConflict, pool.ID, expectedVersion)
	}

	// Replace owned records wholesale. The aggregate is small and owned
	// exclusively by the pool, so diffing buys nothing.
	for _, table := range []string{"member_shares", "allocations", "members"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE pool_id = ?", pool.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := insertChildren(ctx, tx, pool); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	pool.Version = expectedVersion + 1
	return nil
}

// ListPools returns the pools for a tenant, without owned records.
func (s *SQLiteStore) ListPools(ctx context.Context, tenantID string) ([]*models.Pool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, name, tenant_id, kind, status, open_for_membership,
		        total_capacity, committed_capacity, minimum_members, maximum_members,
		        member_count, distribution_method, interest_rate_bps, repaid_amount,
		        outstanding_amount, cancel_reason, version, created_at, updated_at
		 FROM pools WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	var pools []*models.Pool
	for rows.Next() {
		pool := &models.Pool{}
		var open int
		if err := rows.Scan(&pool.ID, &pool.Number, &pool.Name, &pool.TenantID, &pool.Kind,
			&pool.Status, &open, &pool.TotalCapacity, &pool.CommittedCapacity,
			&pool.MinimumMembers, &pool.MaximumMembers, &pool.MemberCount,
			&pool.DistributionMethod, &pool.InterestRateBps, &pool.RepaidAmount,
			&pool.OutstandingAmount, &pool.CancelReason, &pool.Version,
			&pool.CreatedAt, &pool.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		pool.OpenForMembership = open != 0
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pools: %w", err)
	}
	return pools, nil
}

func insertPoolRow(ctx context.Context, tx *sql.Tx, pool *models.Pool) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO pools (id, number, name, tenant_id, kind, status, open_for_membership,
		        total_capacity, committed_capacity, minimum_members, maximum_members,
		        member_count, distribution_method, interest_rate_bps, repaid_amount,
		        outstanding_amount, cancel_reason, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pool.ID, pool.Number, pool.Name, pool.TenantID, pool.Kind, pool.Status,
		boolToInt(pool.OpenForMembership), pool.TotalCapacity, pool.CommittedCapacity,
		pool.MinimumMembers, pool.MaximumMembers, pool.MemberCount,
		pool.DistributionMethod, pool.InterestRateBps, pool.RepaidAmount,
		pool.OutstandingAmount, pool.CancelReason, pool.Version, pool.CreatedAt, pool.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}
	return nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, pool *models.Pool) error {
	for i := range pool.Members {
		m := &pool.Members[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO members (pool_id, id, customer_id, display_name, status, commitment,
			        amount_drawn, amount_repaid, outstanding, position, joined_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pool.ID, m.ID, m.CustomerID, m.DisplayName, m.Status, m.Commitment,
			m.AmountDrawn, m.AmountRepaid, m.Outstanding, m.Position, m.JoinedAt)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	for i := range pool.Allocations {
		a := &pool.Allocations[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO allocations (pool_id, id, member_id, status, principal, surcharge,
			        total_repayable, amount_settled, overpayment, term_months,
			        next_payment_due, overdue, written_off, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pool.ID, a.ID, a.MemberID, a.Status, a.Principal, a.Surcharge,
			a.TotalRepayable, a.AmountSettled, a.Overpayment, a.TermMonths,
			a.NextPaymentDue, boolToInt(a.Overdue), boolToInt(a.WrittenOff), a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}

		for j := range a.Shares {
			sh := &a.Shares[j]
			_, err := tx.ExecContext(ctx,
				`INSERT INTO member_shares (pool_id, allocation_id, member_id,
				        allocated_amount, surcharge_share, total_due, settled)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				pool.ID, a.ID, sh.MemberID, sh.AllocatedAmount, sh.SurchargeShare,
				sh.TotalDue, boolToInt(sh.Settled))
			if err != nil {
				return fmt.Errorf("failed to insert member share: %w", err)
			}
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
