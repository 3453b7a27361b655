package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. The pools table carries
// the optimistic-concurrency version column; child tables are replaced
// wholesale inside the same transaction on every save.
const schema = `
CREATE TABLE IF NOT EXISTS pools (
    id TEXT PRIMARY KEY,
    number TEXT NOT NULL,
    name TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    open_for_membership INTEGER NOT NULL,
    total_capacity INTEGER NOT NULL,
    committed_capacity INTEGER NOT NULL,
    minimum_members INTEGER NOT NULL,
    maximum_members INTEGER NOT NULL,
    member_count INTEGER NOT NULL,
    distribution_method TEXT NOT NULL,
    interest_rate_bps INTEGER NOT NULL,
    repaid_amount INTEGER NOT NULL,
    outstanding_amount INTEGER NOT NULL,
    cancel_reason TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    pool_id TEXT NOT NULL,
    id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    status TEXT NOT NULL,
    commitment INTEGER NOT NULL,
    amount_drawn INTEGER NOT NULL,
    amount_repaid INTEGER NOT NULL,
    outstanding INTEGER NOT NULL,
    position INTEGER NOT NULL,
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (pool_id, id),
    FOREIGN KEY (pool_id) REFERENCES pools(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS allocations (
    pool_id TEXT NOT NULL,
    id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    status TEXT NOT NULL,
    principal INTEGER NOT NULL,
    surcharge INTEGER NOT NULL,
    total_repayable INTEGER NOT NULL,
    amount_settled INTEGER NOT NULL,
    overpayment INTEGER NOT NULL,
    term_months INTEGER NOT NULL,
    next_payment_due INTEGER NOT NULL,
    overdue INTEGER NOT NULL,
    written_off INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (pool_id, id),
    FOREIGN KEY (pool_id) REFERENCES pools(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS member_shares (
    pool_id TEXT NOT NULL,
    allocation_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    allocated_amount INTEGER NOT NULL,
    surcharge_share INTEGER NOT NULL,
    total_due INTEGER NOT NULL,
    settled INTEGER NOT NULL,
    PRIMARY KEY (pool_id, allocation_id, member_id),
    FOREIGN KEY (pool_id) REFERENCES pools(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pools_tenant_id ON pools(tenant_id);
CREATE INDEX IF NOT EXISTS idx_members_pool_id ON members(pool_id);
CREATE INDEX IF NOT EXISTS idx_allocations_pool_id ON allocations(pool_id);
CREATE INDEX IF NOT EXISTS idx_member_shares_allocation ON member_shares(pool_id, allocation_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
