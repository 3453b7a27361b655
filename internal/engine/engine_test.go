package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tossware/poolengine/internal/models"
	"github.com/tossware/poolengine/internal/storage/sqlite"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "pools.db"))
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := StaticDirectory{"cust-1": "Alice", "cust-2": "Bob", "cust-3": "Carol"}
	return New(store, nil, dir, opts...)
}

func TestCreditPoolEndToEnd(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	pool, err := e.CreatePool(ctx, CreatePoolInput{
		TenantID:        "tenant-1",
		Name:            "Working Capital",
		Kind:            models.KindCredit,
		TotalCapacity:   100000,
		MinimumMembers:  1,
		MaximumMembers:  5,
		InterestRateBps: 500,
	})
	if err != nil {
		t.Fatalf("CreatePool() error = %v", err)
	}
	if pool.Status != models.PoolForming || !pool.OpenForMembership {
		t.Fatalf("new pool = %s open=%v", pool.Status, pool.OpenForMembership)
	}

	member, err := e.Join(ctx, pool.ID, "cust-1", 0)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if member.Status != models.MemberPending || member.DisplayName != "Alice" {
		t.Fatalf("member = %s %q, want pending Alice", member.Status, member.DisplayName)
	}
	if err := e.ApproveMember(ctx, pool.ID, member.ID); err != nil {
		t.Fatalf("ApproveMember() error = %v", err)
	}
	if err := e.ActivatePool(ctx, pool.ID); err != nil {
		t.Fatalf("ActivatePool() error = %v", err)
	}

	alloc, err := e.Reserve(ctx, pool.ID, ReserveInput{MemberID: member.ID, Principal: 40000, TermMonths: 12})
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if alloc.Status != models.AllocationDisbursed || alloc.TotalRepayable != 42000 {
		t.Fatalf("allocation = %s repayable %d, want disbursed 42000", alloc.Status, alloc.TotalRepayable)
	}

	loaded, err := e.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool() error = %v", err)
	}
	if loaded.AvailableCapacity() != 60000 {
		t.Errorf("available = %d, want 60000", loaded.AvailableCapacity())
	}

	if _, err := e.Reserve(ctx, pool.ID, ReserveInput{MemberID: member.ID, Principal: 70000}); !errors.Is(err, models.ErrInsufficientCapacity) {
		t.Fatalf("Reserve() error = %v, want insufficient capacity", err)
	}

	res, err := e.ApplyPayment(ctx, pool.ID, alloc.ID, 42000)
	if err != nil {
		t.Fatalf("ApplyPayment() error = %v", err)
	}
	if !res.Closed || res.Applied != 42000 {
		t.Fatalf("payment = %+v, want closed full application", res)
	}

	loaded, err = e.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool() error = %v", err)
	}
	if loaded.RepaidAmount != 42000 || loaded.OutstandingAmount != 0 {
		t.Errorf("aggregates = %d/%d, want 42000/0", loaded.RepaidAmount, loaded.OutstandingAmount)
	}
	if loaded.Allocation(alloc.ID).Status != models.AllocationClosed {
		t.Errorf("allocation = %s, want closed", loaded.Allocation(alloc.ID).Status)
	}

	if err := e.ClosePool(ctx, pool.ID); err != nil {
		t.Fatalf("ClosePool() error = %v", err)
	}
}

func TestBuyingGroupDistributeAndSettle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	pool, err := e.CreatePool(ctx, CreatePoolInput{
		TenantID:       "tenant-1",
		Name:           "Bulk Order",
		Kind:           models.KindBuying,
		TotalCapacity:  10000,
		MinimumMembers: 3,
		MaximumMembers: 5,
	})
	if err != nil {
		t.Fatalf("CreatePool() error = %v", err)
	}

	var memberIDs []string
	for _, c := range []string{"cust-1", "cust-2", "cust-3"} {
		m, err := e.Join(ctx, pool.ID, c, 0)
		if err != nil {
			t.Fatalf("Join(%s) error = %v", c, err)
		}
		memberIDs = append(memberIDs, m.ID)
	}
	if err := e.ActivatePool(ctx, pool.ID); err != nil {
		t.Fatalf("ActivatePool() error = %v", err)
	}

	alloc, err := e.Reserve(ctx, pool.ID, ReserveInput{MemberID: memberIDs[0], Principal: 1000})
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if alloc.Status != models.AllocationOrdered {
		t.Fatalf("allocation = %s, want ordered", alloc.Status)
	}

	if err := e.DistributeShares(ctx, pool.ID, alloc.ID, nil); err != nil {
		t.Fatalf("DistributeShares() error = %v", err)
	}
	loaded, err := e.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool() error = %v", err)
	}
	shares := loaded.Allocation(alloc.ID).Shares
	if len(shares) != 3 {
		t.Fatalf("shares = %d, want 3", len(shares))
	}
	want := []models.Money{334, 333, 333}
	for i, sh := range shares {
		if sh.TotalDue != want[i] {
			t.Errorf("share %d = %d, want %d", i, sh.TotalDue, want[i])
		}
	}
	if loaded.Allocation(alloc.ID).Status != models.AllocationActive {
		t.Errorf("allocation = %s after distribution, want active", loaded.Allocation(alloc.ID).Status)
	}

	if err := e.DistributeShares(ctx, pool.ID, alloc.ID, nil); !errors.Is(err, models.ErrOperationNotAllowedInState) {
		t.Fatalf("second DistributeShares() error = %v, want operation not allowed", err)
	}

	for _, sh := range shares {
		if err := e.SettleShare(ctx, pool.ID, alloc.ID, sh.MemberID); err != nil {
			t.Fatalf("SettleShare(%s) error = %v", sh.MemberID, err)
		}
	}
	loaded, err = e.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool() error = %v", err)
	}
	if loaded.Allocation(alloc.ID).Status != models.AllocationClosed {
		t.Errorf("allocation = %s after all settlements, want closed", loaded.Allocation(alloc.ID).Status)
	}
	if loaded.Allocation(alloc.ID).OutstandingBalance() != 0 {
		t.Errorf("outstanding = %d, want 0", loaded.Allocation(alloc.ID).OutstandingBalance())
	}

	if err := e.SettleShare(ctx, pool.ID, alloc.ID, memberIDs[0]); !errors.Is(err, models.ErrOperationNotAllowedInState) {
		t.Errorf("re-settling error = %v, want operation not allowed", err)
	}
}

func TestActivateNotIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	pool, err := e.CreatePool(ctx, CreatePoolInput{
		TenantID:       "tenant-1",
		Name:           "Once Only",
		Kind:           models.KindCredit,
		TotalCapacity:  1000,
		MaximumMembers: 5,
	})
	if err != nil {
		t.Fatalf("CreatePool() error = %v", err)
	}
	if err := e.ActivatePool(ctx, pool.ID); err != nil {
		t.Fatalf("ActivatePool() error = %v", err)
	}

	before, err := e.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool() error = %v", err)
	}
	if err := e.ActivatePool(ctx, pool.ID); !errors.Is(err, models.ErrInvalidStateTransition) {
		t.Fatalf("second ActivatePool() error = %v, want invalid state transition", err)
	}
	after, err := e.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool() error = %v", err)
	}
	if after.Status != models.PoolActive || after.Version != before.Version {
		t.Errorf("pool = %s v%d, want active v%d unchanged by failed call", after.Status, after.Version, before.Version)
	}
}

// Concurrent reservations must never over-commit. With every request
// the same size, the number of winners is fixed by the capacity.
func TestConcurrentReserves(t *testing.T) {
	e := newTestEngine(t, WithLockWait(10*time.Second))
	ctx := context.Background()

	setup := func(capacity models.Money) (string, string) {
		pool, err := e.CreatePool(ctx, CreatePoolInput{
			TenantID:       "tenant-1",
			Name:           "Contended",
			Kind:           models.KindCredit,
			TotalCapacity:  capacity,
			MaximumMembers: 5,
		})
		if err != nil {
			t.Fatalf("CreatePool() error = %v", err)
		}
		member, err := e.Join(ctx, pool.ID, "cust-1", 0)
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if err := e.ApproveMember(ctx, pool.ID, member.ID); err != nil {
			t.Fatalf("ApproveMember() error = %v", err)
		}
		if err := e.ActivatePool(ctx, pool.ID); err != nil {
			t.Fatalf("ActivatePool() error = %v", err)
		}
		return pool.ID, member.ID
	}

	run := func(poolID, memberID string, n int, amount models.Money) (successes int, rejections int) {
		errs := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.Reserve(ctx, poolID, ReserveInput{MemberID: memberID, Principal: amount})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrInsufficientCapacity):
				rejections++
			default:
				t.Errorf("Reserve() unexpected error = %v", err)
			}
		}
		return successes, rejections
	}

	t.Run("two callers over half the capacity each", func(t *testing.T) {
		poolID, memberID := setup(100000)
		successes, rejections := run(poolID, memberID, 2, 50001)
		if successes != 1 || rejections != 1 {
			t.Fatalf("successes/rejections = %d/%d, want 1/1", successes, rejections)
		}
	})

	t.Run("eight callers just over a fair share each", func(t *testing.T) {
		const n = 8
		poolID, memberID := setup(100000)
		amount := models.Money(100000/n + 1)
		successes, rejections := run(poolID, memberID, n, amount)
		if successes+rejections != n {
			t.Fatalf("accounted calls = %d, want %d", successes+rejections, n)
		}

		pool, err := e.GetPool(ctx, poolID)
		if err != nil {
			t.Fatalf("GetPool() error = %v", err)
		}
		if pool.CommittedCapacity > pool.TotalCapacity {
			t.Fatalf("over-commit: committed %d of %d", pool.CommittedCapacity, pool.TotalCapacity)
		}
		if pool.CommittedCapacity != models.Money(successes)*amount {
			t.Errorf("committed = %d, want %d successful reservations of %d",
				pool.CommittedCapacity, successes, amount)
		}
		// 12501 fits seven times into 100000, never eight.
		if successes != 7 {
			t.Errorf("successes = %d, want 7", successes)
		}
	})
}
