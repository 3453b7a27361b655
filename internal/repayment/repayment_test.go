package repayment

import (
	"errors"
	"testing"
	"time"

	"github.com/tossware/poolengine/internal/models"
)

func poolWithLoan(total models.Money) *models.Pool {
	return &models.Pool{
		ID:                "pool-1",
		Kind:              models.KindCredit,
		Status:            models.PoolActive,
		CommittedCapacity: total,
		OutstandingAmount: total,
		Members: []models.Member{
			{ID: "m-1", Status: models.MemberActive, AmountDrawn: total, Outstanding: total},
		},
		Allocations: []models.Allocation{
			{ID: "a-1", MemberID: "m-1", Status: models.AllocationDisbursed,
				Principal: total, TotalRepayable: total},
		},
	}
}

func TestApplyPayment(t *testing.T) {
	t.Run("two payments close the allocation once", func(t *testing.T) {
		pool := poolWithLoan(100000)

		res, err := ApplyPayment(pool, "a-1", 60000)
		if err != nil {
			t.Fatalf("ApplyPayment() error = %v", err)
		}
		if res.Closed || res.Applied != 60000 {
			t.Errorf("first payment = %+v", res)
		}
		if pool.Allocation("a-1").OutstandingBalance() != 40000 {
			t.Errorf("outstanding = %d, want 40000", pool.Allocation("a-1").OutstandingBalance())
		}

		res, err = ApplyPayment(pool, "a-1", 40000)
		if err != nil {
			t.Fatalf("ApplyPayment() error = %v", err)
		}
		if !res.Closed {
			t.Error("expected allocation closed by final payment")
		}
		alloc := pool.Allocation("a-1")
		if alloc.Status != models.AllocationClosed || alloc.OutstandingBalance() != 0 {
			t.Errorf("allocation = %s outstanding %d", alloc.Status, alloc.OutstandingBalance())
		}

		// A third payment must not re-open it.
		if _, err := ApplyPayment(pool, "a-1", 100); !errors.Is(err, models.ErrOperationNotAllowedInState) {
			t.Errorf("payment on closed allocation error = %v, want operation not allowed", err)
		}
	})

	t.Run("pool aggregates reconcile with the allocation", func(t *testing.T) {
		pool := poolWithLoan(100000)
		if _, err := ApplyPayment(pool, "a-1", 25000); err != nil {
			t.Fatalf("ApplyPayment() error = %v", err)
		}
		if pool.RepaidAmount != 25000 || pool.OutstandingAmount != 75000 {
			t.Errorf("pool repaid/outstanding = %d/%d, want 25000/75000", pool.RepaidAmount, pool.OutstandingAmount)
		}
		member := pool.Member("m-1")
		if member.AmountRepaid != 25000 || member.Outstanding != 75000 {
			t.Errorf("member repaid/outstanding = %d/%d, want 25000/75000", member.AmountRepaid, member.Outstanding)
		}
	})

	t.Run("overpayment is recorded, not discarded", func(t *testing.T) {
		pool := poolWithLoan(100000)
		res, err := ApplyPayment(pool, "a-1", 120000)
		if err != nil {
			t.Fatalf("ApplyPayment() error = %v", err)
		}
		if res.Applied != 100000 || res.Overpayment != 20000 || !res.Closed {
			t.Errorf("result = %+v", res)
		}
		alloc := pool.Allocation("a-1")
		if alloc.AmountSettled != 100000 || alloc.Overpayment != 20000 {
			t.Errorf("settled/overpayment = %d/%d", alloc.AmountSettled, alloc.Overpayment)
		}
		// Only the applied portion hits the aggregates.
		if pool.RepaidAmount != 100000 || pool.OutstandingAmount != 0 {
			t.Errorf("pool repaid/outstanding = %d/%d", pool.RepaidAmount, pool.OutstandingAmount)
		}
	})

	t.Run("guards", func(t *testing.T) {
		pool := poolWithLoan(1000)
		if _, err := ApplyPayment(pool, "a-1", 0); !errors.Is(err, models.ErrPreconditionNotMet) {
			t.Errorf("zero amount error = %v", err)
		}
		if _, err := ApplyPayment(pool, "a-1", -10); !errors.Is(err, models.ErrPreconditionNotMet) {
			t.Errorf("negative amount error = %v", err)
		}
		if _, err := ApplyPayment(pool, "missing", 10); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("missing allocation error = %v", err)
		}
	})
}

func TestOverdueAndDefault(t *testing.T) {
	due := time.Unix(1756500000, 0)

	newPool := func() *models.Pool {
		pool := poolWithLoan(50000)
		pool.Allocations[0].NextPaymentDue = due.Unix()
		return pool
	}

	t.Run("overdue requires the due date to have passed", func(t *testing.T) {
		pool := newPool()
		if err := MarkOverdue(pool, "a-1", due.Add(-time.Hour)); !errors.Is(err, models.ErrPreconditionNotMet) {
			t.Fatalf("early MarkOverdue() error = %v", err)
		}
		if err := MarkOverdue(pool, "a-1", due.Add(time.Hour)); err != nil {
			t.Fatalf("MarkOverdue() error = %v", err)
		}
		if !pool.Allocation("a-1").Overdue {
			t.Error("expected allocation flagged overdue")
		}
	})

	t.Run("payment clears the overdue flag", func(t *testing.T) {
		pool := newPool()
		if err := MarkOverdue(pool, "a-1", due.Add(time.Hour)); err != nil {
			t.Fatalf("MarkOverdue() error = %v", err)
		}
		if _, err := ApplyPayment(pool, "a-1", 1000); err != nil {
			t.Fatalf("ApplyPayment() error = %v", err)
		}
		if pool.Allocation("a-1").Overdue {
			t.Error("expected overdue flag cleared by payment")
		}
	})

	t.Run("default requires overdue and stops payments", func(t *testing.T) {
		pool := newPool()
		if err := MarkDefaulted(pool, "a-1"); !errors.Is(err, models.ErrPreconditionNotMet) {
			t.Fatalf("MarkDefaulted() before overdue error = %v", err)
		}
		if err := MarkOverdue(pool, "a-1", due.Add(time.Hour)); err != nil {
			t.Fatalf("MarkOverdue() error = %v", err)
		}
		if err := MarkDefaulted(pool, "a-1"); err != nil {
			t.Fatalf("MarkDefaulted() error = %v", err)
		}
		if pool.Allocation("a-1").Status != models.AllocationDefaulted {
			t.Errorf("status = %s, want defaulted", pool.Allocation("a-1").Status)
		}
		if _, err := ApplyPayment(pool, "a-1", 1000); !errors.Is(err, models.ErrOperationNotAllowedInState) {
			t.Errorf("payment on defaulted allocation error = %v", err)
		}
	})
}

func TestWriteOff(t *testing.T) {
	due := time.Unix(1756500000, 0)
	pool := poolWithLoan(50000)
	pool.Allocations[0].NextPaymentDue = due.Unix()

	if _, err := WriteOff(pool, "a-1"); !errors.Is(err, models.ErrOperationNotAllowedInState) {
		t.Fatalf("WriteOff() before default error = %v", err)
	}

	if _, err := ApplyPayment(pool, "a-1", 20000); err != nil {
		t.Fatalf("ApplyPayment() error = %v", err)
	}
	if err := MarkOverdue(pool, "a-1", due.Add(time.Hour)); err != nil {
		t.Fatalf("MarkOverdue() error = %v", err)
	}
	if err := MarkDefaulted(pool, "a-1"); err != nil {
		t.Fatalf("MarkDefaulted() error = %v", err)
	}

	released, err := WriteOff(pool, "a-1")
	if err != nil {
		t.Fatalf("WriteOff() error = %v", err)
	}
	if released != 50000 {
		t.Errorf("released = %d, want principal 50000", released)
	}
	if pool.OutstandingAmount != 0 {
		t.Errorf("pool outstanding = %d, want 0 after write-off", pool.OutstandingAmount)
	}
	if pool.Member("m-1").Outstanding != 0 {
		t.Errorf("member outstanding = %d, want 0", pool.Member("m-1").Outstanding)
	}

	if _, err := WriteOff(pool, "a-1"); !errors.Is(err, models.ErrOperationNotAllowedInState) {
		t.Errorf("second WriteOff() error = %v, want operation not allowed", err)
	}
}
