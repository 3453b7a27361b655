package distribution

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tossware/poolengine/internal/models"
)

func participants(ids ...string) []Participant {
	ps := make([]Participant, len(ids))
	for i, id := range ids {
		ps[i] = Participant{MemberID: id}
	}
	return ps
}

func sumTotalDue(shares []models.MemberShare) models.Money {
	var sum models.Money
	for _, sh := range shares {
		sum += sh.TotalDue
	}
	return sum
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name         string
		method       models.DistributionMethod
		gross        models.Money
		surcharge    models.Money
		participants []Participant
		wantErr      error
		validateFunc func(t *testing.T, shares []models.MemberShare)
	}{
		{
			name:         "equal split divides evenly",
			method:       models.DistributeEqual,
			gross:        4600,
			participants: participants("alice", "bob"),
			validateFunc: func(t *testing.T, shares []models.MemberShare) {
				for _, sh := range shares {
					if sh.TotalDue != 2300 {
						t.Errorf("%s total due = %d, want 2300", sh.MemberID, sh.TotalDue)
					}
				}
			},
		},
		{
			name:         "equal split remainder goes to first member",
			method:       models.DistributeEqual,
			gross:        1000,
			participants: participants("alice", "bob", "carol"),
			validateFunc: func(t *testing.T, shares []models.MemberShare) {
				want := []models.Money{334, 333, 333}
				for i, sh := range shares {
					if sh.TotalDue != want[i] {
						t.Errorf("share %d (%s) = %d, want %d", i, sh.MemberID, sh.TotalDue, want[i])
					}
				}
				if sum := sumTotalDue(shares); sum != 1000 {
					t.Errorf("sum = %d, want exactly 1000", sum)
				}
			},
		},
		{
			name:      "pro rata weights by commitment",
			method:    models.DistributeProRata,
			gross:     9000,
			participants: []Participant{
				{MemberID: "alice", Weight: 2000},
				{MemberID: "bob", Weight: 1000},
			},
			validateFunc: func(t *testing.T, shares []models.MemberShare) {
				if shares[0].TotalDue != 6000 {
					t.Errorf("alice = %d, want 6000", shares[0].TotalDue)
				}
				if shares[1].TotalDue != 3000 {
					t.Errorf("bob = %d, want 3000", shares[1].TotalDue)
				}
			},
		},
		{
			name:      "surcharge distributed independently and added",
			method:    models.DistributeQuantityWeighted,
			gross:     1000,
			surcharge: 100,
			participants: []Participant{
				{MemberID: "alice", Weight: 3},
				{MemberID: "bob", Weight: 3},
				{MemberID: "carol", Weight: 3},
			},
			validateFunc: func(t *testing.T, shares []models.MemberShare) {
				// 1000/3 floors to 333 and 100/3 floors to 33; both
				// remainders land on the first participant.
				if shares[0].AllocatedAmount != 334 || shares[0].SurchargeShare != 34 {
					t.Errorf("alice = %d + %d, want 334 + 34", shares[0].AllocatedAmount, shares[0].SurchargeShare)
				}
				if sum := sumTotalDue(shares); sum != 1100 {
					t.Errorf("sum = %d, want exactly 1100", sum)
				}
			},
		},
		{
			name:      "zero-weight participant gets nothing",
			method:    models.DistributeProRata,
			gross:     500,
			participants: []Participant{
				{MemberID: "alice", Weight: 5},
				{MemberID: "bob", Weight: 0},
			},
			validateFunc: func(t *testing.T, shares []models.MemberShare) {
				if shares[1].TotalDue != 0 {
					t.Errorf("bob = %d, want 0", shares[1].TotalDue)
				}
				if shares[0].TotalDue != 500 {
					t.Errorf("alice = %d, want 500", shares[0].TotalDue)
				}
			},
		},
		{
			name:         "no participants",
			method:       models.DistributeEqual,
			gross:        1000,
			participants: nil,
			wantErr:      models.ErrNoParticipants,
		},
		{
			name:   "zero total weight under pro rata",
			method: models.DistributeProRata,
			gross:  1000,
			participants: []Participant{
				{MemberID: "alice", Weight: 0},
				{MemberID: "bob", Weight: 0},
			},
			wantErr: models.ErrZeroTotalWeight,
		},
		{
			name:         "negative amount rejected",
			method:       models.DistributeEqual,
			gross:        -100,
			participants: participants("alice"),
			wantErr:      models.ErrPreconditionNotMet,
		},
		{
			name:         "unknown method rejected",
			method:       models.DistributionMethod("bogus"),
			gross:        100,
			participants: participants("alice"),
			wantErr:      models.ErrPreconditionNotMet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Split(tt.method, tt.gross, tt.surcharge, tt.participants)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Split() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if sum := sumTotalDue(shares); sum != tt.gross+tt.surcharge {
				t.Errorf("sum of shares = %d, want exactly %d", sum, tt.gross+tt.surcharge)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, shares)
			}
		})
	}
}

func TestSplitDeterministic(t *testing.T) {
	ps := []Participant{
		{MemberID: "alice", Weight: 7},
		{MemberID: "bob", Weight: 11},
		{MemberID: "carol", Weight: 13},
	}
	first, err := Split(models.DistributeQuantityWeighted, 99999, 777, ps)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Split(models.DistributeQuantityWeighted, 99999, 777, ps)
		if err != nil {
			t.Fatalf("Split() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("split not reproducible: %v vs %v", first, again)
		}
	}
}
