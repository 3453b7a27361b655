// Package distribution splits an allocation total across member
// shares. All math is integer minor-unit arithmetic; the rounding
// remainder always goes to the first participant, so the same input
// always produces the same split.
package distribution

import (
	"fmt"

	"github.com/tossware/poolengine/internal/models"
)

// Participant is one member taking part in a split, with the weight
// the configured method assigns to it (commitment, quantity, or 1).
// Participants must be supplied in stable order (join position); the
// first one receives any rounding remainder.
type Participant struct {
	MemberID string
	Weight   int64
}

// Split computes member shares for the given gross total and
// surcharge. Gross and surcharge are distributed independently by the
// same method and summed into TotalDue, so each part rounds on its
// own. The shares sum exactly to gross + surcharge.
func Split(method models.DistributionMethod, gross, surcharge models.Money, participants []Participant) ([]models.MemberShare, error) {
	if len(participants) == 0 {
		return nil, models.ErrNoParticipants
	}
	if gross < 0 || surcharge < 0 {
		return nil, fmt.Errorf("%w: negative amount", models.ErrPreconditionNotMet)
	}

	weights := make([]int64, len(participants))
	switch method {
	case models.DistributeEqual:
		for i := range weights {
			weights[i] = 1
		}
	case models.DistributeProRata, models.DistributeQuantityWeighted:
		var total int64
		for i, p := range participants {
			if p.Weight < 0 {
				return nil, fmt.Errorf("%w: negative weight for member %s", models.ErrPreconditionNotMet, p.MemberID)
			}
			weights[i] = p.Weight
			total += p.Weight
		}
		if total == 0 {
			return nil, models.ErrZeroTotalWeight
		}
	default:
		return nil, fmt.Errorf("%w: unknown distribution method %q", models.ErrPreconditionNotMet, method)
	}

	grossShares := distribute(gross, weights)
	surchargeShares := distribute(surcharge, weights)

	shares := make([]models.MemberShare, len(participants))
	for i, p := range participants {
		shares[i] = models.MemberShare{
			MemberID:        p.MemberID,
			AllocatedAmount: grossShares[i],
			SurchargeShare:  surchargeShares[i],
			TotalDue:        grossShares[i] + surchargeShares[i],
		}
	}
	return shares, nil
}

// distribute splits total by weight, rounding each share down and
// assigning the whole remainder to index 0. Callers guarantee at least
// one weight is positive.
func distribute(total models.Money, weights []int64) []models.Money {
	var sum int64
	for _, w := range weights {
		sum += w
	}

	shares := make([]models.Money, len(weights))
	var distributed models.Money
	for i, w := range weights {
		shares[i] = models.Money(int64(total) * w / sum)
		distributed += shares[i]
	}
	shares[0] += total - distributed
	return shares
}
