// Package seals holds the stamp arithmetic for customer ledgers. It has no
// I/O; callers persist the results.
package seals

import "errors"

var (
	ErrInvalidRequirement = errors.New("required stamps must be positive")
	ErrInvalidDelta       = errors.New("seal delta must be non-zero")
	ErrExceedsCapacity    = errors.New("seal grant exceeds remaining card capacity")
	ErrExceedsRemoval     = errors.New("seal removal exceeds current stamps")
)

// Result is the ledger state after a mutation.
type Result struct {
	NewStamps             int `json:"new_stamps"`
	NewTotalRewardsEarned int `json:"new_total_rewards_earned"`
	RewardsEarnedThisCall int `json:"rewards_earned_this_call"`
}

// ApplyDelta adds (or removes, for negative deltas) stamps on a card and
// rolls full cards over into rewards. A single grant may not push the card
// past requiredStamps; callers cap the grant at requiredStamps-currentStamps.
func ApplyDelta(currentStamps, totalRewardsEarned, requiredStamps, delta int) (Result, error) {
	if requiredStamps <= 0 {
		return Result{}, ErrInvalidRequirement
	}
	if delta == 0 {
		return Result{}, ErrInvalidDelta
	}
	total := currentStamps + delta
	if delta > 0 && total > requiredStamps {
		return Result{}, ErrExceedsCapacity
	}
	if delta < 0 && total < 0 {
		return Result{}, ErrExceedsRemoval
	}

	res := Result{NewTotalRewardsEarned: totalRewardsEarned}
	if delta > 0 && total >= requiredStamps {
		res.RewardsEarnedThisCall = total / requiredStamps
		res.NewStamps = total % requiredStamps
	} else {
		res.NewStamps = max(0, total)
	}
	res.NewTotalRewardsEarned += res.RewardsEarnedThisCall
	return res, nil
}

// FinalizeReward resets the card after an in-person redemption, whatever its
// current stamp count.
func FinalizeReward(totalRewardsEarned int) Result {
	return Result{
		NewStamps:             0,
		NewTotalRewardsEarned: totalRewardsEarned + 1,
		RewardsEarnedThisCall: 1,
	}
}

// Remaining reports how many stamps a single grant may still add.
func Remaining(currentStamps, requiredStamps int) int {
	if requiredStamps <= 0 || currentStamps >= requiredStamps {
		return 0
	}
	return requiredStamps - max(0, currentStamps)
}
