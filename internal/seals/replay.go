package seals

import (
	"fmt"

	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

// Entry is one row of the seal transaction log as seen by Replay.
type Entry struct {
	Kind       enums.SealTransactionKind
	SealsGiven int
}

// Replay rebuilds a ledger aggregate from its ordered transaction log. The
// first failing entry aborts the fold and is reported by index.
func Replay(requiredStamps int, entries []Entry) (Result, error) {
	var state Result
	for i, entry := range entries {
		switch entry.Kind {
		case enums.SealKindRewardRedeemed:
			next := FinalizeReward(state.NewTotalRewardsEarned)
			state.NewStamps = next.NewStamps
			state.NewTotalRewardsEarned = next.NewTotalRewardsEarned
		case enums.SealKindWelcome, enums.SealKindGrant, enums.SealKindRemoval:
			next, err := ApplyDelta(state.NewStamps, state.NewTotalRewardsEarned, requiredStamps, entry.SealsGiven)
			if err != nil {
				return state, fmt.Errorf("replay entry %d (%s %+d): %w", i, entry.Kind, entry.SealsGiven, err)
			}
			state.NewStamps = next.NewStamps
			state.NewTotalRewardsEarned = next.NewTotalRewardsEarned
		default:
			return state, fmt.Errorf("replay entry %d: unknown kind %q", i, entry.Kind)
		}
	}
	state.RewardsEarnedThisCall = 0
	return state, nil
}
