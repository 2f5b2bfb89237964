package seals

import (
	"errors"
	"testing"

	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

func TestApplyDelta(t *testing.T) {
	cases := []struct {
		name     string
		current  int
		total    int
		required int
		delta    int
		want     Result
		wantErr  error
	}{
		{name: "simple grant", current: 3, total: 0, required: 10, delta: 2, want: Result{NewStamps: 5}},
		{name: "exact fill rolls over", current: 9, total: 0, required: 10, delta: 1, want: Result{NewStamps: 0, NewTotalRewardsEarned: 1, RewardsEarnedThisCall: 1}},
		{name: "fill from empty", current: 0, total: 4, required: 5, delta: 5, want: Result{NewStamps: 0, NewTotalRewardsEarned: 5, RewardsEarnedThisCall: 1}},
		{name: "grant past capacity rejected", current: 8, total: 0, required: 10, delta: 5, wantErr: ErrExceedsCapacity},
		{name: "removal", current: 4, total: 2, required: 10, delta: -3, want: Result{NewStamps: 1, NewTotalRewardsEarned: 2}},
		{name: "remove everything", current: 4, total: 2, required: 10, delta: -4, want: Result{NewStamps: 0, NewTotalRewardsEarned: 2}},
		{name: "removal underflow rejected", current: 2, total: 0, required: 10, delta: -5, wantErr: ErrExceedsRemoval},
		{name: "zero delta rejected", current: 2, total: 0, required: 10, delta: 0, wantErr: ErrInvalidDelta},
		{name: "zero requirement rejected", current: 0, total: 0, required: 0, delta: 1, wantErr: ErrInvalidRequirement},
		{name: "negative requirement rejected", current: 0, total: 0, required: -3, delta: 1, wantErr: ErrInvalidRequirement},
		{name: "single stamp card", current: 0, total: 7, required: 1, delta: 1, want: Result{NewStamps: 0, NewTotalRewardsEarned: 8, RewardsEarnedThisCall: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ApplyDelta(tc.current, tc.total, tc.required, tc.delta)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if got != (Result{}) {
					t.Fatalf("rejected call returned state %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestApplyDeltaInvariantsHoldOverGrid(t *testing.T) {
	for required := 1; required <= 12; required++ {
		for current := 0; current < required; current++ {
			for delta := -required - 2; delta <= required+2; delta++ {
				const prior = 3
				got, err := ApplyDelta(current, prior, required, delta)
				if err != nil {
					switch {
					case delta == 0 && errors.Is(err, ErrInvalidDelta):
					case delta > 0 && current+delta > required && errors.Is(err, ErrExceedsCapacity):
					case delta < 0 && current+delta < 0 && errors.Is(err, ErrExceedsRemoval):
					default:
						t.Fatalf("required=%d current=%d delta=%d: unexpected error %v", required, current, delta, err)
					}
					continue
				}
				if got.NewStamps < 0 || got.NewStamps > required {
					t.Fatalf("required=%d current=%d delta=%d: stamps out of bounds %d", required, current, delta, got.NewStamps)
				}
				if got.RewardsEarnedThisCall > 0 && got.NewStamps >= required {
					t.Fatalf("required=%d current=%d delta=%d: reward branch left %d stamps", required, current, delta, got.NewStamps)
				}
				if got.NewTotalRewardsEarned < prior {
					t.Fatalf("required=%d current=%d delta=%d: rewards decreased to %d", required, current, delta, got.NewTotalRewardsEarned)
				}
				if got.NewTotalRewardsEarned != prior+got.RewardsEarnedThisCall {
					t.Fatalf("required=%d current=%d delta=%d: total %d does not add up", required, current, delta, got.NewTotalRewardsEarned)
				}
				// accepted grants never complete more than one card
				if got.RewardsEarnedThisCall > 1 {
					t.Fatalf("required=%d current=%d delta=%d: %d rewards in one call", required, current, delta, got.RewardsEarnedThisCall)
				}
			}
		}
	}
}

func TestFinalizeReward(t *testing.T) {
	got := FinalizeReward(2)
	want := Result{NewStamps: 0, NewTotalRewardsEarned: 3, RewardsEarnedThisCall: 1}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(8, 10); got != 2 {
		t.Fatalf("expected 2 remaining, got %d", got)
	}
	if got := Remaining(10, 10); got != 0 {
		t.Fatalf("expected 0 remaining on a full card, got %d", got)
	}
	if got := Remaining(0, 0); got != 0 {
		t.Fatalf("expected 0 remaining for invalid requirement, got %d", got)
	}
}

func TestReplay(t *testing.T) {
	log := []Entry{
		{Kind: enums.SealKindWelcome, SealsGiven: 1},
		{Kind: enums.SealKindGrant, SealsGiven: 3},
		{Kind: enums.SealKindRemoval, SealsGiven: -1},
		{Kind: enums.SealKindGrant, SealsGiven: 2},
		{Kind: enums.SealKindRewardRedeemed},
		{Kind: enums.SealKindGrant, SealsGiven: 4},
	}
	got, err := Replay(5, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1+3-1+2 = 5 completes a card, redeem adds another, then 4 stamps remain
	want := Result{NewStamps: 4, NewTotalRewardsEarned: 2}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestReplayReportsCorruptLog(t *testing.T) {
	log := []Entry{
		{Kind: enums.SealKindWelcome, SealsGiven: 1},
		{Kind: enums.SealKindRemoval, SealsGiven: -4},
	}
	if _, err := Replay(10, log); !errors.Is(err, ErrExceedsRemoval) {
		t.Fatalf("expected ErrExceedsRemoval, got %v", err)
	}

	if _, err := Replay(10, []Entry{{Kind: "bogus", SealsGiven: 1}}); err == nil {
		t.Fatal("expected unknown kind error")
	}
}
