package enums

import "slices"

// SealTransactionKind classifies an entry in the seal transaction log.
type SealTransactionKind string

const (
	SealKindWelcome        SealTransactionKind = "welcome"
	SealKindGrant          SealTransactionKind = "grant"
	SealKindRemoval        SealTransactionKind = "removal"
	SealKindRewardRedeemed SealTransactionKind = "reward_redeemed"
)

var sealKinds = []SealTransactionKind{SealKindWelcome, SealKindGrant, SealKindRemoval, SealKindRewardRedeemed}

func (k SealTransactionKind) IsValid() bool { return slices.Contains(sealKinds, k) }

func ParseSealTransactionKind(value string) (SealTransactionKind, error) {
	return parse(sealKinds, value, "seal transaction kind", exact)
}

// SealKindForDelta is grant for a positive delta and removal otherwise.
func SealKindForDelta(delta int) SealTransactionKind {
	if delta > 0 {
		return SealKindGrant
	}
	return SealKindRemoval
}
