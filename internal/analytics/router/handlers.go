package router

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/internal/analytics/types"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox/payloads"
)

func defaultEntries(w Writer) map[enums.OutboxEventType]handlerEntry {
	return map[enums.OutboxEventType]handlerEntry{
		enums.EventProgramPublished:   entry(w, programPublishedRow),
		enums.EventProgramDeactivated: entry(w, programDeactivatedRow),
		enums.EventCustomerJoined:     entry(w, customerJoinedRow),
		enums.EventSealsApplied:       entry(w, sealsAppliedRow),
		enums.EventRewardEarned:       entry(w, rewardEarnedRow),
		enums.EventRewardRedeemed:     entry(w, rewardRedeemedRow),
		enums.EventLedgerDeactivated:  entry(w, ledgerDeactivatedRow),
	}
}

func programPublishedRow(_ types.Envelope, p *payloads.ProgramPublishedEvent) types.SealEventRow {
	return types.SealEventRow{
		ProgramID:        p.ProgramID.String(),
		ActorID:          idPtr(p.OwnerID),
		BusinessCategory: strPtr(p.BusinessCategory),
	}
}

func programDeactivatedRow(_ types.Envelope, p *payloads.ProgramDeactivatedEvent) types.SealEventRow {
	return types.SealEventRow{
		ProgramID: p.ProgramID.String(),
		ActorID:   idPtr(p.OwnerID),
	}
}

// customerJoinedRow records the welcome stamp as a +1 delta.
func customerJoinedRow(_ types.Envelope, p *payloads.CustomerJoinedEvent) types.SealEventRow {
	return types.SealEventRow{
		ProgramID:          p.ProgramID.String(),
		LedgerID:           idPtr(p.LedgerID),
		CustomerID:         idPtr(p.CustomerID),
		ActorID:            idPtr(p.CustomerID),
		Delta:              intPtr(1),
		StampsAfter:        intPtr(p.CurrentStamps),
		TotalRewardsEarned: intPtr(p.TotalRewardsEarned),
	}
}

func sealsAppliedRow(_ types.Envelope, p *payloads.SealsAppliedEvent) types.SealEventRow {
	return types.SealEventRow{
		ProgramID:          p.ProgramID.String(),
		LedgerID:           idPtr(p.LedgerID),
		CustomerID:         idPtr(p.CustomerID),
		ActorID:            idPtr(p.ActorID),
		TransactionID:      idPtr(p.TransactionID),
		Delta:              intPtr(p.SealsGiven),
		StampsAfter:        intPtr(p.NewStamps),
		RewardsEarned:      intPtr(p.RewardsEarnedThisCall),
		TotalRewardsEarned: intPtr(p.NewTotalRewardsEarned),
	}
}

func rewardEarnedRow(_ types.Envelope, p *payloads.RewardEarnedEvent) types.SealEventRow {
	return types.SealEventRow{
		ProgramID:          p.ProgramID.String(),
		LedgerID:           idPtr(p.LedgerID),
		CustomerID:         idPtr(p.CustomerID),
		RewardsEarned:      intPtr(p.RewardsEarned),
		TotalRewardsEarned: intPtr(p.TotalRewardsEarned),
	}
}

// rewardRedeemedRow mirrors the log entry: delta 0, the card cleared and one
// reward counted.
func rewardRedeemedRow(_ types.Envelope, p *payloads.RewardRedeemedEvent) types.SealEventRow {
	return types.SealEventRow{
		ProgramID:          p.ProgramID.String(),
		LedgerID:           idPtr(p.LedgerID),
		CustomerID:         idPtr(p.CustomerID),
		ActorID:            idPtr(p.ActorID),
		TransactionID:      idPtr(p.TransactionID),
		Delta:              intPtr(0),
		StampsAfter:        intPtr(0),
		RewardsEarned:      intPtr(1),
		TotalRewardsEarned: intPtr(p.TotalRewardsEarned),
	}
}

func ledgerDeactivatedRow(_ types.Envelope, p *payloads.LedgerDeactivatedEvent) types.SealEventRow {
	return types.SealEventRow{
		ProgramID:  p.ProgramID.String(),
		LedgerID:   idPtr(p.LedgerID),
		CustomerID: idPtr(p.CustomerID),
		ActorID:    idPtr(p.ActorID),
	}
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func idPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	return strPtr(id.String())
}

func intPtr(v int) *int64 {
	out := int64(v)
	return &out
}
