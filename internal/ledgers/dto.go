package ledgers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/internal/programs"
	"github.com/angelmondragon/sealcard-backend/internal/seals"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

// ApplySealsInput is one merchant request to add or remove stamps.
type ApplySealsInput struct {
	LedgerID uuid.UUID
	ActorID  uuid.UUID
	Delta    int
	Notes    *string
}

// ApplySealsResult reports the ledger after a successful delta.
type ApplySealsResult struct {
	Ledger                LedgerDTO `json:"ledger"`
	TransactionID         uuid.UUID `json:"transaction_id"`
	SealsGiven            int       `json:"seals_given"`
	RewardsEarnedThisCall int       `json:"rewards_earned_this_call"`
}

// FinalizeRewardResult reports the ledger after an in-person redemption.
type FinalizeRewardResult struct {
	Ledger        LedgerDTO `json:"ledger"`
	TransactionID uuid.UUID `json:"transaction_id"`
	StampsCleared int       `json:"stamps_cleared"`
}

// JoinInput is a customer's request to start a card for a program.
type JoinInput struct {
	ProgramID     uuid.UUID
	CustomerID    uuid.UUID
	AgreedToTerms bool
}

// JoinResult describes the freshly created ledger. QRCodeURL is empty when the
// QR service could not render the card.
type JoinResult struct {
	LedgerID            uuid.UUID `json:"ledger_id"`
	CardCode            string    `json:"card_code"`
	WelcomeStampApplied bool      `json:"welcome_stamp_applied"`
	CurrentStamps       int       `json:"current_stamps"`
	TotalRewardsEarned  int       `json:"total_rewards_earned"`
	QRCodeURL           string    `json:"qr_code_url,omitempty"`
}

// ReconcileResult compares the cached ledger counters with a log replay.
type ReconcileResult struct {
	LedgerID        uuid.UUID `json:"ledger_id"`
	Entries         int       `json:"entries"`
	CachedStamps    int       `json:"cached_stamps"`
	CachedRewards   int       `json:"cached_rewards"`
	ReplayedStamps  int       `json:"replayed_stamps"`
	ReplayedRewards int       `json:"replayed_rewards"`
	Mismatch        bool      `json:"mismatch"`
	Repaired        bool      `json:"repaired"`
}

// LedgerDTO is the API shape of a customer ledger.
type LedgerDTO struct {
	ID                 uuid.UUID `json:"id"`
	ProgramID          uuid.UUID `json:"program_id"`
	CustomerID         uuid.UUID `json:"customer_id"`
	CardCode           string    `json:"card_code"`
	CurrentStamps      int       `json:"current_stamps"`
	TotalRewardsEarned int       `json:"total_rewards_earned"`
	RequiredStamps     int       `json:"required_stamps"`
	Remaining          int       `json:"remaining"`
	IsActive           bool      `json:"is_active"`
	Version            int64     `json:"version"`
	JoinedAt           time.Time `json:"joined_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func ledgerFromModel(l *models.CustomerLedger, requiredStamps int) LedgerDTO {
	return LedgerDTO{
		ID:                 l.ID,
		ProgramID:          l.ProgramID,
		CustomerID:         l.CustomerID,
		CardCode:           l.CardCode,
		CurrentStamps:      l.CurrentStamps,
		TotalRewardsEarned: l.TotalRewardsEarned,
		RequiredStamps:     requiredStamps,
		Remaining:          seals.Remaining(l.CurrentStamps, requiredStamps),
		IsActive:           l.IsActive,
		Version:            l.Version,
		JoinedAt:           l.JoinedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

// WalletCardDTO pairs a customer's ledger with the card it belongs to.
type WalletCardDTO struct {
	Ledger  LedgerDTO                  `json:"ledger"`
	Program *programs.PublicProgramDTO `json:"program"`
}

// TransactionDTO is one row of the seal log.
type TransactionDTO struct {
	ID           uuid.UUID                 `json:"id"`
	Kind         enums.SealTransactionKind `json:"kind"`
	SealsGiven   int                       `json:"seals_given"`
	StampsAfter  int                       `json:"stamps_after"`
	RewardsAfter int                       `json:"rewards_after"`
	ActorID      uuid.UUID                 `json:"actor_id"`
	Notes        *string                   `json:"notes,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
}

func transactionFromModel(t *models.SealTransaction) TransactionDTO {
	return TransactionDTO{
		ID:           t.ID,
		Kind:         t.Kind,
		SealsGiven:   t.SealsGiven,
		StampsAfter:  t.StampsAfter,
		RewardsAfter: t.RewardsAfter,
		ActorID:      t.ActorID,
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt,
	}
}
