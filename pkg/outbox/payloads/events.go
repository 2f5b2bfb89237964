package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ProgramPublishedEvent is emitted when a wizard draft becomes a live program.
type ProgramPublishedEvent struct {
	ProgramID        uuid.UUID `json:"program_id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	PublicCode       string    `json:"public_code"`
	BusinessCategory string    `json:"business_category"`
	RequiredStamps   int       `json:"required_stamps"`
	PublishedAt      time.Time `json:"published_at"`
}

// ProgramDeactivatedEvent is emitted when a merchant retires a program.
type ProgramDeactivatedEvent struct {
	ProgramID     uuid.UUID `json:"program_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

// CustomerJoinedEvent is emitted once per ledger, carrying the welcome stamp.
type CustomerJoinedEvent struct {
	LedgerID           uuid.UUID `json:"ledger_id"`
	ProgramID          uuid.UUID `json:"program_id"`
	CustomerID         uuid.UUID `json:"customer_id"`
	CardCode           string    `json:"card_code"`
	CurrentStamps      int       `json:"current_stamps"`
	TotalRewardsEarned int       `json:"total_rewards_earned"`
	JoinedAt           time.Time `json:"joined_at"`
}

// SealsAppliedEvent mirrors one grant or removal in the seal log.
type SealsAppliedEvent struct {
	LedgerID              uuid.UUID `json:"ledger_id"`
	ProgramID             uuid.UUID `json:"program_id"`
	CustomerID            uuid.UUID `json:"customer_id"`
	TransactionID         uuid.UUID `json:"transaction_id"`
	ActorID               uuid.UUID `json:"actor_id"`
	SealsGiven            int       `json:"seals_given"`
	NewStamps             int       `json:"new_stamps"`
	NewTotalRewardsEarned int       `json:"new_total_rewards_earned"`
	RewardsEarnedThisCall int       `json:"rewards_earned_this_call"`
	Version               int64     `json:"version"`
}

// RewardEarnedEvent is emitted when a grant completes a card.
type RewardEarnedEvent struct {
	LedgerID           uuid.UUID `json:"ledger_id"`
	ProgramID          uuid.UUID `json:"program_id"`
	CustomerID         uuid.UUID `json:"customer_id"`
	RewardsEarned      int       `json:"rewards_earned"`
	TotalRewardsEarned int       `json:"total_rewards_earned"`
}

// RewardRedeemedEvent is emitted when a merchant finalizes a reward in person.
type RewardRedeemedEvent struct {
	LedgerID           uuid.UUID `json:"ledger_id"`
	ProgramID          uuid.UUID `json:"program_id"`
	CustomerID         uuid.UUID `json:"customer_id"`
	TransactionID      uuid.UUID `json:"transaction_id"`
	ActorID            uuid.UUID `json:"actor_id"`
	StampsCleared      int       `json:"stamps_cleared"`
	TotalRewardsEarned int       `json:"total_rewards_earned"`
	Version            int64     `json:"version"`
}

// LedgerDeactivatedEvent is emitted when a merchant removes a customer.
type LedgerDeactivatedEvent struct {
	LedgerID      uuid.UUID `json:"ledger_id"`
	ProgramID     uuid.UUID `json:"program_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ActorID       uuid.UUID `json:"actor_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}
