package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

// SealTransaction records an immutable, signed change to a customer ledger.
// LedgerVersion is the ledger version the change produced and orders the log.
type SealTransaction struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LedgerID      uuid.UUID                 `gorm:"column:ledger_id;type:uuid;not null"`
	ProgramID     uuid.UUID                 `gorm:"column:program_id;type:uuid;not null"`
	ActorID       uuid.UUID                 `gorm:"column:actor_id;type:uuid;not null"`
	LedgerVersion int64                     `gorm:"column:ledger_version;not null"`
	Kind          enums.SealTransactionKind `gorm:"column:kind;type:text;not null"`
	SealsGiven    int                       `gorm:"column:seals_given;not null"`
	StampsAfter   int                       `gorm:"column:stamps_after;not null"`
	RewardsAfter  int                       `gorm:"column:rewards_after;not null"`
	Notes         *string                   `gorm:"column:notes"`
	CreatedAt     time.Time                 `gorm:"column:created_at;not null"`
}

func (SealTransaction) TableName() string { return "seal_transactions" }
