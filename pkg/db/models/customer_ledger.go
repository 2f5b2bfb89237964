package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerLedger is one customer's running stamp balance for one program.
// CurrentStamps and TotalRewardsEarned are a cached aggregate of the
// seal_transactions log; Version guards concurrent writers.
type CustomerLedger struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProgramID          uuid.UUID `gorm:"column:program_id;type:uuid;not null"`
	CustomerID         uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`
	CardCode           string    `gorm:"column:card_code;not null;uniqueIndex"`
	CurrentStamps      int       `gorm:"column:current_stamps;not null"`
	TotalRewardsEarned int       `gorm:"column:total_rewards_earned;not null"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true"`
	Version            int64     `gorm:"column:version;not null"`
	JoinedAt           time.Time `gorm:"column:joined_at;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CustomerLedger) TableName() string { return "customer_ledgers" }
