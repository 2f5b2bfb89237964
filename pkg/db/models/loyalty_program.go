package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

// LoyaltyProgram is a merchant-defined stamp card.
type LoyaltyProgram struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID           uuid.UUID               `gorm:"column:owner_id;type:uuid;not null"`
	PublicCode        string                  `gorm:"column:public_code;not null;uniqueIndex"`
	BusinessName      string                  `gorm:"column:business_name;not null"`
	BusinessCategory  enums.BusinessCategory  `gorm:"column:business_category;type:text;not null"`
	Name              string                  `gorm:"column:name;not null"`
	RequiredStamps    int                     `gorm:"column:required_stamps;not null"`
	RewardDescription string                  `gorm:"column:reward_description;not null"`
	RewardValue       *decimal.Decimal        `gorm:"column:reward_value;type:numeric(12,2)"`
	PrimaryColor      string                  `gorm:"column:primary_color;not null"`
	SecondaryColor    string                  `gorm:"column:secondary_color;not null"`
	TextColor         string                  `gorm:"column:text_color;not null"`
	SealShape         enums.SealShape         `gorm:"column:seal_shape;type:text;not null"`
	BackgroundPattern enums.BackgroundPattern `gorm:"column:background_pattern;type:text;not null"`
	LogoURL           *string                 `gorm:"column:logo_url"`
	WelcomeMessage    *string                 `gorm:"column:welcome_message"`
	Terms             *string                 `gorm:"column:terms"`
	QRCodeURL         *string                 `gorm:"column:qr_code_url"`
	IsActive          bool                    `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (LoyaltyProgram) TableName() string { return "loyalty_programs" }
