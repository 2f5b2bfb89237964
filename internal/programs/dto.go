package programs

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

// ProgramInput is the full set of merchant-editable program fields. The
// draft wizard and the create endpoint both produce one.
type ProgramInput struct {
	BusinessName      string                  `json:"business_name"`
	BusinessCategory  enums.BusinessCategory  `json:"business_category"`
	Name              string                  `json:"name"`
	RequiredStamps    int                     `json:"required_stamps"`
	RewardDescription string                  `json:"reward_description"`
	RewardValue       *decimal.Decimal        `json:"reward_value,omitempty"`
	PrimaryColor      string                  `json:"primary_color"`
	SecondaryColor    string                  `json:"secondary_color"`
	TextColor         string                  `json:"text_color,omitempty"`
	SealShape         enums.SealShape         `json:"seal_shape"`
	BackgroundPattern enums.BackgroundPattern `json:"background_pattern"`
	LogoURL           *string                 `json:"logo_url,omitempty"`
	WelcomeMessage    *string                 `json:"welcome_message,omitempty"`
	Terms             *string                 `json:"terms,omitempty"`
}

// Normalize trims text, upper-cases colors, and derives the text color from
// the primary color when none was chosen.
func (in ProgramInput) Normalize() ProgramInput {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Name = strings.TrimSpace(in.Name)
	in.RewardDescription = strings.TrimSpace(in.RewardDescription)
	in.PrimaryColor = strings.ToUpper(strings.TrimSpace(in.PrimaryColor))
	in.SecondaryColor = strings.ToUpper(strings.TrimSpace(in.SecondaryColor))
	in.TextColor = strings.ToUpper(strings.TrimSpace(in.TextColor))
	if in.TextColor == "" && in.PrimaryColor != "" {
		in.TextColor = ContrastTextColor(in.PrimaryColor)
	}
	if in.BackgroundPattern == "" {
		in.BackgroundPattern = enums.BackgroundPatternNone
	}
	in.LogoURL = trimOptional(in.LogoURL)
	in.WelcomeMessage = trimOptional(in.WelcomeMessage)
	in.Terms = trimOptional(in.Terms)
	return in
}

// Validate checks every field and reports all failures at once.
func (in ProgramInput) Validate() error {
	return validationError([]error{
		ValidateBusinessName(in.BusinessName),
		ValidateBusinessCategory(in.BusinessCategory),
		ValidateProgramName(in.Name),
		ValidateRequiredStamps(in.RequiredStamps),
		ValidateRewardDescription(in.RewardDescription),
		ValidateRewardValue(in.RewardValue),
		ValidateColor(FieldPrimaryColor, in.PrimaryColor),
		ValidateColor(FieldSecondaryColor, in.SecondaryColor),
		ValidateColor(FieldTextColor, in.TextColor),
		ValidateSealShape(in.SealShape),
		ValidateBackgroundPattern(in.BackgroundPattern),
		ValidateLogoURL(in.LogoURL),
		ValidateWelcomeMessage(in.WelcomeMessage),
		ValidateTerms(in.Terms),
	})
}

func (in ProgramInput) applyTo(p *models.LoyaltyProgram) {
	p.BusinessName = in.BusinessName
	p.BusinessCategory = in.BusinessCategory
	p.Name = in.Name
	p.RequiredStamps = in.RequiredStamps
	p.RewardDescription = in.RewardDescription
	p.RewardValue = in.RewardValue
	p.PrimaryColor = in.PrimaryColor
	p.SecondaryColor = in.SecondaryColor
	p.TextColor = in.TextColor
	p.SealShape = in.SealShape
	p.BackgroundPattern = in.BackgroundPattern
	p.LogoURL = in.LogoURL
	p.WelcomeMessage = in.WelcomeMessage
	p.Terms = in.Terms
}

func inputFromModel(p *models.LoyaltyProgram) ProgramInput {
	return ProgramInput{
		BusinessName:      p.BusinessName,
		BusinessCategory:  p.BusinessCategory,
		Name:              p.Name,
		RequiredStamps:    p.RequiredStamps,
		RewardDescription: p.RewardDescription,
		RewardValue:       p.RewardValue,
		PrimaryColor:      p.PrimaryColor,
		SecondaryColor:    p.SecondaryColor,
		TextColor:         p.TextColor,
		SealShape:         p.SealShape,
		BackgroundPattern: p.BackgroundPattern,
		LogoURL:           p.LogoURL,
		WelcomeMessage:    p.WelcomeMessage,
		Terms:             p.Terms,
	}
}

// UpdateProgramInput carries a partial update; nil fields are left unchanged.
type UpdateProgramInput struct {
	BusinessName      *string                  `json:"business_name"`
	BusinessCategory  *enums.BusinessCategory  `json:"business_category"`
	Name              *string                  `json:"name"`
	RequiredStamps    *int                     `json:"required_stamps"`
	RewardDescription *string                  `json:"reward_description"`
	RewardValue       *decimal.Decimal         `json:"reward_value"`
	PrimaryColor      *string                  `json:"primary_color"`
	SecondaryColor    *string                  `json:"secondary_color"`
	TextColor         *string                  `json:"text_color"`
	SealShape         *enums.SealShape         `json:"seal_shape"`
	BackgroundPattern *enums.BackgroundPattern `json:"background_pattern"`
	LogoURL           *string                  `json:"logo_url"`
	WelcomeMessage    *string                  `json:"welcome_message"`
	Terms             *string                  `json:"terms"`
}

func (u UpdateProgramInput) mergeInto(in ProgramInput) ProgramInput {
	if u.BusinessName != nil {
		in.BusinessName = *u.BusinessName
	}
	if u.BusinessCategory != nil {
		in.BusinessCategory = *u.BusinessCategory
	}
	if u.Name != nil {
		in.Name = *u.Name
	}
	if u.RequiredStamps != nil {
		in.RequiredStamps = *u.RequiredStamps
	}
	if u.RewardDescription != nil {
		in.RewardDescription = *u.RewardDescription
	}
	if u.RewardValue != nil {
		in.RewardValue = u.RewardValue
	}
	if u.PrimaryColor != nil {
		in.PrimaryColor = *u.PrimaryColor
	}
	if u.SecondaryColor != nil {
		in.SecondaryColor = *u.SecondaryColor
	}
	if u.TextColor != nil {
		in.TextColor = *u.TextColor
	}
	if u.SealShape != nil {
		in.SealShape = *u.SealShape
	}
	if u.BackgroundPattern != nil {
		in.BackgroundPattern = *u.BackgroundPattern
	}
	if u.LogoURL != nil {
		in.LogoURL = u.LogoURL
	}
	if u.WelcomeMessage != nil {
		in.WelcomeMessage = u.WelcomeMessage
	}
	if u.Terms != nil {
		in.Terms = u.Terms
	}
	return in
}

// ProgramDTO is the merchant-facing program shape.
type ProgramDTO struct {
	ID                uuid.UUID               `json:"id"`
	OwnerID           uuid.UUID               `json:"owner_id"`
	PublicCode        string                  `json:"public_code"`
	BusinessName      string                  `json:"business_name"`
	BusinessCategory  enums.BusinessCategory  `json:"business_category"`
	Name              string                  `json:"name"`
	RequiredStamps    int                     `json:"required_stamps"`
	RewardDescription string                  `json:"reward_description"`
	RewardValue       *decimal.Decimal        `json:"reward_value,omitempty"`
	PrimaryColor      string                  `json:"primary_color"`
	SecondaryColor    string                  `json:"secondary_color"`
	TextColor         string                  `json:"text_color"`
	SealShape         enums.SealShape         `json:"seal_shape"`
	BackgroundPattern enums.BackgroundPattern `json:"background_pattern"`
	LogoURL           *string                 `json:"logo_url,omitempty"`
	WelcomeMessage    *string                 `json:"welcome_message,omitempty"`
	Terms             *string                 `json:"terms,omitempty"`
	QRCodeURL         *string                 `json:"qr_code_url,omitempty"`
	IsActive          bool                    `json:"is_active"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

func FromModel(p *models.LoyaltyProgram) *ProgramDTO {
	if p == nil {
		return nil
	}
	return &ProgramDTO{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		PublicCode:        p.PublicCode,
		BusinessName:      p.BusinessName,
		BusinessCategory:  p.BusinessCategory,
		Name:              p.Name,
		RequiredStamps:    p.RequiredStamps,
		RewardDescription: p.RewardDescription,
		RewardValue:       p.RewardValue,
		PrimaryColor:      p.PrimaryColor,
		SecondaryColor:    p.SecondaryColor,
		TextColor:         p.TextColor,
		SealShape:         p.SealShape,
		BackgroundPattern: p.BackgroundPattern,
		LogoURL:           p.LogoURL,
		WelcomeMessage:    p.WelcomeMessage,
		Terms:             p.Terms,
		QRCodeURL:         p.QRCodeURL,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// PublicProgramDTO is what an anonymous visitor sees on the public card page.
type PublicProgramDTO struct {
	ID                uuid.UUID               `json:"id"`
	PublicCode        string                  `json:"public_code"`
	BusinessName      string                  `json:"business_name"`
	BusinessCategory  enums.BusinessCategory  `json:"business_category"`
	Name              string                  `json:"name"`
	RequiredStamps    int                     `json:"required_stamps"`
	RewardDescription string                  `json:"reward_description"`
	RewardValue       *decimal.Decimal        `json:"reward_value,omitempty"`
	PrimaryColor      string                  `json:"primary_color"`
	SecondaryColor    string                  `json:"secondary_color"`
	TextColor         string                  `json:"text_color"`
	ContrastTextColor string                  `json:"contrast_text_color"`
	SealShape         enums.SealShape         `json:"seal_shape"`
	BackgroundPattern enums.BackgroundPattern `json:"background_pattern"`
	Grid              Grid                    `json:"grid"`
	LogoURL           *string                 `json:"logo_url,omitempty"`
	WelcomeMessage    *string                 `json:"welcome_message,omitempty"`
	Terms             *string                 `json:"terms,omitempty"`
	QRCodeURL         *string                 `json:"qr_code_url,omitempty"`
}

func PublicFromModel(p *models.LoyaltyProgram) *PublicProgramDTO {
	if p == nil {
		return nil
	}
	return &PublicProgramDTO{
		ID:                p.ID,
		PublicCode:        p.PublicCode,
		BusinessName:      p.BusinessName,
		BusinessCategory:  p.BusinessCategory,
		Name:              p.Name,
		RequiredStamps:    p.RequiredStamps,
		RewardDescription: p.RewardDescription,
		RewardValue:       p.RewardValue,
		PrimaryColor:      p.PrimaryColor,
		SecondaryColor:    p.SecondaryColor,
		TextColor:         p.TextColor,
		ContrastTextColor: ContrastTextColor(p.PrimaryColor),
		SealShape:         p.SealShape,
		BackgroundPattern: p.BackgroundPattern,
		Grid:              SealGrid(p.RequiredStamps),
		LogoURL:           p.LogoURL,
		WelcomeMessage:    p.WelcomeMessage,
		Terms:             p.Terms,
		QRCodeURL:         p.QRCodeURL,
	}
}

// PreviewFromInput renders an unsaved program the way the public card view
// would show it.
func PreviewFromInput(in ProgramInput) *PublicProgramDTO {
	var p models.LoyaltyProgram
	in.applyTo(&p)
	return PublicFromModel(&p)
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
