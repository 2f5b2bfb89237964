package programs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/sealcard-backend/internal/repo"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
)

// Repository persists loyalty programs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, program *models.LoyaltyProgram) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error)
	FindByPublicCode(ctx context.Context, code string) (*models.LoyaltyProgram, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error)
	PublicCodeExists(ctx context.Context, code string) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.LoyaltyProgram, error)
	UpdateDesign(ctx context.Context, program *models.LoyaltyProgram, stampsChanged bool) (bool, error)
	SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a program repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, program *models.LoyaltyProgram) error {
	return r.DB(ctx).Create(program).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error) {
	return repo.One[models.LoyaltyProgram](r.DB(ctx), "id = ?", id)
}

func (r *repository) FindByPublicCode(ctx context.Context, code string) (*models.LoyaltyProgram, error) {
	return repo.One[models.LoyaltyProgram](r.DB(ctx), "public_code = ?", code)
}

// FindForUpdate holds the program row until the transaction ends, waiting out
// joins that share-locked it.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error) {
	return repo.One[models.LoyaltyProgram](r.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

func (r *repository) PublicCodeExists(ctx context.Context, code string) (bool, error) {
	return r.Exists(ctx, &models.LoyaltyProgram{}, "public_code", code)
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.LoyaltyProgram, error) {
	var programs []models.LoyaltyProgram
	if err := r.DB(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&programs).Error; err != nil {
		return nil, err
	}
	return programs, nil
}

// UpdateDesign writes the merchant-editable columns. When stampsChanged is
// set the write only lands if no customer ledger references the program yet.
// Run it after FindForUpdate in the same transaction so uncommitted joins are
// visible to the check.
func (r *repository) UpdateDesign(ctx context.Context, program *models.LoyaltyProgram, stampsChanged bool) (bool, error) {
	query := r.DB(ctx).Model(&models.LoyaltyProgram{}).Where("id = ? AND is_active = ?", program.ID, true)
	if stampsChanged {
		query = query.Where("NOT EXISTS (SELECT 1 FROM customer_ledgers WHERE customer_ledgers.program_id = loyalty_programs.id)")
	}
	res := query.Updates(map[string]any{
		"business_name":      program.BusinessName,
		"business_category":  program.BusinessCategory,
		"name":               program.Name,
		"required_stamps":    program.RequiredStamps,
		"reward_description": program.RewardDescription,
		"reward_value":       program.RewardValue,
		"primary_color":      program.PrimaryColor,
		"secondary_color":    program.SecondaryColor,
		"text_color":         program.TextColor,
		"seal_shape":         program.SealShape,
		"background_pattern": program.BackgroundPattern,
		"logo_url":           program.LogoURL,
		"welcome_message":    program.WelcomeMessage,
		"terms":              program.Terms,
		"updated_at":         time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.DB(ctx).
		Model(&models.LoyaltyProgram{}).
		Where("id = ?", id).
		UpdateColumn("qr_code_url", url).Error
}

// Deactivate flips is_active; it reports false when the program was already inactive.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.LoyaltyProgram{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
