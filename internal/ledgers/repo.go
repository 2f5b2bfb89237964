package ledgers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/sealcard-backend/internal/repo"
	"github.com/angelmondragon/sealcard-backend/internal/seals"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/pagination"
)

// Repository persists customer ledgers and their seal transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.CustomerLedger, error)
	FindByCode(ctx context.Context, code string) (*models.CustomerLedger, error)
	FindByProgramAndCustomer(ctx context.Context, programID, customerID uuid.UUID) (*models.CustomerLedger, error)
	CardCodeExists(ctx context.Context, code string) (bool, error)
	LockProgram(ctx context.Context, programID uuid.UUID) (*models.LoyaltyProgram, error)
	Create(ctx context.Context, ledger *models.CustomerLedger) error
	CompareAndSwap(ctx context.Context, ledger *models.CustomerLedger, expectedVersion int64) (bool, error)
	AppendTransaction(ctx context.Context, txn *models.SealTransaction) error
	ListByProgram(ctx context.Context, programID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.CustomerLedger, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerLedger, error)
	ListTransactions(ctx context.Context, ledgerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.SealTransaction, error)
	ReplayEntries(ctx context.Context, ledgerID uuid.UUID) ([]seals.Entry, error)
	ListTouchedSince(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomerLedger, error) {
	return repo.One[models.CustomerLedger](r.DB(ctx), "id = ?", id)
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.CustomerLedger, error) {
	return repo.One[models.CustomerLedger](r.DB(ctx), "card_code = ?", code)
}

func (r *repository) FindByProgramAndCustomer(ctx context.Context, programID, customerID uuid.UUID) (*models.CustomerLedger, error) {
	return repo.One[models.CustomerLedger](r.DB(ctx), "program_id = ? AND customer_id = ?", programID, customerID)
}

func (r *repository) CardCodeExists(ctx context.Context, code string) (bool, error) {
	return r.Exists(ctx, &models.CustomerLedger{}, "card_code", code)
}

// LockProgram reads the program under FOR SHARE. Concurrent joins share the
// lock; a required_stamps change waits for them to commit.
func (r *repository) LockProgram(ctx context.Context, programID uuid.UUID) (*models.LoyaltyProgram, error) {
	return repo.One[models.LoyaltyProgram](r.DB(ctx).Clauses(clause.Locking{Strength: "SHARE"}), "id = ?", programID)
}

func (r *repository) Create(ctx context.Context, ledger *models.CustomerLedger) error {
	return r.DB(ctx).Create(ledger).Error
}

// CompareAndSwap writes the cached aggregate only if the row still carries
// expectedVersion. The caller sets ledger.Version to the new value.
func (r *repository) CompareAndSwap(ctx context.Context, ledger *models.CustomerLedger, expectedVersion int64) (bool, error) {
	res := r.DB(ctx).
		Model(&models.CustomerLedger{}).
		Where("id = ? AND version = ?", ledger.ID, expectedVersion).
		Updates(map[string]any{
			"current_stamps":       ledger.CurrentStamps,
			"total_rewards_earned": ledger.TotalRewardsEarned,
			"is_active":            ledger.IsActive,
			"version":              ledger.Version,
			"updated_at":           ledger.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.SealTransaction) error {
	return r.DB(ctx).Create(txn).Error
}

func (r *repository) ListByProgram(ctx context.Context, programID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.CustomerLedger, error) {
	var rows []models.CustomerLedger
	query := r.DB(ctx).Model(&models.CustomerLedger{}).Where("program_id = ?", programID)
	query = pagination.ApplyDesc(query, cursor, "")
	if err := query.Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerLedger, error) {
	var rows []models.CustomerLedger
	if err := r.DB(ctx).
		Where("customer_id = ? AND is_active = ?", customerID, true).
		Order("joined_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListTransactions(ctx context.Context, ledgerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.SealTransaction, error) {
	var rows []models.SealTransaction
	query := r.DB(ctx).Model(&models.SealTransaction{}).Where("ledger_id = ?", ledgerID)
	query = pagination.ApplyDesc(query, cursor, "")
	if err := query.Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplayEntries returns the ledger's log in version order, ready for
// seals.Replay. Timestamps can tie at database precision; versions cannot.
func (r *repository) ReplayEntries(ctx context.Context, ledgerID uuid.UUID) ([]seals.Entry, error) {
	var rows []models.SealTransaction
	if err := r.DB(ctx).
		Select("kind", "seals_given").
		Where("ledger_id = ?", ledgerID).
		Order("ledger_version ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]seals.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, seals.Entry{Kind: row.Kind, SealsGiven: row.SealsGiven})
	}
	return entries, nil
}

// ListTouchedSince returns ledgers updated at or after since, most recent first.
func (r *repository) ListTouchedSince(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.DB(ctx).
		Model(&models.CustomerLedger{}).
		Where("updated_at >= ?", since).
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
