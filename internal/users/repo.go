package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sealcard-backend/internal/repo"
	"github.com/angelmondragon/sealcard-backend/pkg/db"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail matches on the normalized address; emails are stored lowercase.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return repo.One[models.User](r.DB(ctx), "email = ?", NormalizeEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return repo.One[models.User](r.DB(ctx), "id = ?", id)
}

// ExistsWithRole is true only for active accounts.
func (r *Repository) ExistsWithRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (bool, error) {
	_, err := repo.One[models.User](r.DB(ctx).Select("id"), "id = ? AND role = ? AND is_active = ?", id, role, true)
	switch {
	case err == nil:
		return true, nil
	case db.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at.UTC()).Error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
