// Package repo holds the gorm plumbing shared by the loyalty repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base is embedded by repositories. Built from a transaction handle, every
// query it issues stays on that transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Exists backs the public code and card code collision checks.
func (b Base) Exists(ctx context.Context, model any, column string, value any) (bool, error) {
	var n int64
	err := b.DB(ctx).Model(model).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// One loads a single T matching conds. A miss surfaces as
// gorm.ErrRecordNotFound for the service layer to translate.
func One[T any](db *gorm.DB, query any, args ...any) (*T, error) {
	var row T
	if err := db.Where(query, args...).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
