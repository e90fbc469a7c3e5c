package repository

import (
	"context"

	"materialflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountCodeRepository interface {
	Create(ctx context.Context, code *model.AccountCode) error
	Update(ctx context.Context, code *model.AccountCode) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AccountCode, error)
	ListActive(ctx context.Context) ([]model.AccountCode, error)
}

type accountCodeRepository struct {
	db *gorm.DB
}

func NewAccountCodeRepository(db *gorm.DB) AccountCodeRepository {
	return &accountCodeRepository{db: db}
}

func (r *accountCodeRepository) Create(ctx context.Context, code *model.AccountCode) error {
	return GetDB(ctx, r.db).Create(code).Error
}

func (r *accountCodeRepository) Update(ctx context.Context, code *model.AccountCode) error {
	return GetDB(ctx, r.db).Save(code).Error
}

func (r *accountCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.AccountCode{}).Error
}

func (r *accountCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AccountCode, error) {
	var code model.AccountCode
	if err := GetDB(ctx, r.db).First(&code, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *accountCodeRepository) ListActive(ctx context.Context) ([]model.AccountCode, error) {
	var codes []model.AccountCode
	if err := GetDB(ctx, r.db).
		Where("is_active = ?", true).
		Order("code").
		Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
