package repository

import (
	"context"

	"materialflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.StockTransaction) error
	List(ctx context.Context, page, limit int) ([]model.StockTransaction, int64, error)
	ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]model.StockTransaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.StockTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) List(ctx context.Context, page, limit int) ([]model.StockTransaction, int64, error) {
	var transactions []model.StockTransaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockTransaction{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Preload("Material").
		Order("transaction_date DESC").Offset(offset).Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (r *transactionRepository) ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]model.StockTransaction, error) {
	var transactions []model.StockTransaction
	if err := GetDB(ctx, r.db).
		Where("material_id = ?", materialID).
		Order("transaction_date DESC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
