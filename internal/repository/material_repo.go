package repository

import (
	"context"

	"materialflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MaterialRepository interface {
	Create(ctx context.Context, material *model.Material) error
	Update(ctx context.Context, material *model.Material) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Material, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Material, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Material, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Material, int64, error)
	ListLowStock(ctx context.Context) ([]model.Material, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *model.Material) error {
	return GetDB(ctx, r.db).Create(material).Error
}

func (r *materialRepository) Update(ctx context.Context, material *model.Material) error {
	return GetDB(ctx, r.db).Save(material).Error
}

func (r *materialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Material{}).Error
}

func (r *materialRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Material, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

// FindByIDForUpdate locks the material row for the duration of the enclosing
// transaction so concurrent stock movements serialize on the same material.
func (r *materialRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Material, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) FindByBarcode(ctx context.Context, barcode string) (*model.Material, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).Where("barcode = ?", barcode).First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) List(ctx context.Context, page, limit int, search string) ([]model.Material, int64, error) {
	var materials []model.Material
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Material{})
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name").Offset(offset).Limit(limit).Find(&materials).Error; err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

func (r *materialRepository) ListLowStock(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	if err := GetDB(ctx, r.db).
		Where("current_stock <= min_stock").
		Order("name").
		Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Material{}).Where("id = ?", id).
		Update("current_stock", stock).Error
}
