package repository

import (
	"context"

	"materialflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApprovalRepository interface {
	Create(ctx context.Context, approval *model.Approval) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, approval *model.Approval) error {
	return GetDB(ctx, r.db).Create(approval).Error
}

// ListByRequest returns the approval history in chronological order.
func (r *approvalRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error) {
	var approvals []model.Approval
	if err := GetDB(ctx, r.db).
		Where("request_id = ?", requestID).
		Order("created_at").
		Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}
