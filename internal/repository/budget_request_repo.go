package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"materialflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BudgetRequestRepository interface {
	Create(ctx context.Context, req *model.BudgetRequest) error
	Update(ctx context.Context, req *model.BudgetRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.BudgetRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.BudgetRequest, error)
	FindByRequestNo(ctx context.Context, requestNo string) (*model.BudgetRequest, error)
	List(ctx context.Context, status string, page, limit int) ([]model.BudgetRequest, int64, error)
	DeleteIfPending(ctx context.Context, id uuid.UUID) (bool, error)
	NextSequenceForPrefix(ctx context.Context, prefix string) (int64, error)
}

type budgetRequestRepository struct {
	db *gorm.DB
}

func NewBudgetRequestRepository(db *gorm.DB) BudgetRequestRepository {
	return &budgetRequestRepository{db: db}
}

func (r *budgetRequestRepository) Create(ctx context.Context, req *model.BudgetRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *budgetRequestRepository) Update(ctx context.Context, req *model.BudgetRequest) error {
	return GetDB(ctx, r.db).Omit("Items").Save(req).Error
}

func (r *budgetRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.BudgetRequest, error) {
	var req model.BudgetRequest
	if err := GetDB(ctx, r.db).Preload("Items").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByIDForUpdate locks the request row so the decision transition is
// serialized; items are loaded separately since FOR UPDATE cannot span joins.
func (r *budgetRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.BudgetRequest, error) {
	var req model.BudgetRequest
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	if err := db.Where("request_id = ?", id).Find(&req.Items).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *budgetRequestRepository) FindByRequestNo(ctx context.Context, requestNo string) (*model.BudgetRequest, error) {
	var req model.BudgetRequest
	if err := GetDB(ctx, r.db).Preload("Items").
		Where("request_no = ?", requestNo).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *budgetRequestRepository) List(ctx context.Context, status string, page, limit int) ([]model.BudgetRequest, int64, error) {
	var requests []model.BudgetRequest
	var total int64

	query := GetDB(ctx, r.db).Model(&model.BudgetRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := GetDB(ctx, r.db).Preload("Items")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// DeleteIfPending removes a request only while its status is PENDING. The
// condition lives in the query itself so no caller can bypass the invariant.
// Returns false when nothing was deleted.
func (r *budgetRequestRepository) DeleteIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	db := GetDB(ctx, r.db)
	res := db.Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Delete(&model.BudgetRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := db.Where("request_id = ?", id).Delete(&model.BudgetRequestItem{}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// NextSequenceForPrefix returns the next per-prefix sequence number for
// request numbering. An advisory lock keyed on the prefix prevents concurrent
// creations from drawing the same number. The sequence derives from the
// highest existing number, not a row count, so numbers freed by deleted
// requests are never reissued.
func (r *budgetRequestRepository) NextSequenceForPrefix(ctx context.Context, prefix string) (int64, error) {
	db := GetDB(ctx, r.db)
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
		return 0, err
	}

	var max sql.NullString
	if err := db.Model(&model.BudgetRequest{}).
		Select("MAX(request_no)").
		Where("request_no LIKE ?", prefix+"%").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if !max.Valid || max.String == "" {
		return 1, nil
	}

	seq, err := strconv.ParseInt(strings.TrimPrefix(max.String, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed request number %q: %w", max.String, err)
	}
	return seq + 1, nil
}
