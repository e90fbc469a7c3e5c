package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"materialflow/internal/apperrors"
	"materialflow/internal/model"
	"materialflow/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier pushes ephemeral notification events to connected dashboards.
// The websocket hub satisfies this; a nil notifier disables notifications.
type Notifier interface {
	Notify(event, title, message, severity string, data map[string]interface{})
}

// Categories that require an expiry date on the material
var perishableCategories = map[string]bool{
	"pharmaceutical":  true,
	"pharmaceuticals": true,
	"medicine":        true,
	"food":            true,
}

// DTOs
type CreateMaterialRequest struct {
	MaterialCode string   `json:"material_code"`
	Barcode      *string  `json:"barcode"`
	Name         string   `json:"name" binding:"required"`
	Category     string   `json:"category"`
	Unit         string   `json:"unit"`
	InitialStock int      `json:"initial_stock" binding:"min=0"`
	MinStock     int      `json:"min_stock" binding:"min=0"`
	Price        float64  `json:"price" binding:"min=0"`
	Location     string   `json:"location"`
	Note         string   `json:"note"`
	ExpiryDate   *string  `json:"expiry_date"` // YYYY-MM-DD
}

type UpdateMaterialRequest struct {
	MaterialCode *string  `json:"material_code"`
	Barcode      *string  `json:"barcode"`
	Name         *string  `json:"name"`
	Category     *string  `json:"category"`
	Unit         *string  `json:"unit"`
	MinStock     *int     `json:"min_stock"`
	Price        *float64 `json:"price"`
	Location     *string  `json:"location"`
	Note         *string  `json:"note"`
	ExpiryDate   *string  `json:"expiry_date"`
}

type MaterialResponse struct {
	ID           string  `json:"id"`
	MaterialCode string  `json:"material_code,omitempty"`
	Barcode      string  `json:"barcode,omitempty"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Unit         string  `json:"unit"`
	CurrentStock int     `json:"current_stock"`
	MinStock     int     `json:"min_stock"`
	LowStock     bool    `json:"low_stock"`
	Price        float64 `json:"price"`
	Location     string  `json:"location,omitempty"`
	Note         string  `json:"note,omitempty"`
	ExpiryDate   string  `json:"expiry_date,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type CreateTransactionRequest struct {
	MaterialID      string `json:"material_id" binding:"required"`
	Type            string `json:"type" binding:"required,oneof=in out"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	ReferenceNumber string `json:"reference_number"`
	Note            string `json:"note"`
	UserName        string `json:"user_name"`
}

type TransactionResponse struct {
	ID              string `json:"id"`
	MaterialID      string `json:"material_id"`
	MaterialName    string `json:"material_name,omitempty"`
	Unit            string `json:"unit,omitempty"`
	Type            string `json:"type"`
	Quantity        int    `json:"quantity"`
	StockAfter      int    `json:"stock_after"`
	TransactionDate string `json:"transaction_date"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Note            string `json:"note,omitempty"`
	UserName        string `json:"user_name,omitempty"`
}

type InventoryService interface {
	ListMaterials(ctx context.Context, page, limit int, search string) ([]MaterialResponse, int64, error)
	GetMaterial(ctx context.Context, id string) (MaterialResponse, error)
	FindByBarcode(ctx context.Context, barcode string) (MaterialResponse, error)
	ListLowStock(ctx context.Context) ([]MaterialResponse, error)
	CreateMaterial(ctx context.Context, req CreateMaterialRequest) (MaterialResponse, error)
	UpdateMaterial(ctx context.Context, id string, req UpdateMaterialRequest) (MaterialResponse, error)
	DeleteMaterial(ctx context.Context, id string) error
	RecordTransaction(ctx context.Context, req CreateTransactionRequest) (TransactionResponse, error)
	ListTransactions(ctx context.Context, page, limit int) ([]TransactionResponse, int64, error)
	ListMaterialTransactions(ctx context.Context, materialID string) ([]TransactionResponse, error)
}

type inventoryService struct {
	materialRepo    repository.MaterialRepository
	transactionRepo repository.TransactionRepository
	txManager       repository.TransactionManager
	notifier        Notifier
}

func NewInventoryService(
	materialRepo repository.MaterialRepository,
	transactionRepo repository.TransactionRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) InventoryService {
	return &inventoryService{
		materialRepo:    materialRepo,
		transactionRepo: transactionRepo,
		txManager:       txManager,
		notifier:        notifier,
	}
}

func (s *inventoryService) ListMaterials(ctx context.Context, page, limit int, search string) ([]MaterialResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	materials, total, err := s.materialRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]MaterialResponse, 0, len(materials))
	for i := range materials {
		res = append(res, toMaterialResponse(&materials[i]))
	}
	return res, total, nil
}

func (s *inventoryService) GetMaterial(ctx context.Context, id string) (MaterialResponse, error) {
	materialID, err := uuid.Parse(id)
	if err != nil {
		return MaterialResponse{}, fmt.Errorf("%w: invalid material id", apperrors.ErrValidation)
	}

	material, err := s.materialRepo.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MaterialResponse{}, fmt.Errorf("%w: material %s", apperrors.ErrNotFound, id)
		}
		return MaterialResponse{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return toMaterialResponse(material), nil
}

func (s *inventoryService) FindByBarcode(ctx context.Context, barcode string) (MaterialResponse, error) {
	if strings.TrimSpace(barcode) == "" {
		return MaterialResponse{}, fmt.Errorf("%w: barcode is required", apperrors.ErrValidation)
	}

	material, err := s.materialRepo.FindByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MaterialResponse{}, fmt.Errorf("%w: no material with barcode %s", apperrors.ErrNotFound, barcode)
		}
		return MaterialResponse{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return toMaterialResponse(material), nil
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]MaterialResponse, error) {
	materials, err := s.materialRepo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]MaterialResponse, 0, len(materials))
	for i := range materials {
		res = append(res, toMaterialResponse(&materials[i]))
	}
	return res, nil
}

func (s *inventoryService) CreateMaterial(ctx context.Context, req CreateMaterialRequest) (MaterialResponse, error) {
	expiry, err := parseExpiry(req.Category, req.ExpiryDate)
	if err != nil {
		return MaterialResponse{}, err
	}

	material := model.Material{
		MaterialCode: req.MaterialCode,
		Barcode:      normalizeBarcode(req.Barcode),
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		InitialStock: req.InitialStock,
		CurrentStock: req.InitialStock,
		MinStock:     req.MinStock,
		Price:        req.Price,
		Location:     req.Location,
		Note:         req.Note,
		ExpiryDate:   expiry,
	}

	if err := s.materialRepo.Create(ctx, &material); err != nil {
		return MaterialResponse{}, fmt.Errorf("%w: failed to create material: %v", apperrors.ErrPersistence, err)
	}

	return toMaterialResponse(&material), nil
}

func (s *inventoryService) UpdateMaterial(ctx context.Context, id string, req UpdateMaterialRequest) (MaterialResponse, error) {
	materialID, err := uuid.Parse(id)
	if err != nil {
		return MaterialResponse{}, fmt.Errorf("%w: invalid material id", apperrors.ErrValidation)
	}

	material, err := s.materialRepo.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MaterialResponse{}, fmt.Errorf("%w: material %s", apperrors.ErrNotFound, id)
		}
		return MaterialResponse{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if req.MaterialCode != nil {
		material.MaterialCode = *req.MaterialCode
	}
	if req.Barcode != nil {
		material.Barcode = normalizeBarcode(req.Barcode)
	}
	if req.Name != nil {
		material.Name = *req.Name
	}
	if req.Category != nil {
		material.Category = *req.Category
	}
	if req.Unit != nil {
		material.Unit = *req.Unit
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return MaterialResponse{}, fmt.Errorf("%w: min_stock must not be negative", apperrors.ErrValidation)
		}
		material.MinStock = *req.MinStock
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return MaterialResponse{}, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
		}
		material.Price = *req.Price
	}
	if req.Location != nil {
		material.Location = *req.Location
	}
	if req.Note != nil {
		material.Note = *req.Note
	}
	if req.ExpiryDate != nil {
		expiry, parseErr := parseExpiry(material.Category, req.ExpiryDate)
		if parseErr != nil {
			return MaterialResponse{}, parseErr
		}
		material.ExpiryDate = expiry
	}

	if perishableCategories[strings.ToLower(material.Category)] && material.ExpiryDate == nil {
		return MaterialResponse{}, fmt.Errorf("%w: expiry_date is required for category %q", apperrors.ErrValidation, material.Category)
	}

	if err := s.materialRepo.Update(ctx, material); err != nil {
		return MaterialResponse{}, fmt.Errorf("%w: failed to update material: %v", apperrors.ErrPersistence, err)
	}

	return toMaterialResponse(material), nil
}

func (s *inventoryService) DeleteMaterial(ctx context.Context, id string) error {
	materialID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid material id", apperrors.ErrValidation)
	}

	if _, err := s.materialRepo.FindByID(ctx, materialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: material %s", apperrors.ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if err := s.materialRepo.Delete(ctx, materialID); err != nil {
		return fmt.Errorf("%w: failed to delete material: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

// RecordTransaction applies one stock movement atomically: the movement row
// and the stock update commit together or not at all. Over-withdrawals clamp
// the stock at zero without raising an error; the movement row records the
// clamped stock_after.
func (s *inventoryService) RecordTransaction(ctx context.Context, req CreateTransactionRequest) (TransactionResponse, error) {
	materialID, err := uuid.Parse(req.MaterialID)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("%w: invalid material id", apperrors.ErrValidation)
	}
	if req.Type != model.TxTypeIn && req.Type != model.TxTypeOut {
		return TransactionResponse{}, fmt.Errorf("%w: type must be %q or %q", apperrors.ErrValidation, model.TxTypeIn, model.TxTypeOut)
	}
	if req.Quantity <= 0 {
		return TransactionResponse{}, fmt.Errorf("%w: quantity must be a positive integer", apperrors.ErrValidation)
	}

	var material *model.Material
	var txn model.StockTransaction

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		material, err = s.materialRepo.FindByIDForUpdate(txCtx, materialID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: material %s", apperrors.ErrNotFound, req.MaterialID)
			}
			return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}

		newStock := material.CurrentStock + req.Quantity
		if req.Type == model.TxTypeOut {
			newStock = material.CurrentStock - req.Quantity
		}
		if newStock < 0 {
			newStock = 0
		}

		txn = model.StockTransaction{
			MaterialID:      materialID,
			Type:            req.Type,
			Quantity:        req.Quantity,
			StockAfter:      newStock,
			TransactionDate: time.Now(),
			ReferenceNumber: req.ReferenceNumber,
			Note:            req.Note,
			UserName:        req.UserName,
		}
		if err := s.transactionRepo.Create(txCtx, &txn); err != nil {
			return fmt.Errorf("%w: failed to record transaction: %v", apperrors.ErrPersistence, err)
		}

		if err := s.materialRepo.UpdateStock(txCtx, materialID, newStock); err != nil {
			return fmt.Errorf("%w: failed to update stock: %v", apperrors.ErrPersistence, err)
		}

		material.CurrentStock = newStock
		return nil
	})
	if err != nil {
		return TransactionResponse{}, err
	}

	if s.notifier != nil && material.IsLowStock() {
		s.notifier.Notify("low_stock", "Low stock",
			fmt.Sprintf("%s is at %d %s (minimum %d)", material.Name, material.CurrentStock, material.Unit, material.MinStock),
			"warning",
			map[string]interface{}{"material_id": material.ID.String(), "current_stock": material.CurrentStock})
	}

	resp := toTransactionResponse(&txn)
	resp.MaterialName = material.Name
	resp.Unit = material.Unit
	return resp, nil
}

func (s *inventoryService) ListTransactions(ctx context.Context, page, limit int) ([]TransactionResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	transactions, total, err := s.transactionRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		r := toTransactionResponse(&transactions[i])
		r.MaterialName = transactions[i].Material.Name
		r.Unit = transactions[i].Material.Unit
		res = append(res, r)
	}
	return res, total, nil
}

func (s *inventoryService) ListMaterialTransactions(ctx context.Context, materialID string) ([]TransactionResponse, error) {
	id, err := uuid.Parse(materialID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid material id", apperrors.ErrValidation)
	}

	transactions, err := s.transactionRepo.ListByMaterial(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		res = append(res, toTransactionResponse(&transactions[i]))
	}
	return res, nil
}

// --- Helpers ---

func normalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*barcode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseExpiry(category string, expiry *string) (*time.Time, error) {
	if expiry == nil || *expiry == "" {
		if perishableCategories[strings.ToLower(category)] {
			return nil, fmt.Errorf("%w: expiry_date is required for category %q", apperrors.ErrValidation, category)
		}
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: expiry_date must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	return &t, nil
}

func toMaterialResponse(m *model.Material) MaterialResponse {
	resp := MaterialResponse{
		ID:           m.ID.String(),
		MaterialCode: m.MaterialCode,
		Name:         m.Name,
		Category:     m.Category,
		Unit:         m.Unit,
		CurrentStock: m.CurrentStock,
		MinStock:     m.MinStock,
		LowStock:     m.IsLowStock(),
		Price:        m.Price,
		Location:     m.Location,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.Format(time.RFC3339),
	}
	if m.Barcode != nil {
		resp.Barcode = *m.Barcode
	}
	if m.ExpiryDate != nil {
		resp.ExpiryDate = m.ExpiryDate.Format("2006-01-02")
	}
	return resp
}

func toTransactionResponse(t *model.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		MaterialID:      t.MaterialID.String(),
		Type:            t.Type,
		Quantity:        t.Quantity,
		StockAfter:      t.StockAfter,
		TransactionDate: t.TransactionDate.Format(time.RFC3339),
		ReferenceNumber: t.ReferenceNumber,
		Note:            t.Note,
		UserName:        t.UserName,
	}
}
