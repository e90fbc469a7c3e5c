package service

import (
	"context"
	"errors"
	"fmt"

	"materialflow/internal/apperrors"
	"materialflow/internal/model"
	"materialflow/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateAccountCodeRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
}

type UpdateAccountCodeRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
	IsActive *bool   `json:"is_active"`
}

type AccountCodeResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	IsActive bool   `json:"is_active"`
}

type AccountCodeService interface {
	ListActive(ctx context.Context) ([]AccountCodeResponse, error)
	Create(ctx context.Context, req CreateAccountCodeRequest) (AccountCodeResponse, error)
	Update(ctx context.Context, id string, req UpdateAccountCodeRequest) (AccountCodeResponse, error)
	Delete(ctx context.Context, id string) error
}

type accountCodeService struct {
	repo repository.AccountCodeRepository
}

func NewAccountCodeService(repo repository.AccountCodeRepository) AccountCodeService {
	return &accountCodeService{repo: repo}
}

func (s *accountCodeService) ListActive(ctx context.Context) ([]AccountCodeResponse, error) {
	codes, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]AccountCodeResponse, 0, len(codes))
	for _, c := range codes {
		res = append(res, toAccountCodeResponse(&c))
	}
	return res, nil
}

func (s *accountCodeService) Create(ctx context.Context, req CreateAccountCodeRequest) (AccountCodeResponse, error) {
	code := model.AccountCode{
		Code:     req.Code,
		Name:     req.Name,
		Category: req.Category,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, &code); err != nil {
		return AccountCodeResponse{}, fmt.Errorf("%w: failed to create account code: %v", apperrors.ErrPersistence, err)
	}
	return toAccountCodeResponse(&code), nil
}

func (s *accountCodeService) Update(ctx context.Context, id string, req UpdateAccountCodeRequest) (AccountCodeResponse, error) {
	codeID, err := uuid.Parse(id)
	if err != nil {
		return AccountCodeResponse{}, fmt.Errorf("%w: invalid account code id", apperrors.ErrValidation)
	}

	code, err := s.repo.FindByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AccountCodeResponse{}, fmt.Errorf("%w: account code %s", apperrors.ErrNotFound, id)
		}
		return AccountCodeResponse{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if req.Code != nil {
		code.Code = *req.Code
	}
	if req.Name != nil {
		code.Name = *req.Name
	}
	if req.Category != nil {
		code.Category = *req.Category
	}
	if req.IsActive != nil {
		code.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, code); err != nil {
		return AccountCodeResponse{}, fmt.Errorf("%w: failed to update account code: %v", apperrors.ErrPersistence, err)
	}
	return toAccountCodeResponse(code), nil
}

func (s *accountCodeService) Delete(ctx context.Context, id string) error {
	codeID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid account code id", apperrors.ErrValidation)
	}

	if _, err := s.repo.FindByID(ctx, codeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: account code %s", apperrors.ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if err := s.repo.Delete(ctx, codeID); err != nil {
		return fmt.Errorf("%w: failed to delete account code: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

func toAccountCodeResponse(c *model.AccountCode) AccountCodeResponse {
	return AccountCodeResponse{
		ID:       c.ID.String(),
		Code:     c.Code,
		Name:     c.Name,
		Category: c.Category,
		IsActive: c.IsActive,
	}
}
