package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"materialflow/internal/apperrors"
	"materialflow/internal/mailer"
	"materialflow/internal/model"
	"materialflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const requestNoPrefix = "REQ-"

// ApprovalMailer dispatches the approval email for a budget request. The
// EmailJS client satisfies this.
type ApprovalMailer interface {
	SendApprovalEmail(ctx context.Context, email mailer.ApprovalEmail) error
}

// --- DTOs ---

type BudgetItemRequest struct {
	Item     string `json:"item" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type CreateBudgetRequest struct {
	Requester   string              `json:"requester" binding:"required"`
	RequestDate string              `json:"request_date"` // YYYY-MM-DD, defaults to today
	AccountCode string              `json:"account_code" binding:"required"`
	AccountName string              `json:"account_name"`
	Amount      decimal.Decimal     `json:"amount"`
	Note        string              `json:"note"`
	Items       []BudgetItemRequest `json:"items" binding:"required,min=1,dive"`
}

type SendApprovalEmailRequest struct {
	ApproverEmail string `json:"approver_email" binding:"required"`
	ApproverName  string `json:"approver_name"`
}

type DecisionRequest struct {
	Decision     string `json:"decision" binding:"required,oneof=APPROVE REJECT"`
	ApproverName string `json:"approver_name"`
	Remark       string `json:"remark"`
}

type BudgetItemResponse struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type BudgetRequestResponse struct {
	ID           string               `json:"id"`
	RequestNo    string               `json:"request_no"`
	Requester    string               `json:"requester"`
	RequestDate  string               `json:"request_date"`
	AccountCode  string               `json:"account_code"`
	AccountName  string               `json:"account_name"`
	Amount       string               `json:"amount"`
	Note         string               `json:"note,omitempty"`
	Items        []BudgetItemResponse `json:"items"`
	Status       string               `json:"status"`
	ApproverName string               `json:"approver_name,omitempty"`
	CreatedAt    string               `json:"created_at"`
}

type ApprovalResponse struct {
	ID           string `json:"id"`
	RequestID    string `json:"request_id"`
	Decision     string `json:"decision"`
	ApproverName string `json:"approver_name,omitempty"`
	Remark       string `json:"remark,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type BudgetFilter struct {
	Status string // PENDING, APPROVED, REJECTED or empty for all
	Page   int
	Limit  int
}

// --- Interface ---

type BudgetService interface {
	CreateRequest(ctx context.Context, req CreateBudgetRequest) (BudgetRequestResponse, error)
	GetRequest(ctx context.Context, id string) (BudgetRequestResponse, error)
	ListRequests(ctx context.Context, filter BudgetFilter) ([]BudgetRequestResponse, int64, error)
	SendApprovalEmail(ctx context.Context, id string, req SendApprovalEmailRequest) error
	RecordDecision(ctx context.Context, id string, req DecisionRequest) (BudgetRequestResponse, error)
	RecordDecisionByRequestNo(ctx context.Context, requestNo string, req DecisionRequest) (BudgetRequestResponse, error)
	ListApprovals(ctx context.Context, requestID string) ([]ApprovalResponse, error)
	DeleteRequest(ctx context.Context, id string) error
}

type budgetService struct {
	requestRepo  repository.BudgetRequestRepository
	approvalRepo repository.ApprovalRepository
	txManager    repository.TransactionManager
	mailer       ApprovalMailer
	notifier     Notifier
}

func NewBudgetService(
	requestRepo repository.BudgetRequestRepository,
	approvalRepo repository.ApprovalRepository,
	txManager repository.TransactionManager,
	approvalMailer ApprovalMailer,
	notifier Notifier,
) BudgetService {
	return &budgetService{
		requestRepo:  requestRepo,
		approvalRepo: approvalRepo,
		txManager:    txManager,
		mailer:       approvalMailer,
		notifier:     notifier,
	}
}

// --- Implementation ---

func (s *budgetService) CreateRequest(ctx context.Context, req CreateBudgetRequest) (BudgetRequestResponse, error) {
	if !req.Amount.IsPositive() {
		return BudgetRequestResponse{}, fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrValidation)
	}
	if len(req.Items) == 0 {
		return BudgetRequestResponse{}, fmt.Errorf("%w: at least one line item is required", apperrors.ErrValidation)
	}
	for _, item := range req.Items {
		if item.Item == "" || item.Quantity <= 0 {
			return BudgetRequestResponse{}, fmt.Errorf("%w: each line item needs a name and a positive quantity", apperrors.ErrValidation)
		}
	}

	requestDate := time.Now()
	if req.RequestDate != "" {
		parsed, err := time.Parse("2006-01-02", req.RequestDate)
		if err != nil {
			return BudgetRequestResponse{}, fmt.Errorf("%w: request_date must be YYYY-MM-DD", apperrors.ErrValidation)
		}
		requestDate = parsed
	}

	request := model.BudgetRequest{
		Requester:   req.Requester,
		RequestDate: requestDate,
		AccountCode: req.AccountCode,
		AccountName: req.AccountName,
		Amount:      req.Amount,
		Note:        req.Note,
		Status:      model.RequestStatusPending,
	}
	for _, item := range req.Items {
		request.Items = append(request.Items, model.BudgetRequestItem{
			Item:     item.Item,
			Quantity: item.Quantity,
		})
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		requestNo, err := s.generateRequestNo(txCtx)
		if err != nil {
			return fmt.Errorf("%w: failed to generate request number: %v", apperrors.ErrPersistence, err)
		}
		request.RequestNo = requestNo

		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("%w: failed to create budget request: %v", apperrors.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return BudgetRequestResponse{}, err
	}

	if s.notifier != nil {
		s.notifier.Notify("budget_request_created", "New budget request",
			fmt.Sprintf("%s requested %s against %s", request.Requester, request.Amount.StringFixed(2), request.AccountCode),
			"info",
			map[string]interface{}{"request_no": request.RequestNo})
	}

	return toBudgetResponse(&request), nil
}

func (s *budgetService) GetRequest(ctx context.Context, id string) (BudgetRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return BudgetRequestResponse{}, fmt.Errorf("%w: invalid request id", apperrors.ErrValidation)
	}

	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BudgetRequestResponse{}, fmt.Errorf("%w: budget request %s", apperrors.ErrNotFound, id)
		}
		return BudgetRequestResponse{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	resp := toBudgetResponse(request)

	// The most recent approval determines the displayed approver.
	approvals, err := s.approvalRepo.ListByRequest(ctx, requestID)
	if err == nil && len(approvals) > 0 {
		resp.ApproverName = approvals[len(approvals)-1].ApproverName
	}
	return resp, nil
}

func (s *budgetService) ListRequests(ctx context.Context, filter BudgetFilter) ([]BudgetRequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	requests, total, err := s.requestRepo.List(ctx, filter.Status, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]BudgetRequestResponse, 0, len(requests))
	for i := range requests {
		res = append(res, toBudgetResponse(&requests[i]))
	}
	return res, total, nil
}

// SendApprovalEmail renders and dispatches the approve/reject email for a
// pending request. Delivery failures are surfaced verbatim; nothing is
// retried or queued.
func (s *budgetService) SendApprovalEmail(ctx context.Context, id string, req SendApprovalEmailRequest) error {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid request id", apperrors.ErrValidation)
	}

	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: budget request %s", apperrors.ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	items := make([]mailer.LineItem, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, mailer.LineItem{Item: item.Item, Quantity: item.Quantity})
	}

	return s.mailer.SendApprovalEmail(ctx, mailer.ApprovalEmail{
		RequestNo:     request.RequestNo,
		Requester:     request.Requester,
		ApproverEmail: req.ApproverEmail,
		ApproverName:  req.ApproverName,
		AccountCode:   request.AccountCode,
		AccountName:   request.AccountName,
		Amount:        request.Amount.StringFixed(2),
		RequestDate:   request.RequestDate.Format("2006-01-02"),
		Items:         items,
		Note:          request.Note,
	})
}

func (s *budgetService) RecordDecision(ctx context.Context, id string, req DecisionRequest) (BudgetRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return BudgetRequestResponse{}, fmt.Errorf("%w: invalid request id", apperrors.ErrValidation)
	}
	return s.decide(ctx, requestID, req)
}

func (s *budgetService) RecordDecisionByRequestNo(ctx context.Context, requestNo string, req DecisionRequest) (BudgetRequestResponse, error) {
	request, err := s.requestRepo.FindByRequestNo(ctx, requestNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BudgetRequestResponse{}, fmt.Errorf("%w: budget request %s", apperrors.ErrNotFound, requestNo)
		}
		return BudgetRequestResponse{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return s.decide(ctx, request.ID, req)
}

// decide appends the approval record and moves the request to its terminal
// status inside one transaction. A request that already left PENDING is never
// transitioned again.
func (s *budgetService) decide(ctx context.Context, requestID uuid.UUID, req DecisionRequest) (BudgetRequestResponse, error) {
	if req.Decision != model.DecisionApprove && req.Decision != model.DecisionReject {
		return BudgetRequestResponse{}, fmt.Errorf("%w: decision must be %s or %s", apperrors.ErrValidation, model.DecisionApprove, model.DecisionReject)
	}

	var request *model.BudgetRequest
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		request, err = s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: budget request %s", apperrors.ErrNotFound, requestID)
			}
			return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}

		if request.Status != model.RequestStatusPending {
			return fmt.Errorf("%w: budget request is already %s", apperrors.ErrConflict, request.Status)
		}

		approval := model.Approval{
			RequestID:    request.ID,
			Decision:     req.Decision,
			ApproverName: req.ApproverName,
			Remark:       req.Remark,
		}
		if err := s.approvalRepo.Create(txCtx, &approval); err != nil {
			return fmt.Errorf("%w: failed to record approval: %v", apperrors.ErrPersistence, err)
		}

		if req.Decision == model.DecisionApprove {
			request.Status = model.RequestStatusApproved
		} else {
			request.Status = model.RequestStatusRejected
		}
		if err := s.requestRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("%w: failed to update request status: %v", apperrors.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return BudgetRequestResponse{}, err
	}

	if s.notifier != nil {
		severity := "success"
		if request.Status == model.RequestStatusRejected {
			severity = "warning"
		}
		s.notifier.Notify("budget_request_decided", "Budget request "+request.Status,
			fmt.Sprintf("Request %s was %s", request.RequestNo, request.Status),
			severity,
			map[string]interface{}{"request_no": request.RequestNo, "status": request.Status})
	}

	resp := toBudgetResponse(request)
	resp.ApproverName = req.ApproverName
	return resp, nil
}

func (s *budgetService) ListApprovals(ctx context.Context, requestID string) ([]ApprovalResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request id", apperrors.ErrValidation)
	}

	approvals, err := s.approvalRepo.ListByRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]ApprovalResponse, 0, len(approvals))
	for _, a := range approvals {
		res = append(res, ApprovalResponse{
			ID:           a.ID.String(),
			RequestID:    a.RequestID.String(),
			Decision:     a.Decision,
			ApproverName: a.ApproverName,
			Remark:       a.Remark,
			CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, nil
}

// DeleteRequest removes a request only while it is PENDING. The condition is
// enforced inside the repository's conditional delete, so no other caller can
// bypass it. The request row and its items are removed in one transaction.
func (s *budgetService) DeleteRequest(ctx context.Context, id string) error {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid request id", apperrors.ErrValidation)
	}

	var deleted bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		deleted, txErr = s.requestRepo.DeleteIfPending(txCtx, requestID)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete budget request: %v", apperrors.ErrPersistence, err)
	}
	if deleted {
		return nil
	}

	// Distinguish "absent" from "no longer PENDING" for the caller.
	if _, err := s.requestRepo.FindByID(ctx, requestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: budget request %s", apperrors.ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return fmt.Errorf("%w: only PENDING requests can be deleted", apperrors.ErrConflict)
}

// generateRequestNo draws the next number in the day's sequence, e.g.
// REQ-202608310007. The repository holds an advisory lock on the prefix for
// the duration of the transaction, so concurrent creations cannot collide.
func (s *budgetService) generateRequestNo(ctx context.Context) (string, error) {
	prefix := requestNoPrefix + time.Now().Format("20060102")
	seq, err := s.requestRepo.NextSequenceForPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// --- Helpers ---

func toBudgetResponse(r *model.BudgetRequest) BudgetRequestResponse {
	resp := BudgetRequestResponse{
		ID:          r.ID.String(),
		RequestNo:   r.RequestNo,
		Requester:   r.Requester,
		RequestDate: r.RequestDate.Format("2006-01-02"),
		AccountCode: r.AccountCode,
		AccountName: r.AccountName,
		Amount:      r.Amount.StringFixed(2),
		Note:        r.Note,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	resp.Items = make([]BudgetItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		resp.Items = append(resp.Items, BudgetItemResponse{Item: item.Item, Quantity: item.Quantity})
	}
	return resp
}
