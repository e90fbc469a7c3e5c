package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"materialflow/internal/apperrors"
	"materialflow/internal/model"
	"materialflow/internal/service"
	"materialflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBudgetService struct {
	decided   []service.DecisionRequest
	decideErr error
	request   service.BudgetRequestResponse
}

func (f *fakeBudgetService) CreateRequest(_ context.Context, _ service.CreateBudgetRequest) (service.BudgetRequestResponse, error) {
	return f.request, nil
}

func (f *fakeBudgetService) GetRequest(_ context.Context, _ string) (service.BudgetRequestResponse, error) {
	return f.request, nil
}

func (f *fakeBudgetService) ListRequests(_ context.Context, _ service.BudgetFilter) ([]service.BudgetRequestResponse, int64, error) {
	return nil, 0, nil
}

func (f *fakeBudgetService) SendApprovalEmail(_ context.Context, _ string, _ service.SendApprovalEmailRequest) error {
	return nil
}

func (f *fakeBudgetService) RecordDecision(_ context.Context, _ string, req service.DecisionRequest) (service.BudgetRequestResponse, error) {
	if f.decideErr != nil {
		return service.BudgetRequestResponse{}, f.decideErr
	}
	f.decided = append(f.decided, req)
	return f.request, nil
}

func (f *fakeBudgetService) RecordDecisionByRequestNo(_ context.Context, _ string, req service.DecisionRequest) (service.BudgetRequestResponse, error) {
	if f.decideErr != nil {
		return service.BudgetRequestResponse{}, f.decideErr
	}
	f.decided = append(f.decided, req)
	return f.request, nil
}

func (f *fakeBudgetService) ListApprovals(_ context.Context, _ string) ([]service.ApprovalResponse, error) {
	return nil, nil
}

func (f *fakeBudgetService) DeleteRequest(_ context.Context, _ string) error {
	return nil
}

func setupDeepLinkRouter(svc service.BudgetService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewBudgetHandler(svc).RegisterPublicRoutes(router.Group(""))
	return router
}

func TestDecideByDeepLinkApprove(t *testing.T) {
	svc := &fakeBudgetService{request: service.BudgetRequestResponse{
		RequestNo: "REQ-202608310001",
		Status:    model.RequestStatusApproved,
	}}
	router := setupDeepLinkRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/approve/REQ-202608310001?action=approve&approver=Morgan", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.decided, 1)
	assert.Equal(t, model.DecisionApprove, svc.decided[0].Decision)
	assert.Equal(t, "Morgan", svc.decided[0].ApproverName)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
}

func TestDecideByDeepLinkReject(t *testing.T) {
	svc := &fakeBudgetService{}
	router := setupDeepLinkRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/approve/REQ-202608310001?action=reject", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.decided, 1)
	assert.Equal(t, model.DecisionReject, svc.decided[0].Decision)
}

func TestDecideByDeepLinkBadAction(t *testing.T) {
	svc := &fakeBudgetService{}
	router := setupDeepLinkRouter(svc)

	for _, target := range []string{
		"/approve/REQ-202608310001",
		"/approve/REQ-202608310001?action=maybe",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "target %s", target)
	}
	assert.Empty(t, svc.decided)
}

func TestDecideByDeepLinkAlreadyDecided(t *testing.T) {
	svc := &fakeBudgetService{
		decideErr: fmt.Errorf("%w: budget request is already APPROVED", apperrors.ErrConflict),
	}
	router := setupDeepLinkRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/approve/REQ-202608310001?action=approve", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Contains(t, body.Error, "already APPROVED")
}

func TestDecideByDeepLinkNotFound(t *testing.T) {
	svc := &fakeBudgetService{
		decideErr: fmt.Errorf("%w: budget request REQ-000000000000", apperrors.ErrNotFound),
	}
	router := setupDeepLinkRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/approve/REQ-000000000000?action=reject", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusForMapping(t *testing.T) {
	cases := map[error]int{
		apperrors.ErrValidation:          http.StatusBadRequest,
		apperrors.ErrNotFound:            http.StatusNotFound,
		apperrors.ErrConflict:            http.StatusConflict,
		apperrors.ErrDelivery:            http.StatusBadGateway,
		apperrors.ErrPersistence:         http.StatusInternalServerError,
		fmt.Errorf("something unmapped"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(fmt.Errorf("wrapped: %w", err)), "error %v", err)
	}
}
