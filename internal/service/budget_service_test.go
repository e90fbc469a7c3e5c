package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"materialflow/internal/apperrors"
	"materialflow/internal/mailer"
	"materialflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Fakes ---

type fakeBudgetRepo struct {
	requests map[uuid.UUID]*model.BudgetRequest
}

func newFakeBudgetRepo() *fakeBudgetRepo {
	return &fakeBudgetRepo{requests: make(map[uuid.UUID]*model.BudgetRequest)}
}

func (r *fakeBudgetRepo) Create(_ context.Context, req *model.BudgetRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *fakeBudgetRepo) Update(_ context.Context, req *model.BudgetRequest) error {
	if _, ok := r.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *fakeBudgetRepo) FindByID(_ context.Context, id uuid.UUID) (*model.BudgetRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *req
	return &copied, nil
}

func (r *fakeBudgetRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.BudgetRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBudgetRepo) FindByRequestNo(_ context.Context, requestNo string) (*model.BudgetRequest, error) {
	for _, req := range r.requests {
		if req.RequestNo == requestNo {
			copied := *req
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBudgetRepo) List(_ context.Context, status string, _, _ int) ([]model.BudgetRequest, int64, error) {
	var res []model.BudgetRequest
	for _, req := range r.requests {
		if status == "" || req.Status == status {
			res = append(res, *req)
		}
	}
	return res, int64(len(res)), nil
}

func (r *fakeBudgetRepo) DeleteIfPending(_ context.Context, id uuid.UUID) (bool, error) {
	req, ok := r.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return false, nil
	}
	delete(r.requests, id)
	return true, nil
}

func (r *fakeBudgetRepo) NextSequenceForPrefix(_ context.Context, prefix string) (int64, error) {
	var max int64
	for _, req := range r.requests {
		if !strings.HasPrefix(req.RequestNo, prefix) {
			continue
		}
		seq, err := strconv.ParseInt(strings.TrimPrefix(req.RequestNo, prefix), 10, 64)
		if err != nil {
			return 0, err
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

type fakeApprovalRepo struct {
	approvals []model.Approval
}

func (r *fakeApprovalRepo) Create(_ context.Context, approval *model.Approval) error {
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	r.approvals = append(r.approvals, *approval)
	return nil
}

func (r *fakeApprovalRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]model.Approval, error) {
	var res []model.Approval
	for _, a := range r.approvals {
		if a.RequestID == requestID {
			res = append(res, a)
		}
	}
	return res, nil
}

type fakeMailer struct {
	sent []mailer.ApprovalEmail
	err  error
}

func (m *fakeMailer) SendApprovalEmail(_ context.Context, email mailer.ApprovalEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func newBudgetFixture() (*fakeBudgetRepo, *fakeApprovalRepo, *fakeMailer, *fakeNotifier, BudgetService) {
	requestRepo := newFakeBudgetRepo()
	approvalRepo := &fakeApprovalRepo{}
	mail := &fakeMailer{}
	notifier := &fakeNotifier{}
	svc := NewBudgetService(requestRepo, approvalRepo, &fakeTxManager{}, mail, notifier)
	return requestRepo, approvalRepo, mail, notifier, svc
}

func validCreateRequest() CreateBudgetRequest {
	return CreateBudgetRequest{
		Requester:   "Dana Kim",
		AccountCode: "6100",
		AccountName: "Office Supplies",
		Amount:      decimal.NewFromInt(1500),
		Items: []BudgetItemRequest{
			{Item: "Printer toner", Quantity: 4},
			{Item: "Copy paper", Quantity: 10},
		},
	}
}

var requestNoPattern = regexp.MustCompile(`^REQ-\d{12}$`)

// --- Tests ---

func TestCreateRequest(t *testing.T) {
	_, _, _, notifier, svc := newBudgetFixture()

	created, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, created.Status)
	assert.Regexp(t, requestNoPattern, created.RequestNo)
	assert.Equal(t, "1500.00", created.Amount)
	assert.Len(t, created.Items, 2)
	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, "budget_request_created", notifier.notifications[0].Event)
}

func TestCreateRequestSequenceIncrements(t *testing.T) {
	_, _, _, _, svc := newBudgetFixture()

	first, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)
	second, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.RequestNo, second.RequestNo)
	assert.True(t, strings.HasSuffix(first.RequestNo, "0001"))
	assert.True(t, strings.HasSuffix(second.RequestNo, "0002"))
}

func TestRequestNumbersNotReusedAfterDelete(t *testing.T) {
	_, _, _, _, svc := newBudgetFixture()

	first, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)
	second, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRequest(context.Background(), first.ID))

	third, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEqual(t, second.RequestNo, third.RequestNo, "a freed number must never be reissued")
	assert.True(t, strings.HasSuffix(third.RequestNo, "0003"))
}

func TestCreateRequestValidation(t *testing.T) {
	_, _, _, _, svc := newBudgetFixture()

	req := validCreateRequest()
	req.Amount = decimal.Zero
	_, err := svc.CreateRequest(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	req = validCreateRequest()
	req.Items = nil
	_, err = svc.CreateRequest(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	req = validCreateRequest()
	req.Items[0].Quantity = 0
	_, err = svc.CreateRequest(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordDecisionApproves(t *testing.T) {
	_, approvalRepo, _, _, svc := newBudgetFixture()

	created, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	decided, err := svc.RecordDecision(context.Background(), created.ID, DecisionRequest{
		Decision:     model.DecisionApprove,
		ApproverName: "Morgan Vu",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusApproved, decided.Status)
	assert.Equal(t, "Morgan Vu", decided.ApproverName)
	require.Len(t, approvalRepo.approvals, 1)
	assert.Equal(t, model.DecisionApprove, approvalRepo.approvals[0].Decision)
}

func TestRecordDecisionIsTerminal(t *testing.T) {
	_, approvalRepo, _, _, svc := newBudgetFixture()

	created, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.RecordDecision(context.Background(), created.ID, DecisionRequest{Decision: model.DecisionReject})
	require.NoError(t, err)

	_, err = svc.RecordDecision(context.Background(), created.ID, DecisionRequest{Decision: model.DecisionApprove})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Len(t, approvalRepo.approvals, 1, "the second decision must not append a record")

	got, err := svc.GetRequest(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, got.Status)
}

func TestRecordDecisionByRequestNo(t *testing.T) {
	_, _, _, _, svc := newBudgetFixture()

	created, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	decided, err := svc.RecordDecisionByRequestNo(context.Background(), created.RequestNo, DecisionRequest{
		Decision: model.DecisionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, decided.Status)

	_, err = svc.RecordDecisionByRequestNo(context.Background(), "REQ-000000000000", DecisionRequest{
		Decision: model.DecisionApprove,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteRequestOnlyWhilePending(t *testing.T) {
	_, _, _, _, svc := newBudgetFixture()

	created, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRequest(context.Background(), created.ID))
	assert.ErrorIs(t, svc.DeleteRequest(context.Background(), created.ID), apperrors.ErrNotFound)

	decidedReq, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.RecordDecision(context.Background(), decidedReq.ID, DecisionRequest{Decision: model.DecisionApprove})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteRequest(context.Background(), decidedReq.ID), apperrors.ErrConflict)
}

func TestDeleteRequestRunsInTransaction(t *testing.T) {
	requestRepo := newFakeBudgetRepo()
	tm := &fakeTxManager{}
	svc := NewBudgetService(requestRepo, &fakeApprovalRepo{}, tm, &fakeMailer{}, &fakeNotifier{})

	created, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	callsBefore := tm.calls
	require.NoError(t, svc.DeleteRequest(context.Background(), created.ID))
	assert.Equal(t, callsBefore+1, tm.calls, "the request row and its items must be removed in one transaction")
}

func TestSendApprovalEmail(t *testing.T) {
	_, _, mail, _, svc := newBudgetFixture()

	created, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)

	err = svc.SendApprovalEmail(context.Background(), created.ID, SendApprovalEmailRequest{
		ApproverEmail: "approver@example.com",
		ApproverName:  "Morgan Vu",
	})
	require.NoError(t, err)

	require.Len(t, mail.sent, 1)
	sent := mail.sent[0]
	assert.Equal(t, created.RequestNo, sent.RequestNo)
	assert.Equal(t, "approver@example.com", sent.ApproverEmail)
	assert.Equal(t, "1500.00", sent.Amount)
	assert.Len(t, sent.Items, 2)
}

func TestSendApprovalEmailUnknownRequest(t *testing.T) {
	_, _, mail, _, svc := newBudgetFixture()

	err := svc.SendApprovalEmail(context.Background(), uuid.NewString(), SendApprovalEmailRequest{
		ApproverEmail: "approver@example.com",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, mail.sent)
}

func TestListRequestsByStatus(t *testing.T) {
	_, _, _, _, svc := newBudgetFixture()

	first, err := svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.CreateRequest(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.RecordDecision(context.Background(), first.ID, DecisionRequest{Decision: model.DecisionApprove})
	require.NoError(t, err)

	pending, total, err := svc.ListRequests(context.Background(), BudgetFilter{Status: model.RequestStatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pending, 1)
	assert.Equal(t, model.RequestStatusPending, pending[0].Status)
}
