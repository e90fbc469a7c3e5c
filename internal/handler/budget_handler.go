package handler

import (
	"net/http"

	"materialflow/internal/middleware"
	"materialflow/internal/model"
	"materialflow/internal/service"
	"materialflow/pkg/pagination"
	"materialflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type BudgetHandler struct {
	budgetService service.BudgetService
}

func NewBudgetHandler(budgetService service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

func (h *BudgetHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleEmployee)
	deciderRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	requests := router.Group("/api/budget-requests")
	{
		requests.GET("", anyRole, h.ListRequests)
		requests.POST("", anyRole, h.CreateRequest)
		requests.GET("/:id", anyRole, h.GetRequest)
		requests.DELETE("/:id", anyRole, h.DeleteRequest)
		requests.GET("/:id/approvals", anyRole, h.ListApprovals)
		requests.POST("/:id/send-approval-email", anyRole, h.SendApprovalEmail)
		requests.POST("/:id/decision", deciderRole, h.RecordDecision)
	}
}

// RegisterPublicRoutes mounts the email deep-link endpoint. The request number
// in the link is the capability; no session is required.
func (h *BudgetHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/approve/:request_no", h.DecideByDeepLink)
}

// ListRequests returns budget requests, optionally filtered by status
// @Summary      List budget requests
// @Tags         budget
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status (PENDING, APPROVED, REJECTED)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/budget-requests [get]
func (h *BudgetHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.BudgetFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	requests, total, err := h.budgetService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// CreateRequest submits a new budget request
// @Summary      Create budget request
// @Description  Creates a PENDING budget request with a generated request number
// @Tags         budget
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBudgetRequest  true  "Budget Request Payload"
// @Success      201      {object}  response.Response{data=service.BudgetRequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/budget-requests [post]
func (h *BudgetHandler) CreateRequest(c *gin.Context) {
	var req service.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if req.Requester == "" {
		req.Requester = c.GetString("userName")
	}

	request, err := h.budgetService.CreateRequest(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, request))
}

// GetRequest retrieves a single budget request by ID
// @Summary      Get budget request
// @Tags         budget
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.BudgetRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/budget-requests/{id} [get]
func (h *BudgetHandler) GetRequest(c *gin.Context) {
	request, err := h.budgetService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// DeleteRequest removes a budget request while it is still PENDING
// @Summary      Delete budget request
// @Description  Deletes a PENDING budget request. Decided requests cannot be deleted.
// @Tags         budget
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/budget-requests/{id} [delete]
func (h *BudgetHandler) DeleteRequest(c *gin.Context) {
	if err := h.budgetService.DeleteRequest(c.Request.Context(), c.Param("id")); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// ListApprovals returns the decision history of a budget request
// @Summary      List approvals
// @Tags         budget
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.ApprovalResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/budget-requests/{id}/approvals [get]
func (h *BudgetHandler) ListApprovals(c *gin.Context) {
	approvals, err := h.budgetService.ListApprovals(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, approvals))
}

// SendApprovalEmail dispatches the approve/reject email for a request
// @Summary      Send approval email
// @Description  Sends the approval email with approve/reject deep links to the given approver
// @Tags         budget
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Request ID"
// @Param        payload  body      service.SendApprovalEmailRequest  true  "Approver Payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /api/budget-requests/{id}/send-approval-email [post]
func (h *BudgetHandler) SendApprovalEmail(c *gin.Context) {
	var req service.SendApprovalEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.budgetService.SendApprovalEmail(c.Request.Context(), c.Param("id"), req); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"sent": true}))
}

// RecordDecision approves or rejects a pending budget request
// @Summary      Record decision
// @Description  Moves a PENDING request to APPROVED or REJECTED and stores the approval record
// @Tags         budget
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Request ID"
// @Param        payload  body      service.DecisionRequest  true  "Decision Payload"
// @Success      200      {object}  response.Response{data=service.BudgetRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/budget-requests/{id}/decision [post]
func (h *BudgetHandler) RecordDecision(c *gin.Context) {
	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if req.ApproverName == "" {
		req.ApproverName = c.GetString("userName")
	}

	request, err := h.budgetService.RecordDecision(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// DecideByDeepLink resolves the approve/reject links embedded in the email
// @Summary      Decide via email deep link
// @Description  Records an approve or reject decision addressed by request number
// @Tags         budget
// @Produce      json
// @Param        request_no  path      string  true   "Request number, e.g. REQ-202608310001"
// @Param        action      query     string  true   "approve or reject"
// @Param        approver    query     string  false  "Approver display name"
// @Success      200         {object}  response.Response{data=service.BudgetRequestResponse}
// @Failure      400         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Failure      409         {object}  response.Response
// @Router       /approve/{request_no} [get]
func (h *BudgetHandler) DecideByDeepLink(c *gin.Context) {
	var decision string
	switch c.Query("action") {
	case "approve":
		decision = model.DecisionApprove
	case "reject":
		decision = model.DecisionReject
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "action must be approve or reject"))
		return
	}

	req := service.DecisionRequest{
		Decision:     decision,
		ApproverName: c.Query("approver"),
		Remark:       c.Query("remark"),
	}

	request, err := h.budgetService.RecordDecisionByRequestNo(c.Request.Context(), c.Param("request_no"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}
