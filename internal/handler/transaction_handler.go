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

type TransactionHandler struct {
	inventoryService service.InventoryService
}

func NewTransactionHandler(inventoryService service.InventoryService) *TransactionHandler {
	return &TransactionHandler{inventoryService: inventoryService}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleEmployee)

	transactions := router.Group("/api/transactions")
	{
		transactions.GET("", anyRole, h.ListTransactions)
		transactions.POST("", anyRole, h.CreateTransaction)
	}
}

// ListTransactions returns the paginated stock movement log
// @Summary      List stock transactions
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	params := pagination.Parse(c)

	transactions, total, err := h.inventoryService.ListTransactions(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}

// CreateTransaction records one stock movement against a material
// @Summary      Record stock transaction
// @Description  Applies an in/out movement to a material's stock. Withdrawals below zero clamp the stock at zero.
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTransactionRequest  true  "Stock Transaction Payload"
// @Success      201      {object}  response.Response{data=service.TransactionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if req.UserName == "" {
		req.UserName = c.GetString("userName")
	}

	txn, err := h.inventoryService.RecordTransaction(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, txn))
}
