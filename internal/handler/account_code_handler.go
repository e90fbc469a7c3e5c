package handler

import (
	"net/http"

	"materialflow/internal/middleware"
	"materialflow/internal/model"
	"materialflow/internal/service"
	"materialflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type AccountCodeHandler struct {
	accountCodeService service.AccountCodeService
}

func NewAccountCodeHandler(accountCodeService service.AccountCodeService) *AccountCodeHandler {
	return &AccountCodeHandler{accountCodeService: accountCodeService}
}

func (h *AccountCodeHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleEmployee)
	adminRole := middleware.RequireRole(model.RoleAdmin)

	codes := router.Group("/api/account-codes")
	{
		codes.GET("", anyRole, h.ListActive)
		codes.POST("", adminRole, h.Create)
		codes.PUT("/:id", adminRole, h.Update)
		codes.DELETE("/:id", adminRole, h.Delete)
	}
}

// ListActive returns the active account codes for the request form
// @Summary      List account codes
// @Tags         account-codes
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.AccountCodeResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/account-codes [get]
func (h *AccountCodeHandler) ListActive(c *gin.Context) {
	codes, err := h.accountCodeService.ListActive(c.Request.Context())
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, codes))
}

// Create adds a new account code
// @Summary      Create account code
// @Tags         account-codes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAccountCodeRequest  true  "Account Code Payload"
// @Success      201      {object}  response.Response{data=service.AccountCodeResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/account-codes [post]
func (h *AccountCodeHandler) Create(c *gin.Context) {
	var req service.CreateAccountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	code, err := h.accountCodeService.Create(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, code))
}

// Update modifies an existing account code
// @Summary      Update account code
// @Tags         account-codes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Account Code ID"
// @Param        payload  body      service.UpdateAccountCodeRequest  true  "Account Code Payload"
// @Success      200      {object}  response.Response{data=service.AccountCodeResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/account-codes/{id} [put]
func (h *AccountCodeHandler) Update(c *gin.Context) {
	var req service.UpdateAccountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	code, err := h.accountCodeService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, code))
}

// Delete removes an account code
// @Summary      Delete account code
// @Tags         account-codes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Account Code ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/account-codes/{id} [delete]
func (h *AccountCodeHandler) Delete(c *gin.Context) {
	if err := h.accountCodeService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
